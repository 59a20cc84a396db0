package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"assettrack/internal/auth"
	"assettrack/internal/models"
	"assettrack/internal/services"
)

const dateLayout = "2006-01-02"

type Handler struct {
	assets   services.AssetService
	dir      services.DirectoryService
	sessions *auth.Manager
}

func RegisterRoutes(r *gin.Engine, assets services.AssetService, dir services.DirectoryService, sessions *auth.Manager) {
	h := &Handler{assets: assets, dir: dir, sessions: sessions}

	api := r.Group("/api")

	api.POST("/auth/login", h.login)
	api.POST("/auth/logout", h.logout)

	authed := api.Group("", RequireSession(sessions))

	// Asset type endpoints
	authed.GET("/asset-types", h.listAssetTypes)

	// Asset lifecycle endpoints
	authed.POST("/assets", h.registerAsset)
	authed.POST("/assignments", h.registerAndAssign)
	authed.POST("/assets/assign-existing", h.assignExisting)
	authed.POST("/assets/reassign", h.reassignAsset)
	authed.PUT("/assets/unassign/:assetId", h.unassignAsset)
	authed.POST("/assets/repair", h.moveToRepair)
	authed.PUT("/assets/solve-repair/:assetId", h.solveRepair)
	authed.PUT("/assets/retire/:assetId", h.retireAsset)
	authed.PUT("/assets/status-update/:assetId", h.updateStatus)
	authed.PUT("/assets/restore/:assetId", h.restoreAsset)

	// Asset query endpoints
	authed.GET("/assets/id/:assetId", h.getAsset)
	authed.GET("/assets/history/:assetId", h.getAssignmentHistory)
	authed.GET("/assets/repairs/:assetId", h.getRepairHistory)
	authed.GET("/assets/status/:typeName/:status", h.listAssetsByStatus)
	authed.GET("/assets/type/:typeId", h.listAssetsByType)
	authed.GET("/users/assets/:employeeId", h.listAssetsHeldBy)

	// Admin endpoints
	admin := authed.Group("", RequireAdmin())
	admin.POST("/asset-types", h.createAssetType)
	admin.DELETE("/asset-types/:id", h.deleteAssetType)
	admin.POST("/assets/end-assignment", h.endAssignment)
	admin.DELETE("/assets/:assetId", h.deleteAsset)
	admin.GET("/users", h.listUsers)
	admin.POST("/users", h.createUser)
	admin.POST("/users/bulk", h.bulkCreateUsers)
	admin.PUT("/users/:id", h.updateUser)
	admin.DELETE("/users/:id", h.deactivateUser)
}

// writeServiceError maps domain sentinel errors onto HTTP status codes. Any
// unrecognized error is a storage failure and surfaces as 500.
func writeServiceError(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, services.ErrAssetNotFound),
		errors.Is(err, services.ErrUserNotFound):
		code = http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateAssetID),
		errors.Is(err, services.ErrDuplicateTypeName),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrUnknownAssetType),
		errors.Is(err, services.ErrTypeLimitReached):
		code = http.StatusBadRequest
	case errors.Is(err, services.ErrAssetNotAvailable),
		errors.Is(err, services.ErrAssetNotEligible),
		errors.Is(err, services.ErrNoActiveAssignment),
		errors.Is(err, services.ErrNoPendingRepair),
		errors.Is(err, services.ErrInvariantViolation):
		code = http.StatusConflict
	default:
		code = http.StatusInternalServerError
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// parseDate parses an optional YYYY-MM-DD request field. An empty string
// yields the zero time, which services treat as "today".
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// resolveEmployeeName returns the given name, or looks the employee up in the
// directory when the caller omitted it. An unknown employee id is a request
// error; any other lookup failure is a storage error. The response is written
// on failure and ok is false.
func (h *Handler) resolveEmployeeName(c *gin.Context, employeeID, given string) (name string, ok bool) {
	if given != "" {
		return given, true
	}
	user, err := h.dir.LookupEmployee(employeeID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown employee"})
		} else {
			writeServiceError(c, err)
		}
		return "", false
	}
	return user.Name, true
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

type loginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// login validates the email against the user directory and issues a session
// token. Identity-provider verification happens upstream; only registered,
// active directory entries may log in.
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.dir.LookupByEmail(req.Email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access Denied: You are not registered in the employee directory."})
			return
		}
		writeServiceError(c, err)
		return
	}
	if user.Status != models.UserStatusActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access Denied: Your directory entry is inactive."})
		return
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// logout acknowledges the logout; tokens are stateless, so the client simply
// discards its copy.
func (h *Handler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// ─── Asset Types ──────────────────────────────────────────────────────────────

type createAssetTypeRequest struct {
	Name       string `json:"name" binding:"required"`
	TotalLimit int    `json:"total_limit"`
}

func (h *Handler) createAssetType(c *gin.Context) {
	var req createAssetTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.assets.CreateAssetType(req.Name, req.TotalLimit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) listAssetTypes(c *gin.Context) {
	types, err := h.assets.ListAssetTypes()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *Handler) deleteAssetType(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset type id"})
		return
	}
	if err := h.assets.DeleteAssetType(uint(id)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset type deleted successfully"})
}

// ─── Asset Registration ───────────────────────────────────────────────────────

type registerAssetRequest struct {
	AssetID  string `json:"asset_id" binding:"required"`
	TypeID   uint   `json:"type_id"`
	TypeName string `json:"type_name"`
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	BoughtOn string `json:"bought_on"`

	RAM             string `json:"ram"`
	Processor       string `json:"processor"`
	ScreenSize      string `json:"screen_size"`
	OS              string `json:"os"`
	StorageCapacity string `json:"storage_capacity"`
}

func (r *registerAssetRequest) toInput() (services.RegisterAssetInput, error) {
	input := services.RegisterAssetInput{
		AssetID:         r.AssetID,
		TypeID:          r.TypeID,
		TypeName:        r.TypeName,
		Brand:           r.Brand,
		Model:           r.Model,
		RAM:             r.RAM,
		Processor:       r.Processor,
		ScreenSize:      r.ScreenSize,
		OS:              r.OS,
		StorageCapacity: r.StorageCapacity,
	}
	if r.BoughtOn != "" {
		bought, err := time.Parse(dateLayout, r.BoughtOn)
		if err != nil {
			return input, err
		}
		input.BoughtOn = &bought
	}
	return input, nil
}

func (h *Handler) registerAsset(c *gin.Context) {
	var req registerAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bought_on date"})
		return
	}

	asset, err := h.assets.RegisterAsset(input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

type registerAndAssignRequest struct {
	registerAssetRequest
	EmployeeID   string `json:"employee_id" binding:"required"`
	EmployeeName string `json:"employee_name"`
	FromDate     string `json:"from_date"`
}

func (h *Handler) registerAndAssign(c *gin.Context) {
	var req registerAndAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bought_on date"})
		return
	}
	fromDate, err := parseDate(req.FromDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date"})
		return
	}
	name, ok := h.resolveEmployeeName(c, req.EmployeeID, req.EmployeeName)
	if !ok {
		return
	}

	asset, err := h.assets.RegisterAndAssign(input, req.EmployeeID, name, fromDate)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "New asset created and assigned successfully",
		"asset":   asset,
	})
}

// ─── Assignment Lifecycle ─────────────────────────────────────────────────────

type assignExistingRequest struct {
	AssetID      string `json:"asset_id" binding:"required"`
	EmployeeID   string `json:"employee_id" binding:"required"`
	EmployeeName string `json:"employee_name"`
	FromDate     string `json:"from_date"`
}

func (h *Handler) assignExisting(c *gin.Context) {
	var req assignExistingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fromDate, err := parseDate(req.FromDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date"})
		return
	}
	name, ok := h.resolveEmployeeName(c, req.EmployeeID, req.EmployeeName)
	if !ok {
		return
	}

	if err := h.assets.AssignAsset(req.AssetID, req.EmployeeID, name, fromDate); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset assigned successfully"})
}

type reassignRequest struct {
	AssetID         string `json:"asset_id" binding:"required"`
	OldEmployeeID   string `json:"old_employee_id" binding:"required"`
	NewEmployeeID   string `json:"new_employee_id" binding:"required"`
	NewEmployeeName string `json:"new_employee_name"`
	Remarks         string `json:"remarks"`
}

func (h *Handler) reassignAsset(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, ok := h.resolveEmployeeName(c, req.NewEmployeeID, req.NewEmployeeName)
	if !ok {
		return
	}

	if err := h.assets.ReassignAsset(req.AssetID, req.OldEmployeeID, req.NewEmployeeID, name, req.Remarks); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset reassigned successfully"})
}

type remarksRequest struct {
	Remarks string `json:"remarks"`
}

func (h *Handler) unassignAsset(c *gin.Context) {
	var req remarksRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.assets.UnassignAsset(c.Param("assetId"), req.Remarks); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset surrendered successfully"})
}

type endAssignmentRequest struct {
	AssetID    string `json:"asset_id" binding:"required"`
	EmployeeID string `json:"employee_id" binding:"required"`
	Remarks    string `json:"remarks"`
}

func (h *Handler) endAssignment(c *gin.Context) {
	var req endAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.assets.EndAssignment(req.AssetID, req.EmployeeID, req.Remarks); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assignment ended successfully"})
}

// ─── Repairs ──────────────────────────────────────────────────────────────────

type moveToRepairRequest struct {
	AssetID       string `json:"asset_id" binding:"required"`
	IssueReported string `json:"issue_reported" binding:"required"`
	DateReported  string `json:"date_reported"`
}

func (h *Handler) moveToRepair(c *gin.Context) {
	var req moveToRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dateReported, err := parseDate(req.DateReported)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_reported"})
		return
	}

	if err := h.assets.MoveToRepair(req.AssetID, req.IssueReported, dateReported); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Asset moved to repairs"})
}

type solveRepairRequest struct {
	IssueReported    string `json:"issue_reported"`
	Amount           int    `json:"amount"`
	DateResolved     string `json:"date_resolved"`
	ResolverComments string `json:"resolver_comments"`
}

func (h *Handler) solveRepair(c *gin.Context) {
	var req solveRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resolvedDate, err := parseDate(req.DateResolved)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_resolved"})
		return
	}

	if err := h.assets.SolveRepair(c.Param("assetId"), req.IssueReported, req.Amount, resolvedDate, req.ResolverComments); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Repair resolved successfully"})
}

// ─── Retire / Restore / Delete ────────────────────────────────────────────────

func (h *Handler) retireAsset(c *gin.Context) {
	if err := h.assets.RetireAsset(c.Param("assetId")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset retired successfully"})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.assets.UpdateStatus(c.Param("assetId"), req.Status); err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset status updated successfully"})
}

func (h *Handler) restoreAsset(c *gin.Context) {
	if err := h.assets.RestoreAsset(c.Param("assetId")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset restored to inventory"})
}

// deleteAsset soft-deletes by default; ?purge=1 performs the administrative
// hard delete of the asset and its ledgers.
func (h *Handler) deleteAsset(c *gin.Context) {
	assetID := c.Param("assetId")
	if c.Query("purge") == "1" {
		if err := h.assets.PurgeAsset(assetID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Asset purged"})
		return
	}

	if err := h.assets.SoftDeleteAsset(assetID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted successfully"})
}

// ─── Asset Queries ────────────────────────────────────────────────────────────

func (h *Handler) getAsset(c *gin.Context) {
	asset, err := h.assets.GetAsset(c.Param("assetId"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

type assignmentRowResponse struct {
	EmployeeID   string  `json:"employee_id"`
	EmployeeName string  `json:"employee_name"`
	FromDate     string  `json:"from_date"`
	ToDate       *string `json:"to_date"`
	Remarks      string  `json:"remarks"`
}

func (h *Handler) getAssignmentHistory(c *gin.Context) {
	rows, err := h.assets.GetAssignmentHistory(c.Param("assetId"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	out := make([]assignmentRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, assignmentRowResponse{
			EmployeeID:   row.EmployeeID,
			EmployeeName: row.EmployeeName,
			FromDate:     formatDate(row.FromDate),
			ToDate:       formatDatePtr(row.ToDate),
			Remarks:      row.Remarks,
		})
	}
	c.JSON(http.StatusOK, out)
}

type repairRowResponse struct {
	ID               uint                `json:"id"`
	IssueReported    string              `json:"issue_reported"`
	DateReported     string              `json:"date_reported"`
	DateResolved     *string             `json:"date_resolved"`
	Amount           *int                `json:"amount"`
	Status           models.RepairStatus `json:"status"`
	ResolverComments string              `json:"resolver_comments"`
}

func (h *Handler) getRepairHistory(c *gin.Context) {
	rows, err := h.assets.GetRepairHistory(c.Param("assetId"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	out := make([]repairRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, repairRowResponse{
			ID:               row.ID,
			IssueReported:    row.IssueReported,
			DateReported:     formatDate(row.DateReported),
			DateResolved:     formatDatePtr(row.DateResolved),
			Amount:           row.Amount,
			Status:           row.Status,
			ResolverComments: row.ResolverComments,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) listAssetsByStatus(c *gin.Context) {
	typeName := c.Param("typeName")
	status := c.Param("status")

	// The Repairs view carries the open issue alongside each asset.
	if status == string(models.AssetStatusRepairs) {
		rows, err := h.assets.ListAssetsInRepairs(typeName)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
		return
	}

	assets, err := h.assets.ListAssetsByStatus(typeName, status)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (h *Handler) listAssetsByType(c *gin.Context) {
	typeID, err := strconv.ParseUint(c.Param("typeId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type id"})
		return
	}

	assets, err := h.assets.ListAssetsByType(uint(typeID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func (h *Handler) listAssetsHeldBy(c *gin.Context) {
	assets, err := h.assets.ListAssetsHeldBy(c.Param("employeeId"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

// ─── User Directory ───────────────────────────────────────────────────────────

type createUserRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Role       string `json:"role"`
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.dir.ListUsers()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.dir.CreateUser(services.NewUserInput{
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Email:      req.Email,
		Role:       models.UserRole(req.Role),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) bulkCreateUsers(c *gin.Context) {
	var reqs []createUserRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputs := make([]services.NewUserInput, 0, len(reqs))
	for _, req := range reqs {
		inputs = append(inputs, services.NewUserInput{
			EmployeeID: req.EmployeeID,
			Name:       req.Name,
			Email:      req.Email,
			Role:       models.UserRole(req.Role),
		})
	}

	created, skipped, err := h.dir.BulkCreateUsers(inputs)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"created": len(created),
		"skipped": skipped,
	})
}

type updateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) updateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.dir.UpdateUser(uint(id), req.Name, req.Email); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

func (h *Handler) deactivateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.dir.DeactivateUser(uint(id)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}
