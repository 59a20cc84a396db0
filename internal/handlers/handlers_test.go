package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"assettrack/internal/auth"
	"assettrack/internal/models"
	"assettrack/internal/repositories"
	"assettrack/internal/services"
)

type testEnv struct {
	router        *gin.Engine
	db            *gorm.DB
	adminToken    string
	employeeToken string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	typeRepo := repositories.NewAssetTypeRepository(db)
	assetRepo := repositories.NewAssetRepository(db)
	assignRepo := repositories.NewAssignmentRepository(db)
	repairRepo := repositories.NewRepairRepository(db)
	userRepo := repositories.NewUserRepository(db)

	assetService := services.NewAssetService(db, services.Config{}, typeRepo, assetRepo, assignRepo, repairRepo)
	directoryService := services.NewDirectoryService(db, userRepo)
	sessions := auth.NewManager("test-secret", time.Hour)

	router := gin.New()
	RegisterRoutes(router, assetService, directoryService, sessions)

	admin := &models.User{EmployeeID: "ADM1", Name: "Admin", Email: "admin@corp.test", Role: models.UserRoleAdmin, Status: models.UserStatusActive}
	employee := &models.User{EmployeeID: "E100", Name: "Alice", Email: "alice@corp.test", Role: models.UserRoleEmployee, Status: models.UserStatusActive}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(employee).Error)

	adminToken, err := sessions.Issue(admin)
	require.NoError(t, err)
	employeeToken, err := sessions.Issue(employee)
	require.NoError(t, err)

	return &testEnv{
		router:        router,
		db:            db,
		adminToken:    adminToken,
		employeeToken: employeeToken,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (e *testEnv) createType(t *testing.T, name string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/asset-types", gin.H{"name": name}, e.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "alice@corp.test"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeObject(t, w)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)

	// The issued token opens authenticated routes.
	w = env.do(t, http.MethodGet, "/api/asset-types", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unregistered emails are denied.
	w = env.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "stranger@corp.test"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Deactivated entries are denied.
	require.NoError(t, env.db.Model(&models.User{}).Where("email = ?", "alice@corp.test").
		Update("status", models.UserStatusInactive).Error)
	w = env.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "alice@corp.test"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/asset-types", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/asset-types", nil, "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminGate(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users", gin.H{
		"employee_id": "E300", "name": "Carol", "email": "carol@corp.test",
	}, env.employeeToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/users", nil, env.adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssetLifecycleFlow(t *testing.T) {
	env := setupTestEnv(t)
	env.createType(t, "Laptop")

	// Register.
	w := env.do(t, http.MethodPost, "/api/assets", gin.H{
		"asset_id": "LPT-007", "type_name": "Laptop", "brand": "Dell", "model": "XPS 13",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate id is a 400 with a specific message.
	w = env.do(t, http.MethodPost, "/api/assets", gin.H{
		"asset_id": "LPT-007", "type_name": "Laptop",
	}, env.adminToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	// Assign to Alice on 2024-01-01.
	w = env.do(t, http.MethodPost, "/api/assets/assign-existing", gin.H{
		"asset_id": "LPT-007", "employee_id": "E100", "employee_name": "Alice", "from_date": "2024-01-01",
	}, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/assets/history/LPT-007", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decodeList(t, w)
	require.Len(t, rows, 1)
	assert.Equal(t, "E100", rows[0]["employee_id"])
	assert.Equal(t, "2024-01-01", rows[0]["from_date"])
	assert.Nil(t, rows[0]["to_date"])

	// Reassign to Bob; the active row must come first in the history view.
	w = env.do(t, http.MethodPost, "/api/assets/reassign", gin.H{
		"asset_id": "LPT-007", "old_employee_id": "E100",
		"new_employee_id": "E200", "new_employee_name": "Bob", "remarks": "handover",
	}, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/assets/history/LPT-007", nil, env.adminToken)
	rows = decodeList(t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "E200", rows[0]["employee_id"])
	assert.Nil(t, rows[0]["to_date"])
	assert.Equal(t, "E100", rows[1]["employee_id"])
	closedOn, _ := rows[1]["to_date"].(string)
	require.NotEmpty(t, closedOn)
	_, err := time.Parse(dateLayout, closedOn)
	assert.NoError(t, err)
	assert.Equal(t, "handover", rows[1]["remarks"])

	// Move to repair while Assigned.
	w = env.do(t, http.MethodPost, "/api/assets/repair", gin.H{
		"asset_id": "LPT-007", "issue_reported": "Screen cracked",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/assets/id/LPT-007", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Repairs", decodeObject(t, w)["status"])

	w = env.do(t, http.MethodGet, "/api/assets/history/LPT-007", nil, env.adminToken)
	rows = decodeList(t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "Moved to Repair", rows[0]["remarks"])

	// Resolve the repair.
	w = env.do(t, http.MethodPut, "/api/assets/solve-repair/LPT-007", gin.H{
		"issue_reported": "Screen replaced", "amount": 50,
	}, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/assets/id/LPT-007", nil, env.adminToken)
	assert.Equal(t, "Inventory", decodeObject(t, w)["status"])

	w = env.do(t, http.MethodGet, "/api/assets/repairs/LPT-007", nil, env.adminToken)
	repairs := decodeList(t, w)
	require.Len(t, repairs, 1)
	assert.Equal(t, "Fixed", repairs[0]["status"])
	assert.EqualValues(t, 50, repairs[0]["amount"])
}

func TestRegisterAndAssignEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	env.createType(t, "Laptop")

	// employee_name omitted: resolved through the directory snapshot.
	w := env.do(t, http.MethodPost, "/api/assignments", gin.H{
		"asset_id": "LPT-010", "type_name": "Laptop", "brand": "Lenovo",
		"employee_id": "E100", "from_date": "2024-02-01",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/assets/history/LPT-010", nil, env.adminToken)
	rows := decodeList(t, w)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0]["employee_name"])

	// Unknown employee with no explicit name cannot be resolved.
	w = env.do(t, http.MethodPost, "/api/assignments", gin.H{
		"asset_id": "LPT-011", "type_name": "Laptop", "employee_id": "E999",
	}, env.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignDirectoryLookupFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.createType(t, "Laptop")

	w := env.do(t, http.MethodPost, "/api/assets", gin.H{
		"asset_id": "LPT-001", "type_name": "Laptop",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	// An employee id missing from the directory is a bad request.
	w = env.do(t, http.MethodPost, "/api/assets/assign-existing", gin.H{
		"asset_id": "LPT-001", "employee_id": "E999",
	}, env.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Any other lookup failure is a storage error, not a bad request.
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = env.do(t, http.MethodPost, "/api/assets/assign-existing", gin.H{
		"asset_id": "LPT-001", "employee_id": "E100",
	}, env.adminToken)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRepairPreconditions(t *testing.T) {
	env := setupTestEnv(t)
	env.createType(t, "Laptop")

	w := env.do(t, http.MethodPost, "/api/assets", gin.H{
		"asset_id": "LPT-001", "type_name": "Laptop",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	// No Pending row: resolution conflicts.
	w = env.do(t, http.MethodPut, "/api/assets/solve-repair/LPT-001", gin.H{"amount": 10}, env.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	// A retired asset cannot enter repairs.
	w = env.do(t, http.MethodPut, "/api/assets/retire/LPT-001", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/assets/repair", gin.H{
		"asset_id": "LPT-001", "issue_reported": "broken",
	}, env.adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Restore brings it back to Inventory.
	w = env.do(t, http.MethodPut, "/api/assets/restore/LPT-001", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/assets/id/LPT-001", nil, env.adminToken)
	assert.Equal(t, "Inventory", decodeObject(t, w)["status"])
}

func TestRegisterUnknownType(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/assets", gin.H{
		"asset_id": "LPT-001", "type_name": "Toaster",
	}, env.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFilterEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	env.createType(t, "Laptop")

	for _, id := range []string{"LPT-001", "LPT-002"} {
		w := env.do(t, http.MethodPost, "/api/assets", gin.H{"asset_id": id, "type_name": "Laptop"}, env.adminToken)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/assets/repair", gin.H{
		"asset_id": "LPT-002", "issue_reported": "no power",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	// Inventory view includes the asset under repair.
	w = env.do(t, http.MethodGet, "/api/assets/status/Laptop/Inventory", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 2)

	// Repairs view joins the open issue.
	w = env.do(t, http.MethodGet, "/api/assets/status/Laptop/Repairs", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	repairs := decodeList(t, w)
	require.Len(t, repairs, 1)
	assert.Equal(t, "LPT-002", repairs[0]["asset_id"])
	assert.Equal(t, "no power", repairs[0]["issue_reported"])
}

func TestDeleteAsset(t *testing.T) {
	env := setupTestEnv(t)
	env.createType(t, "Laptop")

	w := env.do(t, http.MethodPost, "/api/assets", gin.H{"asset_id": "LPT-001", "type_name": "Laptop"}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	// Soft delete keeps the row.
	w = env.do(t, http.MethodDelete, "/api/assets/LPT-001", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/assets/id/LPT-001", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deleted", decodeObject(t, w)["status"])

	// Purge removes it.
	w = env.do(t, http.MethodDelete, "/api/assets/LPT-001?purge=1", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/assets/id/LPT-001", nil, env.adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users", gin.H{
		"employee_id": "E300", "name": "Carol", "email": "carol@corp.test",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/users", gin.H{
		"employee_id": "E301", "name": "Carol Dup", "email": "carol@corp.test",
	}, env.adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/bulk", []gin.H{
		{"employee_id": "E400", "name": "Dave", "email": "dave@corp.test"},
		{"employee_id": "E300", "name": "Carol", "email": "carol@corp.test"},
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)
	bulk := decodeObject(t, w)
	assert.EqualValues(t, 1, bulk["created"])

	w = env.do(t, http.MethodGet, "/api/users", nil, env.adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 4)
}

func TestAssetsHeldByEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	env.createType(t, "Laptop")

	w := env.do(t, http.MethodPost, "/api/assignments", gin.H{
		"asset_id": "LPT-001", "type_name": "Laptop", "employee_id": "E100", "employee_name": "Alice",
	}, env.adminToken)
	require.Equal(t, http.StatusCreated, w.Code)

	// Employees can look up their own current assets.
	w = env.do(t, http.MethodGet, "/api/users/assets/E100", nil, env.employeeToken)
	require.Equal(t, http.StatusOK, w.Code)
	held := decodeList(t, w)
	require.Len(t, held, 1)
	assert.Equal(t, "LPT-001", held[0]["asset_id"])
}
