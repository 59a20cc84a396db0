package services

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"assettrack/internal/models"
	"assettrack/internal/repositories"
)

var (
	// ErrDuplicateEmail is returned when a user with the same email or
	// employee id already exists in the directory.
	ErrDuplicateEmail = errors.New("user already exists")

	// ErrUserNotFound is returned when the referenced directory entry does
	// not exist.
	ErrUserNotFound = errors.New("user not found")
)

// NewUserInput carries the fields of a directory entry to create.
type NewUserInput struct {
	EmployeeID string
	Name       string
	Email      string
	Role       models.UserRole
}

// DirectoryService manages the employee directory. Relative to the lifecycle
// core it is a collaborator: the core only consumes LookupEmployee to fill
// employee name snapshots.
type DirectoryService interface {
	ListUsers() ([]models.User, error)
	CreateUser(input NewUserInput) (*models.User, error)
	BulkCreateUsers(inputs []NewUserInput) (created []models.User, skipped []string, err error)
	UpdateUser(id uint, name, email string) error
	DeactivateUser(id uint) error
	LookupEmployee(employeeID string) (*models.User, error)
	LookupByEmail(email string) (*models.User, error)
}

type directoryService struct {
	db       *gorm.DB
	userRepo repositories.UserRepository
}

func NewDirectoryService(db *gorm.DB, userRepo repositories.UserRepository) DirectoryService {
	return &directoryService{db: db, userRepo: userRepo}
}

func (s *directoryService) ListUsers() ([]models.User, error) {
	return s.userRepo.List(nil)
}

func (s *directoryService) CreateUser(input NewUserInput) (*models.User, error) {
	role := input.Role
	if role == "" {
		role = models.UserRoleEmployee
	}
	user := &models.User{
		EmployeeID: input.EmployeeID,
		Name:       input.Name,
		Email:      input.Email,
		Role:       role,
		Status:     models.UserStatusActive,
	}
	if err := s.userRepo.Create(nil, user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		log.Printf("[ERROR] CreateUser: failed to create user %s: %v", input.Email, err)
		return nil, err
	}
	log.Printf("[INFO] CreateUser: added %s (%s) to directory", input.EmployeeID, input.Email)
	return user, nil
}

// BulkCreateUsers inserts a batch of directory entries. Duplicates are
// skipped, not fatal: the returned skipped slice lists the emails that
// collided with existing entries.
func (s *directoryService) BulkCreateUsers(inputs []NewUserInput) ([]models.User, []string, error) {
	var created []models.User
	var skipped []string
	for _, input := range inputs {
		user, err := s.CreateUser(input)
		if err != nil {
			if errors.Is(err, ErrDuplicateEmail) {
				skipped = append(skipped, input.Email)
				continue
			}
			return created, skipped, err
		}
		created = append(created, *user)
	}
	log.Printf("[INFO] BulkCreateUsers: created %d, skipped %d", len(created), len(skipped))
	return created, skipped, nil
}

func (s *directoryService) UpdateUser(id uint, name, email string) error {
	if _, err := s.userRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.userRepo.Update(nil, id, name, email); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// DeactivateUser soft-deletes a directory entry by marking it Inactive.
func (s *directoryService) DeactivateUser(id uint) error {
	if _, err := s.userRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.userRepo.Deactivate(nil, id)
}

func (s *directoryService) LookupEmployee(employeeID string) (*models.User, error) {
	user, err := s.userRepo.GetByEmployeeID(nil, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *directoryService) LookupByEmail(email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
