// Package auth implements the stateless session-token abstraction that
// replaces cookie-blob sessions: handlers receive a parsed Session, never raw
// identity-provider state.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"assettrack/internal/models"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken is returned for any token that fails signature,
	// expiry or claim validation.
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the validated identity attached to a request.
type Session struct {
	Email      string
	Name       string
	EmployeeID string
	Role       models.UserRole
}

// IsAdmin reports whether the session carries the Admin role.
func (s *Session) IsAdmin() bool {
	return s.Role == models.UserRoleAdmin
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a session token for the given directory entry.
func (m *Manager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         user.Email,
		"name":        user.Name,
		"employee_id": user.EmployeeID,
		"role":        string(user.Role),
		"jti":         uuid.NewString(),
		"iat":         now.Unix(),
		"exp":         now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a session token and returns the session it
// carries.
func (m *Manager) Verify(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	email, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	employeeID, _ := claims["employee_id"].(string)
	role, _ := claims["role"].(string)
	if email == "" || role == "" {
		return nil, ErrInvalidToken
	}

	return &Session{
		Email:      email,
		Name:       name,
		EmployeeID: employeeID,
		Role:       models.UserRole(role),
	}, nil
}
