// Package auth handles accounts: registration, login, profiles and the
// admin-only role and user management.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var validate = validator.New()

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", errs.ErrUnauthenticated)
	ErrUseAdminLogin      = fmt.Errorf("admins must use the admin login: %w", errs.ErrForbidden)
	ErrNotAdmin           = fmt.Errorf("admin access required: %w", errs.ErrForbidden)
)

type Service struct {
	Users  storage.UserStore
	Tokens *Tokens
}

func NewService(users storage.UserStore, tokens *Tokens) *Service {
	return &Service{Users: users, Tokens: tokens}
}

// Session is returned by the login endpoints.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Register creates a citizen account and signs the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if in.Name == "" {
		return nil, errs.Invalid("name", "name is required")
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		return nil, errs.Invalid("email", "invalid email address")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, errs.Invalid("password", "password must be at least %d characters", MinPasswordLength)
	}

	if _, err := s.Users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, errs.Invalid("email", "email already registered")
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hashed,
		Role:     models.RoleCitizen,
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return nil, errs.Invalid("email", "email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("user registered", "user_id", u.ID)
	return s.session(u)
}

func (s *Service) session(u *models.User) (*Session, error) {
	token, err := s.Tokens.Generate(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, User: u}, nil
}

func (s *Service) checkPassword(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.Users.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login signs in citizens and officials. Admins are sent to AdminLogin.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u.Role == models.RoleAdmin {
		return nil, ErrUseAdminLogin
	}
	return s.session(u)
}

func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleAdmin {
		return nil, ErrNotAdmin
	}
	return s.session(u)
}

// Authenticate resolves a bearer token to a live user. A valid token of a
// deleted user is rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", errs.ErrUnauthenticated)
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, errs.ErrUnauthenticated)
	}
	u, err := s.Users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("user no longer exists: %w", errs.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.Users.GetUserByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, errs.Invalid("name", "name cannot be empty")
		}
		u.Name = name
	}
	if upd.Phone != nil {
		u.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		u.Address = strings.TrimSpace(*upd.Address)
	}
	if err := s.Users.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

// UpdateRole is the only way a role changes. Admins cannot demote themselves.
func (s *Service) UpdateRole(ctx context.Context, actor *models.User, userID string, role models.Role, department string) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, errs.ErrForbidden
	}
	if !role.Valid() {
		return nil, errs.Invalid("role", "unknown role %q", role)
	}
	if actor.ID == userID && role != models.RoleAdmin {
		return nil, errs.Invalid("role", "admins cannot change their own role")
	}
	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if department = strings.TrimSpace(department); department != "" {
		u.Department = department
	}
	if err := s.Users.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	slog.Info("user role changed", "user_id", u.ID, "role", role, "by", actor.ID)
	return u, nil
}

// ListUsers returns all users, or those of one role.
func (s *Service) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	if role == "" {
		return s.Users.ListUsers(ctx)
	}
	if !role.Valid() {
		return nil, errs.Invalid("role", "unknown role %q", role)
	}
	return s.Users.ListUsers(ctx, role)
}

// ListStaff returns the users complaints can be assigned to.
func (s *Service) ListStaff(ctx context.Context) ([]models.User, error) {
	return s.Users.ListUsers(ctx, models.RoleOfficial, models.RoleAdmin)
}

func (s *Service) DeleteUser(ctx context.Context, actor *models.User, userID string) error {
	if actor.Role != models.RoleAdmin {
		return errs.ErrForbidden
	}
	if actor.ID == userID {
		return errs.Invalid("id", "admins cannot delete themselves")
	}
	if err := s.Users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	slog.Info("user deleted", "user_id", userID, "by", actor.ID)
	return nil
}

// EnsureAdmin creates or promotes the bootstrap admin account.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	u, err := s.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role == models.RoleAdmin {
			return u, nil
		}
		u.Role = models.RoleAdmin
		return u, s.Users.SaveUser(ctx, u)
	case !errors.Is(err, errs.ErrNotFound):
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, errs.Invalid("password", "password must be at least %d characters", MinPasswordLength)
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u = &models.User{Name: name, Email: email, Password: hashed, Role: models.RoleAdmin}
	return u, s.Users.CreateUser(ctx, u)
}
