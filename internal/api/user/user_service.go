package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-user-management/app/observability/metrics"
	"github.com/FACorreiaa/go-user-management/config"
	"github.com/FACorreiaa/go-user-management/internal/api/auth"
	"github.com/FACorreiaa/go-user-management/internal/types"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var _ UserService = (*ServiceImpl)(nil)

// UserService exposes the user store operations to the HTTP layer and the
// authentication flow.
type UserService interface {
	GetByID(ctx context.Context, id int64) (*types.UserView, error)
	GetAll(ctx context.Context) ([]types.UserView, error)
	Create(ctx context.Context, params types.CreateUserParams, actor string) (*types.UserView, error)
	Update(ctx context.Context, id int64, params types.UpdateUserParams, actor string) (*types.UserView, error)
	Delete(ctx context.Context, id int64, actor string) error

	// Authenticate verifies the supplied credentials against the stored
	// hash. Unknown username and wrong password are both ErrUnauthenticated.
	Authenticate(ctx context.Context, username, password string) (*types.User, error)

	// EnsureAdminUser seeds a bootstrap administrator when the store holds
	// no users at all. Runs once at startup, attributed to "System".
	EnsureAdminUser(ctx context.Context) error
}

type ServiceImpl struct {
	logger  *slog.Logger
	repo    Repository
	hasher  auth.Hasher
	cfg     config.AuthConfig
	metrics *metrics.AppMetrics
}

// NewService creates a new UserService. The metrics instance may be nil.
func NewService(repo Repository, hasher auth.Hasher, cfg config.AuthConfig, m *metrics.AppMetrics, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		repo:    repo,
		hasher:  hasher,
		cfg:     cfg,
		metrics: m,
	}
}

// GetByID returns the record for an identifier. Soft-deleted records are
// still returned, deleted_at/deleted_by populated.
func (s *ServiceImpl) GetByID(ctx context.Context, id int64) (*types.UserView, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := u.View()
	return &view, nil
}

func (s *ServiceImpl) GetAll(ctx context.Context) ([]types.UserView, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]types.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return views, nil
}

func validateIdentity(username, email string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", types.ErrValidation)
	}
	if email == "" {
		return fmt.Errorf("%w: email is required", types.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: email format is invalid", types.ErrValidation)
	}
	return nil
}

func normalizeRole(role string) (string, error) {
	switch role {
	case "":
		return types.RoleUser, nil
	case types.RoleAdmin, types.RoleUser:
		return role, nil
	default:
		return "", fmt.Errorf("%w: role must be %s or %s", types.ErrValidation, types.RoleAdmin, types.RoleUser)
	}
}

func (s *ServiceImpl) Create(ctx context.Context, params types.CreateUserParams, actor string) (*types.UserView, error) {
	l := s.logger.With(slog.String("service", "CreateUser"))

	if err := validateIdentity(params.Username, params.Email); err != nil {
		return nil, err
	}
	if params.Password == "" {
		return nil, fmt.Errorf("%w: password is required", types.ErrValidation)
	}
	role, err := normalizeRole(params.Role)
	if err != nil {
		return nil, err
	}

	// The unique index still backstops concurrent creates.
	if _, err := s.repo.GetByEmail(ctx, params.Email); err == nil {
		return nil, fmt.Errorf("%w: email %q is already in use", types.ErrConflict, params.Email)
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &types.User{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         role,
		Firstname:    params.Firstname,
		Lastname:     params.Lastname,
		Phone:        params.Phone,
	}

	created, err := s.repo.Create(ctx, u, actor)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			l.WarnContext(ctx, "Duplicate username or email on create",
				slog.String("username", params.Username))
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.UserWritesTotal.Add(ctx, 1)
	}
	view := created.View()
	return &view, nil
}

// Update merges the supplied fields into the stored entity and rewrites it
// in full. The password hash is never touched here.
func (s *ServiceImpl) Update(ctx context.Context, id int64, params types.UpdateUserParams, actor string) (*types.UserView, error) {
	if err := validateIdentity(params.Username, params.Email); err != nil {
		return nil, err
	}
	role, err := normalizeRole(params.Role)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Username = params.Username
	existing.Email = params.Email
	existing.Role = role
	existing.Firstname = params.Firstname
	existing.Lastname = params.Lastname
	existing.Phone = params.Phone

	updated, err := s.repo.Update(ctx, existing, actor)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.UserWritesTotal.Add(ctx, 1)
	}
	view := updated.View()
	return &view, nil
}

// Delete soft-deletes a record. Deleting an unknown or already-deleted
// identifier returns ErrNotFound.
func (s *ServiceImpl) Delete(ctx context.Context, id int64, actor string) error {
	ok, err := s.repo.SoftDelete(ctx, id, actor)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}
	if s.metrics != nil {
		s.metrics.UserWritesTotal.Add(ctx, 1)
	}
	return nil
}

func (s *ServiceImpl) Authenticate(ctx context.Context, username, password string) (*types.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrUnauthenticated
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, types.ErrUnauthenticated
	}
	return u, nil
}

func (s *ServiceImpl) EnsureAdminUser(ctx context.Context) error {
	l := s.logger.With(slog.String("service", "EnsureAdminUser"))

	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("check for existing users: %w", err)
	}
	if count > 0 {
		return nil
	}

	password := s.cfg.Bootstrap.Password
	if password == "" {
		password = uuid.NewString()
		l.Warn("No bootstrap password configured, generated one",
			slog.String("username", s.cfg.Bootstrap.Username))
		// Printed once to stdout; generated credentials stay out of
		// shipped logs.
		fmt.Fprintf(os.Stdout, "Generated bootstrap password for %q: %s\n",
			s.cfg.Bootstrap.Username, password)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	admin := &types.User{
		Username:     s.cfg.Bootstrap.Username,
		Email:        s.cfg.Bootstrap.Email,
		PasswordHash: hash,
		Role:         types.RoleAdmin,
	}
	if _, err := s.repo.Create(ctx, admin, types.SystemActor); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	l.Info("Seeded bootstrap administrator", slog.String("username", admin.Username))
	return nil
}
