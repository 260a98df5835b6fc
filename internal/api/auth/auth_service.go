package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-user-management/app/observability/metrics"
	"github.com/FACorreiaa/go-user-management/internal/types"
)

// UserStore is the slice of the user service the authentication flow needs.
type UserStore interface {
	Authenticate(ctx context.Context, username, password string) (*types.User, error)
}

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	// Login validates credentials and, on success, returns the
	// password-stripped user view with a freshly issued bearer token.
	Login(ctx context.Context, username, password string) (*types.UserView, error)
}

type AuthServiceImpl struct {
	logger  *slog.Logger
	store   UserStore
	issuer  *TokenIssuer
	metrics *metrics.AppMetrics
}

// NewAuthService creates a new AuthService. The metrics instance may be nil.
func NewAuthService(store UserStore, issuer *TokenIssuer, m *metrics.AppMetrics, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:  logger,
		store:   store,
		issuer:  issuer,
		metrics: m,
	}
}

// Login authenticates a user. An unknown username and a wrong password are
// indistinguishable to the caller; both surface as ErrUnauthenticated.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*types.UserView, error) {
	l := s.logger.With(slog.String("service", "Login"))
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.Add(ctx, 1)
	}

	user, err := s.store.Authenticate(ctx, username, password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.LoginFailuresTotal.Add(ctx, 1)
		}
		if errors.Is(err, types.ErrUnauthenticated) || errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Authentication rejected", slog.String("username", username))
			return nil, types.ErrUnauthenticated
		}
		l.ErrorContext(ctx, "Authentication lookup failed", slog.Any("error", err))
		return nil, fmt.Errorf("authenticate %q: %w", username, err)
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		l.ErrorContext(ctx, "Token issuance failed", slog.Any("error", err))
		return nil, fmt.Errorf("issue token for %q: %w", username, err)
	}

	view := user.View()
	view.Token = token
	return &view, nil
}
