package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/willnicht/willnicht/internal/client/client"
	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/client/repositories/metadata"
	"github.com/willnicht/willnicht/internal/logging"
)

const (
	sessionEmailKey   = "session_email"
	sessionRefreshKey = "session_refresh_token"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create an account; the new user is signed in.
//   - Login: sign in and remember the session for the next start.
//   - Restore: resume the remembered session, if any.
//   - Logout: sign out remotely (best effort) and forget the session.
//   - Ping: check server liveness.
//   - Close: remember the latest refresh token and release the client.
//
// Identity changes reach the synchronizer through client.Subscribe, not
// through this service.
type AuthService interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) error
	Restore(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	Session() *models.Session
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	meta   metadata.Repository
	logger logging.Logger
}

func NewAuthService(c client.Client, meta metadata.Repository, logger logging.Logger) AuthService {
	return &authService{client: c, meta: meta, logger: logger.With("module", "auth")}
}

func (a *authService) Register(ctx context.Context, email, password string) error {
	s, err := a.client.SignUp(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign up error: %w", err)
	}
	return a.remember(ctx, s)
}

func (a *authService) Login(ctx context.Context, email, password string) error {
	s, err := a.client.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign in error: %w", err)
	}
	return a.remember(ctx, s)
}

// Restore resumes the stored session. It returns false without error when
// nothing is stored. A rejected refresh token is forgotten; an unreachable
// server keeps it for the next attempt.
func (a *authService) Restore(ctx context.Context) (bool, error) {
	token, err := a.meta.Get(ctx, sessionRefreshKey)
	if err != nil {
		return false, fmt.Errorf("read session: %w", err)
	}
	if len(token) == 0 {
		return false, nil
	}

	s, err := a.client.RestoreSession(ctx, string(token))
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.forget(ctx)
		}
		return false, err
	}
	return true, a.remember(ctx, s)
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.client.SignOut(ctx); err != nil {
		a.logger.Warn(ctx, "remote sign-out failed", "err", err)
	}
	a.forget(ctx)
	return nil
}

func (a *authService) Session() *models.Session {
	return a.client.Session()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close stores the current refresh token, which rotates on every refresh,
// and closes the client.
func (a *authService) Close(ctx context.Context) error {
	if s := a.client.Session(); s != nil {
		if err := a.remember(ctx, s); err != nil {
			a.logger.Warn(ctx, "could not store session", "err", err)
		}
	}
	return a.client.Close()
}

func (a *authService) remember(ctx context.Context, s *models.Session) error {
	if s == nil {
		return nil
	}
	if err := a.meta.Set(ctx, sessionEmailKey, []byte(s.Email)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := a.meta.Set(ctx, sessionRefreshKey, []byte(s.RefreshToken)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (a *authService) forget(ctx context.Context) {
	if err := a.meta.Delete(ctx, sessionEmailKey, sessionRefreshKey); err != nil {
		a.logger.Warn(ctx, "could not forget session", "err", err)
	}
}
