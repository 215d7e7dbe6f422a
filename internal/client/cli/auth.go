package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/willnicht/willnicht/internal/client/client"
	"github.com/willnicht/willnicht/internal/common"
)

// getPassword is replaced in command tests.
var getPassword = func(w io.Writer) ([]byte, error) { return promptSecret(w, "Password") }

var errRemoteDisabled = errors.New("remote storage is disabled, results stay on this device")

// credentials takes the email from args or asks for it, then reads the
// password without echo. The caller wipes the password.
func (a *App) credentials(args []string) (string, []byte, error) {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = promptLine(a.reader, a.out, "Email"); err != nil {
			return "", nil, err
		}
	}
	if email == "" {
		return "", nil, errors.New("email is required")
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register creates an account and signs the new user in.
func (a *App) Register(ctx context.Context, args []string) error {
	if a.Mode() == ModeDisabled {
		return errRemoteDisabled
	}
	email, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, email, string(password)); err != nil {
		return explainAuth(err)
	}

	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Signed up as %s\n", email)
	return nil
}

// Login signs in. The results shown afterwards come from the account; the
// identity watcher reloads them.
func (a *App) Login(ctx context.Context, args []string) error {
	if a.Mode() == ModeDisabled {
		return errRemoteDisabled
	}
	email, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, email, string(password)); err != nil {
		if errors.Is(err, client.ErrUnavailable) || errors.Is(err, client.ErrTimeout) {
			a.setMode(ModeOffline)
		}
		return explainAuth(err)
	}

	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Signed in as %s\n", email)
	return nil
}

// Logout ends the session and forgets the results kept on this device.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotSignedIn
	}
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.sync.Reset(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func explainAuth(err error) error {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return errors.New("wrong email or password")
	case errors.Is(err, client.ErrUnavailable), errors.Is(err, client.ErrTimeout):
		return fmt.Errorf("server unavailable, working offline: %w", err)
	default:
		return err
	}
}
