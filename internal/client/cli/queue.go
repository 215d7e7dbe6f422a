package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/willnicht/willnicht/internal/client/intake"
	"github.com/willnicht/willnicht/internal/client/services"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

// Add queues the photos at the given paths. Files that cannot be read or
// fail validation are reported and skipped.
func (a *App) Add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: add <path...>")
	}

	files := make([]intake.File, 0, len(args))
	for _, p := range args {
		data, err := readFile(p)
		if err != nil {
			fmt.Fprintf(a.out, "%s: %v\n", p, err)
			continue
		}
		files = append(files, intake.File{Name: filepath.Base(p), Data: data})
	}

	accepted, rejected := a.queue.Add(files...)
	for _, r := range rejected {
		fmt.Fprintln(a.out, rejectionText(r))
	}
	for _, u := range accepted {
		fmt.Fprintf(a.out, "queued %s (%s)\n", u.Name, shortID(u.ID))
	}
	fmt.Fprintf(a.out, "%d photo(s) pending\n", a.queue.Len())
	return nil
}

func rejectionText(r intake.Rejection) string {
	switch r.Category {
	case intake.UnsupportedType:
		return fmt.Sprintf("%s: %s: unsupported file type, use JPEG, PNG or WebP", r.Level, r.File)
	case intake.TooLarge:
		return fmt.Sprintf("%s: %s: file is larger than %d MB", r.Level, r.File, r.Limit>>20)
	case intake.MaxFiles:
		return fmt.Sprintf("%s: %s: at most %d photos can be queued", r.Level, r.File, r.Limit)
	default:
		return fmt.Sprintf("%s: %s: %s", r.Level, r.File, r.Category)
	}
}

func (a *App) Pending(ctx context.Context) error {
	pending := a.queue.List()
	if len(pending) == 0 {
		fmt.Fprintln(a.out, "No photos pending")
		return nil
	}
	for _, u := range pending {
		fmt.Fprintf(a.out, "%s  %-30s %s  %d KB\n", shortID(u.ID), u.Name, u.ContentType, u.Size()>>10)
	}
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: remove <id>")
	}
	for _, u := range a.queue.List() {
		if strings.HasPrefix(u.ID, args[0]) && a.queue.Remove(u.ID) {
			fmt.Fprintf(a.out, "removed %s\n", u.Name)
			return nil
		}
	}
	return fmt.Errorf("no pending photo %s", args[0])
}

// Analyze sends the queue for evaluation. The queue is kept when the
// submission is refused so nothing has to be picked again.
func (a *App) Analyze(ctx context.Context, args []string) error {
	uploads := a.queue.List()
	if len(uploads) == 0 {
		return services.ErrNothingToAnalyze
	}

	prefs := services.Preferences{
		Email:               a.config.UserEmail,
		UserLanguage:        a.config.UserLanguage,
		MarketplaceLanguage: a.config.MarketplaceLanguage,
		SourceURL:           a.config.SourceURL,
		AdditionalText:      strings.Join(args, " "),
	}
	if sess := a.authService.Session(); sess != nil {
		prefs.Email = sess.Email
	}

	fmt.Fprintf(a.out, "Analyzing %d photo(s)...\n", len(uploads))
	out, err := a.evaluationService.Analyze(ctx, uploads, prefs)
	if err != nil {
		if errors.Is(err, services.ErrQuotaExceeded) {
			return errors.New("monthly evaluation limit reached")
		}
		return err
	}
	a.queue.Drain()

	if out.Demo {
		fmt.Fprintln(a.out, "Evaluation service unavailable, showing demo results")
	}
	for _, r := range out.Results {
		printSummary(a.out, r)
	}
	printOutcome(a.out, out.Sync)
	return nil
}
