package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/willnicht/willnicht/internal/client/client"
	"github.com/willnicht/willnicht/internal/client/export"
	"github.com/willnicht/willnicht/internal/client/models"
	"github.com/willnicht/willnicht/internal/client/services"
)

const dateLayout = export.DateLayout

// clean strips control characters from text that came from the evaluator
// so it cannot drive the terminal. Newlines and tabs are kept when
// multiline is set.
func clean(s string, multiline bool) string {
	return strings.Map(func(r rune) rune {
		if multiline && (r == '\n' || r == '\t') {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printSummary(w io.Writer, r models.EvaluationResult) {
	fmt.Fprintf(w, "  %s  %s  %s  €%.0f\n", shortID(r.ID), clean(r.Title, false), clean(r.Category, false), r.RecommendedPrice)
}

func printOutcome(w io.Writer, o services.Outcome) {
	switch o.State {
	case services.StateSucceeded:
		fmt.Fprintln(w, "Saved")
	case services.StateDegraded:
		if o.Remote != nil {
			fmt.Fprintf(w, "Saved on this device only: %v\n", o.Remote)
		} else {
			fmt.Fprintln(w, "Saved on this device only")
		}
	}
}

// find resolves a full id or an unambiguous prefix of the local id.
func (a *App) find(id string) (models.EvaluationResult, error) {
	if r, ok := a.sync.Find(id); ok {
		return r, nil
	}
	var (
		match models.EvaluationResult
		n     int
	)
	for _, r := range a.sync.Results() {
		if strings.HasPrefix(r.ID, id) {
			match = r
			n++
		}
	}
	switch n {
	case 1:
		return match, nil
	case 0:
		return models.EvaluationResult{}, services.ErrResultNotFound
	default:
		return models.EvaluationResult{}, fmt.Errorf("id %s is ambiguous", id)
	}
}

func (a *App) List(ctx context.Context) error {
	results := a.sync.Results()
	if len(results) == 0 {
		fmt.Fprintln(a.out, "No results yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tDATE\tSYNCED")
	for _, r := range results {
		synced := "no"
		if r.Synced() {
			synced = "yes"
		}
		if r.Demo {
			synced = "demo"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t€%.0f\t%s\t%s\n",
			shortID(r.ID), clean(r.Title, false), clean(r.Category, false),
			r.RecommendedPrice, r.CreatedAt.Local().Format(dateLayout), synced)
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show <id>")
	}
	r, err := a.find(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\n\n%s\n\n", clean(r.Title, false), clean(r.Description, true))
	fmt.Fprintf(a.out, "Category:     %s\n", clean(r.Category, false))
	fmt.Fprintf(a.out, "Market price: €%.0f - €%.0f\n", r.MarketPrice.Min, r.MarketPrice.Max)
	fmt.Fprintf(a.out, "Recommended:  €%.0f\n", r.RecommendedPrice)
	fmt.Fprintf(a.out, "Date:         %s\n", r.CreatedAt.Local().Format(dateLayout))
	fmt.Fprintf(a.out, "ID:           %s\n", r.ID)
	if r.RemoteID != "" {
		fmt.Fprintf(a.out, "Remote ID:    %s\n", r.RemoteID)
	}
	if r.Demo {
		fmt.Fprintln(a.out, "Demo result")
	}
	return nil
}

// Copy prints the ready-to-paste listing text.
func (a *App) Copy(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: copy <id>")
	}
	r, err := a.find(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, clean(export.CopyText(r), true))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete <id>")
	}
	r, err := a.find(args[0])
	if err != nil {
		return err
	}
	out, err := a.sync.Delete(ctx, r.ID)
	if err != nil {
		return err
	}
	printOutcome(a.out, out)
	return nil
}

// Clear asks for confirmation before deleting every result.
func (a *App) Clear(ctx context.Context) error {
	ok, err := confirm(a.reader, a.out, "Delete all results?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	printOutcome(a.out, a.sync.Clear(ctx))
	return nil
}

func (a *App) Export(ctx context.Context, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	saved, err := export.SaveCSV(path, a.sync.Results())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported to %s\n", saved)
	return nil
}

func (a *App) Quota(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotSignedIn
	}
	q, err := a.quota.EvaluationCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d of %d evaluations used this month\n", q.Count, q.Limit)
	if !q.CanCreate {
		fmt.Fprintln(a.out, "Limit reached")
	}
	return nil
}

func (a *App) Reload(ctx context.Context) error {
	out := a.sync.Load(ctx)
	switch {
	case out.FromRemote:
		fmt.Fprintf(a.out, "%d result(s) loaded from your account\n", out.Count)
	case errors.Is(out.Remote, services.ErrStaleLoad):
		fmt.Fprintln(a.out, "A newer change arrived, showing it instead")
	default:
		fmt.Fprintf(a.out, "%d result(s) loaded from this device\n", out.Count)
		if out.Remote != nil && !errors.Is(out.Remote, client.ErrNotSignedIn) && !errors.Is(out.Remote, services.ErrRemoteDisabled) {
			fmt.Fprintf(a.out, "Account not reachable: %v\n", out.Remote)
		}
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	user := "not signed in"
	if sess := a.authService.Session(); sess != nil {
		user = sess.Email
	}
	fmt.Fprintf(a.out, "Mode:    %s\n", a.Mode())
	fmt.Fprintf(a.out, "User:    %s\n", user)
	fmt.Fprintf(a.out, "Sync:    %s\n", a.sync.State())
	fmt.Fprintf(a.out, "Results: %d\n", len(a.sync.Results()))
	fmt.Fprintf(a.out, "Pending: %d\n", a.queue.Len())
	return nil
}
