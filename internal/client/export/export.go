// Package export renders results for use outside the app.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/willnicht/willnicht/internal/client/models"
)

const (
	FileName   = "willnicht_export.csv"
	DateLayout = "02.01.2006"
)

var ErrNoResults = errors.New("no results to export")

var Header = []string{"Titel", "Beschreibung", "Kategorie", "Marktpreis Min", "Marktpreis Max", "Empfohlener Preis", "Datum"}

// WriteCSV writes one header line and one row per result, in list order.
func WriteCSV(w io.Writer, results []models.EvaluationResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Title,
			r.Description,
			r.Category,
			formatAmount(r.MarketPrice.Min),
			formatAmount(r.MarketPrice.Max),
			formatAmount(r.RecommendedPrice),
			r.CreatedAt.Local().Format(DateLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the export into dir under FileName and returns the path.
// If path names a file rather than a directory, it is used as is.
func SaveCSV(path string, results []models.EvaluationResult) (string, error) {
	if len(results) == 0 {
		return "", ErrNoResults
	}
	if path == "" {
		path = "."
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, FileName)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	if err := WriteCSV(f, results); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	return path, nil
}

// CopyText is the plain-text form of a result used for pasting into a
// marketplace listing.
func CopyText(r models.EvaluationResult) string {
	return fmt.Sprintf("%s\n\n%s\n\nPreis: €%s", r.Title, r.Description, formatAmount(r.RecommendedPrice))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
