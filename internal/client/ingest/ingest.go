// Package ingest turns raw evaluator responses into EvaluationResult records.
//
// The evaluator is a third-party service; its items arrive in several shapes
// and with optional fields. Each field of a result is taken from the first
// populated source field in a fixed precedence list, and missing values fall
// back to defaults rather than failing the item.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/willnicht/willnicht/internal/client/models"
)

// Field precedence, first populated wins.
var (
	TitleFields       = []string{"item", "german_title", "title"}
	DescriptionFields = []string{"german_text", "description", "text"}
	CategoryFields    = []string{"category"}
)

const (
	DefaultCategory = "Sonstiges"
	AdvisoryTTL     = 15 * time.Minute

	marketPriceField    = "market_price"
	suggestedPriceField = "suggested_price"
	correlationField    = "correlation_id"
)

var ErrMalformedResponse = errors.New("malformed evaluator response")

// Provenance is the request context recorded on every result.
type Provenance struct {
	UserLanguage        string
	MarketplaceLanguage string
}

// RawItem is one evaluator item with loosely typed values.
type RawItem map[string]any

// String returns the value of key as text. Numbers are formatted, everything
// else that is not a string is empty.
func (it RawItem) String(key string) string {
	switch v := it[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (it RawItem) first(keys []string) string {
	for _, k := range keys {
		if s := it.String(k); s != "" {
			return s
		}
	}
	return ""
}

func (it RawItem) number(key string) *float64 {
	var f float64
	switch v := it[key].(type) {
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return nil
		}
		f = n
	case float64:
		f = v
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	return &f
}

// DecodeItems accepts either a single JSON object or an array of objects.
func DecodeItems(raw []byte) ([]RawItem, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	dec := func(v any) error {
		d := json.NewDecoder(bytes.NewReader(raw))
		d.UseNumber()
		return d.Decode(v)
	}

	switch raw[0] {
	case '[':
		var items []RawItem
		if err := dec(&items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		out := items[:0]
		for _, it := range items {
			if it != nil {
				out = append(out, it)
			}
		}
		return out, nil
	case '{':
		var item RawItem
		if err := dec(&item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return []RawItem{item}, nil
	default:
		return nil, fmt.Errorf("%w: expected object or array", ErrMalformedResponse)
	}
}

type Pipeline struct {
	now   func() time.Time
	newID func() string
}

func NewPipeline() *Pipeline {
	return &Pipeline{now: time.Now, newID: uuid.NewString}
}

// Ingest maps a raw evaluator response to results in response order. Each
// item takes the preview of the upload whose correlation token it echoes,
// or else the upload at the same position.
func (p *Pipeline) Ingest(raw []byte, uploads []models.PendingUpload, prov Provenance) ([]models.EvaluationResult, error) {
	items, err := DecodeItems(raw)
	if err != nil {
		return nil, err
	}

	byToken := make(map[string]string, len(uploads))
	for _, u := range uploads {
		if u.CorrelationID != "" {
			byToken[u.CorrelationID] = u.Preview
		}
	}

	now := p.now().UTC()
	results := make([]models.EvaluationResult, 0, len(items))
	for i, it := range items {
		results = append(results, p.mapItem(i, it, now, prov, previewFor(i, it, uploads, byToken)))
	}
	return results, nil
}

func previewFor(i int, it RawItem, uploads []models.PendingUpload, byToken map[string]string) string {
	if token := it.String(correlationField); token != "" {
		if preview, ok := byToken[token]; ok {
			return preview
		}
	}
	if i < len(uploads) {
		return uploads[i].Preview
	}
	return ""
}

func (p *Pipeline) mapItem(i int, it RawItem, now time.Time, prov Provenance, preview string) models.EvaluationResult {
	title := it.first(TitleFields)
	if title == "" {
		title = fmt.Sprintf("Item %d", i+1)
	}
	category := it.first(CategoryFields)
	if category == "" {
		category = DefaultCategory
	}

	return models.EvaluationResult{
		ID:                  p.newID(),
		Title:               title,
		Description:         it.first(DescriptionFields),
		Category:            category,
		MarketPrice:         Band(ParsePrice(it.String(marketPriceField))),
		RecommendedPrice:    ParsePrice(it.String(suggestedPriceField)),
		Image:               preview,
		CreatedAt:           now,
		ExpiresAt:           models.NewTimestamp(now.Add(AdvisoryTTL)),
		WebhookID:           it.String("ID"),
		Confidence:          it.number("confidence"),
		UserLanguage:        prov.UserLanguage,
		MarketplaceLanguage: prov.MarketplaceLanguage,
	}
}
