// Package models defines the client-side data model: evaluation results,
// pending uploads, the listing wire record and identity types.
package models

import (
	"encoding/json"
	"errors"
	"time"
)

// DefaultCurrency is the currency every market price is expressed in.
const DefaultCurrency = "EUR"

// MarketPrice is the price band derived from a single point estimate.
type MarketPrice struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// EvaluationResult is one evaluated product. ID is the stable local key and
// is never rewritten; the identifier assigned by the remote store lives in
// RemoteID. Title, Description and Category come from a third-party service
// and must be escaped by whatever renders them.
type EvaluationResult struct {
	ID                  string      `json:"id"`
	RemoteID            string      `json:"remoteId,omitempty"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	Category            string      `json:"category"`
	MarketPrice         MarketPrice `json:"marketPrice"`
	RecommendedPrice    float64     `json:"recommendedPrice"`
	Image               string      `json:"image,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           *time.Time  `json:"updatedAt,omitempty"`
	ExpiresAt           *Timestamp  `json:"expiresAt,omitempty"`
	WebhookID           string      `json:"webhookId,omitempty"`
	Confidence          *float64    `json:"confidence,omitempty"`
	UserLanguage        string      `json:"userLanguage,omitempty"`
	MarketplaceLanguage string      `json:"marketplaceLanguage,omitempty"`
	Demo                bool        `json:"demo,omitempty"`
}

// Synced reports whether the result has a remote counterpart.
func (r EvaluationResult) Synced() bool {
	return r.RemoteID != ""
}

// Timestamp is a point in time that reads both RFC 3339 strings and epoch
// milliseconds, so collections written by older clients still load.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		t.Time = time.Time{}
	case float64:
		t.Time = time.UnixMilli(int64(value)).UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return err
		}
		t.Time = parsed
	default:
		return errors.New("invalid timestamp")
	}
	return nil
}
