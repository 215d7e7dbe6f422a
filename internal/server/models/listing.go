package models

import "time"

// Listing is one stored evaluation. The JSON form is the wire format of the
// listings API; UserID and ImageKey ownership are enforced by the service.
type Listing struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"-"`
	LocalID             string     `json:"local_id,omitempty"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Category            string     `json:"category"`
	PriceMin            float64    `json:"price_min"`
	PriceMax            float64    `json:"price_max"`
	RecommendedPrice    float64    `json:"recommended_price"`
	Currency            string     `json:"currency"`
	ImageKey            string     `json:"image_key,omitempty"`
	ImageURL            string     `json:"image_url,omitempty"`
	WebhookID           string     `json:"webhook_id,omitempty"`
	Confidence          *float64   `json:"confidence,omitempty"`
	UserLanguage        string     `json:"user_language,omitempty"`
	MarketplaceLanguage string     `json:"marketplace_language,omitempty"`
	EvaluatedAt         *time.Time `json:"evaluated_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Quota is a user's usage for the current month.
type Quota struct {
	Count     int  `json:"count"`
	Limit     int  `json:"limit"`
	CanCreate bool `json:"can_create"`
}
