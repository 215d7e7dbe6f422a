package models

import "time"

// Listing is the remote-store record of an EvaluationResult.
type Listing struct {
	ID                  string     `json:"id,omitempty"`
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

	// ImageData is the normalized JPEG uploaded before the record is inserted.
	ImageData []byte `json:"-"`
}

// ListingFromResult builds the record for a remote write. image is the
// normalized encoding of r.Image and may be nil.
func ListingFromResult(r EvaluationResult, image []byte) *Listing {
	evaluatedAt := r.CreatedAt
	currency := r.MarketPrice.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Listing{
		LocalID:             r.ID,
		Title:               r.Title,
		Description:         r.Description,
		Category:            r.Category,
		PriceMin:            r.MarketPrice.Min,
		PriceMax:            r.MarketPrice.Max,
		RecommendedPrice:    r.RecommendedPrice,
		Currency:            currency,
		WebhookID:           r.WebhookID,
		Confidence:          r.Confidence,
		UserLanguage:        r.UserLanguage,
		MarketplaceLanguage: r.MarketplaceLanguage,
		EvaluatedAt:         &evaluatedAt,
		ImageData:           image,
	}
}

// ToResult converts a fetched record back into a result. The local key
// survives the round trip when the record carries one.
func (l Listing) ToResult() EvaluationResult {
	id := l.LocalID
	if id == "" {
		id = l.ID
	}
	createdAt := l.CreatedAt
	if l.EvaluatedAt != nil && !l.EvaluatedAt.IsZero() {
		createdAt = *l.EvaluatedAt
	}
	var updatedAt *time.Time
	if !l.UpdatedAt.IsZero() {
		u := l.UpdatedAt
		updatedAt = &u
	}
	currency := l.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return EvaluationResult{
		ID:                  id,
		RemoteID:            l.ID,
		Title:               l.Title,
		Description:         l.Description,
		Category:            l.Category,
		MarketPrice:         MarketPrice{Min: l.PriceMin, Max: l.PriceMax, Currency: currency},
		RecommendedPrice:    l.RecommendedPrice,
		Image:               l.ImageURL,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
		WebhookID:           l.WebhookID,
		Confidence:          l.Confidence,
		UserLanguage:        l.UserLanguage,
		MarketplaceLanguage: l.MarketplaceLanguage,
	}
}

// Quota is the usage state for the current billing period.
type Quota struct {
	Count     int  `json:"count"`
	Limit     int  `json:"limit"`
	CanCreate bool `json:"can_create"`
}
