package ingest

import (
	"github.com/willnicht/willnicht/internal/client/models"
)

type demoItem struct {
	title       string
	description string
	category    string
	min, max    float64
	recommended float64
	confidence  float64
}

var demoItems = []demoItem{
	{
		title:       "Vintage Omega Uhr",
		description: "Mechanische Omega Seamaster Uhr aus den 1960er Jahren in ausgezeichnetem Zustand. Originales Lederarmband, funktioniert einwandfrei. Perfekt für Sammler.",
		category:    "Uhren & Schmuck",
		min:         150, max: 200, recommended: 179, confidence: 0.92,
	},
	{
		title:       "iPhone 13 Pro 256GB",
		description: "Apple iPhone 13 Pro in Graphit mit 256GB Speicher. Sehr guter Zustand, Akku bei 89%. Mit Originalverpackung und Ladekabel. Keine Kratzer auf dem Display.",
		category:    "Handys & Smartphones",
		min:         550, max: 650, recommended: 599, confidence: 0.95,
	},
	{
		title:       "IKEA KALLAX Regal",
		description: "IKEA KALLAX Regal in Weiß, 4x4 Fächer. Sehr guter Zustand, keine Beschädigungen. Maße: 147x147 cm. Selbstabholung in Wien.",
		category:    "Möbel",
		min:         40, max: 60, recommended: 45, confidence: 0.88,
	},
}

// Mock produces demo results, one per upload, cycling through the demo
// catalogue. They are flagged Demo so that nothing mistakes them for real
// evaluations.
func (p *Pipeline) Mock(uploads []models.PendingUpload, prov Provenance) []models.EvaluationResult {
	now := p.now().UTC()
	results := make([]models.EvaluationResult, 0, len(uploads))
	for i, u := range uploads {
		d := demoItems[i%len(demoItems)]
		confidence := d.confidence
		results = append(results, models.EvaluationResult{
			ID:                  p.newID(),
			Title:               d.title,
			Description:         d.description,
			Category:            d.category,
			MarketPrice:         models.MarketPrice{Min: d.min, Max: d.max, Currency: models.DefaultCurrency},
			RecommendedPrice:    d.recommended,
			Image:               u.Preview,
			CreatedAt:           now,
			Confidence:          &confidence,
			UserLanguage:        prov.UserLanguage,
			MarketplaceLanguage: prov.MarketplaceLanguage,
			Demo:                true,
		})
	}
	return results
}
