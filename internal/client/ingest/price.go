package ingest

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/willnicht/willnicht/internal/client/models"
)

var (
	bandLow  = decimal.RequireFromString("0.8")
	bandHigh = decimal.RequireFromString("1.2")
)

// ParsePrice reads a loosely formatted amount such as "25 EUR", "25,50 EUR"
// or "€25.50". Everything but digits and separators is dropped, the first
// comma becomes the decimal point and the longest leading number is used.
// Anything unreadable is 0.
func ParsePrice(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Replace(b.String(), ",", ".", 1)

	end, dot, digits := 0, false, false
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		if c >= '0' && c <= '9' {
			digits = true
			end = i + 1
			continue
		}
		if c == '.' && !dot {
			dot = true
			continue
		}
		break
	}
	if !digits {
		return 0
	}

	num := cleaned[:end]
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// Band widens a point estimate into the ±20% market range, rounded to whole
// units.
func Band(price float64) models.MarketPrice {
	p := decimal.NewFromFloat(price)
	lo, _ := p.Mul(bandLow).Round(0).Float64()
	hi, _ := p.Mul(bandHigh).Round(0).Float64()
	return models.MarketPrice{Min: lo, Max: hi, Currency: models.DefaultCurrency}
}
