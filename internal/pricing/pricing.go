package pricing

import (
	"event-ticketing/internal/models"

	"github.com/shopspring/decimal"
)

var onlineSurcharge = decimal.RequireFromString("1.25")

// FinalPrice returns the price charged for a ticket: the base price for cash,
// base price x 1.25 for online payments. The product is not rounded.
func FinalPrice(basePrice float64, method models.PaymentMethod) float64 {
	price := decimal.NewFromFloat(basePrice)
	if method == models.PaymentOnline {
		price = price.Mul(onlineSurcharge)
	}
	return price.InexactFloat64()
}
