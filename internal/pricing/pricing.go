// Package pricing computes the order total for an NFC business card.
package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/enum"
)

// Fixed price list, in JOD.
var (
	BasePrice            = decimal.NewFromInt(35)
	PrintedLogoSurcharge = decimal.NewFromInt(5)
)

// Selection is the subset of an order that affects its price.
type Selection struct {
	IncludePrintedLogo bool
	CityFee            decimal.Decimal
}

// Quote is a priced selection with its line breakdown.
type Quote struct {
	Base     decimal.Decimal `json:"base"`
	Logo     decimal.Decimal `json:"logo"`
	CityFee  decimal.Decimal `json:"cityFee"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// Compute prices a selection. The city fee is counted exactly once and a
// negative fee is treated as zero.
func Compute(sel Selection) Quote {
	logo := decimal.Zero
	if sel.IncludePrintedLogo {
		logo = PrintedLogoSurcharge
	}

	fee := sel.CityFee
	if fee.IsNegative() {
		fee = decimal.Zero
	}

	return Quote{
		Base:     BasePrice,
		Logo:     logo,
		CityFee:  fee,
		Total:    BasePrice.Add(logo).Add(fee),
		Currency: enum.Currency,
	}
}

// Total is shorthand for Compute(sel).Total.
func Total(sel Selection) decimal.Decimal {
	return Compute(sel).Total
}
