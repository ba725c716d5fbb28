package wizard

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tapcard/storefront/internal/enum"
	"github.com/tapcard/storefront/internal/pricing"
)

// PersonalInfo is collected on the first step.
type PersonalInfo struct {
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Position     string   `json:"position"`
	Organization string   `json:"organization"`
	PhoneNumbers []string `json:"phoneNumbers"`
	Email        string   `json:"email"`
	LinkedinURL  string   `json:"linkedinUrl"`
}

// CardDesign is collected on the second step.
type CardDesign struct {
	NameOnCard         string `json:"nameOnCard"`
	Color              string `json:"color"`
	IncludePrintedLogo bool   `json:"includePrintedLogo"`
}

// DeliveryInfo is collected on the third step. CityFee is never set by the
// customer; it is written by the fee lookup.
type DeliveryInfo struct {
	Country        string          `json:"country"`
	CityID         string          `json:"cityId"`
	City           string          `json:"city"`
	AddressLine1   string          `json:"addressLine1"`
	AddressLine2   string          `json:"addressLine2"`
	UseSameContact bool            `json:"useSameContact"`
	DeliveryPhone  string          `json:"deliveryPhone"`
	DeliveryEmail  string          `json:"deliveryEmail"`
	CityFee        decimal.Decimal `json:"cityFee"`
}

// OrderDraft is the in-progress order of one checkout session.
type OrderDraft struct {
	PersonalInfo  PersonalInfo `json:"personalInfo"`
	CardDesign    CardDesign   `json:"cardDesign"`
	DeliveryInfo  DeliveryInfo `json:"deliveryInfo"`
	PaymentMethod string       `json:"paymentMethod"`
}

// NewDraft returns a draft holding the form defaults.
func NewDraft() OrderDraft {
	return OrderDraft{
		PersonalInfo:  PersonalInfo{PhoneNumbers: []string{""}},
		CardDesign:    CardDesign{Color: enum.CardColorBlack},
		DeliveryInfo:  DeliveryInfo{CityFee: decimal.Zero},
		PaymentMethod: enum.PaymentMethodCash,
	}
}

// Clone returns a deep copy; the phone slice is not shared.
func (d OrderDraft) Clone() OrderDraft {
	out := d
	out.PersonalInfo.PhoneNumbers = append([]string(nil), d.PersonalInfo.PhoneNumbers...)
	return out
}

// PrimaryPhone is the first non-empty phone number.
func (d OrderDraft) PrimaryPhone() string {
	for _, p := range d.PersonalInfo.PhoneNumbers {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}

// EffectiveContact returns the phone and email the courier should use.
// With UseSameContact the personal details are read, never copied into the
// delivery fields.
func (d OrderDraft) EffectiveContact() (phone, email string) {
	if d.DeliveryInfo.UseSameContact {
		return d.PrimaryPhone(), strings.TrimSpace(d.PersonalInfo.Email)
	}
	return strings.TrimSpace(d.DeliveryInfo.DeliveryPhone), strings.TrimSpace(d.DeliveryInfo.DeliveryEmail)
}

// FullName joins first and last name.
func (d OrderDraft) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(d.PersonalInfo.FirstName) + " " + strings.TrimSpace(d.PersonalInfo.LastName))
}

// FullAddress joins both address lines with the city and country.
func (d OrderDraft) FullAddress() string {
	var parts []string
	for _, s := range []string{
		d.DeliveryInfo.AddressLine1,
		d.DeliveryInfo.AddressLine2,
		d.DeliveryInfo.City,
		d.DeliveryInfo.Country,
	} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Quote prices the draft from its current values.
func (d OrderDraft) Quote() pricing.Quote {
	return pricing.Compute(pricing.Selection{
		IncludePrintedLogo: d.CardDesign.IncludePrintedLogo,
		CityFee:            d.DeliveryInfo.CityFee,
	})
}

// ComputeTotal is the derived order total. It is recomputed on every call.
func ComputeTotal(d OrderDraft) decimal.Decimal {
	return d.Quote().Total
}
