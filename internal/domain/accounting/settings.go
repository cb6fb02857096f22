package accounting

import "github.com/shopspring/decimal"

// CompanySettings is read by quotation totals and document dispatch
type CompanySettings struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	CurrencySymbol string          `json:"currency_symbol"`
	TaxRate        decimal.Decimal `json:"tax_rate"` // Percent
}

// DefaultCompanySettings is used until settings have been saved
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		Name:           "My Company",
		CurrencySymbol: "$",
		TaxRate:        decimal.Zero,
	}
}

// Validate checks the settings before they are saved
func (s CompanySettings) Validate() error {
	if s.TaxRate.IsNegative() {
		return invalidInput("Tax rate cannot be negative")
	}
	return nil
}
