package catalog

import (
	"hermes/internal/domain/indicator"
)

// StaticCatalog serves the fixed indicator definitions the engines run on.
// Definitions never change at runtime; revising a weight or transform is a
// deploy, which keeps every run's driver accounting reproducible.
type StaticCatalog struct {
	defs  []indicator.Definition
	byKey map[string]indicator.Definition
}

var _ indicator.Catalog = (*StaticCatalog)(nil)

// New builds a catalogue from explicit definitions
func New(defs []indicator.Definition) *StaticCatalog {
	byKey := make(map[string]indicator.Definition, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}
	return &StaticCatalog{defs: defs, byKey: byKey}
}

// NewDefault builds the catalogue with the standard G4 indicator set
func NewDefault() *StaticCatalog {
	return New(defaultDefinitions())
}

// All returns every configured indicator definition
func (c *StaticCatalog) All() []indicator.Definition {
	defs := make([]indicator.Definition, len(c.defs))
	copy(defs, c.defs)
	return defs
}

// ByCurrency returns definitions for one currency
func (c *StaticCatalog) ByCurrency(currency string) []indicator.Definition {
	var defs []indicator.Definition
	for _, d := range c.defs {
		if d.Currency == currency {
			defs = append(defs, d)
		}
	}
	return defs
}

// ByKey returns one definition by its key
func (c *StaticCatalog) ByKey(key string) (indicator.Definition, bool) {
	d, ok := c.byKey[key]
	return d, ok
}

// Currencies returns the distinct currencies in catalogue order
func (c *StaticCatalog) Currencies() []string {
	seen := make(map[string]bool)
	var currencies []string
	for _, d := range c.defs {
		if !seen[d.Currency] {
			seen[d.Currency] = true
			currencies = append(currencies, d.Currency)
		}
	}
	return currencies
}

func defaultDefinitions() []indicator.Definition {
	return []indicator.Definition{
		// USD
		{
			Key: "us_cpi_yoy", SeriesID: "CPIAUCSL", Name: "US CPI",
			Transform: indicator.TransformYoY, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.HigherIsPositive, Currency: "USD", Category: "inflation",
			Weight: 1.0, TypicalSurprisePct: 0.15,
		},
		{
			Key: "us_core_pce_yoy", SeriesID: "PCEPILFE", Name: "US Core PCE",
			Transform: indicator.TransformYoY, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.HigherIsPositive, Currency: "USD", Category: "inflation",
			Weight: 1.2, TypicalSurprisePct: 0.1,
		},
		{
			Key: "us_nfp_delta", SeriesID: "PAYEMS", Name: "US Nonfarm Payrolls",
			Transform: indicator.TransformDelta, Unit: "k", Frequency: indicator.FreqMonthly,
			Directionality: indicator.HigherIsPositive, Currency: "USD", Category: "labor",
			Weight: 1.0, TypicalSurprisePct: 25,
		},
		{
			Key: "us_unemployment", SeriesID: "UNRATE", Name: "US Unemployment Rate",
			Transform: indicator.TransformNone, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.LowerIsPositive, Currency: "USD", Category: "labor",
			Weight: 0.8, TypicalSurprisePct: 2.5,
		},
		{
			Key: "us_gdp_qoq", SeriesID: "GDPC1", Name: "US Real GDP",
			Transform: indicator.TransformQoQ, Unit: "%", Frequency: indicator.FreqQuarterly,
			Directionality: indicator.HigherIsPositive, Currency: "USD", Category: "growth",
			Weight: 1.0, TypicalSurprisePct: 15,
		},
		{
			Key: "us_retail_sales_mom", SeriesID: "RSAFS", Name: "US Retail Sales",
			Transform: indicator.TransformMoM, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.HigherIsPositive, Currency: "USD", Category: "growth",
			Weight: 0.6, TypicalSurprisePct: 60,
		},
		{
			Key: "us_jobless_claims_4w", SeriesID: "ICSA", Name: "US Initial Jobless Claims",
			Transform: indicator.TransformSMA4, Unit: "k", Frequency: indicator.FreqWeekly,
			Directionality: indicator.LowerIsPositive, Currency: "USD", Category: "labor",
			Weight: 0.5, TypicalSurprisePct: 3,
		},
		{
			Key: "us_fed_funds", SeriesID: "DFF", Name: "US Fed Funds Rate",
			Transform: indicator.TransformNone, Unit: "%", Frequency: indicator.FreqDaily,
			Directionality: indicator.HigherIsPositive, Currency: "USD", Category: "rates",
			Weight: 1.5, TypicalSurprisePct: 5,
		},

		// EUR
		{
			Key: "ez_hicp_yoy", SeriesID: "EA.HICP", Name: "Eurozone HICP",
			Transform: indicator.TransformYoY, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.HigherIsPositive, Currency: "EUR", Category: "inflation",
			Weight: 1.2, TypicalSurprisePct: 0.15,
		},
		{
			Key: "ez_gdp_qoq", SeriesID: "EA.GDP", Name: "Eurozone GDP",
			Transform: indicator.TransformQoQ, Unit: "%", Frequency: indicator.FreqQuarterly,
			Directionality: indicator.HigherIsPositive, Currency: "EUR", Category: "growth",
			Weight: 1.0, TypicalSurprisePct: 30,
		},
		{
			Key: "ez_unemployment", SeriesID: "EA.UNEMP", Name: "Eurozone Unemployment Rate",
			Transform: indicator.TransformNone, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.LowerIsPositive, Currency: "EUR", Category: "labor",
			Weight: 0.8, TypicalSurprisePct: 2,
		},
		{
			Key: "ez_depo_rate", SeriesID: "EA.DEPO", Name: "ECB Deposit Rate",
			Transform: indicator.TransformNone, Unit: "%", Frequency: indicator.FreqDaily,
			Directionality: indicator.HigherIsPositive, Currency: "EUR", Category: "rates",
			Weight: 1.5, TypicalSurprisePct: 8,
		},

		// GBP
		{
			Key: "uk_cpi_yoy", SeriesID: "UK.CPI", Name: "UK CPI",
			Transform: indicator.TransformYoY, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.HigherIsPositive, Currency: "GBP", Category: "inflation",
			Weight: 1.2, TypicalSurprisePct: 0.2,
		},
		{
			Key: "uk_gdp_qoq", SeriesID: "UK.GDP", Name: "UK GDP",
			Transform: indicator.TransformQoQ, Unit: "%", Frequency: indicator.FreqQuarterly,
			Directionality: indicator.HigherIsPositive, Currency: "GBP", Category: "growth",
			Weight: 1.0, TypicalSurprisePct: 35,
		},
		{
			Key: "uk_bank_rate", SeriesID: "UK.BANKRATE", Name: "BoE Bank Rate",
			Transform: indicator.TransformNone, Unit: "%", Frequency: indicator.FreqDaily,
			Directionality: indicator.HigherIsPositive, Currency: "GBP", Category: "rates",
			Weight: 1.5, TypicalSurprisePct: 8,
		},

		// JPY
		{
			Key: "jp_cpi_yoy", SeriesID: "JP.CPI", Name: "Japan CPI",
			Transform: indicator.TransformYoY, Unit: "%", Frequency: indicator.FreqMonthly,
			Directionality: indicator.HigherIsPositive, Currency: "JPY", Category: "inflation",
			Weight: 1.2, TypicalSurprisePct: 0.2,
		},
		{
			Key: "jp_gdp_qoq", SeriesID: "JP.GDP", Name: "Japan GDP",
			Transform: indicator.TransformQoQ, Unit: "%", Frequency: indicator.FreqQuarterly,
			Directionality: indicator.HigherIsPositive, Currency: "JPY", Category: "growth",
			Weight: 1.0, TypicalSurprisePct: 50,
		},
		{
			Key: "jp_policy_rate", SeriesID: "JP.POLICYRATE", Name: "BoJ Policy Rate",
			Transform: indicator.TransformNone, Unit: "%", Frequency: indicator.FreqDaily,
			Directionality: indicator.HigherIsPositive, Currency: "JPY", Category: "rates",
			Weight: 1.5, TypicalSurprisePct: 20,
		},
	}
}
