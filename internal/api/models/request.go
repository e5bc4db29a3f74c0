package models

// RangeQuery selects an inclusive date range inside the requested year.
// Both bounds default to the year's first and last day.
type RangeQuery struct {
	From string `form:"from"` // YYYY-MM-DD
	To   string `form:"to"`   // YYYY-MM-DD
}

// PricesQuery adds optional raw points to a price summary
type PricesQuery struct {
	RangeQuery
	IncludePoints bool `form:"include_points"`
}

// ComparisonQuery selects the comparison output format
type ComparisonQuery struct {
	RangeQuery
	Format string `form:"format"` // json (default), xlsx, pdf, text
	A      string `form:"a"`      // default: first configured variant
	B      string `form:"b"`      // default: second configured variant
}

// LedgerQuery selects the orientation whose hourly ledger is exported
type LedgerQuery struct {
	RangeQuery
	Variant string `form:"variant" binding:"required"`
}

// RankQuery limits the number of ranked orientations
type RankQuery struct {
	RangeQuery
	Limit int `form:"limit,omitempty"` // default: all
}
