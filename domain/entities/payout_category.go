package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PayoutCategory is a configured tier keyed by matched count
type PayoutCategory struct {
	ID           int64           `db:"id"`
	MatchedCount int             `db:"matched_count"`
	Percent      decimal.Decimal `db:"percent"`
	Coefficient  decimal.Decimal `db:"coefficient"`
	Active       bool            `db:"active"`
}

// ActiveCategories returns the active categories ascending by matched count
func ActiveCategories(categories []*PayoutCategory) []*PayoutCategory {
	active := make([]*PayoutCategory, 0, len(categories))
	for _, c := range categories {
		if c.Active {
			active = append(active, c)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].MatchedCount < active[j].MatchedCount
	})
	return active
}

// TotalPercent sums the percent shares of the given categories
func TotalPercent(categories []*PayoutCategory) decimal.Decimal {
	total := decimal.Zero
	for _, c := range categories {
		total = total.Add(c.Percent)
	}
	return total
}

// ValidateCategories rejects configurations whose active shares exceed the pool
func ValidateCategories(categories []*PayoutCategory) error {
	if TotalPercent(ActiveCategories(categories)).GreaterThan(hundred) {
		return ErrInvalidCategoryConfig
	}
	return nil
}
