package models

import "github.com/shopspring/decimal"

// Statistics is the sold/not-sold summary for one month of the year.
type Statistics struct {
	TotalSalesAmount  decimal.Decimal `json:"totalSalesAmount"`
	TotalSoldItems    int64           `json:"totalSoldItems"`
	TotalNotSoldItems int64           `json:"totalNotSoldItems"`
}

// BarChartEntry is the number of transactions in one price band.
type BarChartEntry struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// PieChartEntry is the number of transactions in one category.
// The category is serialised as "_id" for compatibility with existing clients.
type PieChartEntry struct {
	Category string `json:"_id"`
	Count    int64  `json:"count"`
}

// CombinedView bundles the three month-scoped dashboards.
type CombinedView struct {
	Statistics   Statistics      `json:"statistics"`
	BarChartData []BarChartEntry `json:"barChartData"`
	PieChartData []PieChartEntry `json:"pieChartData"`
}
