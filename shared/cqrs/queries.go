package cqrs

// ---------- Transaction queries ----------

// ListTransactionsQuery pages through one month's transactions, optionally
// narrowed by a free-text search. Month is the raw month name from the caller.
type ListTransactionsQuery struct {
	Month   string
	Search  string
	Page    int
	PerPage int
}

// ---------- Dashboard queries ----------

// MonthQuery selects the month for statistics, bar chart, pie chart and combined views.
type MonthQuery struct {
	Month string
}
