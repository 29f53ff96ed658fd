package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eaglebank/insights-service/shared/models"
	"github.com/shopspring/decimal"
)

const monthExpr = `EXTRACT(MONTH FROM date_of_sale AT TIME ZONE 'UTC')`

// whereClause renders f as a SQL predicate with $n placeholders starting at 1.
func whereClause(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Month != 0 {
		clauses = append(clauses, monthExpr+" = "+next(int(f.Month)))
	}
	if f.Sold != nil {
		clauses = append(clauses, "sold = "+next(*f.Sold))
	}
	if f.Search != nil {
		text := next(f.Search.Text)
		or := []string{
			fmt.Sprintf("position(lower(%s::text) in lower(title)) > 0", text),
			fmt.Sprintf("position(lower(%s::text) in lower(description)) > 0", text),
		}
		if f.Search.Price != nil {
			or = append(or, "price = "+next(*f.Search.Price)+"::numeric")
		}
		clauses = append(clauses, "("+strings.Join(or, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "TRUE", args
	}
	return strings.Join(clauses, " AND "), args
}

func (r *PostgresStore) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := whereClause(f)
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (r *PostgresStore) Find(ctx context.Context, f Filter, p Page) ([]models.Transaction, error) {
	where, args := whereClause(f)
	query := `
		SELECT id, title, description, price, category, image, sold, date_of_sale
		FROM transactions
		WHERE ` + where + `
		ORDER BY id`
	if p.Skip > 0 {
		args = append(args, p.Skip)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}
	if p.Limit > 0 {
		args = append(args, p.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var (
			t  models.Transaction
			id int64
		)
		if err := rows.Scan(&id, &t.Title, &t.Description, &t.Price, &t.Category, &t.Image, &t.Sold, &t.DateOfSale); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.ID = strconv.FormatInt(id, 10)
		t.DateOfSale = t.DateOfSale.UTC()
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *PostgresStore) SoldSummary(ctx context.Context, month time.Month) (decimal.Decimal, int64, error) {
	query := `
		SELECT COALESCE(SUM(price), 0), COUNT(*)
		FROM transactions
		WHERE ` + monthExpr + ` = $1 AND sold = TRUE`
	var (
		total decimal.Decimal
		n     int64
	)
	if err := r.db.QueryRowContext(ctx, query, int(month)).Scan(&total, &n); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to summarise sales: %w", err)
	}
	return total, n, nil
}

// bandCase renders bands as a CASE expression yielding the band index, or -1.
func bandCase(bands []models.PriceBand) string {
	var b strings.Builder
	b.WriteString("CASE")
	elseIdx := -1
	for i, band := range bands {
		if band.Unbounded() {
			elseIdx = i
			break
		}
		fmt.Fprintf(&b, " WHEN price <= %d THEN %d", band.Max, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", elseIdx)
	return b.String()
}

func (r *PostgresStore) CountByPriceBand(ctx context.Context, month time.Month, bands []models.PriceBand) ([]int64, error) {
	query := `
		SELECT ` + bandCase(bands) + ` AS band, COUNT(*)
		FROM transactions
		WHERE ` + monthExpr + ` = $1 AND price >= 0
		GROUP BY band`
	rows, err := r.db.QueryContext(ctx, query, int(month))
	if err != nil {
		return nil, fmt.Errorf("failed to count price bands: %w", err)
	}
	defer rows.Close()

	counts := make([]int64, len(bands))
	for rows.Next() {
		var idx, n int64
		if err := rows.Scan(&idx, &n); err != nil {
			return nil, fmt.Errorf("failed to scan price band: %w", err)
		}
		if idx >= 0 && idx < int64(len(counts)) {
			counts[idx] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price bands: %w", err)
	}
	return counts, nil
}

func (r *PostgresStore) CountByCategory(ctx context.Context, month time.Month) ([]models.PieChartEntry, error) {
	query := `
		SELECT category, COUNT(*)
		FROM transactions
		WHERE ` + monthExpr + ` = $1
		GROUP BY category
		ORDER BY category`
	rows, err := r.db.QueryContext(ctx, query, int(month))
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	entries := make([]models.PieChartEntry, 0)
	for rows.Next() {
		var e models.PieChartEntry
		if err := rows.Scan(&e.Category, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return entries, nil
}
