package repository

import (
	"time"

	"github.com/eaglebank/insights-service/shared/models"
	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func tx(title, desc string, price float64, category string, sold bool, when time.Time) models.Transaction {
	return models.Transaction{
		Title:       title,
		Description: desc,
		Price:       decimal.NewFromFloat(price),
		Category:    category,
		Sold:        sold,
		DateOfSale:  when,
	}
}

// sampleTransactions mixes years, months, bands and categories.
func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		tx("Fjallraven Backpack", "Your perfect pack for everyday use", 50, "A", true, date(2023, time.March, 5)),
		tx("Mens Casual T-Shirt", "Slim-fitting style", 150, "B", false, date(2022, time.March, 10)),
		tx("Cotton Jacket", "great outerwear jacket", 100.5, "B", true, date(2021, time.March, 20)),
		tx("Gold Ring", "Classic created wedding ring", 950, "jewelery", true, date(2022, time.March, 1)),
		tx("SSD 1TB", "Fast storage with 150 MB/s cache", 120, "electronics", false, date(2022, time.April, 2)),
		tx("Free Sticker", "promotional", 0, "A", false, date(2022, time.March, 30)),
	}
}

func boolPtr(b bool) *bool { return &b }
