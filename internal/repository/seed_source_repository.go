package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eaglebank/insights-service/shared/models"
	"github.com/go-playground/validator/v10"
)

// SeedSourceRepository fetches the initial transaction data set from a remote
// JSON endpoint. The payload is an array of records; one invalid record
// rejects the whole batch so the store is never partially seeded.
type SeedSourceRepository struct {
	url      string
	client   *http.Client
	validate *validator.Validate
}

func NewSeedSourceRepository(url string, timeout time.Duration) *SeedSourceRepository {
	return &SeedSourceRepository{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		validate: validator.New(),
	}
}

// Fetch downloads and validates every record from the seed source.
func (r *SeedSourceRepository) Fetch(ctx context.Context) ([]models.Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the error detail.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("seed source returned %d: %s", resp.StatusCode, snippet)
	}

	var records []models.SourceTransaction
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}

	txs := make([]models.Transaction, 0, len(records))
	for i, rec := range records {
		if err := r.validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("seed record %d is invalid: %w", i, err)
		}
		if rec.Price.IsNegative() {
			return nil, fmt.Errorf("seed record %d is invalid: negative price %s", i, rec.Price)
		}
		txs = append(txs, rec.ToTransaction())
	}
	return txs, nil
}
