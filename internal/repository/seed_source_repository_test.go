package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedPayload = `[
  {"id":1,"title":"Fjallraven Backpack","price":329.85,"description":"Your perfect pack","category":"men's clothing","image":"https://example.test/1.jpg","sold":false,"dateOfSale":"2021-11-27T20:29:54+05:30"},
  {"id":2,"title":"Mens Casual T-Shirt","price":44.6,"description":"Slim-fitting","category":"men's clothing","image":"https://example.test/2.jpg","sold":true,"dateOfSale":"2021-10-27T20:29:54+05:30"}
]`

func serve(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestSeedSourceRepository_Fetch(t *testing.T) {
	srv := serve(http.StatusOK, seedPayload)
	defer srv.Close()

	txs, err := NewSeedSourceRepository(srv.URL, 5*time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Empty(t, txs[0].ID, "upstream ids are not kept")
	assert.Equal(t, "Fjallraven Backpack", txs[0].Title)
	assert.True(t, txs[0].Price.Equal(decimal.RequireFromString("329.85")))
	assert.Equal(t, "https://example.test/1.jpg", txs[0].Image)
	assert.Equal(t, time.UTC, txs[0].DateOfSale.Location())
	assert.Equal(t, time.November, txs[0].DateOfSale.Month())
	assert.True(t, txs[1].Sold)
}

func TestSeedSourceRepository_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-2xx status", http.StatusBadGateway, `{"message":"down"}`},
		{"not an array", http.StatusOK, `{"id":1}`},
		{"missing category", http.StatusOK, `[{"title":"x","price":1,"sold":true,"dateOfSale":"2021-11-27T20:29:54Z"}]`},
		{"missing date", http.StatusOK, `[{"title":"x","price":1,"category":"c","sold":true}]`},
		{"negative price", http.StatusOK, `[{"title":"x","price":-1,"category":"c","sold":true,"dateOfSale":"2021-11-27T20:29:54Z"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(tt.status, tt.body)
			defer srv.Close()

			_, err := NewSeedSourceRepository(srv.URL, time.Second).Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestSeedSourceRepository_Unreachable(t *testing.T) {
	srv := serve(http.StatusOK, seedPayload)
	url := srv.URL
	srv.Close()

	_, err := NewSeedSourceRepository(url, time.Second).Fetch(context.Background())
	assert.Error(t, err)
}
