package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var testSecret = []byte("test-secret")

func signed(t *testing.T, secret []byte, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	}})
	s, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/initialize", AuthMiddleware(testSecret), func(c *gin.Context) {
		subject, _ := GetSubject(c)
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "missing header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", expectedStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", expectedStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signed(t, []byte("other"), "ops", time.Now().Add(time.Hour)), expectedStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signed(t, testSecret, "ops", time.Now().Add(-time.Hour)), expectedStatus: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signed(t, testSecret, "ops", time.Now().Add(time.Hour)), expectedStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/initialize", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter().ServeHTTP(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRequestIDAndLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(zerolog.New(&buf)))
	r.GET("/statistics", func(c *gin.Context) {
		RespondWithErrorDetail(c, http.StatusInternalServerError, "Error fetching statistics", "boom")
	})

	req, _ := http.NewRequest(http.MethodGet, "/statistics?month=March", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "Error fetching statistics" || body.Error != "boom" {
		t.Errorf("unexpected body %+v", body)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["level"] != "error" || entry["request_id"] != "req-123" || entry["status"] != float64(500) {
		t.Errorf("unexpected log entry %v", entry)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if len(w.Header().Get(RequestIDHeader)) != 36 {
		t.Errorf("expected a generated uuid, got %q", w.Header().Get(RequestIDHeader))
	}
}

func TestValidateRequest(t *testing.T) {
	type listRequest struct {
		Month   string `validate:"required"`
		PerPage int    `validate:"omitempty,min=1"`
	}
	errs := ValidateRequest(listRequest{PerPage: -1})
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", errs)
	}
	if errs[0].Field != "Month" || errs[0].Type != "required" {
		t.Errorf("unexpected first error %+v", errs[0])
	}
	if errs[1].Message != "Value must be at least 1" {
		t.Errorf("unexpected second error %+v", errs[1])
	}
	if ValidateRequest(listRequest{Month: "March"}) != nil {
		t.Error("expected no errors")
	}
}

func TestIssueToken(t *testing.T) {
	token, err := IssueToken(testSecret, "ops@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "/initialize", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["subject"] != "ops@example.com" {
		t.Errorf("expected subject to round-trip, got %q", body["subject"])
	}
}
