// Command seedtoken prints a bearer token for GET /initialize when the
// service runs with JWT_SECRET set.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/eaglebank/insights-service/internal/config"
	"github.com/eaglebank/insights-service/shared/logger"
	"github.com/eaglebank/insights-service/shared/middleware"
)

func main() {
	subject := flag.String("subject", "operator", "token subject, logged as requested_by on seed")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true, Service: "seedtoken", Output: os.Stderr})
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	token, err := middleware.IssueToken([]byte(cfg.JWTSecret), *subject, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to issue token")
	}
	fmt.Println(token)
}
