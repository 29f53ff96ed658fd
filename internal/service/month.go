package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	for mo := time.January; mo <= time.December; mo++ {
		name := strings.ToLower(mo.String())
		m[name] = mo
		m[name[:3]] = mo
	}
	return m
}()

// ParseMonth resolves an English month name ("March", "mar", " MARCH ") to its
// month of year. The year is never consulted: every March matches time.March.
func ParseMonth(name string) (time.Month, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, Missing(errors.New("month is required"))
	}
	mo, ok := monthsByName[key]
	if !ok {
		return 0, Invalid(fmt.Errorf("unrecognised month %q", name))
	}
	return mo, nil
}
