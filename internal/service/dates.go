package service

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/sakif/agenda-api/internal/apperror"
)

// MsgInvalidDate is returned for event dates that cannot be parsed.
const MsgInvalidDate = "Data inválida."

// dateLayouts are tried before the natural-language parser. Values without
// an offset are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate coerces a client-supplied event date.
//
// Accepted: ISO-8601 strings (with or without time and offset), epoch
// milliseconds as a JSON number, and anything go-dateparser understands
// ("1 de maio de 2024", "May 1 2024 10:00").
func ParseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case float64:
		return fromMillis(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, invalidDate()
		}
		return fromMillis(f)
	case string:
		return parseDateString(strings.TrimSpace(v))
	default:
		return time.Time{}, invalidDate()
	}
}

func parseDateString(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, invalidDate()
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	cfg := &dateparser.Configuration{
		DefaultTimezone: time.UTC,
		CurrentTime:     time.Now().UTC(),
	}
	dt, err := dateparser.Parse(cfg, s)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, invalidDate()
	}
	return dt.Time.UTC(), nil
}

func fromMillis(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > 8.64e15 {
		return time.Time{}, invalidDate()
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

func invalidDate() error {
	return apperror.ValidationFailed("data", MsgInvalidDate)
}
