// Package format renders record values for plain-text binding. Every
// specifier falls back to the raw value when the input cannot be coerced.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/goliatone/go-listbind/internal/domain"
)

// Recognised specifiers.
const (
	Currency     = "currency"
	Rate         = "rate"
	Rating       = "rating"
	Earnings     = "earnings"
	Number       = "number"
	Truncate     = "truncate"
	Boolean      = "boolean"
	Availability = "availability"
	Markdown     = "markdown"
)

const (
	currencySymbol  = "$"
	truncateLimit   = 100
	rateOnRequest   = "Rate on request"
	availableText   = "Available"
	unavailableText = "Not Available"
)

// Format renders value according to spec. A nil value renders empty except for
// rate, which has its own fallback.
func Format(value any, spec string) string {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if value == nil {
		if spec == Rate {
			return rateOnRequest
		}
		return ""
	}
	raw := domain.Stringify(value)

	switch spec {
	case Currency:
		if n, ok := domain.Number(value); ok {
			return currencySymbol + grouped(n, true)
		}
	case Rate:
		if n, ok := domain.Number(value); ok {
			if n == 0 {
				return rateOnRequest
			}
			return currencySymbol + trimFloat(n) + "/hr"
		}
		if strings.TrimSpace(raw) == "" {
			return rateOnRequest
		}
	case Rating:
		if n, ok := domain.Number(value); ok {
			return strconv.FormatFloat(n, 'f', 1, 64)
		}
	case Earnings:
		if n, ok := domain.Number(value); ok {
			return FormatEarnings(n)
		}
	case Number:
		if n, ok := domain.Number(value); ok {
			return grouped(n, false)
		}
	case Truncate:
		return truncate(raw, truncateLimit)
	case Boolean:
		if b, ok := truthy(value); ok {
			if b {
				return "Yes"
			}
			return "No"
		}
	case Availability:
		if b, ok := truthy(value); ok {
			if b {
				return availableText
			}
			return unavailableText
		}
	}
	return raw
}

// FormatEarnings abbreviates large amounts: millions as M+, thousands as k+.
func FormatEarnings(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%s%dM+", currencySymbol, int64(math.Floor(n/1_000_000)))
	case n >= 1_000:
		return fmt.Sprintf("%s%dk+", currencySymbol, int64(math.Floor(n/1_000)))
	default:
		return currencySymbol + trimFloat(n)
	}
}

func grouped(n float64, cents bool) string {
	printer := message.NewPrinter(language.English)
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return printer.Sprintf("%d", int64(n))
	}
	if cents {
		return printer.Sprintf("%.2f", n)
	}
	return printer.Sprintf("%v", n)
}

func trimFloat(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func truthy(value any) (bool, bool) {
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(typed)))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	if n, ok := domain.Number(value); ok {
		return n != 0, true
	}
	return false, false
}
