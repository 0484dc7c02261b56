// Package format renders ERP values (money, quantities, dates) for display.
package format

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is the locale used when the environment does not name one.
// The backend keeps its books in rupiah, so Indonesian conventions win over
// the POSIX default of en-US.
const DefaultLocale = "id-ID"

// Locale holds resolved formatting conventions for dates and numbers.
type Locale struct {
	tag     language.Tag
	printer *message.Printer
}

// DetectLocale resolves the display locale from ERPDESK_LOCALE, then
// LC_ALL and LC_NUMERIC. LANG is ignored because most terminals default it
// to en_US regardless of the user's business locale.
func DetectLocale() Locale {
	for _, key := range []string{"ERPDESK_LOCALE", "LC_ALL", "LC_NUMERIC"} {
		if raw := os.Getenv(key); raw != "" && raw != "C" && raw != "POSIX" {
			return NewLocale(raw)
		}
	}
	return NewLocale(DefaultLocale)
}

// NewLocale creates a Locale from a POSIX locale string (e.g. "id_ID.UTF-8")
// or BCP 47 tag (e.g. "id-ID"). Returns id-ID for empty or unparseable input.
func NewLocale(raw string) Locale {
	if idx := strings.IndexByte(raw, '.'); idx != -1 {
		raw = raw[:idx]
	}
	raw = strings.ReplaceAll(raw, "_", "-")

	tag, err := language.Parse(raw)
	if err != nil || tag == language.Und {
		tag = language.MustParse(DefaultLocale)
	}
	return Locale{tag: tag, printer: message.NewPrinter(tag)}
}

// Tag returns the resolved language tag.
func (l Locale) Tag() language.Tag {
	return l.tag
}

// Number formats v with grouping, keeping at most two fraction digits.
func (l Locale) Number(v float64) string {
	if v == math.Trunc(v) {
		return l.printer.Sprint(number.Decimal(int64(v)))
	}
	return l.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Currency formats v as whole rupiah, e.g. "Rp 1.250.000".
func (l Locale) Currency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "Rp " + l.printer.Sprint(number.Decimal(int64(math.Round(v))))
}

// Date formats t as day/month/year.
func (l Locale) Date(t time.Time) string {
	if base, _ := l.tag.Base(); base.String() == "en" {
		if region, _ := l.tag.Region(); region.String() == "US" {
			return t.Format("01/02/2006")
		}
	}
	return t.Format("02/01/2006")
}

// Value formats an untyped JSON value according to kind ("currency",
// "number", "date", anything else is text).
func (l Locale) Value(kind string, v any) string {
	switch kind {
	case "currency":
		if f, ok := toFloat(v); ok {
			return l.Currency(f)
		}
	case "number":
		if f, ok := toFloat(v); ok {
			return l.Number(f)
		}
	case "date":
		if t, ok := toTime(v); ok {
			return l.Date(t)
		}
	}
	return Text(v)
}

// Text renders a scalar JSON value as plain text.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "ya"
		}
		return "tidak"
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	case map[string]any:
		for _, k := range []string{"name", "title", "code", "id"} {
			if s, ok := x[k]; ok {
				return Text(s)
			}
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Decimal columns arrive as strings from the backend ORM.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
