package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry of built-in field types.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, k := range builtinKinds() {
			r.MustRegister(k)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

func builtinKinds() []Kind {
	return []Kind{
		{Name: "String", Description: "single-line text", Normalize: normalizeString(func(s string) (string, error) {
			if strings.ContainsAny(s, "\r\n") {
				return "", fmt.Errorf("must be a single line")
			}
			return s, nil
		})},
		{Name: "Text", Description: "free-form text", Normalize: normalizeString(func(s string) (string, error) {
			return s, nil
		})},
		{Name: "Title", Description: "title-cased heading", Normalize: normalizeString(func(s string) (string, error) {
			// A Caser carries transform state, so each call gets its own.
			return cases.Title(language.Und).String(strings.TrimSpace(s)), nil
		})},
		{Name: "URL", Description: "absolute URL", Normalize: normalizeString(func(s string) (string, error) {
			u, err := url.Parse(s)
			if err != nil {
				return "", err
			}
			if !u.IsAbs() {
				return "", fmt.Errorf("url %q is not absolute", s)
			}
			return u.String(), nil
		})},
		{Name: "Email", Description: "email address", Normalize: normalizeString(func(s string) (string, error) {
			addr, err := mail.ParseAddress(s)
			if err != nil {
				return "", err
			}
			return addr.Address, nil
		})},
		{Name: "Integer", Description: "64-bit integer", Normalize: normalizeInteger, Parse: parseInteger},
		{Name: "Float", Description: "64-bit float", Normalize: normalizeFloat, Parse: parseFloat},
		{Name: "Boolean", Description: "true or false", Normalize: normalizeBoolean, Parse: parseBoolean},
		{Name: "Date", Description: "calendar date (YYYY-MM-DD)", Normalize: normalizeTime("2006-01-02")},
		{Name: "Timestamp", Description: "RFC 3339 timestamp, stored in UTC", Normalize: normalizeTime(time.RFC3339)},
	}
}

func normalizeString(check func(string) (string, error)) func(any) (any, error) {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return check(s)
	}
}

func normalizeInteger(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return nil, fmt.Errorf("%v is not an integer", n)
		}
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return nil, fmt.Errorf("%v is out of int64 range", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

func normalizeFloat(v any) (any, error) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%v is not finite", f)
	}
	return f, nil
}

func normalizeBoolean(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("expected boolean, got %T", v)
	}
	return b, nil
}

func parseInteger(s string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseFloat(s string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseBoolean also accepts "on", which browsers submit for a checked box.
func parseBoolean(s string) (any, error) {
	if strings.EqualFold(strings.TrimSpace(s), "on") {
		return true, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

// normalizeTime keeps times as formatted strings so records stay
// JSON-friendly.
func normalizeTime(layout string) func(any) (any, error) {
	return func(v any) (any, error) {
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(layout), nil
		case string:
			parsed, err := time.Parse(layout, t)
			if err != nil {
				return nil, err
			}
			return parsed.UTC().Format(layout), nil
		default:
			return nil, fmt.Errorf("expected %s string, got %T", layout, v)
		}
	}
}
