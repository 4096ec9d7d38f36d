package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
)

// ParseQueryInt reads an optional bounded integer such as a page limit.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := QueryString(r, key, 0)
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be an integer").
			WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// QueryString returns the sanitized value of an optional query parameter.
func QueryString(r *http.Request, key string, maxLen int) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

// QueryLower is QueryString folded to lower case, for enum-like filters.
func QueryLower(r *http.Request, key string, maxLen int) string {
	return strings.ToLower(QueryString(r, key, maxLen))
}
