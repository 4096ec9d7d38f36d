package validators

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nearbuy/hyperlocal-backend/pkg/errors"
)

func TestSanitizeStringKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "गली नंबर", SanitizeString("  गली नंबर 5  ", 8))
	assert.Equal(t, "flat 4 second floor", SanitizeString("flat 4\nsecond floor\x00", 0))
	assert.Equal(t, "", SanitizeString(" \t ", 10))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/orders?limit=25&status=%20Ready%20", nil)

	limit, err := ParseQueryInt(req, "limit", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)

	fallback, err := ParseQueryInt(req, "page", 10, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, fallback)

	assert.Equal(t, "ready", QueryLower(req, "status", 32))

	_, err = ParseQueryInt(httptest.NewRequest("GET", "/orders?limit=abc", nil), "limit", 10, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(httptest.NewRequest("GET", "/orders?limit=500", nil), "limit", 10, 1, 100)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]any{"field": "limit", "min": 1, "max": 100}, typed.Details())
}
