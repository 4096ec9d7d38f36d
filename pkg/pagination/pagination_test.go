package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{At: time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC), ID: uuid.New()}

	parsed, err := ParseCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, cursor.At.Equal(parsed.At))
	assert.Equal(t, cursor.ID, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = ParseCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)
	_, err = ParseCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestEncodeCursorIsQuerySafe(t *testing.T) {
	encoded := EncodeCursor(Cursor{At: time.Now(), ID: uuid.New()})
	assert.NotContains(t, encoded, "=")
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
}

func TestKeysetScope(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	var rows []map[string]any
	first := conn.Table("orders").Scopes(Keyset("created_at", nil, 26)).Find(&rows).Statement.SQL.String()
	assert.NotContains(t, first, "WHERE")
	assert.Contains(t, first, "ORDER BY created_at DESC,id DESC")
	assert.Contains(t, first, "LIMIT 26")

	cursor := &Cursor{At: time.Now().UTC(), ID: uuid.New()}
	next := conn.Table("deliveries").
		Where("delivery_partner_id = ?", uuid.New()).
		Scopes(Keyset("delivery_time", cursor, 11)).
		Find(&rows).Statement.SQL.String()
	assert.Contains(t, next, "(delivery_time < ? OR (delivery_time = ? AND id < ?))")
	assert.Contains(t, next, "delivery_partner_id = ? AND")
}

func TestBuildPage(t *testing.T) {
	type row struct {
		at time.Time
		id uuid.UUID
	}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []row{
		{at: base.Add(3 * time.Minute), id: uuid.New()},
		{at: base.Add(2 * time.Minute), id: uuid.New()},
		{at: base.Add(time.Minute), id: uuid.New()},
	}
	key := func(r row) Cursor { return Cursor{At: r.at, ID: r.id} }

	page := BuildPage(rows, 2, key)
	require.Len(t, page.Items, 2)
	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].id, next.ID)

	last := BuildPage(rows[:1], 2, key)
	assert.Len(t, last.Items, 1)
	assert.Empty(t, last.NextCursor)

	empty := BuildPage[row](nil, 2, key)
	assert.NotNil(t, empty.Items)
}
