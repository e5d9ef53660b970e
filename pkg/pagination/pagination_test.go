package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-5))
	require.Equal(t, 10, NormalizeLimit(10))
	require.Equal(t, MaxLimit, NormalizeLimit(5000))
}

func TestCursor_RoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ID:        uuid.New(),
	}

	parsed, err := ParseCursor(EncodeCursor(cursor))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	require.True(t, cursor.CreatedAt.Equal(parsed.CreatedAt))
	require.Equal(t, cursor.ID, parsed.ID)
}

func TestParseCursor_EmptyAndInvalid(t *testing.T) {
	parsed, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, parsed)

	_, err = ParseCursor("%%%not-base64%%%")
	require.Error(t, err)

	_, err = ParseCursor("bm8tcGlwZS1oZXJl")
	require.Error(t, err)
}

type row struct {
	id        uuid.UUID
	createdAt time.Time
}

func TestBuildPage(t *testing.T) {
	now := time.Now().UTC()
	rows := make([]row, 4)
	for i := range rows {
		rows[i] = row{id: uuid.New(), createdAt: now.Add(-time.Duration(i) * time.Minute)}
	}

	cursorOf := func(r row) Cursor {
		return Cursor{CreatedAt: r.createdAt, ID: r.id}
	}

	// Buffer row present: trimmed, next cursor points at the last kept item.
	page := BuildPage(rows, 3, cursorOf)
	require.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)

	parsed, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	require.Equal(t, rows[2].id, parsed.ID)

	// Final page: everything kept, no cursor.
	page = BuildPage(rows[:2], 3, cursorOf)
	require.Len(t, page.Items, 2)
	require.Empty(t, page.NextCursor)
}

func TestFromQuery(t *testing.T) {
	params := FromQuery("50", " abc ")
	require.Equal(t, 50, params.Limit)
	require.Equal(t, "abc", params.Cursor)

	params = FromQuery("not-a-number", "")
	require.Equal(t, 0, params.Limit)
}
