package datetime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"rfc3339", "2025-11-15T10:30:00Z", time.Date(2025, 11, 15, 10, 30, 0, 0, time.UTC)},
		{"rfc3339 offset", "2025-11-15T12:30:00+02:00", time.Date(2025, 11, 15, 10, 30, 0, 0, time.UTC)},
		{"rfc3339 nano", "2025-11-15T10:30:00.123456Z", time.Date(2025, 11, 15, 10, 30, 0, 123456000, time.UTC)},
		{"app store offset", "2025-11-15T10:30:00.000-0800", time.Date(2025, 11, 15, 18, 30, 0, 0, time.UTC)},
		{"naive iso", "2025-11-15T10:30:00.500", time.Date(2025, 11, 15, 10, 30, 0, 500000000, time.UTC)},
		{"space separated", "2025-11-15 10:30:00", time.Date(2025, 11, 15, 10, 30, 0, 0, time.UTC)},
		{"date only", "2025-11-15", time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)},
		{"compact date", "20251115", time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)},
		{"compact hour", "2025111510", time.Date(2025, 11, 15, 10, 0, 0, 0, time.UTC)},
		{"compact minute", "202511151030", time.Date(2025, 11, 15, 10, 30, 0, 0, time.UTC)},
		{"unix digits", "1700000000", time.Unix(1700000000, 0).UTC()},
		{"unix digits shaped like a date", "1701011212", time.Unix(1701011212, 0).UTC()},
		{"compact date before 1970", "19691231", time.Unix(19691231, 0).UTC()},
		{"unix int", 1700000000, time.Unix(1700000000, 0).UTC()},
		{"unix int64", int64(1700000000), time.Unix(1700000000, 0).UTC()},
		{"unix float", 1700000000.5, time.Unix(1700000000, 500000000).UTC()},
		{"json number", json.Number("1700000000"), time.Unix(1700000000, 0).UTC()},
		{"time value", time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)), time.Date(2025, 1, 2, 2, 4, 5, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []any{"", "not a date", true, []string{"2025"}} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrUnparseable, "input %v", input)
	}
}

func TestNormaliser_Normalise(t *testing.T) {
	n := New("created_at", "updated_at", "missing")
	rec := domain.Record{
		"id":         "1",
		"created_at": "2025-11-15T10:30:00+01:00",
		"updated_at": nil,
	}

	require.NoError(t, n.Normalise(rec))

	assert.Equal(t, time.Date(2025, 11, 15, 9, 30, 0, 0, time.UTC), rec["created_at"])
	assert.Nil(t, rec["updated_at"])
	assert.NotContains(t, rec, "missing")
	assert.Equal(t, "1", rec["id"])
}

func TestNormaliser_Idempotent(t *testing.T) {
	n := New("date")
	rec := domain.Record{"date": "20251115"}

	require.NoError(t, n.Normalise(rec))
	once := rec["date"]
	require.NoError(t, n.Normalise(rec))

	assert.Equal(t, once, rec["date"])
}

func TestNormaliser_EmptyStringKept(t *testing.T) {
	rec := domain.Record{"date": "  "}
	require.NoError(t, New("date").Normalise(rec))
	assert.Equal(t, "  ", rec["date"])
}

func TestNormaliser_UnparseableIsTerminal(t *testing.T) {
	rec := domain.Record{"date": "yesterday"}
	err := New("date").Normalise(rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTerminalAPI)
	assert.Contains(t, err.Error(), `"date"`)
}
