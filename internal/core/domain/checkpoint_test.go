package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckpoint(t *testing.T) {
	cp := NewCheckpoint()
	assert.Equal(t, CheckpointVersion, cp.Version)
	assert.NotNil(t, cp.Resources)
	assert.Empty(t, cp.ResourceNames())
}

func TestCheckpoint_EncodeDecode(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mark := time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC)

	cp := NewCheckpoint()
	require.True(t, cp.Advance("tickets", mark, now))

	decoded, err := DecodeCheckpoint(cp.Encode())
	require.NoError(t, err)

	got, ok := decoded.Watermark("tickets")
	require.True(t, ok)
	assert.True(t, mark.Equal(got))
	assert.True(t, now.Equal(decoded.Resources["tickets"].UpdatedAt))
}

func TestDecodeCheckpoint_Empty(t *testing.T) {
	cp, err := DecodeCheckpoint("")
	require.NoError(t, err)
	assert.NotNil(t, cp.Resources)
}

func TestDecodeCheckpoint_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%"},
		{"base64 of garbage", "bm90IGpzb24="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, err := DecodeCheckpoint(tt.input)
			assert.ErrorIs(t, err, ErrInvalidCheckpoint)
			assert.Nil(t, cp)
		})
	}
}

func TestDecodeCheckpoint_NilResources(t *testing.T) {
	// base64 of {"v":1}
	cp, err := DecodeCheckpoint("eyJ2IjoxfQ==")
	require.NoError(t, err)
	assert.NotNil(t, cp.Resources)
	assert.Equal(t, 1, cp.Version)
}

func TestCheckpoint_Advance(t *testing.T) {
	now := time.Now()
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(24 * time.Hour)

	cp := NewCheckpoint()

	t.Run("zero is ignored", func(t *testing.T) {
		assert.False(t, cp.Advance("ads", time.Time{}, now))
		_, ok := cp.Watermark("ads")
		assert.False(t, ok)
	})

	t.Run("first value is stored", func(t *testing.T) {
		assert.True(t, cp.Advance("ads", late, now))
	})

	t.Run("never moves backwards", func(t *testing.T) {
		assert.False(t, cp.Advance("ads", early, now))
		got, _ := cp.Watermark("ads")
		assert.True(t, late.Equal(got))
	})

	t.Run("equal value is a no-op", func(t *testing.T) {
		assert.False(t, cp.Advance("ads", late, now))
	})

	t.Run("stores UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		assert.True(t, cp.Advance("ads", late.Add(time.Hour).In(loc), now))
		got, _ := cp.Watermark("ads")
		assert.Equal(t, time.UTC, got.Location())
	})
}

func TestCheckpoint_Advance_NilMap(t *testing.T) {
	cp := &Checkpoint{}
	assert.True(t, cp.Advance("x", time.Now(), time.Now()))
	assert.Equal(t, []string{"x"}, cp.ResourceNames())
}

func TestCheckpoint_Reset(t *testing.T) {
	now := time.Now()
	cp := NewCheckpoint()
	cp.Advance("a", now, now)
	cp.Advance("b", now, now)
	cp.Advance("c", now, now)

	cp.Reset("b")
	assert.Equal(t, []string{"a", "c"}, cp.ResourceNames())

	cp.Reset("")
	assert.Empty(t, cp.ResourceNames())
}

func TestCheckpoint_EncodeNil(t *testing.T) {
	var cp *Checkpoint
	assert.Equal(t, "", cp.Encode())
}
