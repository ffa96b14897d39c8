package rest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/logger"
	"github.com/custodia-labs/tidemark/internal/normalisers/datetime"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return &buf
}

func TestDrain_FiltersAndNormalises(t *testing.T) {
	src := &fakeSource{pages: []*domain.Page{
		{Records: []domain.Record{
			{"id": "old", "updated": "2025-11-01T00:00:00Z"},
			{"id": "new", "updated": "2025-11-12T08:00:00+02:00"},
		}},
	}}
	tracker := &Tracker{Field: "updated", Since: at(10, 0)}

	var got []domain.Record
	err := Drain(context.Background(), NewPaginator(src), tracker, datetime.New("updated"),
		func(rec domain.Record) error {
			got = append(got, rec)
			return nil
		})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].String("id"))
	assert.Equal(t, at(12, 6), got[0]["updated"])
	assert.Equal(t, at(12, 6), tracker.Watermark())
}

func TestDrain_EmitErrorStops(t *testing.T) {
	src := &fakeSource{pages: []*domain.Page{
		{Records: recs("a", "b"), Next: domain.CursorParam("p", "2")},
		{Records: recs("c")},
	}}
	stop := errors.New("consumer gone")

	err := Drain(context.Background(), NewPaginator(src), &Tracker{Field: "updated"}, nil,
		func(domain.Record) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Len(t, src.calls, 1)
}

func TestDrain_WarnsAtSafetyCap(t *testing.T) {
	buf := captureLog(t)
	src := &endlessSource{}

	var n int
	err := Drain(context.Background(), NewPaginator(src, MaxPages(3)), &Tracker{Field: "updated"}, nil,
		func(domain.Record) error {
			n++
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, 3, src.calls)
	assert.Contains(t, buf.String(), "[WARN] pagination stopped at the safety cap after 3 pages and 3 records")
}

func TestDrain_NoWarningWhenExhausted(t *testing.T) {
	buf := captureLog(t)
	src := &fakeSource{pages: []*domain.Page{{Records: recs("a")}}}

	err := Drain(context.Background(), NewPaginator(src), &Tracker{Field: "updated"}, nil,
		func(domain.Record) error { return nil })
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "safety cap")
}

func TestStream_SendsCompletion(t *testing.T) {
	watermark := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	records, errs := Stream(context.Background(), func(_ context.Context, emit EmitFunc) (time.Time, error) {
		for _, rec := range recs("a", "b") {
			if err := emit(rec); err != nil {
				return time.Time{}, err
			}
		}
		return watermark, nil
	})

	got, done, err := Collect(records, errs)
	require.NoError(t, err)
	require.NotNil(t, done)
	assert.Len(t, got, 2)
	assert.Equal(t, watermark, done.Watermark)
}

func TestStream_PassesError(t *testing.T) {
	boom := errors.New("boom")
	records, errs := Stream(context.Background(), func(_ context.Context, emit EmitFunc) (time.Time, error) {
		_ = emit(domain.Record{"id": "a"})
		return time.Time{}, boom
	})

	got, done, err := Collect(records, errs)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, done)
	assert.Len(t, got, 1)
}
