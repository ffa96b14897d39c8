package rest

import (
	"context"
	"time"

	"github.com/custodia-labs/tidemark/internal/core/domain"
	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/logger"
)

// EmitFunc hands one record to the consumer. It fails only when ctx ends.
type EmitFunc func(domain.Record) error

// ExtractFunc produces the records of one extraction and returns the new watermark.
type ExtractFunc func(ctx context.Context, emit EmitFunc) (time.Time, error)

// Stream runs extract in a goroutine and returns the channel pair a
// driven.Connector hands back from Extract. Both channels are closed when
// extract returns; on success the error channel carries a SyncComplete.
func Stream(ctx context.Context, extract ExtractFunc) (<-chan domain.Record, <-chan error) {
	recordsChan := make(chan domain.Record)
	errsChan := make(chan error, 1)

	go func() {
		defer close(recordsChan)
		defer close(errsChan)

		emit := func(rec domain.Record) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case recordsChan <- rec:
				return nil
			}
		}

		watermark, err := extract(ctx, emit)
		if err != nil {
			errsChan <- err
			return
		}
		errsChan <- &driven.SyncComplete{Watermark: watermark}
	}()

	return recordsChan, errsChan
}

// Drain walks p, keeps the records inside the tracker's window, normalises
// them and emits them in provider order. Hitting a safety cap is not an
// error, but it is logged.
func Drain(ctx context.Context, p *Paginator, tracker *Tracker, n driven.Normaliser, emit EmitFunc) error {
	err := p.Each(ctx, func(page *domain.Page) error {
		for _, rec := range tracker.Filter(page.Records) {
			if n != nil {
				if err := n.Normalise(rec); err != nil {
					return err
				}
			}
			if err := emit(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("%s: %d pages, %d records", tracker.Field, p.Pages(), p.Items())
	if p.Capped() {
		logger.Warn("pagination stopped at the safety cap after %d pages and %d records; later pages were not read",
			p.Pages(), p.Items())
	}
	return nil
}

// Collect drains a connector's channel pair, returning the records and
// the completion. It is the consumer side of Stream.
func Collect(records <-chan domain.Record, errs <-chan error) ([]domain.Record, *driven.SyncComplete, error) {
	var out []domain.Record
	for rec := range records {
		out = append(out, rec)
	}
	for err := range errs {
		if sc, ok := driven.IsSyncComplete(err); ok {
			return out, sc, nil
		}
		return out, nil, err
	}
	return out, nil, nil
}
