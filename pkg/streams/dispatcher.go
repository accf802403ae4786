package streams

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

// Dispatcher owns the per-run server client and produces row iterators
// for selected streams. The authenticated session lives in the client
// and is established lazily by the first fetch; the dispatcher never
// re-creates it.
type Dispatcher struct {
	client *tableau.Client
	logger *logrus.Logger
}

func NewDispatcher(client *tableau.Client, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{client: client, logger: logger}
}

// Extract composes the pipeline for one stream and returns its row
// iterator. Every row is validated against the stream's declared schema
// before it is handed out; a mismatch aborts the stream, it is a defect
// to fix at the normalizer, not data to skip.
func (d *Dispatcher) Extract(name string) (*Iterator, error) {
	var op errors.Op = "streams.Dispatcher.Extract"
	stream, ok := Lookup(name)
	if !ok {
		return nil, errors.E(op, errors.KindBadInput, fmt.Errorf("unknown stream %q", name))
	}
	inner := stream.extract(d.client, d.logger)
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		row, ok, err := inner.Next(ctx)
		if err != nil {
			return nil, false, errors.E(op, fmt.Errorf("stream %s: %w", stream.Name, err))
		}
		if !ok {
			return nil, false, nil
		}
		if err := stream.Schema.Validate(row); err != nil {
			return nil, false, errors.E(op, fmt.Errorf("stream %s: %w", stream.Name, err))
		}
		return row, true, nil
	}), nil
}
