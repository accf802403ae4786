package streams

import (
	"context"

	"github.com/tapstack/tap-tableau/pkg/schema"
)

// Iterator is a finite, pull-based sequence of rows. Rows come out in
// the order the server returned them; an iterator is drained once and
// not restartable. After an error or exhaustion every further Next
// returns the same outcome.
type Iterator struct {
	next func(ctx context.Context) (schema.Row, bool, error)

	done bool
	err  error
}

func newIterator(next func(ctx context.Context) (schema.Row, bool, error)) *Iterator {
	return &Iterator{next: next}
}

// Next returns the next row. ok is false once the stream is exhausted.
func (it *Iterator) Next(ctx context.Context) (schema.Row, bool, error) {
	if it.err != nil {
		return nil, false, it.err
	}
	if it.done {
		return nil, false, nil
	}
	row, ok, err := it.next(ctx)
	if err != nil {
		it.err = err
		return nil, false, err
	}
	if !ok {
		it.done = true
		return nil, false, nil
	}
	return row, true, nil
}

// Collect drains the iterator. Mostly useful in tests; extraction
// proper streams rows one at a time.
func (it *Iterator) Collect(ctx context.Context) ([]schema.Row, error) {
	var rows []schema.Row
	for {
		row, ok, err := it.Next(ctx)
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
