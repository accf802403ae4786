package streams

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

// metadataIterator runs one of the single-shot metadata queries on first
// pull and then walks the returned nodes through the stream's
// normalizer.
func metadataIterator(c *tableau.Client, query string, normalize func(map[string]interface{}) (schema.Row, error)) *Iterator {
	var op errors.Op = "streams.metadataIterator"
	var nodes []map[string]interface{}
	fetched := false
	idx := 0
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		if !fetched {
			var err error
			nodes, err = c.Metadata.RunQuery(ctx, query)
			if err != nil {
				return nil, false, errors.E(op, err)
			}
			fetched = true
		}
		if idx >= len(nodes) {
			return nil, false, nil
		}
		node := nodes[idx]
		idx++
		row, err := normalize(node)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		return row, true, nil
	})
}

// decodeNode maps a GraphQL node into its typed shape.
func decodeNode(node map[string]interface{}, out interface{}) error {
	var op errors.Op = "streams.decodeNode"
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return errors.E(op, errors.KindInternal, err)
	}
	if err := dec.Decode(node); err != nil {
		return errors.E(op, errors.KindTableauAPI, err)
	}
	return nil
}

// luidRef is a nested {luid} reference in metadata responses.
type luidRef struct {
	Luid string `json:"luid"`
}

// requireRef enforces the data-integrity rule that nested site, owner
// and certifier references are present when the schema flattens them.
func requireRef(present bool, field, id string) error {
	var op errors.Op = "streams.requireRef"
	if present {
		return nil
	}
	return errors.E(op, errors.KindTableauAPI,
		fmt.Errorf("node %s has no %s reference", id, field))
}
