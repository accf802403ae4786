package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

// pager walks one paginated collection endpoint, yielding raw items in
// server order. It holds at most one page in memory and stops when the
// pagination envelope says the collection is exhausted or a short page
// arrives.
type pager struct {
	c *Client

	// pathFn builds the collection path once a session (and with it the
	// site ID) exists.
	pathFn func(*tableau.Session) string
	// envelope keys of the item array, e.g. "datasources", "datasource"
	collectionKey string
	itemKey       string

	pageNumber int
	pageSize   int
	seen       int
	total      int

	buf  []json.RawMessage
	done bool
}

var _ tableau.ItemPager = (*pager)(nil)

func (c *Client) newPager(pathFn func(*tableau.Session) string, collectionKey, itemKey string) *pager {
	return &pager{
		c:             c,
		pathFn:        pathFn,
		collectionKey: collectionKey,
		itemKey:       itemKey,
		pageNumber:    0,
		pageSize:      c.pageSize,
		total:         -1,
	}
}

func (p *pager) Next(ctx context.Context) (json.RawMessage, bool, error) {
	var op errors.Op = "restapi.pager.Next"
	for len(p.buf) == 0 {
		if p.done {
			return nil, false, nil
		}
		if err := p.fetchPage(ctx); err != nil {
			p.done = true
			return nil, false, errors.E(op, err)
		}
	}
	item := p.buf[0]
	p.buf = p.buf[1:]
	return item, true, nil
}

func (p *pager) fetchPage(ctx context.Context) error {
	var op errors.Op = "restapi.pager.fetchPage"
	session, err := p.c.Authenticate(ctx)
	if err != nil {
		return errors.E(op, err)
	}
	p.pageNumber++

	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(p.pageSize))
	q.Set("pageNumber", strconv.Itoa(p.pageNumber))
	path := p.pathFn(session) + "?" + q.Encode()

	req, err := p.c.http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return errors.E(op, err)
	}
	responseBody := new(bytes.Buffer)
	resp, err := p.c.http.Do(ctx, req, responseBody)
	if err != nil {
		return errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.E(op, errors.KindTableauAPI,
			fmt.Errorf("GET %s: %d: %s", path, resp.StatusCode, responseBody.String()))
	}
	body := responseBody.Bytes()

	if totalStr, err := jsonparser.GetString(body, "pagination", "totalAvailable"); err == nil {
		if total, err := strconv.Atoi(totalStr); err == nil {
			p.total = total
		}
	}

	var items []json.RawMessage
	_, err = jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, offset int, errCb error) {
		// jsonparser hands out slices into the page buffer
		item := make(json.RawMessage, len(value))
		copy(item, value)
		items = append(items, item)
	}, p.collectionKey, p.itemKey)
	if err != nil && err != jsonparser.KeyPathNotFoundError {
		return errors.E(op, errors.KindTableauAPI, err)
	}
	// an empty collection omits the item array entirely

	p.seen += len(items)
	p.buf = items
	if len(items) < p.pageSize || len(items) == 0 {
		p.done = true
	}
	if p.total >= 0 && p.seen >= p.total {
		p.done = true
	}
	return nil
}
