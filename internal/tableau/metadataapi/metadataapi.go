// Package metadataapi implements the Tableau metadata API cycle: a lazy
// bearer-token sign-in, a POST of one of the fixed query texts and the
// extraction of the node array from the response body.
package metadataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/httpc"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

const graphqlPath = "/api/metadata/graphql"

type Client struct {
	http   *httpc.Client
	logger *logrus.Logger

	creds      tableau.Credentials
	apiVersion string

	// bearer token, obtained lazily on the first query
	mutex sync.Mutex
	token string
}

var _ tableau.MetadataOps = (*Client)(nil)

func New(client *httpc.Client, creds tableau.Credentials, apiVersion string, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		http:       client,
		logger:     logger,
		creds:      creds,
		apiVersion: apiVersion,
	}
}

// RunQuery posts the query text with the bearer token and returns the
// node maps under data.<rootField>, unwrapping the connection-style
// nodes array when the query selects one.
func (c *Client) RunQuery(ctx context.Context, query string) ([]map[string]interface{}, error) {
	var op errors.Op = "metadataapi.Client.RunQuery"
	token, err := c.login(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	rootField, hasNodes, err := rootSelection(query)
	if err != nil {
		return nil, errors.E(op, err)
	}

	req, err := c.http.NewRequest(http.MethodPost, graphqlPath, map[string]string{"query": query})
	if err != nil {
		return nil, errors.E(op, err)
	}
	req.Header.Set("X-tableau-auth", token)

	responseBody := new(bytes.Buffer)
	resp, err := c.http.Do(ctx, req, responseBody)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindNetwork,
			fmt.Errorf("POST %s: %d: %s", graphqlPath, resp.StatusCode, responseBody.String()))
	}
	body := responseBody.Bytes()

	keys := []string{"data", rootField}
	if hasNodes {
		keys = append(keys, "nodes")
	}
	arrayValue, dataType, _, err := jsonparser.Get(body, keys...)
	if err != nil || dataType != jsonparser.Array {
		return nil, errors.E(op, errors.KindTableauAPI,
			fmt.Errorf("response has no data.%s array: %s", rootField, responseBody.String()))
	}

	var nodes []map[string]interface{}
	var decodeErr error
	_, err = jsonparser.ArrayEach(arrayValue, func(value []byte, vt jsonparser.ValueType, offset int, cbErr error) {
		if decodeErr != nil {
			return
		}
		node := map[string]interface{}{}
		if err := json.Unmarshal(value, &node); err != nil {
			decodeErr = err
			return
		}
		nodes = append(nodes, node)
	})
	if err != nil {
		return nil, errors.E(op, errors.KindTableauAPI, err)
	}
	if decodeErr != nil {
		return nil, errors.E(op, errors.KindTableauAPI, decodeErr)
	}
	return nodes, nil
}

// rootSelection parses the static query text and returns the name (or
// alias) of its single top-level field, plus whether that field selects
// a connection-style nodes array.
func rootSelection(query string) (string, bool, error) {
	var op errors.Op = "metadataapi.rootSelection"
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return "", false, errors.E(op, errors.KindInternal, fmt.Errorf("parsing query: %w", err))
	}
	if len(doc.Operations) == 0 || len(doc.Operations[0].SelectionSet) == 0 {
		return "", false, errors.E(op, errors.KindInternal, "query has no top-level selection")
	}
	field, ok := doc.Operations[0].SelectionSet[0].(*ast.Field)
	if !ok {
		return "", false, errors.E(op, errors.KindInternal, "top-level selection is not a field")
	}
	name := field.Name
	if field.Alias != "" {
		name = field.Alias
	}
	for _, sel := range field.SelectionSet {
		if sub, ok := sel.(*ast.Field); ok && sub.Name == "nodes" {
			return name, true, nil
		}
	}
	return name, false, nil
}
