// Package restapi implements the Tableau administrative REST API
// capabilities: the personal-access-token sign-in exchange, paginated
// collection listing and the per-item enrichment sub-calls.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/httpc"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

// DefaultPageSize matches the server default for collection endpoints.
const DefaultPageSize = 100

type Client struct {
	http   *httpc.Client
	logger *logrus.Logger

	creds      tableau.Credentials
	apiVersion string
	pageSize   int

	// session state for one run; guarded so that the sign-in exchange
	// happens exactly once even under a concurrent dispatcher
	mutex   sync.Mutex
	session *tableau.Session
}

var (
	_ tableau.SessionProvider = (*Client)(nil)
	_ tableau.DatasourceOps   = (*Client)(nil)
	_ tableau.GroupOps        = (*Client)(nil)
	_ tableau.ProjectOps      = (*Client)(nil)
	_ tableau.ScheduleOps     = (*Client)(nil)
	_ tableau.TaskOps         = (*Client)(nil)
	_ tableau.WorkbookOps     = (*Client)(nil)
)

func New(client *httpc.Client, creds tableau.Credentials, apiVersion string, pageSize int, logger *logrus.Logger) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		http:       client,
		logger:     logger,
		creds:      creds,
		apiVersion: apiVersion,
		pageSize:   pageSize,
	}
}

func (c *Client) versionPath(format string, args ...interface{}) string {
	return fmt.Sprintf("/api/%s/", c.apiVersion) + fmt.Sprintf(format, args...)
}

func (c *Client) sitePath(session *tableau.Session, format string, args ...interface{}) string {
	return c.versionPath("sites/%s/", session.SiteID) + fmt.Sprintf(format, args...)
}

// get performs an authenticated GET and decodes the JSON body into v.
// 401/403 surface as KindAuth so callers can apply per-resource
// partial-failure policies; any other non-2xx is a server API error.
func (c *Client) get(ctx context.Context, path string, v interface{}) error {
	var op errors.Op = "restapi.Client.get"
	if _, err := c.Authenticate(ctx); err != nil {
		return errors.E(op, err)
	}
	req, err := c.http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return errors.E(op, err)
	}
	responseBody := new(bytes.Buffer)
	resp, err := c.http.Do(ctx, req, responseBody)
	if err != nil {
		return errors.E(op, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.E(op, errors.KindAuth, fmt.Errorf("GET %s: %d: %s", path, resp.StatusCode, responseBody.String()))
	case resp.StatusCode != http.StatusOK:
		return errors.E(op, errors.KindTableauAPI, fmt.Errorf("GET %s: %d: %s", path, resp.StatusCode, responseBody.String()))
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(responseBody).Decode(v); err != nil {
		return errors.E(op, errors.KindTableauAPI, err)
	}
	return nil
}
