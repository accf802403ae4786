package metadataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/redact"

	"github.com/tapstack/tap-tableau/internal/errors"
)

type loginRequest struct {
	Credentials loginCredentials `json:"credentials"`
}

type loginCredentials struct {
	PersonalAccessTokenName   string    `json:"personalAccessTokenName"`
	PersonalAccessTokenSecret string    `json:"personalAccessTokenSecret"`
	Site                      loginSite `json:"site"`
}

type loginSite struct {
	ContentURL string `json:"contentUrl"`
}

// login obtains the bearer token for the metadata API. It runs lazily on
// the first authenticated request and caches the token for the rest of
// the run.
func (c *Client) login(ctx context.Context) (string, error) {
	var op errors.Op = "metadataapi.Client.login"
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	body := loginRequest{
		Credentials: loginCredentials{
			PersonalAccessTokenName:   c.creds.TokenName,
			PersonalAccessTokenSecret: c.creds.TokenSecret,
			Site:                      loginSite{ContentURL: c.creds.SiteContentURL},
		},
	}
	path := fmt.Sprintf("/api/%s/auth/signin", c.apiVersion)
	req, err := c.http.NewRequest(http.MethodPost, path, body)
	if err != nil {
		return "", errors.E(op, err)
	}
	responseBody := new(bytes.Buffer)
	resp, err := c.http.LockAndDo(ctx, req, responseBody)
	if err != nil {
		return "", errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.E(op, errors.KindAuth,
			fmt.Errorf("failed login, response was '%s'", responseBody.String()))
	}
	var signin struct {
		Credentials struct {
			Token string `json:"token"`
		} `json:"credentials"`
	}
	if err := json.NewDecoder(responseBody).Decode(&signin); err != nil {
		return "", errors.E(op, errors.KindAuth, err)
	}
	if signin.Credentials.Token == "" {
		return "", errors.E(op, errors.KindAuth, "login response carries no token")
	}
	c.token = signin.Credentials.Token
	c.logger.Debugf("metadata API login successful, token %s", redact.Sprintf("%s", c.token).Redact())
	return c.token, nil
}
