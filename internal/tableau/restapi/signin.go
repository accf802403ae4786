package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/redact"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

type signinRequest struct {
	Credentials signinCredentials `json:"credentials"`
}

type signinCredentials struct {
	PersonalAccessTokenName   string     `json:"personalAccessTokenName"`
	PersonalAccessTokenSecret string     `json:"personalAccessTokenSecret"`
	Site                      signinSite `json:"site"`
}

type signinSite struct {
	ContentURL string `json:"contentUrl"`
}

type signinResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID string `json:"id"`
		} `json:"site"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	} `json:"credentials"`
}

// Authenticate performs the personal-access-token sign-in exchange.
// Idempotent: once a session exists it is reused for the remainder of
// the run; exactly one sign-in call is issued no matter how often the
// dispatcher asks.
func (c *Client) Authenticate(ctx context.Context) (*tableau.Session, error) {
	var op errors.Op = "restapi.Client.Authenticate"
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session != nil {
		return c.session, nil
	}

	body := signinRequest{
		Credentials: signinCredentials{
			PersonalAccessTokenName:   c.creds.TokenName,
			PersonalAccessTokenSecret: c.creds.TokenSecret,
			Site:                      signinSite{ContentURL: c.creds.SiteContentURL},
		},
	}
	req, err := c.http.NewRequest(http.MethodPost, c.versionPath("auth/signin"), body)
	if err != nil {
		return nil, errors.E(op, err)
	}
	responseBody := new(bytes.Buffer)
	resp, err := c.http.LockAndDo(ctx, req, responseBody)
	if err != nil {
		return nil, errors.E(op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.E(op, errors.KindAuth,
			fmt.Errorf("sign in failed: %d: %s", resp.StatusCode, responseBody.String()))
	}
	var signin signinResponse
	if err := json.NewDecoder(responseBody).Decode(&signin); err != nil {
		return nil, errors.E(op, errors.KindAuth, err)
	}
	if signin.Credentials.Token == "" {
		return nil, errors.E(op, errors.KindAuth, "sign in response carries no token")
	}

	c.session = &tableau.Session{
		Token:  signin.Credentials.Token,
		SiteID: signin.Credentials.Site.ID,
		UserID: signin.Credentials.User.ID,
	}
	c.http.SetHeaders(map[string]string{"X-Tableau-Auth": c.session.Token})
	c.logger.Debugf("signed in to site %s as user %s, token %s",
		c.session.SiteID, c.session.UserID, redact.Sprintf("%s", c.session.Token).Redact())
	return c.session, nil
}
