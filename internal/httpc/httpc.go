// Package httpc is a thin JSON-over-HTTP client used by both the REST and
// the metadata API clients. It owns base URL resolution, default headers
// and response decoding; it deliberately knows nothing about Tableau.
package httpc

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"context"

	"github.com/avast/retry-go"
	"github.com/tapstack/tap-tableau/internal/errors"
)

// DefaultRetryAttempts is how many times a request is attempted when
// the caller does not configure a retry count.
const DefaultRetryAttempts uint = 3

type Client struct {
	client *http.Client

	Mutex     sync.Mutex
	BaseURL   *url.URL
	UserAgent string
	headers   map[string]string

	// retryAttempts > 1 enables transport-level retries for network
	// failures. API-level errors (any HTTP response) are never retried.
	retryAttempts uint
}

func New(httpClient *http.Client, baseUrl string, headers map[string]string) (*Client, error) {
	var op errors.Op = "httpc.New"
	u, err := url.ParseRequestURI(baseUrl)
	if err != nil {
		return nil, errors.E(op, errors.KindBadInput, err)
	}
	if httpClient == nil {
		httpClient = new(http.Client)
	}
	client := &Client{
		client:        httpClient,
		BaseURL:       u,
		UserAgent:     "tap-tableau",
		headers:       headers,
		retryAttempts: 1,
	}
	return client, nil
}

func (c *Client) SetHeaders(headers map[string]string) {
	c.headers = headers
}

// SetRetryAttempts configures how many times a request is attempted when
// the transport reports a network error.
func (c *Client) SetRetryAttempts(attempts uint) {
	if attempts == 0 {
		attempts = 1
	}
	c.retryAttempts = attempts
}

func (c *Client) NewRequest(method, urlStr string, body interface{}) (*http.Request, error) {
	var op errors.Op = "httpc.Client.NewRequest"
	u, err := c.BaseURL.Parse(urlStr)
	if err != nil {
		return nil, errors.E(op, err)
	}

	var buf io.ReadWriter
	if body != nil {
		buf = &bytes.Buffer{}
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		err := enc.Encode(body)
		if err != nil {
			return nil, errors.E(op, err)
		}
	}

	req, err := http.NewRequest(method, u.String(), buf)
	if err != nil {
		return nil, errors.E(op, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

type Response struct {
	*http.Response
}

func (c *Client) BareDo(ctx context.Context, req *http.Request) (*Response, error) {
	var op errors.Op = "httpc.Client.BareDo"
	if ctx == nil {
		return nil, errors.E(op, "context must be non-nil")
	}
	req = req.WithContext(ctx)

	var resp *http.Response
	var attempts uint
	err := retry.Do(
		func() error {
			// a failed attempt consumes the body, rewind it before retrying
			if attempts > 0 && req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return retry.Unrecoverable(bodyErr)
				}
				req.Body = body
			}
			attempts++
			var doErr error
			resp, doErr = c.client.Do(req)
			return doErr
		},
		retry.Attempts(c.retryAttempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// only requests whose body can be rewound are replayable
			return req.Body == nil || req.GetBody != nil
		}),
	)
	if err != nil {
		// If we got an error, and the context has been canceled,
		// the context's error is probably more useful.
		select {
		case <-ctx.Done():
			return nil, errors.E(op, errors.KindNetwork, ctx.Err())
		default:
		}
		return nil, errors.E(op, errors.KindNetwork, err)
	}

	return &Response{resp}, nil
}

// LockAndDo serializes the request against other callers sharing this
// client. The sign-in exchanges route through it so a token request
// never overlaps another request on the same client.
func (c *Client) LockAndDo(ctx context.Context, req *http.Request, v interface{}) (*Response, error) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	return c.Do(ctx, req, v)
}

func hasJSONContentType(headers http.Header) bool {
	const jsonHeaderName = "application/json"
	return strings.Contains(headers.Get("Content-Type"), jsonHeaderName) ||
		strings.Contains(headers.Get("content-type"), jsonHeaderName)
}

// Do executes the request and decodes the response body into v. If v is
// an io.Writer the raw body is copied into it instead (indented when the
// response is JSON); if v is nil the body is discarded.
func (c *Client) Do(ctx context.Context, req *http.Request, v interface{}) (*Response, error) {
	var op errors.Op = "httpc.Client.Do"
	resp, err := c.BareDo(ctx, req)
	if err != nil {
		return resp, errors.E(op, err)
	}
	defer resp.Body.Close()
	switch v := v.(type) {
	case nil:
	case io.Writer:
		if hasJSONContentType(resp.Header) {
			var respBodyBytes []byte
			respBodyBytes, err = ioutil.ReadAll(resp.Body)
			if err != nil {
				return resp, errors.E(op, err)
			}
			var buf bytes.Buffer
			err = json.Indent(&buf, respBodyBytes, "", "  ")
			if err != nil {
				return resp, errors.E(op, err)
			}
			_, err = io.Copy(v, &buf)
		} else {
			_, err = io.Copy(v, resp.Body)
		}
	default:
		decErr := json.NewDecoder(resp.Body).Decode(v)
		if decErr == io.EOF {
			decErr = nil // ignore EOF errors caused by empty response body
		}
		if decErr != nil {
			err = decErr
		}
	}
	return resp, err
}

func GenerateTLSConfig(caPath string, insecureSkipTLSVerify bool) (*tls.Config, error) {
	var op errors.Op = "httpc.GenerateTLSConfig"
	tlsConfig := &tls.Config{InsecureSkipVerify: insecureSkipTLSVerify}
	if caPath != "" {
		// Get the SystemCertPool, continue with an empty pool on error
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		certPath, _ := filepath.Abs(caPath)
		cert, err := ioutil.ReadFile(certPath)
		if err != nil {
			return nil, errors.E(op, fmt.Errorf("error reading CA %s: %w", caPath, err))
		}
		if ok := rootCAs.AppendCertsFromPEM(cert); !ok {
			return nil, errors.E(op, fmt.Errorf("unable to append given CA cert"))
		}
		tlsConfig.RootCAs = rootCAs
	}
	return tlsConfig, nil
}

func NewHttpClientWithTLSConfig(tlsConfig *tls.Config) (*http.Client, error) {
	tr := &http.Transport{TLSClientConfig: tlsConfig}
	tr.Proxy = http.ProxyFromEnvironment
	return &http.Client{Transport: tr}, nil
}
