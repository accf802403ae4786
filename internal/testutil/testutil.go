// Package testutil provides an httptest-backed stand-in for a Tableau
// server, covering the sign-in exchange, paginated collection endpoints,
// enrichment sub-calls and the metadata GraphQL endpoint.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

// APIVersion is the REST API version the fake server speaks.
const APIVersion = "3.19"

// Token is the session token the fake sign-in endpoint hands out.
const Token = "test-session-token"

// SiteID is the site the fake sign-in endpoint scopes the session to.
const SiteID = "site-1"

type Server struct {
	*httptest.Server
	t   *testing.T
	mux *http.ServeMux

	// SigninCalls counts sign-in exchanges, for idempotence assertions.
	SigninCalls int32
}

func NewServer(t *testing.T) *Server {
	mux := http.NewServeMux()
	s := &Server{t: t, mux: mux}
	mux.HandleFunc("/api/"+APIVersion+"/auth/signin", s.signin)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) signin(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&s.SigninCalls, 1)
	var body struct {
		Credentials struct {
			PersonalAccessTokenName   string `json:"personalAccessTokenName"`
			PersonalAccessTokenSecret string `json:"personalAccessTokenSecret"`
		} `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Credentials.PersonalAccessTokenName == "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error":{"summary":"Bad Request","detail":"missing credentials"}}`)
		return
	}
	if body.Credentials.PersonalAccessTokenSecret == "wrong-secret" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprintf(w, `{"error":{"summary":"Signin Error","detail":"Invalid credentials"}}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"credentials":{"token":%q,"site":{"id":%q},"user":{"id":"user-1"}}}`, Token, SiteID)
}

// SitePath returns the site-scoped path for a collection or sub-call.
func SitePath(suffix string) string {
	return "/api/" + APIVersion + "/sites/" + SiteID + "/" + suffix
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-Tableau-Auth") != Token {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprintf(w, `{"error":{"summary":"Unauthorized","detail":"missing or invalid session token"}}`)
		return false
	}
	return true
}

// Handle registers a raw handler on the fake server's mux.
func (s *Server) Handle(path string, handler http.HandlerFunc) {
	s.mux.HandleFunc(path, handler)
}

// HandleJSON registers a fixed JSON response for path, behind the
// session-token check.
func (s *Server) HandleJSON(path string, status int, body string) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAuth(w, r) {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// HandlePaginated serves items as a paginated collection in the Tableau
// envelope shape, honoring pageSize/pageNumber query parameters. The
// returned counter tracks how many page requests were served.
func (s *Server) HandlePaginated(path, collectionKey, itemKey string, items []string) *int32 {
	requests := new(int32)
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAuth(w, r) {
			return
		}
		atomic.AddInt32(requests, 1)
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		pageNumber, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		if pageSize <= 0 {
			pageSize = 100
		}
		if pageNumber <= 0 {
			pageNumber = 1
		}
		start := (pageNumber - 1) * pageSize
		end := start + pageSize
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		page := items[start:end]

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pagination":{"pageNumber":"%d","pageSize":"%d","totalAvailable":"%d"},`,
			pageNumber, pageSize, len(items))
		fmt.Fprintf(w, `%q:{`, collectionKey)
		if len(page) > 0 {
			fmt.Fprintf(w, `%q:[`, itemKey)
			for i, item := range page {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprint(w, item)
			}
			fmt.Fprint(w, "]")
		}
		fmt.Fprint(w, "}}")
	})
	return requests
}

// HandleMetadataGraphQL serves the metadata endpoint with a canned
// response body, checking the bearer token header the metadata API uses.
func (s *Server) HandleMetadataGraphQL(body string) {
	s.mux.HandleFunc("/api/metadata/graphql", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-tableau-auth") != Token {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errors":[{"message":"user not authenticated"}]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

// HandleServerInfo serves the unauthenticated serverinfo probe.
func (s *Server) HandleServerInfo(restAPIVersion string) {
	s.mux.HandleFunc("/api/2.4/serverinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"serverInfo":{"productVersion":{"value":"2023.1.0","build":"20231.23.0312.1234"},"restApiVersion":%q}}`, restAPIVersion)
	})
}
