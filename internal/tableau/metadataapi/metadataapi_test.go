package metadataapi

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/httpc"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/internal/testutil"
)

const workbooksQuery = `
    query workbooks {
        workbooks {
            id
            name
        }
    }
`

const customSQLQuery = `
    query listCustomSQLTables {
        customSQLTablesConnection {
            nodes {
                name
                query
            }
        }
    }
`

func newTestClient(t *testing.T, srv *testutil.Server) *Client {
	t.Helper()
	hc, err := httpc.New(nil, srv.URL, nil)
	require.NoError(t, err)
	creds := tableau.Credentials{TokenName: "extract-token", TokenSecret: "extract-secret"}
	return New(hc, creds, testutil.APIVersion, nil)
}

func TestRootSelection(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantField string
		wantNodes bool
	}{
		{"plain list", workbooksQuery, "workbooks", false},
		{"connection with nodes", customSQLQuery, "customSQLTablesConnection", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, hasNodes, err := rootSelection(tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.wantField, field)
			require.Equal(t, tt.wantNodes, hasNodes)
		})
	}
}

func TestClient_RunQuery(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.HandleMetadataGraphQL(`{"data":{"workbooks":[{"id":"1","name":"alpha"},{"id":"2","name":"beta"}]}}`)

	c := newTestClient(t, srv)
	nodes, err := c.RunQuery(context.Background(), workbooksQuery)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, "alpha", nodes[0]["name"])
	require.Equal(t, "2", nodes[1]["id"])
}

func TestClient_RunQuery_ConnectionNodes(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.HandleMetadataGraphQL(`{"data":{"customSQLTablesConnection":{"nodes":[{"name":"t1","query":"select 1"}]}}}`)

	c := newTestClient(t, srv)
	nodes, err := c.RunQuery(context.Background(), customSQLQuery)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, "t1", nodes[0]["name"])
}

func TestClient_RunQuery_MissingDataIsFatal(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.HandleMetadataGraphQL(`{"errors":[{"message":"something broke"}]}`)

	c := newTestClient(t, srv)
	_, err := c.RunQuery(context.Background(), workbooksQuery)
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindTableauAPI, err))
}

func TestClient_Login_LazyAndCached(t *testing.T) {
	srv := testutil.NewServer(t)
	srv.HandleMetadataGraphQL(`{"data":{"workbooks":[]}}`)

	c := newTestClient(t, srv)
	require.Equal(t, int32(0), atomic.LoadInt32(&srv.SigninCalls))

	_, err := c.RunQuery(context.Background(), workbooksQuery)
	require.NoError(t, err)
	_, err = c.RunQuery(context.Background(), workbooksQuery)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&srv.SigninCalls))
}

func TestClient_Login_FailureCarriesBody(t *testing.T) {
	srv := testutil.NewServer(t)
	hc, err := httpc.New(nil, srv.URL, nil)
	require.NoError(t, err)
	c := New(hc, tableau.Credentials{TokenName: "n", TokenSecret: "wrong-secret"}, testutil.APIVersion, nil)

	_, err = c.RunQuery(context.Background(), workbooksQuery)
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindAuth, err))
	require.Contains(t, err.Error(), "failed login")
}
