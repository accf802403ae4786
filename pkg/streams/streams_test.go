package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

type fakePager struct {
	items []json.RawMessage
	i     int
	err   error
}

func (p *fakePager) Next(ctx context.Context) (json.RawMessage, bool, error) {
	if p.err != nil {
		return nil, false, p.err
	}
	if p.i >= len(p.items) {
		return nil, false, nil
	}
	item := p.items[p.i]
	p.i++
	return item, true, nil
}

func rawItems(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		out = append(out, json.RawMessage(item))
	}
	return out
}

// fakeServer implements every capability interface from in-memory maps,
// with per-id error injection for the enrichment calls.
type fakeServer struct {
	session     *tableau.Session
	signins     int
	datasources []json.RawMessage
	groups      []json.RawMessage
	projects    []json.RawMessage
	schedules   []json.RawMessage
	tasks       []json.RawMessage
	workbooks   []json.RawMessage

	connections    map[string][]tableau.Connection
	permissions    map[string][]tableau.GranteeCapability
	permissionsErr map[string]error
	defaultPerms   map[string][]tableau.GranteeCapability
	users          map[string][]tableau.User
	views          map[string][]tableau.View

	metadataNodes map[string][]map[string]interface{}
	metadataErr   error
}

func (f *fakeServer) Authenticate(ctx context.Context) (*tableau.Session, error) {
	if f.session == nil {
		f.signins++
		f.session = &tableau.Session{Token: "t", SiteID: "s"}
	}
	return f.session, nil
}

func (f *fakeServer) ListDatasources() tableau.ItemPager { return &fakePager{items: f.datasources} }
func (f *fakeServer) ListGroups() tableau.ItemPager      { return &fakePager{items: f.groups} }
func (f *fakeServer) ListProjects() tableau.ItemPager    { return &fakePager{items: f.projects} }
func (f *fakeServer) ListSchedules() tableau.ItemPager   { return &fakePager{items: f.schedules} }
func (f *fakeServer) ListTasks() tableau.ItemPager       { return &fakePager{items: f.tasks} }
func (f *fakeServer) ListWorkbooks() tableau.ItemPager   { return &fakePager{items: f.workbooks} }

func (f *fakeServer) DatasourceConnections(ctx context.Context, id string) ([]tableau.Connection, error) {
	return f.connections[id], nil
}

func (f *fakeServer) DatasourcePermissions(ctx context.Context, id string) ([]tableau.GranteeCapability, error) {
	return f.permissions[id], f.permissionsErr[id]
}

func (f *fakeServer) GroupUsers(ctx context.Context, id string) ([]tableau.User, error) {
	return f.users[id], nil
}

func (f *fakeServer) ProjectPermissions(ctx context.Context, id string) ([]tableau.GranteeCapability, error) {
	return f.permissions[id], f.permissionsErr[id]
}

func (f *fakeServer) ProjectDefaultPermissions(ctx context.Context, id string, kind tableau.DefaultPermissionKind) ([]tableau.GranteeCapability, error) {
	return f.defaultPerms[id+"/"+string(kind)], nil
}

func (f *fakeServer) WorkbookConnections(ctx context.Context, id string) ([]tableau.Connection, error) {
	return f.connections[id], nil
}

func (f *fakeServer) WorkbookPermissions(ctx context.Context, id string) ([]tableau.GranteeCapability, error) {
	return f.permissions[id], f.permissionsErr[id]
}

func (f *fakeServer) WorkbookViews(ctx context.Context, id string) ([]tableau.View, error) {
	return f.views[id], nil
}

func (f *fakeServer) RunQuery(ctx context.Context, query string) ([]map[string]interface{}, error) {
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	// route canned responses by the root field named in the query text
	for _, field := range []string{"publishedDatasources", "customSQLTablesConnection", "tableauUsers", "workbooks"} {
		if strings.Contains(query, field+" {") {
			return f.metadataNodes[field], nil
		}
	}
	return nil, fmt.Errorf("unrecognized query: %s", query)
}

func (f *fakeServer) client() *tableau.Client {
	return &tableau.Client{
		Session:     f,
		Datasources: f,
		Groups:      f,
		Projects:    f,
		Schedules:   f,
		Tasks:       f,
		Workbooks:   f,
		Metadata:    f,
	}
}

func testPermissions() []tableau.GranteeCapability {
	return []tableau.GranteeCapability{
		{
			Group: &tableau.IDRef{ID: "g-1"},
			Capabilities: tableau.CapabilityList{Capability: []tableau.Capability{
				{Name: "Read", Mode: "Allow"},
				{Name: "Connect", Mode: "Allow"},
			}},
		},
	}
}

func fullyPopulatedServer() *fakeServer {
	return &fakeServer{
		datasources: rawItems(`{
			"id": "ds-1", "name": "Sales", "description": "sales numbers",
			"contentUrl": "sales", "type": "postgres",
			"createdAt": "2021-06-01T10:00:00Z", "updatedAt": "2021-06-02T10:00:00Z",
			"isCertified": true, "certificationNote": "trusted",
			"encryptExtracts": "true", "hasExtracts": true, "useRemoteQueryAgent": false,
			"askData": {"enablement": "false"},
			"owner": {"id": "u-1"}, "project": {"id": "p-1", "name": "Default"},
			"tags": {"tag": [{"label": "finance"}, {"label": "daily"}]}
		}`),
		groups: rawItems(`{
			"id": "g-1", "name": "Analysts", "domain": {"name": "local"},
			"import": {"siteRole": "Explorer", "grantLicenseMode": "onLogin"}
		}`),
		projects: rawItems(`{
			"id": "p-1", "name": "Default", "description": "default project",
			"contentPermissions": "ManagedByOwner", "parentProjectId": "p-0",
			"owner": {"id": "u-1"}
		}`),
		schedules: rawItems(`{
			"id": "sch-1", "name": "Nightly", "state": "Active", "priority": 50,
			"type": "Extract", "frequency": "Daily", "executionOrder": "Parallel",
			"createdAt": "2021-01-01T00:00:00Z", "updatedAt": "2021-01-02T00:00:00Z",
			"nextRunAt": "2021-01-03T02:00:00Z",
			"frequencyDetails": {"start": "02:00:00", "intervals": {"interval": [{"hours": "24"}]}}
		}`),
		tasks: rawItems(`{
			"extractRefresh": {
				"id": "task-1", "priority": 10, "consecutiveFailedCount": 0,
				"type": "RefreshExtractTask", "lastRunAt": "2021-01-02T02:00:00Z",
				"schedule": {"id": "sch-1"}, "datasource": {"id": "ds-1"}
			}
		}`),
		workbooks: rawItems(`{
			"id": "wb-1", "name": "Dashboard", "description": "main dashboard",
			"contentUrl": "dashboard", "webpageUrl": "https://tableau.example.com/dashboard",
			"showTabs": "true", "size": "2",
			"createdAt": "2021-03-01T00:00:00Z", "updatedAt": "2021-03-02T00:00:00Z",
			"owner": {"id": "u-1"}, "project": {"id": "p-1", "name": "Default"},
			"tags": {"tag": [{"label": "kpi"}]},
			"dataAccelerationConfig": {"accelerationEnabled": true, "accelerateNow": false, "accelerationStatus": "Accelerated"}
		}`),
		connections: map[string][]tableau.Connection{
			"ds-1": {{ID: "c-1", Type: "postgres", ServerAddress: "db.example.com", ServerPort: "5432", UserName: "etl", Datasource: &tableau.NamedRef{ID: "ds-1", Name: "Sales"}}},
			"wb-1": {{ID: "c-2", Type: "snowflake", ServerAddress: "sf.example.com", ServerPort: "443"}},
		},
		permissions: map[string][]tableau.GranteeCapability{
			"ds-1": testPermissions(),
			"p-1":  testPermissions(),
			"wb-1": testPermissions(),
		},
		permissionsErr: map[string]error{},
		defaultPerms: map[string][]tableau.GranteeCapability{
			"p-1/datasources": testPermissions(),
			"p-1/flows":       nil,
			"p-1/workbooks":   testPermissions(),
		},
		users: map[string][]tableau.User{
			"g-1": {{ID: "u-1", Name: "jdoe", FullName: "J. Doe", Email: "jdoe@example.com", SiteRole: "Explorer", AuthSetting: "ServerDefault"}},
		},
		views: map[string][]tableau.View{
			"wb-1": {{ID: "v-1", Name: "Overview", ContentURL: "dashboard/overview"}},
		},
		metadataNodes: map[string][]map[string]interface{}{
			"workbooks": {{
				"id": "1", "luid": "wb-luid-1", "name": "Dashboard", "description": "d",
				"createdAt":   "2021-03-01T00:00:00Z",
				"site":        map[string]interface{}{"luid": "s1"},
				"owner":       map[string]interface{}{"id": "o1"},
				"projectName": "Default", "projectVizportalUrlId": "42",
				"uri":                 "sites/1/workbooks/1",
				"upstreamDatasources": []interface{}{map[string]interface{}{"id": "d1", "luid": "dl1", "name": "Sales"}},
				"embeddedDatasources": []interface{}{map[string]interface{}{"id": "e1", "name": "Embedded"}},
			}},
			"publishedDatasources": {{
				"id": "pd-1", "luid": "pd-luid-1", "name": "Sales",
				"hasUserReference": true, "hasExtracts": true,
				"extractLastRefreshTime": "2021-06-01T10:00:00Z",
				"site":                   map[string]interface{}{"luid": "s1"},
				"projectName":            "Default", "projectVizportalUrlId": "42",
				"owner":             map[string]interface{}{"luid": "owner-luid"},
				"isCertified":       true,
				"certifier":         map[string]interface{}{"luid": "certifier-luid"},
				"certificationNote": "ok", "certifierDisplayName": "Data Team",
				"description":         "sales",
				"downstreamWorkbooks": []interface{}{map[string]interface{}{"id": "1", "luid": "wb-luid-1", "name": "Dashboard"}},
			}},
			"customSQLTablesConnection": {{
				"name":                "custom query",
				"downstreamWorkbooks": []interface{}{map[string]interface{}{"id": "1", "name": "Dashboard"}},
				"database":            map[string]interface{}{"name": "analytics", "connectionType": "postgres"},
				"tables":              []interface{}{map[string]interface{}{"name": "t1"}, map[string]interface{}{"name": "t2"}},
				"query":               "select * from t1",
			}},
			"tableauUsers": {{"id": "u-1", "name": "jdoe"}},
		},
	}
}

func TestExtract_RowKeySetsMatchSchemas(t *testing.T) {
	srv := fullyPopulatedServer()
	d := NewDispatcher(srv.client(), nil)

	for _, stream := range All() {
		t.Run(stream.Name, func(t *testing.T) {
			it, err := d.Extract(stream.Name)
			require.NoError(t, err)
			rows, err := it.Collect(context.Background())
			require.NoError(t, err)
			require.NotEmpty(t, rows, "fixture should produce at least one row")

			want := stream.Schema.Fields()
			sort.Strings(want)
			for _, row := range rows {
				got := make([]string, 0, len(row))
				for k := range row {
					got = append(got, k)
				}
				sort.Strings(got)
				require.Equal(t, want, got)
			}
		})
	}
}

func TestExtract_Datasources(t *testing.T) {
	srv := fullyPopulatedServer()
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("datasources")
	require.NoError(t, err)
	rows, err := it.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "ds-1", row["id"])
	require.Equal(t, true, row["encrypt_extracts"])
	require.Equal(t, false, row["ask_data_enablement"])
	require.Equal(t, "2021-06-01T10:00:00.000000Z", row["created_at"])
	require.Equal(t, []interface{}{"finance", "daily"}, row["tags"])

	perms := row["permissions"].([]interface{})
	require.Len(t, perms, 1)
	perm := perms[0].(map[string]interface{})
	require.Equal(t, "g-1", perm["grantee_id"])
	require.Equal(t, "group", perm["grantee_tag_name"])
	require.Equal(t, map[string]interface{}{
		"Connect": "Allow",
		"Read":    "Allow",
		"Write":   nil,
	}, perm["capabilities"])

	conns := row["connections"].([]interface{})
	require.Len(t, conns, 1)
	require.Equal(t, 5432, conns[0].(map[string]interface{})["server_port"])
}

func TestExtract_WorkbookPermissionDenialYieldsEmptyList(t *testing.T) {
	srv := fullyPopulatedServer()
	srv.permissionsErr["wb-1"] = errors.E("restapi.Client.WorkbookPermissions", errors.KindAuth, "403: Forbidden")
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("workbooks")
	require.NoError(t, err)
	rows, err := it.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, []interface{}{}, rows[0]["permissions"])
}

func TestExtract_WorkbookOtherEnrichmentErrorIsFatal(t *testing.T) {
	srv := fullyPopulatedServer()
	srv.permissionsErr["wb-1"] = errors.E("restapi.Client.WorkbookPermissions", errors.KindTableauAPI, "500: boom")
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("workbooks")
	require.NoError(t, err)
	_, err = it.Collect(context.Background())
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindTableauAPI, err))
}

func TestExtract_DatasourcePermissionDenialIsFatal(t *testing.T) {
	srv := fullyPopulatedServer()
	srv.permissionsErr["ds-1"] = errors.E("restapi.Client.DatasourcePermissions", errors.KindAuth, "403: Forbidden")
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("datasources")
	require.NoError(t, err)
	_, err = it.Collect(context.Background())
	require.Error(t, err)
}

func TestExtract_WorkbooksMetadataFlattensReferences(t *testing.T) {
	srv := fullyPopulatedServer()
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("workbooks_metadata")
	require.NoError(t, err)
	rows, err := it.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "s1", rows[0]["siteLuid"])
	require.Equal(t, "o1", rows[0]["ownerId"])
}

func TestExtract_WorkbooksMetadataMissingSiteIsFatal(t *testing.T) {
	srv := fullyPopulatedServer()
	delete(srv.metadataNodes["workbooks"][0], "site")
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("workbooks_metadata")
	require.NoError(t, err)
	_, err = it.Collect(context.Background())
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindTableauAPI, err))
}

func TestExtract_PublishedDatasourcesMetadata(t *testing.T) {
	srv := fullyPopulatedServer()
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("published_datasources_metadata")
	require.NoError(t, err)
	rows, err := it.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "owner-luid", row["ownerLuid"])
	require.Equal(t, "certifier-luid", row["certifierLuid"])
	require.Equal(t, "s1", row["siteLuid"])
}

func TestExtract_PublishedDatasourcesMetadata_UncertifiedHasNullCertifier(t *testing.T) {
	srv := fullyPopulatedServer()
	node := srv.metadataNodes["publishedDatasources"][0]
	node["isCertified"] = false
	delete(node, "certifier")
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("published_datasources_metadata")
	require.NoError(t, err)
	rows, err := it.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0]["certifierLuid"])
}

func TestExtract_CustomSQLTablesRewritten(t *testing.T) {
	srv := fullyPopulatedServer()
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("custom_sql_locations_metadata")
	require.NoError(t, err)
	rows, err := it.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, []interface{}{"t1", "t2"}, rows[0]["tables"])
}

func TestExtract_OrderPreserved(t *testing.T) {
	srv := fullyPopulatedServer()
	srv.metadataNodes["tableauUsers"] = []map[string]interface{}{
		{"id": "u-3", "name": "c"},
		{"id": "u-1", "name": "a"},
		{"id": "u-2", "name": "b"},
	}
	d := NewDispatcher(srv.client(), nil)

	it, err := d.Extract("users_metadata")
	require.NoError(t, err)
	rows, err := it.Collect(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, row := range rows {
		ids = append(ids, row["id"].(string))
	}
	require.Equal(t, []string{"u-3", "u-1", "u-2"}, ids)
}

func TestExtract_UnknownStream(t *testing.T) {
	d := NewDispatcher((&fakeServer{}).client(), nil)
	_, err := d.Extract("nope")
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindBadInput, err))
}
