// Package tableau defines the capability interfaces the extraction core
// programs against, together with the wire types both API clients decode
// into. The REST implementation lives in restapi, the metadata GraphQL
// implementation in metadataapi; streams only ever see these interfaces.
package tableau

import (
	"context"
	"encoding/json"
)

// ItemPager is a finite, pull-based sequence of raw server objects from
// one paginated collection. A fresh pager always starts at page one; a
// pager is not restartable once drained.
type ItemPager interface {
	// Next returns the next raw item. ok is false when the collection is
	// exhausted.
	Next(ctx context.Context) (item json.RawMessage, ok bool, err error)
}

// SessionProvider establishes the signed-in REST session. Authenticate is
// idempotent: the first call performs the sign-in exchange, later calls
// return the cached session.
type SessionProvider interface {
	Authenticate(ctx context.Context) (*Session, error)
}

type DatasourceOps interface {
	ListDatasources() ItemPager
	DatasourceConnections(ctx context.Context, id string) ([]Connection, error)
	DatasourcePermissions(ctx context.Context, id string) ([]GranteeCapability, error)
}

type GroupOps interface {
	ListGroups() ItemPager
	GroupUsers(ctx context.Context, id string) ([]User, error)
}

// DefaultPermissionKind selects one of the three per-project default
// permission sets.
type DefaultPermissionKind string

const (
	DefaultPermissionDatasources DefaultPermissionKind = "datasources"
	DefaultPermissionFlows       DefaultPermissionKind = "flows"
	DefaultPermissionWorkbooks   DefaultPermissionKind = "workbooks"
)

type ProjectOps interface {
	ListProjects() ItemPager
	ProjectPermissions(ctx context.Context, id string) ([]GranteeCapability, error)
	ProjectDefaultPermissions(ctx context.Context, id string, kind DefaultPermissionKind) ([]GranteeCapability, error)
}

type ScheduleOps interface {
	ListSchedules() ItemPager
}

type TaskOps interface {
	ListTasks() ItemPager
}

type WorkbookOps interface {
	ListWorkbooks() ItemPager
	WorkbookConnections(ctx context.Context, id string) ([]Connection, error)
	WorkbookPermissions(ctx context.Context, id string) ([]GranteeCapability, error)
	WorkbookViews(ctx context.Context, id string) ([]View, error)
}

// MetadataOps runs one of the fixed metadata API queries and returns the
// node maps under data.<rootField> (unwrapping connection-style nodes).
type MetadataOps interface {
	RunQuery(ctx context.Context, query string) ([]map[string]interface{}, error)
}

// Client aggregates every capability of one Tableau server, the way the
// dispatcher consumes them.
type Client struct {
	Session     SessionProvider
	Datasources DatasourceOps
	Groups      GroupOps
	Projects    ProjectOps
	Schedules   ScheduleOps
	Tasks       TaskOps
	Workbooks   WorkbookOps
	Metadata    MetadataOps
}
