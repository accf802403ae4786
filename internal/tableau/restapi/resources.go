package restapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

func (c *Client) ListDatasources() tableau.ItemPager {
	return c.newPager(func(s *tableau.Session) string {
		return c.sitePath(s, "datasources")
	}, "datasources", "datasource")
}

func (c *Client) ListGroups() tableau.ItemPager {
	return c.newPager(func(s *tableau.Session) string {
		return c.sitePath(s, "groups")
	}, "groups", "group")
}

func (c *Client) ListProjects() tableau.ItemPager {
	return c.newPager(func(s *tableau.Session) string {
		return c.sitePath(s, "projects")
	}, "projects", "project")
}

// Schedules are server wide, not site scoped.
func (c *Client) ListSchedules() tableau.ItemPager {
	return c.newPager(func(*tableau.Session) string {
		return c.versionPath("schedules")
	}, "schedules", "schedule")
}

func (c *Client) ListTasks() tableau.ItemPager {
	return c.newPager(func(s *tableau.Session) string {
		return c.sitePath(s, "tasks/extractRefreshes")
	}, "tasks", "task")
}

func (c *Client) ListWorkbooks() tableau.ItemPager {
	return c.newPager(func(s *tableau.Session) string {
		return c.sitePath(s, "workbooks")
	}, "workbooks", "workbook")
}

type connectionsEnvelope struct {
	Connections struct {
		Connection []tableau.Connection `json:"connection"`
	} `json:"connections"`
}

type permissionsEnvelope struct {
	Permissions struct {
		GranteeCapabilities []tableau.GranteeCapability `json:"granteeCapabilities"`
	} `json:"permissions"`
}

func (c *Client) DatasourceConnections(ctx context.Context, id string) ([]tableau.Connection, error) {
	var op errors.Op = "restapi.Client.DatasourceConnections"
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var env connectionsEnvelope
	if err := c.get(ctx, c.sitePath(session, "datasources/%s/connections", id), &env); err != nil {
		return nil, errors.E(op, err)
	}
	return env.Connections.Connection, nil
}

func (c *Client) DatasourcePermissions(ctx context.Context, id string) ([]tableau.GranteeCapability, error) {
	var op errors.Op = "restapi.Client.DatasourcePermissions"
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var env permissionsEnvelope
	if err := c.get(ctx, c.sitePath(session, "datasources/%s/permissions", id), &env); err != nil {
		return nil, errors.E(op, err)
	}
	return env.Permissions.GranteeCapabilities, nil
}

// GroupUsers pages through the group's membership and returns it in
// server order.
func (c *Client) GroupUsers(ctx context.Context, id string) ([]tableau.User, error) {
	var op errors.Op = "restapi.Client.GroupUsers"
	p := c.newPager(func(s *tableau.Session) string {
		return c.sitePath(s, "groups/%s/users", id)
	}, "users", "user")
	var users []tableau.User
	for {
		raw, ok, err := p.Next(ctx)
		if err != nil {
			return nil, errors.E(op, err)
		}
		if !ok {
			return users, nil
		}
		var user tableau.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, errors.E(op, errors.KindTableauAPI, err)
		}
		users = append(users, user)
	}
}

func (c *Client) ProjectPermissions(ctx context.Context, id string) ([]tableau.GranteeCapability, error) {
	var op errors.Op = "restapi.Client.ProjectPermissions"
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var env permissionsEnvelope
	if err := c.get(ctx, c.sitePath(session, "projects/%s/permissions", id), &env); err != nil {
		return nil, errors.E(op, err)
	}
	return env.Permissions.GranteeCapabilities, nil
}

func (c *Client) ProjectDefaultPermissions(ctx context.Context, id string, kind tableau.DefaultPermissionKind) ([]tableau.GranteeCapability, error) {
	var op errors.Op = "restapi.Client.ProjectDefaultPermissions"
	switch kind {
	case tableau.DefaultPermissionDatasources, tableau.DefaultPermissionFlows, tableau.DefaultPermissionWorkbooks:
	default:
		return nil, errors.E(op, errors.KindBadInput, fmt.Errorf("unknown default permission kind %q", kind))
	}
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var env permissionsEnvelope
	if err := c.get(ctx, c.sitePath(session, "projects/%s/default-permissions/%s", id, kind), &env); err != nil {
		return nil, errors.E(op, err)
	}
	return env.Permissions.GranteeCapabilities, nil
}

func (c *Client) WorkbookConnections(ctx context.Context, id string) ([]tableau.Connection, error) {
	var op errors.Op = "restapi.Client.WorkbookConnections"
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var env connectionsEnvelope
	if err := c.get(ctx, c.sitePath(session, "workbooks/%s/connections", id), &env); err != nil {
		return nil, errors.E(op, err)
	}
	return env.Connections.Connection, nil
}

func (c *Client) WorkbookPermissions(ctx context.Context, id string) ([]tableau.GranteeCapability, error) {
	var op errors.Op = "restapi.Client.WorkbookPermissions"
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var env permissionsEnvelope
	if err := c.get(ctx, c.sitePath(session, "workbooks/%s/permissions", id), &env); err != nil {
		return nil, errors.E(op, err)
	}
	return env.Permissions.GranteeCapabilities, nil
}

func (c *Client) WorkbookViews(ctx context.Context, id string) ([]tableau.View, error) {
	var op errors.Op = "restapi.Client.WorkbookViews"
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, errors.E(op, err)
	}
	var env struct {
		Views struct {
			View []tableau.View `json:"view"`
		} `json:"views"`
	}
	if err := c.get(ctx, c.sitePath(session, "workbooks/%s/views", id), &env); err != nil {
		return nil, errors.E(op, err)
	}
	return env.Views.View, nil
}
