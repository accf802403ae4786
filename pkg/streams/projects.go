package streams

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

var projectsSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("content_permissions", schema.String()),
	schema.Prop("default_datasource_permissions", schema.Array(permissionSchema())),
	schema.Prop("default_flow_permissions", schema.Array(permissionSchema())),
	schema.Prop("default_workbook_permissions", schema.Array(permissionSchema())),
	schema.Prop("description", schema.String()),
	schema.Prop("name", schema.String()),
	schema.Prop("owner_id", schema.String()),
	schema.Prop("parent_id", schema.String()),
	schema.Prop("permissions", schema.Array(permissionSchema())),
)

var projectsStream = Stream{
	Name:        "projects",
	Source:      SourceRest,
	PrimaryKeys: []string{"id"},
	Schema:      projectsSchema,
	extract:     extractProjects,
}

func extractProjects(c *tableau.Client, logger *logrus.Logger) *Iterator {
	var op errors.Op = "streams.extractProjects"
	pager := c.Projects.ListProjects()
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		raw, ok, err := pager.Next(ctx)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		if !ok {
			return nil, false, nil
		}
		// project ids have been observed arriving as numbers on some
		// endpoints, so decode leniently and coerce to string
		var project tableau.Project
		if err := json.Unmarshal(raw, &project); err != nil {
			var loose struct {
				tableau.Project
				ID json.Number `json:"id"`
			}
			if looseErr := json.Unmarshal(raw, &loose); looseErr != nil {
				return nil, false, errors.E(op, errors.KindTableauAPI, err)
			}
			project = loose.Project
			project.ID = loose.ID.String()
		}
		permissions, err := c.Projects.ProjectPermissions(ctx, project.ID)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		defaults := map[tableau.DefaultPermissionKind][]tableau.GranteeCapability{}
		for _, kind := range []tableau.DefaultPermissionKind{
			tableau.DefaultPermissionDatasources,
			tableau.DefaultPermissionFlows,
			tableau.DefaultPermissionWorkbooks,
		} {
			perms, err := c.Projects.ProjectDefaultPermissions(ctx, project.ID, kind)
			if err != nil {
				return nil, false, errors.E(op, err)
			}
			defaults[kind] = perms
		}
		return normalizeProject(project, permissions, defaults), true, nil
	})
}

func normalizeProject(project tableau.Project, permissions []tableau.GranteeCapability, defaults map[tableau.DefaultPermissionKind][]tableau.GranteeCapability) schema.Row {
	var ownerID interface{}
	if project.Owner != nil {
		ownerID = project.Owner.ID
	}
	return schema.Row{
		"id":                             project.ID,
		"content_permissions":            nullableString(project.ContentPermissions),
		"default_datasource_permissions": permissionDetails(defaults[tableau.DefaultPermissionDatasources]),
		"default_flow_permissions":       permissionDetails(defaults[tableau.DefaultPermissionFlows]),
		"default_workbook_permissions":   permissionDetails(defaults[tableau.DefaultPermissionWorkbooks]),
		"description":                    nullableString(project.Description),
		"name":                           project.Name,
		"owner_id":                       ownerID,
		"parent_id":                      nullableString(project.ParentProjectID),
		"permissions":                    permissionDetails(permissions),
	}
}
