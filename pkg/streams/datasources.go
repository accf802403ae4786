package streams

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

var datasourcesSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("ask_data_enablement", schema.Boolean()),
	schema.Prop("certification_note", schema.String()),
	schema.Prop("certified", schema.Boolean()),
	schema.Prop("connections", schema.Array(connectionSchema())),
	schema.Prop("content_url", schema.String()),
	schema.Prop("created_at", schema.Timestamp()),
	schema.Prop("datasource_type", schema.String()),
	schema.Prop("description", schema.String()),
	schema.Prop("encrypt_extracts", schema.Boolean()),
	schema.Prop("has_extracts", schema.Boolean()),
	schema.Prop("name", schema.String()),
	schema.Prop("owner_id", schema.String()),
	schema.Prop("permissions", schema.Array(permissionSchema())),
	schema.Prop("project_id", schema.String()),
	schema.Prop("project_name", schema.String()),
	schema.Prop("tags", schema.Array(schema.String())),
	schema.Prop("updated_at", schema.Timestamp()),
	schema.Prop("use_remote_query_agent", schema.Boolean()),
)

var datasourcesStream = Stream{
	Name:        "datasources",
	Source:      SourceRest,
	PrimaryKeys: []string{"id"},
	Schema:      datasourcesSchema,
	extract:     extractDatasources,
}

func extractDatasources(c *tableau.Client, logger *logrus.Logger) *Iterator {
	var op errors.Op = "streams.extractDatasources"
	pager := c.Datasources.ListDatasources()
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		raw, ok, err := pager.Next(ctx)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		if !ok {
			return nil, false, nil
		}
		var ds tableau.Datasource
		if err := json.Unmarshal(raw, &ds); err != nil {
			return nil, false, errors.E(op, errors.KindTableauAPI, err)
		}
		connections, err := c.Datasources.DatasourceConnections(ctx, ds.ID)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		permissions, err := c.Datasources.DatasourcePermissions(ctx, ds.ID)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		return normalizeDatasource(ds, connections, permissions), true, nil
	})
}

func normalizeDatasource(ds tableau.Datasource, connections []tableau.Connection, permissions []tableau.GranteeCapability) schema.Row {
	var askDataEnablement interface{}
	if ds.AskData != nil {
		askDataEnablement = parseFlag(ds.AskData.Enablement)
	}
	var ownerID interface{}
	if ds.Owner != nil {
		ownerID = ds.Owner.ID
	}
	var projectID, projectName interface{}
	if ds.Project != nil {
		projectID = ds.Project.ID
		projectName = nullableString(ds.Project.Name)
	}
	return schema.Row{
		"id":                     ds.ID,
		"ask_data_enablement":    askDataEnablement,
		"certification_note":     nullableString(ds.CertificationNote),
		"certified":              ds.Certified,
		"connections":            connectionDetails(connections),
		"content_url":            nullableString(ds.ContentURL),
		"created_at":             formatDatetime(ds.CreatedAt),
		"datasource_type":        nullableString(ds.Type),
		"description":            nullableString(ds.Description),
		"encrypt_extracts":       parseFlag(ds.EncryptExtracts),
		"has_extracts":           ds.HasExtracts,
		"name":                   ds.Name,
		"owner_id":               ownerID,
		"permissions":            permissionDetails(permissions),
		"project_id":             projectID,
		"project_name":           projectName,
		"tags":                   tagLabels(ds.Tags),
		"updated_at":             formatDatetime(ds.UpdatedAt),
		"use_remote_query_agent": ds.UseRemoteQueryAgent,
	}
}
