package streams

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

var workbooksSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("connections", schema.Array(connectionSchema())),
	schema.Prop("content_url", schema.String()),
	schema.Prop("created_at", schema.Timestamp()),
	schema.Prop("data_acceleration_config", schema.Object(
		schema.Prop("acceleration_enabled", schema.Boolean()),
		schema.Prop("accelerate_now", schema.Boolean()),
		schema.Prop("last_updated_at", schema.Timestamp()),
		schema.Prop("acceleration_status", schema.String()),
	)),
	schema.Prop("description", schema.String()),
	schema.Prop("name", schema.String()),
	schema.Prop("owner_id", schema.String()),
	schema.Prop("permissions", schema.Array(permissionSchema())),
	schema.Prop("project_id", schema.String()),
	schema.Prop("project_name", schema.String()),
	schema.Prop("show_tabs", schema.Boolean()),
	schema.Prop("size", schema.Number()),
	schema.Prop("tags", schema.Array(schema.String())),
	schema.Prop("updated_at", schema.Timestamp()),
	schema.Prop("views", schema.Array(schema.Object(
		schema.Prop("id", schema.String()),
		schema.Prop("name", schema.String()),
		schema.Prop("content_url", schema.String()),
		schema.Prop("created_at", schema.Timestamp()),
		schema.Prop("updated_at", schema.Timestamp()),
	))),
	schema.Prop("webpage_url", schema.String()),
)

var workbooksStream = Stream{
	Name:        "workbooks",
	Source:      SourceRest,
	PrimaryKeys: []string{"id"},
	Schema:      workbooksSchema,
	extract:     extractWorkbooks,
}

func extractWorkbooks(c *tableau.Client, logger *logrus.Logger) *Iterator {
	var op errors.Op = "streams.extractWorkbooks"
	pager := c.Workbooks.ListWorkbooks()
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		raw, ok, err := pager.Next(ctx)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		if !ok {
			return nil, false, nil
		}
		var wb tableau.Workbook
		if err := json.Unmarshal(raw, &wb); err != nil {
			return nil, false, errors.E(op, errors.KindTableauAPI, err)
		}
		connections, err := c.Workbooks.WorkbookConnections(ctx, wb.ID)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		// permission queries need ProjectLeader on the containing
		// project; a denied workbook must not abort the whole pass
		permissions, err := c.Workbooks.WorkbookPermissions(ctx, wb.ID)
		if err != nil {
			if !errors.IsKind(errors.KindAuth, err) {
				return nil, false, errors.E(op, err)
			}
			logger.Warnf("workbook %s: not authorized to read permissions, emitting none", wb.ID)
			permissions = nil
		}
		views, err := c.Workbooks.WorkbookViews(ctx, wb.ID)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		return normalizeWorkbook(wb, connections, permissions, views), true, nil
	})
}

func normalizeWorkbook(wb tableau.Workbook, connections []tableau.Connection, permissions []tableau.GranteeCapability, views []tableau.View) schema.Row {
	var ownerID interface{}
	if wb.Owner != nil {
		ownerID = wb.Owner.ID
	}
	var projectID, projectName interface{}
	if wb.Project != nil {
		projectID = wb.Project.ID
		projectName = nullableString(wb.Project.Name)
	}
	var accelerationConfig interface{}
	if cfg := wb.DataAccelerationConfig; cfg != nil {
		accelerationConfig = map[string]interface{}{
			"acceleration_enabled": cfg.AccelerationEnabled,
			"accelerate_now":       cfg.AccelerateNow,
			"last_updated_at":      formatDatetime(cfg.LastUpdatedAt),
			"acceleration_status":  nullableString(cfg.AccelerationStatus),
		}
	}
	viewDetails := make([]interface{}, 0, len(views))
	for _, v := range views {
		viewDetails = append(viewDetails, map[string]interface{}{
			"id":          v.ID,
			"name":        nullableString(v.Name),
			"content_url": nullableString(v.ContentURL),
			"created_at":  formatDatetime(v.CreatedAt),
			"updated_at":  formatDatetime(v.UpdatedAt),
		})
	}
	return schema.Row{
		"id":                       wb.ID,
		"connections":              connectionDetails(connections),
		"content_url":              nullableString(wb.ContentURL),
		"created_at":               formatDatetime(wb.CreatedAt),
		"data_acceleration_config": accelerationConfig,
		"description":              nullableString(wb.Description),
		"name":                     wb.Name,
		"owner_id":                 ownerID,
		"permissions":              permissionDetails(permissions),
		"project_id":               projectID,
		"project_name":             projectName,
		"show_tabs":                parseFlag(wb.ShowTabs),
		"size":                     parseNumber(wb.Size),
		"tags":                     tagLabels(wb.Tags),
		"updated_at":               formatDatetime(wb.UpdatedAt),
		"views":                    viewDetails,
		"webpage_url":              nullableString(wb.WebpageURL),
	}
}
