package streams

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

var tasksSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("consecutive_failed_count", schema.Number()),
	schema.Prop("last_run_at", schema.Timestamp()),
	schema.Prop("priority", schema.Number()),
	schema.Prop("schedule_id", schema.String()),
	schema.Prop("target", schema.Object(
		schema.Prop("id", schema.String()),
		schema.Prop("type", schema.String()),
	)),
	schema.Prop("task_type", schema.String()),
)

var tasksStream = Stream{
	Name:        "tasks",
	Source:      SourceRest,
	PrimaryKeys: []string{"id"},
	Schema:      tasksSchema,
	extract:     extractTasks,
}

func extractTasks(c *tableau.Client, logger *logrus.Logger) *Iterator {
	var op errors.Op = "streams.extractTasks"
	pager := c.Tasks.ListTasks()
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		raw, ok, err := pager.Next(ctx)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		if !ok {
			return nil, false, nil
		}
		var task tableau.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, false, errors.E(op, errors.KindTableauAPI, err)
		}
		return normalizeTask(task), true, nil
	})
}

func normalizeTask(task tableau.Task) schema.Row {
	refresh := task.ExtractRefresh
	var scheduleID interface{}
	if refresh.Schedule != nil {
		scheduleID = refresh.Schedule.ID
	}
	targetID, targetType := refresh.Target()
	return schema.Row{
		"id":                       refresh.ID,
		"consecutive_failed_count": refresh.ConsecutiveFailedCount,
		"last_run_at":              formatDatetime(refresh.LastRunAt),
		"priority":                 refresh.Priority,
		"schedule_id":              scheduleID,
		"target": map[string]interface{}{
			"id":   nullableString(targetID),
			"type": nullableString(targetType),
		},
		"task_type": nullableString(refresh.Type),
	}
}
