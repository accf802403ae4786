package streams

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

var schedulesSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("created_at", schema.Timestamp()),
	schema.Prop("end_schedule_at", schema.Timestamp()),
	schema.Prop("execution_order", schema.String()),
	schema.Prop("interval_item", schema.Object(
		schema.Prop("frequency", schema.String()),
		schema.Prop("start_time", schema.String()),
		schema.Prop("end_time", schema.String()),
		schema.Prop("interval", schema.Array(schema.String())),
	)),
	schema.Prop("name", schema.String()),
	schema.Prop("next_run_at", schema.Timestamp()),
	schema.Prop("priority", schema.Number()),
	schema.Prop("schedule_type", schema.String()),
	schema.Prop("state", schema.String()),
	schema.Prop("updated_at", schema.Timestamp()),
)

var schedulesStream = Stream{
	Name:        "schedules",
	Source:      SourceRest,
	PrimaryKeys: []string{"id"},
	Schema:      schedulesSchema,
	extract:     extractSchedules,
}

func extractSchedules(c *tableau.Client, logger *logrus.Logger) *Iterator {
	var op errors.Op = "streams.extractSchedules"
	pager := c.Schedules.ListSchedules()
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		raw, ok, err := pager.Next(ctx)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		if !ok {
			return nil, false, nil
		}
		var sched tableau.Schedule
		if err := json.Unmarshal(raw, &sched); err != nil {
			return nil, false, errors.E(op, errors.KindTableauAPI, err)
		}
		return normalizeSchedule(sched), true, nil
	})
}

func normalizeSchedule(sched tableau.Schedule) schema.Row {
	var intervalItem interface{}
	if sched.FrequencyDetails != nil {
		interval := make([]interface{}, 0)
		for _, v := range sched.FrequencyDetails.Intervals.Values() {
			interval = append(interval, v)
		}
		intervalItem = map[string]interface{}{
			"frequency":  nullableString(sched.Frequency),
			"start_time": nullableString(sched.FrequencyDetails.Start),
			"end_time":   nullableString(sched.FrequencyDetails.End),
			"interval":   interval,
		}
	}
	return schema.Row{
		"id":              sched.ID,
		"created_at":      formatDatetime(sched.CreatedAt),
		"end_schedule_at": formatDatetime(sched.EndScheduleAt),
		"execution_order": nullableString(sched.ExecutionOrder),
		"interval_item":   intervalItem,
		"name":            sched.Name,
		"next_run_at":     formatDatetime(sched.NextRunAt),
		"priority":        sched.Priority,
		"schedule_type":   nullableString(sched.Type),
		"state":           nullableString(sched.State),
		"updated_at":      formatDatetime(sched.UpdatedAt),
	}
}
