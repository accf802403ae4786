package streams

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

var groupsSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("domain_name", schema.String()),
	schema.Prop("license_mode", schema.String()),
	schema.Prop("minimum_site_role", schema.String()),
	schema.Prop("name", schema.String()),
	schema.Prop("users", schema.Array(schema.Object(
		schema.Prop("id", schema.String()),
		schema.Prop("auth_setting", schema.String()),
		schema.Prop("email", schema.String()),
		schema.Prop("name", schema.String()),
		schema.Prop("full_name", schema.String()),
		schema.Prop("role", schema.String()),
	))),
)

var groupsStream = Stream{
	Name:        "groups",
	Source:      SourceRest,
	PrimaryKeys: []string{"id"},
	Schema:      groupsSchema,
	extract:     extractGroups,
}

func extractGroups(c *tableau.Client, logger *logrus.Logger) *Iterator {
	var op errors.Op = "streams.extractGroups"
	pager := c.Groups.ListGroups()
	return newIterator(func(ctx context.Context) (schema.Row, bool, error) {
		raw, ok, err := pager.Next(ctx)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		if !ok {
			return nil, false, nil
		}
		var group tableau.Group
		if err := json.Unmarshal(raw, &group); err != nil {
			return nil, false, errors.E(op, errors.KindTableauAPI, err)
		}
		users, err := c.Groups.GroupUsers(ctx, group.ID)
		if err != nil {
			return nil, false, errors.E(op, err)
		}
		return normalizeGroup(group, users), true, nil
	})
}

func normalizeGroup(group tableau.Group, users []tableau.User) schema.Row {
	var domainName interface{}
	if group.Domain != nil {
		domainName = nullableString(group.Domain.Name)
	}
	var licenseMode, minimumSiteRole interface{}
	if group.Import != nil {
		licenseMode = nullableString(group.Import.GrantLicenseMode)
		minimumSiteRole = nullableString(group.Import.SiteRole)
	}
	return schema.Row{
		"id":                group.ID,
		"domain_name":       domainName,
		"license_mode":      licenseMode,
		"minimum_site_role": minimumSiteRole,
		"name":              group.Name,
		"users":             userDetails(users),
	}
}
