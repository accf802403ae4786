package streams

import (
	"strconv"
	"time"

	"github.com/tapstack/tap-tableau/pkg/schema"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

// timestampFormat is the canonical row representation of every
// datetime-typed field.
const timestampFormat = "2006-01-02T15:04:05.000000Z"

// formatDatetime is the one shared timestamp formatter: present time →
// canonical UTC string, absent → nil.
func formatDatetime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timestampFormat)
}

// formatDatetimeString re-canonicalizes a source timestamp string, as the
// metadata API serves timestamps as RFC3339 text.
func formatDatetimeString(s string) (interface{}, error) {
	var op errors.Op = "streams.formatDatetimeString"
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errors.E(op, errors.KindTableauAPI, err)
	}
	return formatDatetime(&t), nil
}

// nullableBool maps an absent boolean to null.
func nullableBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return *b
}

// nullableString maps absent text fields to null instead of "".
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// parseFlag coerces the "true"/"false" strings some REST fields arrive
// as into booleans; absent → nil.
func parseFlag(s string) interface{} {
	switch s {
	case "":
		return nil
	case "true":
		return true
	default:
		return false
	}
}

// parseNumber coerces numeric fields that arrive as strings (ports,
// sizes); absent or non-numeric → nil.
func parseNumber(s string) interface{} {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return n
}

// permissionCapabilities is the fixed capability key set of a permission
// sub-record.
var permissionCapabilities = []string{"Connect", "Read", "Write"}

// permissionDetails shapes one permissions enrichment response into the
// fixed sub-record form {capabilities, grantee_id, grantee_tag_name}.
// The capabilities map always carries exactly Connect, Read and Write;
// capabilities the server did not grant stay null.
func permissionDetails(perms []tableau.GranteeCapability) []interface{} {
	out := make([]interface{}, 0, len(perms))
	for _, p := range perms {
		capabilities := map[string]interface{}{}
		for _, name := range permissionCapabilities {
			capabilities[name] = nil
		}
		for _, c := range p.Capabilities.Capability {
			for _, name := range permissionCapabilities {
				if c.Name == name {
					capabilities[name] = c.Mode
				}
			}
		}
		granteeID, granteeTag := p.Grantee()
		out = append(out, map[string]interface{}{
			"capabilities":     capabilities,
			"grantee_id":       granteeID,
			"grantee_tag_name": granteeTag,
		})
	}
	return out
}

// userDetails shapes group membership into the fixed user sub-record.
func userDetails(users []tableau.User) []interface{} {
	out := make([]interface{}, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]interface{}{
			"id":           u.ID,
			"auth_setting": nullableString(u.AuthSetting),
			"email":        nullableString(u.Email),
			"name":         nullableString(u.Name),
			"full_name":    nullableString(u.FullName),
			"role":         nullableString(u.SiteRole),
		})
	}
	return out
}

// connectionDetails shapes a connections enrichment response.
func connectionDetails(conns []tableau.Connection) []interface{} {
	out := make([]interface{}, 0, len(conns))
	for _, c := range conns {
		var dsID, dsName interface{}
		if c.Datasource != nil {
			dsID = c.Datasource.ID
			dsName = nullableString(c.Datasource.Name)
		}
		out = append(out, map[string]interface{}{
			"connection_type": nullableString(c.Type),
			"datasource_id":   dsID,
			"datasource_name": dsName,
			"embed_password":  c.EmbedPassword,
			"id":              c.ID,
			"server_address":  nullableString(c.ServerAddress),
			"server_port":     parseNumber(c.ServerPort),
			"username":        nullableString(c.UserName),
		})
	}
	return out
}

// tagLabels materializes tags as an ordered string array, source order.
func tagLabels(tags tableau.TagList) []interface{} {
	out := make([]interface{}, 0, len(tags.Tag))
	for _, label := range tags.Labels() {
		out = append(out, label)
	}
	return out
}

// connectionSchema is the shared connections[] element declaration.
func connectionSchema() schema.Type {
	return schema.Object(
		schema.Prop("connection_type", schema.String()),
		schema.Prop("datasource_id", schema.String()),
		schema.Prop("datasource_name", schema.String()),
		schema.Prop("embed_password", schema.Boolean()),
		schema.Prop("id", schema.String()),
		schema.Prop("server_address", schema.String()),
		schema.Prop("server_port", schema.Number()),
		schema.Prop("username", schema.String()),
	)
}

// permissionSchema is the shared permissions[] element declaration.
func permissionSchema() schema.Type {
	return schema.Object(
		schema.Prop("capabilities", schema.Object(
			schema.Prop("Connect", schema.String()),
			schema.Prop("Read", schema.String()),
			schema.Prop("Write", schema.String()),
		)),
		schema.Prop("grantee_id", schema.String()),
		schema.Prop("grantee_tag_name", schema.String()),
	)
}
