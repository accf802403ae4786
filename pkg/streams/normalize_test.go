package streams

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/tableau"
)

func TestFormatDatetime(t *testing.T) {
	require.Nil(t, formatDatetime(nil))

	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2021, 6, 1, 11, 30, 0, 0, loc)
	require.Equal(t, "2021-06-01T10:30:00.000000Z", formatDatetime(&ts))
}

func TestFormatDatetimeString(t *testing.T) {
	got, err := formatDatetimeString("2021-06-01T10:30:00Z")
	require.NoError(t, err)
	require.Equal(t, "2021-06-01T10:30:00.000000Z", got)

	got, err = formatDatetimeString("")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = formatDatetimeString("yesterday")
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindTableauAPI, err))
}

func TestParseFlag(t *testing.T) {
	require.Nil(t, parseFlag(""))
	require.Equal(t, true, parseFlag("true"))
	require.Equal(t, false, parseFlag("false"))
}

func TestParseNumber(t *testing.T) {
	require.Nil(t, parseNumber(""))
	require.Nil(t, parseNumber("n/a"))
	require.Equal(t, 5432, parseNumber("5432"))
}

func TestPermissionDetails_FixedCapabilityKeys(t *testing.T) {
	perms := []tableau.GranteeCapability{
		{
			User: &tableau.IDRef{ID: "u-9"},
			Capabilities: tableau.CapabilityList{Capability: []tableau.Capability{
				{Name: "Write", Mode: "Deny"},
				{Name: "ExportData", Mode: "Allow"},
			}},
		},
	}
	out := permissionDetails(perms)
	require.Len(t, out, 1)

	perm := out[0].(map[string]interface{})
	require.Equal(t, "u-9", perm["grantee_id"])
	require.Equal(t, "user", perm["grantee_tag_name"])
	require.Equal(t, map[string]interface{}{
		"Connect": nil,
		"Read":    nil,
		"Write":   "Deny",
	}, perm["capabilities"])
}

func TestPermissionDetails_Empty(t *testing.T) {
	require.Equal(t, []interface{}{}, permissionDetails(nil))
}
