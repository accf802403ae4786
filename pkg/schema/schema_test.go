package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapstack/tap-tableau/internal/errors"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New(
		Prop("id", String()),
		Prop("certified", Boolean()),
		Prop("size", Number()),
		Prop("created_at", Timestamp()),
		Prop("tags", Array(String())),
		Prop("target", Object(
			Prop("id", String()),
			Prop("type", String()),
		)),
	)
	require.NoError(t, err)
	return s
}

func TestSchema_Validate(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name    string
		row     Row
		wantErr bool
	}{
		{
			"conformant row",
			Row{
				"id":         "ds-1",
				"certified":  true,
				"size":       2,
				"created_at": "2021-06-01T10:00:00.000000Z",
				"tags":       []string{"finance", "certified"},
				"target":     map[string]interface{}{"id": "wb-1", "type": "workbook"},
			},
			false,
		},
		{
			"null values conform",
			Row{
				"id":         "ds-1",
				"certified":  nil,
				"size":       nil,
				"created_at": nil,
				"tags":       nil,
				"target":     nil,
			},
			false,
		},
		{
			"missing key",
			Row{
				"id":        "ds-1",
				"certified": true,
				"size":      2,
				"tags":      nil,
				"target":    nil,
			},
			true,
		},
		{
			"extra key",
			Row{
				"id":         "ds-1",
				"certified":  true,
				"size":       2,
				"created_at": nil,
				"tags":       nil,
				"target":     nil,
				"surprise":   "value",
			},
			true,
		},
		{
			"wrong type",
			Row{
				"id":         "ds-1",
				"certified":  "yes",
				"size":       2,
				"created_at": nil,
				"tags":       nil,
				"target":     nil,
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.row)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.IsKind(errors.KindSchema, err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSchema_Fields(t *testing.T) {
	s := testSchema(t)
	require.Equal(t, []string{"id", "certified", "size", "created_at", "tags", "target"}, s.Fields())
}

func TestNew_DuplicateProperty(t *testing.T) {
	_, err := New(Prop("id", String()), Prop("id", String()))
	require.Error(t, err)
}
