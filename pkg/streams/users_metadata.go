package streams

import (
	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

const usersMetadataQuery = `
    query users {
        tableauUsers {
            id
            name
        }
    }
`

var usersMetadataSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("name", schema.String()),
)

var usersMetadataStream = Stream{
	Name:        "users_metadata",
	Source:      SourceMetadata,
	PrimaryKeys: []string{"id"},
	Schema:      usersMetadataSchema,
	extract: func(c *tableau.Client, logger *logrus.Logger) *Iterator {
		return metadataIterator(c, usersMetadataQuery, normalizeUserMetadata)
	},
}

// normalizeUserMetadata passes user nodes through unchanged.
func normalizeUserMetadata(node map[string]interface{}) (schema.Row, error) {
	var user struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := decodeNode(node, &user); err != nil {
		return nil, err
	}
	return schema.Row{
		"id":   user.ID,
		"name": nullableString(user.Name),
	}, nil
}
