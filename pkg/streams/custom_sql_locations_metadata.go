package streams

import (
	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

const customSQLLocationsMetadataQuery = `
    query listCustomSQLTables {
        customSQLTablesConnection {
            nodes {
                name
                downstreamWorkbooks {
                    id
                    name
                }
                database {
                    name
                    connectionType
                }
                tables {
                    name
                }
                query
            }
        }
    }
`

var customSQLLocationsMetadataSchema = schema.MustNew(
	schema.Prop("name", schema.String()),
	schema.Prop("downstreamWorkbooks", schema.Array(schema.Object(
		schema.Prop("id", schema.String()),
		schema.Prop("name", schema.String()),
	))),
	schema.Prop("database", schema.Object(
		schema.Prop("name", schema.String()),
		schema.Prop("connectionType", schema.String()),
	)),
	schema.Prop("tables", schema.Array(schema.String())),
	schema.Prop("query", schema.String()),
)

var customSQLLocationsMetadataStream = Stream{
	Name:        "custom_sql_locations_metadata",
	Source:      SourceMetadata,
	PrimaryKeys: []string{"name"},
	Schema:      customSQLLocationsMetadataSchema,
	extract: func(c *tableau.Client, logger *logrus.Logger) *Iterator {
		return metadataIterator(c, customSQLLocationsMetadataQuery, normalizeCustomSQLLocationMetadata)
	},
}

type customSQLLocationMetadataNode struct {
	Name                string `json:"name"`
	DownstreamWorkbooks []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"downstreamWorkbooks"`
	Database *struct {
		Name           string `json:"name"`
		ConnectionType string `json:"connectionType"`
	} `json:"database"`
	Tables []struct {
		Name string `json:"name"`
	} `json:"tables"`
	Query string `json:"query"`
}

// normalizeCustomSQLLocationMetadata rewrites the tables array from
// [{name}] objects into plain name strings.
func normalizeCustomSQLLocationMetadata(node map[string]interface{}) (schema.Row, error) {
	var loc customSQLLocationMetadataNode
	if err := decodeNode(node, &loc); err != nil {
		return nil, err
	}
	workbooks := make([]interface{}, 0, len(loc.DownstreamWorkbooks))
	for _, wb := range loc.DownstreamWorkbooks {
		workbooks = append(workbooks, map[string]interface{}{
			"id":   wb.ID,
			"name": wb.Name,
		})
	}
	var database interface{}
	if loc.Database != nil {
		database = map[string]interface{}{
			"name":           nullableString(loc.Database.Name),
			"connectionType": nullableString(loc.Database.ConnectionType),
		}
	}
	tables := make([]interface{}, 0, len(loc.Tables))
	for _, table := range loc.Tables {
		tables = append(tables, table.Name)
	}
	return schema.Row{
		"name":                loc.Name,
		"downstreamWorkbooks": workbooks,
		"database":            database,
		"tables":              tables,
		"query":               nullableString(loc.Query),
	}, nil
}
