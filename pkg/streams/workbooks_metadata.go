package streams

import (
	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

const workbooksMetadataQuery = `
    query workbooks {
        workbooks {
            id
            luid
            name
            description
            createdAt
            site {
                luid
            }
            projectName
            projectVizportalUrlId
            owner {
                id
            }
            uri
            upstreamDatasources {
                id
                luid
                name
            }
            embeddedDatasources {
                id
                name
            }
        }
    }
`

var workbooksMetadataSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("luid", schema.String()),
	schema.Prop("name", schema.String()),
	schema.Prop("description", schema.String()),
	schema.Prop("createdAt", schema.Timestamp()),
	schema.Prop("siteLuid", schema.String()),
	schema.Prop("projectName", schema.String()),
	schema.Prop("projectVizportalUrlId", schema.String()),
	schema.Prop("ownerId", schema.String()),
	schema.Prop("uri", schema.String()),
	schema.Prop("upstreamDatasources", schema.Array(schema.Object(
		schema.Prop("id", schema.String()),
		schema.Prop("luid", schema.String()),
		schema.Prop("name", schema.String()),
	))),
	schema.Prop("embeddedDatasources", schema.Array(schema.Object(
		schema.Prop("id", schema.String()),
		schema.Prop("name", schema.String()),
	))),
)

var workbooksMetadataStream = Stream{
	Name:        "workbooks_metadata",
	Source:      SourceMetadata,
	PrimaryKeys: []string{"id"},
	Schema:      workbooksMetadataSchema,
	extract: func(c *tableau.Client, logger *logrus.Logger) *Iterator {
		return metadataIterator(c, workbooksMetadataQuery, normalizeWorkbookMetadata)
	},
}

type workbookMetadataNode struct {
	ID                    string   `json:"id"`
	Luid                  string   `json:"luid"`
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	CreatedAt             string   `json:"createdAt"`
	Site                  *luidRef `json:"site"`
	ProjectName           string   `json:"projectName"`
	ProjectVizportalUrlId string   `json:"projectVizportalUrlId"`
	Owner                 *struct {
		ID string `json:"id"`
	} `json:"owner"`
	URI                 string `json:"uri"`
	UpstreamDatasources []struct {
		ID   string `json:"id"`
		Luid string `json:"luid"`
		Name string `json:"name"`
	} `json:"upstreamDatasources"`
	EmbeddedDatasources []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"embeddedDatasources"`
}

func normalizeWorkbookMetadata(node map[string]interface{}) (schema.Row, error) {
	var wb workbookMetadataNode
	if err := decodeNode(node, &wb); err != nil {
		return nil, err
	}
	if err := requireRef(wb.Site != nil, "site", wb.ID); err != nil {
		return nil, err
	}
	if err := requireRef(wb.Owner != nil, "owner", wb.ID); err != nil {
		return nil, err
	}
	createdAt, err := formatDatetimeString(wb.CreatedAt)
	if err != nil {
		return nil, err
	}

	upstream := make([]interface{}, 0, len(wb.UpstreamDatasources))
	for _, ds := range wb.UpstreamDatasources {
		upstream = append(upstream, map[string]interface{}{
			"id":   ds.ID,
			"luid": ds.Luid,
			"name": ds.Name,
		})
	}
	embedded := make([]interface{}, 0, len(wb.EmbeddedDatasources))
	for _, ds := range wb.EmbeddedDatasources {
		embedded = append(embedded, map[string]interface{}{
			"id":   ds.ID,
			"name": ds.Name,
		})
	}
	return schema.Row{
		"id":                    wb.ID,
		"luid":                  wb.Luid,
		"name":                  wb.Name,
		"description":           nullableString(wb.Description),
		"createdAt":             createdAt,
		"siteLuid":              wb.Site.Luid,
		"projectName":           nullableString(wb.ProjectName),
		"projectVizportalUrlId": nullableString(wb.ProjectVizportalUrlId),
		"ownerId":               wb.Owner.ID,
		"uri":                   nullableString(wb.URI),
		"upstreamDatasources":   upstream,
		"embeddedDatasources":   embedded,
	}, nil
}
