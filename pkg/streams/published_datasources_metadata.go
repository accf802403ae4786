package streams

import (
	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

const publishedDatasourcesMetadataQuery = `
    query published_datasources {
        publishedDatasources {
            id
            luid
            name
            hasUserReference
            hasExtracts
            extractLastRefreshTime
            site {
                luid
            }
            projectName
            projectVizportalUrlId
            owner {
                luid
            }
            isCertified
            certifier {
                luid
            }
            certificationNote
            certifierDisplayName
            description
            downstreamWorkbooks {
                id
                luid
                name
            }
        }
    }
`

var publishedDatasourcesMetadataSchema = schema.MustNew(
	schema.Prop("id", schema.String()),
	schema.Prop("luid", schema.String()),
	schema.Prop("name", schema.String()),
	schema.Prop("hasUserReference", schema.Boolean()),
	schema.Prop("hasExtracts", schema.Boolean()),
	schema.Prop("extractLastRefreshTime", schema.Timestamp()),
	schema.Prop("siteLuid", schema.String()),
	schema.Prop("projectName", schema.String()),
	schema.Prop("projectVizportalUrlId", schema.String()),
	schema.Prop("ownerLuid", schema.String()),
	schema.Prop("isCertified", schema.Boolean()),
	schema.Prop("certifierLuid", schema.String()),
	schema.Prop("certificationNote", schema.String()),
	schema.Prop("certifierDisplayName", schema.String()),
	schema.Prop("description", schema.String()),
	schema.Prop("downstreamWorkbooks", schema.Array(schema.Object(
		schema.Prop("id", schema.String()),
		schema.Prop("luid", schema.String()),
		schema.Prop("name", schema.String()),
	))),
)

var publishedDatasourcesMetadataStream = Stream{
	Name:        "published_datasources_metadata",
	Source:      SourceMetadata,
	PrimaryKeys: []string{"id"},
	Schema:      publishedDatasourcesMetadataSchema,
	extract: func(c *tableau.Client, logger *logrus.Logger) *Iterator {
		return metadataIterator(c, publishedDatasourcesMetadataQuery, normalizePublishedDatasourceMetadata)
	},
}

type publishedDatasourceMetadataNode struct {
	ID                     string   `json:"id"`
	Luid                   string   `json:"luid"`
	Name                   string   `json:"name"`
	HasUserReference       *bool    `json:"hasUserReference"`
	HasExtracts            *bool    `json:"hasExtracts"`
	ExtractLastRefreshTime string   `json:"extractLastRefreshTime"`
	Site                   *luidRef `json:"site"`
	ProjectName            string   `json:"projectName"`
	ProjectVizportalUrlId  string   `json:"projectVizportalUrlId"`
	Owner                  *luidRef `json:"owner"`
	IsCertified            *bool    `json:"isCertified"`
	Certifier              *luidRef `json:"certifier"`
	CertificationNote      string   `json:"certificationNote"`
	CertifierDisplayName   string   `json:"certifierDisplayName"`
	Description            string   `json:"description"`
	DownstreamWorkbooks    []struct {
		ID   string `json:"id"`
		Luid string `json:"luid"`
		Name string `json:"name"`
	} `json:"downstreamWorkbooks"`
}

// normalizePublishedDatasourceMetadata flattens the nested references.
// certifierLuid comes from the certifier reference and stays null for
// uncertified datasources; the certifier is only required when the
// datasource claims certification.
func normalizePublishedDatasourceMetadata(node map[string]interface{}) (schema.Row, error) {
	var ds publishedDatasourceMetadataNode
	if err := decodeNode(node, &ds); err != nil {
		return nil, err
	}
	if err := requireRef(ds.Site != nil, "site", ds.ID); err != nil {
		return nil, err
	}
	if err := requireRef(ds.Owner != nil, "owner", ds.ID); err != nil {
		return nil, err
	}
	if ds.IsCertified != nil && *ds.IsCertified {
		if err := requireRef(ds.Certifier != nil, "certifier", ds.ID); err != nil {
			return nil, err
		}
	}
	refreshedAt, err := formatDatetimeString(ds.ExtractLastRefreshTime)
	if err != nil {
		return nil, err
	}

	var certifierLuid interface{}
	if ds.Certifier != nil {
		certifierLuid = ds.Certifier.Luid
	}
	workbooks := make([]interface{}, 0, len(ds.DownstreamWorkbooks))
	for _, wb := range ds.DownstreamWorkbooks {
		workbooks = append(workbooks, map[string]interface{}{
			"id":   wb.ID,
			"luid": wb.Luid,
			"name": wb.Name,
		})
	}
	return schema.Row{
		"id":                     ds.ID,
		"luid":                   ds.Luid,
		"name":                   ds.Name,
		"hasUserReference":       nullableBool(ds.HasUserReference),
		"hasExtracts":            nullableBool(ds.HasExtracts),
		"extractLastRefreshTime": refreshedAt,
		"siteLuid":               ds.Site.Luid,
		"projectName":            nullableString(ds.ProjectName),
		"projectVizportalUrlId":  nullableString(ds.ProjectVizportalUrlId),
		"ownerLuid":              ds.Owner.Luid,
		"isCertified":            nullableBool(ds.IsCertified),
		"certifierLuid":          certifierLuid,
		"certificationNote":      nullableString(ds.CertificationNote),
		"certifierDisplayName":   nullableString(ds.CertifierDisplayName),
		"description":            nullableString(ds.Description),
		"downstreamWorkbooks":    workbooks,
	}, nil
}
