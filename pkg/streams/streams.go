// Package streams defines one extraction stream per Tableau resource
// type: its declared row schema and the procedure that pages the source
// collection, enriches each raw object and normalizes it into rows. The
// Dispatcher composes a stream with a server client into a validated,
// pull-based row iterator.
package streams

import (
	"github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

// Source tells which API a stream extracts from.
type Source string

const (
	SourceRest     Source = "rest"
	SourceMetadata Source = "metadata"
)

// Stream is one resource type's extraction definition.
type Stream struct {
	Name        string
	Source      Source
	PrimaryKeys []string
	Schema      *schema.Schema

	// extract starts one extraction pass against the client. The
	// returned iterator yields unvalidated rows; the dispatcher layers
	// schema validation on top.
	extract func(c *tableau.Client, logger *logrus.Logger) *Iterator
}

// All returns every stream the tap knows, REST streams first, in the
// order extraction runs them.
func All() []Stream {
	return []Stream{
		datasourcesStream,
		groupsStream,
		projectsStream,
		schedulesStream,
		tasksStream,
		workbooksStream,
		workbooksMetadataStream,
		publishedDatasourcesMetadataStream,
		customSQLLocationsMetadataStream,
		usersMetadataStream,
	}
}

// Lookup resolves a stream by name.
func Lookup(name string) (Stream, bool) {
	for _, s := range All() {
		if s.Name == name {
			return s, true
		}
	}
	return Stream{}, false
}
