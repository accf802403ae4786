package tableau

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntervalList_Values(t *testing.T) {
	l := IntervalList{Interval: []map[string]string{
		{"weekDay": "Monday"},
		{"minutes": "15", "hours": "2"},
		{"weekDay": "Friday"},
	}}

	// entries keep server order, attributes within an entry sort by key
	require.Equal(t, []string{"Monday", "2", "15", "Friday"}, l.Values())
}
