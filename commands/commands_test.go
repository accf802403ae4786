package commands

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/pkg/streams"
)

func newTestEC(t *testing.T) *tap.ExecutionContext {
	t.Helper()
	testEC := tap.NewExecutionContext()
	testEC.Fs = afero.NewMemMapFs()
	testEC.Logger = logrus.New()
	testEC.Logger.SetLevel(logrus.FatalLevel)
	testEC.CMDName = "tap-tableau"
	return testEC
}

func TestSelectStreams(t *testing.T) {
	tt := []struct {
		name      string
		selection []string
		want      []string
		wantErr   bool
	}{
		{
			name:      "empty selection means all",
			selection: nil,
			want: []string{
				"datasources", "groups", "projects", "schedules", "tasks",
				"workbooks", "workbooks_metadata", "published_datasources_metadata",
				"custom_sql_locations_metadata", "users_metadata",
			},
		},
		{
			name:      "selection keeps extraction order",
			selection: []string{"workbooks", "groups"},
			want:      []string{"groups", "workbooks"},
		},
		{
			name:      "unknown stream is rejected",
			selection: []string{"groups", "nope"},
			wantErr:   true,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			selected, err := selectStreams(tc.selection)
			if tc.wantErr {
				require.Error(t, err)
				require.True(t, errors.IsKind(errors.KindBadInput, err))
				return
			}
			require.NoError(t, err)
			var names []string
			for _, s := range selected {
				names = append(names, s.Name)
			}
			require.Equal(t, tc.want, names)
		})
	}
}

func TestDiscover_WritesCatalogFile(t *testing.T) {
	testEC := newTestEC(t)
	opts := &discoverOptions{EC: testEC, Output: "/catalog.json"}
	require.NoError(t, opts.run())

	b, err := afero.ReadFile(testEC.Fs, "/catalog.json")
	require.NoError(t, err)

	var catalog struct {
		Streams []struct {
			Stream        string                 `json:"stream"`
			TapStreamID   string                 `json:"tap_stream_id"`
			KeyProperties []string               `json:"key_properties"`
			Schema        map[string]interface{} `json:"schema"`
		} `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(b, &catalog))
	require.Len(t, catalog.Streams, len(streams.All()))

	entry := catalog.Streams[0]
	require.Equal(t, "datasources", entry.Stream)
	require.Equal(t, "datasources", entry.TapStreamID)
	require.Equal(t, []string{"id"}, entry.KeyProperties)
	require.Equal(t, "object", entry.Schema["type"])
}

func TestInit_NonInteractiveRequiresFlags(t *testing.T) {
	testEC := newTestEC(t)
	testEC.IsTerminal = false
	opts := &initOptions{EC: testEC, InitDir: "proj"}

	err := opts.run()
	require.Error(t, err)
	require.True(t, errors.IsKind(errors.KindBadInput, err))
}

func TestInit_CreatesProjectFiles(t *testing.T) {
	testEC := newTestEC(t)
	testEC.IsTerminal = false
	testEC.ExecutionDirectory = "/work"
	opts := &initOptions{
		EC:          testEC,
		InitDir:     "proj",
		BaseURL:     "https://tableau.example.com",
		TokenName:   "extraction",
		TokenSecret: "s3cret",
	}
	require.NoError(t, opts.run())

	cfg, err := afero.ReadFile(testEC.Fs, "/work/proj/config.yaml")
	require.NoError(t, err)
	require.Contains(t, string(cfg), "base_url: https://tableau.example.com")
	require.NotContains(t, string(cfg), "s3cret")

	env, err := afero.ReadFile(testEC.Fs, "/work/proj/.env")
	require.NoError(t, err)
	require.Contains(t, string(env), "TAP_TABLEAU_TOKEN_SECRET=s3cret")

	// running again must refuse to overwrite
	opts2 := &initOptions{
		EC:          newTestEC(t),
		InitDir:     "proj",
		BaseURL:     "https://tableau.example.com",
		TokenName:   "extraction",
		TokenSecret: "s3cret",
	}
	opts2.EC.Fs = testEC.Fs
	opts2.EC.IsTerminal = false
	opts2.EC.ExecutionDirectory = "/work"
	err = opts2.run()
	require.Error(t, err)
}
