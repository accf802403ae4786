package tap

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/tapstack/tap-tableau/internal/errors"
)

// GlobalConfig is the per-user configuration stored in
// ~/.tap-tableau/config.json, shared across projects.
type GlobalConfig struct {
	// UUID identifies this installation, generated on first run.
	UUID string `json:"uuid"`

	// NoColor disables colorized log output by default.
	NoColor bool `json:"no_color"`
}

type rawGlobalConfig struct {
	UUID    *string `json:"uuid"`
	NoColor *bool   `json:"no_color"`

	shouldWrite bool
}

func (c *rawGlobalConfig) read(fs afero.Fs, filename string) error {
	var op errors.Op = "tap.rawGlobalConfig.read"
	b, err := afero.ReadFile(fs, filename)
	if err != nil {
		return errors.E(op, err)
	}
	if err := json.Unmarshal(b, c); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// validateKeys fills in missing keys and marks the config dirty when it
// changed anything.
func (c *rawGlobalConfig) validateKeys() {
	if c.UUID == nil {
		uid := ""
		if u, err := uuid.NewV4(); err == nil {
			uid = u.String()
		}
		c.UUID = &uid
		c.shouldWrite = true
	}
	if c.NoColor == nil {
		falseVal := false
		c.NoColor = &falseVal
		c.shouldWrite = true
	}
}

func (c *rawGlobalConfig) write(fs afero.Fs, filename string) error {
	var op errors.Op = "tap.rawGlobalConfig.write"
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.E(op, err)
	}
	if err := afero.WriteFile(fs, filename, b, 0644); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// setupGlobalConfig ensures the global config directory and file exist
// and reads the file into the GlobalConfig object.
func (ec *ExecutionContext) setupGlobalConfig() error {
	var op errors.Op = "tap.ExecutionContext.setupGlobalConfig"
	if len(ec.GlobalConfigDir) == 0 {
		home, err := homedir.Dir()
		if err != nil {
			return errors.E(op, err)
		}
		ec.GlobalConfigDir = filepath.Join(home, GlobalConfigDirName)
	}
	if err := ec.Fs.MkdirAll(ec.GlobalConfigDir, os.ModePerm); err != nil {
		return errors.E(op, err)
	}
	if len(ec.GlobalConfigFile) == 0 {
		ec.GlobalConfigFile = filepath.Join(ec.GlobalConfigDir, GlobalConfigFileName)
	}

	gc := &rawGlobalConfig{}
	exists, err := afero.Exists(ec.Fs, ec.GlobalConfigFile)
	if err != nil {
		return errors.E(op, err)
	}
	if exists {
		if err := gc.read(ec.Fs, ec.GlobalConfigFile); err != nil {
			return errors.E(op, err)
		}
	}
	gc.validateKeys()
	if gc.shouldWrite {
		if err := gc.write(ec.Fs, ec.GlobalConfigFile); err != nil {
			return errors.E(op, err)
		}
		ec.Logger.Debugf("global config file written at %s", ec.GlobalConfigFile)
	}

	if ec.GlobalConfig == nil {
		ec.GlobalConfig = &GlobalConfig{
			UUID:    *gc.UUID,
			NoColor: *gc.NoColor,
		}
	}
	if ec.GlobalConfig.NoColor {
		ec.NoColor = true
	}
	return nil
}
