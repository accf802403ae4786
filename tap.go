// Package tap is the execution core of tap-tableau. It holds the
// execution context shared by all commands: configuration, logging,
// the spinner, and the construction of the Tableau API clients.
package tap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/goccy/go-yaml"
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"golang.org/x/term"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/internal/httpc"
	"github.com/tapstack/tap-tableau/internal/tableau"
	"github.com/tapstack/tap-tableau/internal/tableau/metadataapi"
	"github.com/tapstack/tap-tableau/internal/tableau/restapi"
	"github.com/tapstack/tap-tableau/version"
)

const (
	// Name of the global configuration directory
	GlobalConfigDirName = ".tap-tableau"
	// Name of the global configuration file
	GlobalConfigFileName = "config.json"

	// DefaultAPIVersion is used when the server's REST API version can
	// neither be configured nor negotiated.
	DefaultAPIVersion = "3.19"

	// ViperEnvPrefix is the prefix for configuration env vars
	ViperEnvPrefix = "TAP_TABLEAU"
)

// ViperEnvReplacer turns config keys into env var fragments.
var ViperEnvReplacer = strings.NewReplacer(".", "_")

// Config is what the tap needs to reach one Tableau server, read from
// config.yaml, env vars or flags through viper.
type Config struct {
	// BaseURL is the Tableau server URL, scheme included.
	BaseURL string `yaml:"base_url"`
	// SiteURL is the content URL of the site to extract from. Empty
	// selects the default site.
	SiteURL string `yaml:"site_url,omitempty"`
	// TokenName and TokenSecret identify the personal access token used
	// to sign in.
	TokenName   string `yaml:"token_name"`
	TokenSecret string `yaml:"token_secret,omitempty"`
	// APIVersion pins the REST API version. Empty means negotiate it
	// from the server.
	APIVersion string `yaml:"api_version,omitempty"`
	// PageSize is the collection page size for REST listings.
	PageSize int `yaml:"page_size,omitempty"`
	// RetryAttempts bounds transport-level retries per request.
	RetryAttempts uint `yaml:"retry_attempts,omitempty"`

	InsecureSkipTLSVerify bool   `yaml:"insecure_skip_tls_verify,omitempty"`
	CAPath                string `yaml:"certificate_authority,omitempty"`
}

// Credentials returns the sign-in credentials carried by the config.
func (c *Config) Credentials() tableau.Credentials {
	return tableau.Credentials{
		TokenName:      c.TokenName,
		TokenSecret:    c.TokenSecret,
		SiteContentURL: c.SiteURL,
	}
}

// ExecutionContext contains various contextual information required by
// the tap at various points of its execution. Values are filled in by
// the initializers and passed on to each command.
type ExecutionContext struct {
	// CMDName is the name of CMD (os.Args[0]). To be filled in later to
	// correctly render example strings etc.
	CMDName string

	// ID is a unique ID for this execution
	ID string

	// Spinner is the global spinner object used to show progress across
	// the commands.
	Spinner *spinner.Spinner
	// Logger is the global logger object to print logs. It writes to
	// stderr; stdout is reserved for the record output.
	Logger *logrus.Logger

	// ExecutionDirectory is the directory in which command is being
	// executed.
	ExecutionDirectory string
	// Envfile is the .env file to load ENV vars from
	Envfile string
	// ConfigFile is the file where server URL, token etc. are stored.
	ConfigFile string

	// Config is the configuration object storing the server and token
	// information after reading from config file or env var.
	Config *Config

	// GlobalConfigDir is the ~/.tap-tableau directory to store
	// configuration globally.
	GlobalConfigDir string
	// GlobalConfigFile is the file inside GlobalConfigDir where values
	// are stored.
	GlobalConfigFile string
	// GlobalConfig holds the per-user configuration options.
	GlobalConfig *GlobalConfig

	// Version indicates the version object
	Version *version.Version

	// Viper indicates the viper object for the execution
	Viper *viper.Viper

	// LogLevel indicates the logrus default logging level
	LogLevel string

	// NoColor indicates if the outputs shouldn't be colorized
	NoColor bool

	// IsTerminal indicates whether the current session is a terminal or
	// not
	IsTerminal bool

	// Fs is the filesystem commands read and write project files
	// through.
	Fs afero.Fs
}

// NewExecutionContext returns a new instance of execution context
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{
		Fs:      afero.NewOsFs(),
		Envfile: ".env",
	}
}

// Prepare initializes the ExecutionContext with sensible defaults for
// everything not already set: spinner, logger, version and an execution
// id.
func (ec *ExecutionContext) Prepare() error {
	var op errors.Op = "tap.ExecutionContext.Prepare"
	cmdName := os.Args[0]
	if len(cmdName) == 0 {
		cmdName = "tap-tableau"
	}
	ec.CMDName = cmdName

	// stdout carries the record output, so terminal-ness of the log
	// channel is what matters here
	ec.IsTerminal = term.IsTerminal(int(os.Stderr.Fd()))

	ec.setupSpinner()
	ec.setupLogger()
	ec.setVersion()

	if err := ec.setupGlobalConfig(); err != nil {
		return errors.E(op, fmt.Errorf("setting up global config failed: %w", err))
	}
	// the global config may have flipped NoColor, rebuild the log
	// formatting hook with the settled value
	ec.setupLogger()

	if ec.ID == "" {
		id := "00000000-0000-0000-0000-000000000000"
		u, err := uuid.NewV4()
		if err == nil {
			id = u.String()
		} else {
			ec.Logger.Debugf("generating uuid for execution ID failed, %v", err)
		}
		ec.ID = id
		ec.Logger.Debugf("execution id: %v", ec.ID)
	}

	if ec.Config == nil {
		ec.Config = &Config{}
	}
	return nil
}

// Validate resolves the execution directory, loads the .env file, reads
// the configuration and settles the REST API version for this run.
func (ec *ExecutionContext) Validate() error {
	var op errors.Op = "tap.ExecutionContext.Validate"
	if err := ec.validateDirectory(); err != nil {
		return errors.E(op, fmt.Errorf("validating current directory failed: %w", err))
	}

	if err := ec.loadEnvfile(); err != nil {
		return errors.E(op, fmt.Errorf("loading .env file failed: %w", err))
	}

	ec.ConfigFile = filepath.Join(ec.ExecutionDirectory, "config.yaml")

	if err := ec.readConfig(); err != nil {
		return errors.E(op, fmt.Errorf("cannot read config: %w", err))
	}

	ec.Logger.Debug("tableau server: ", ec.Config.BaseURL)
	ec.Logger.Debug("tableau site: ", ec.Config.SiteURL)

	if err := ec.settleAPIVersion(); err != nil {
		return errors.E(op, err)
	}
	return nil
}

func (ec *ExecutionContext) validateDirectory() error {
	if ec.ExecutionDirectory == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting current working directory: %w", err)
		}
		ec.ExecutionDirectory = cwd
	}
	dir, err := filepath.Abs(ec.ExecutionDirectory)
	if err != nil {
		return fmt.Errorf("error resolving execution directory: %w", err)
	}
	ec.ExecutionDirectory = dir
	return nil
}

// loadEnvfile loads the .env file, if present.
func (ec *ExecutionContext) loadEnvfile() error {
	envfile := filepath.Join(ec.ExecutionDirectory, ec.Envfile)
	err := gotenv.Load(envfile)
	if err != nil {
		// return error if user provided envfile name
		if ec.Envfile != ".env" {
			return err
		}
		if !os.IsNotExist(err) {
			ec.Logger.Warn(err)
		}
	}
	if err == nil {
		ec.Logger.Debug("ENV vars read from: ", envfile)
	}
	return nil
}

// readConfig reads the configuration from config file, flags and env
// vars, through viper.
func (ec *ExecutionContext) readConfig() error {
	var op errors.Op = "tap.ExecutionContext.readConfig"
	// need to get existing viper because https://github.com/spf13/viper/issues/233
	v := ec.Viper
	if v == nil {
		v = viper.New()
		ec.Viper = v
	}
	v.SetEnvPrefix(ViperEnvPrefix)
	v.SetEnvKeyReplacer(ViperEnvReplacer)
	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetDefault("base_url", "")
	v.SetDefault("site_url", "")
	v.SetDefault("token_name", "")
	v.SetDefault("token_secret", "")
	v.SetDefault("api_version", "")
	v.SetDefault("page_size", restapi.DefaultPageSize)
	v.SetDefault("retry_attempts", httpc.DefaultRetryAttempts)
	v.SetDefault("insecure_skip_tls_verify", false)
	v.SetDefault("certificate_authority", "")
	v.AddConfigPath(ec.ExecutionDirectory)
	if err := v.ReadInConfig(); err != nil {
		// a config file is optional, env vars alone are a valid setup
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("cannot read config from file/env: %w", err)
		}
	}

	ec.Config = &Config{
		BaseURL:               v.GetString("base_url"),
		SiteURL:               v.GetString("site_url"),
		TokenName:             v.GetString("token_name"),
		TokenSecret:           v.GetString("token_secret"),
		APIVersion:            v.GetString("api_version"),
		PageSize:              v.GetInt("page_size"),
		RetryAttempts:         v.GetUint("retry_attempts"),
		InsecureSkipTLSVerify: v.GetBool("insecure_skip_tls_verify"),
		CAPath:                v.GetString("certificate_authority"),
	}

	if ec.Config.BaseURL == "" {
		return errors.E(op, errors.KindBadInput, "base_url is not set")
	}
	ec.Config.BaseURL = strings.TrimRight(ec.Config.BaseURL, "/")
	if ec.Config.TokenName == "" || ec.Config.TokenSecret == "" {
		return errors.E(op, errors.KindBadInput, "token_name and token_secret must be set")
	}
	return nil
}

// settleAPIVersion pins the REST API version for this run: the
// configured version wins, otherwise it is negotiated from the server's
// serverinfo endpoint, falling back to DefaultAPIVersion when the
// server does not answer.
func (ec *ExecutionContext) settleAPIVersion() error {
	if ec.Config.APIVersion != "" {
		ec.Version.APIVersion = ec.Config.APIVersion
		ec.Logger.Debugf("using configured REST API version %s", ec.Version.APIVersion)
		return nil
	}
	negotiated, err := restapi.NegotiateAPIVersion(ec.Config.BaseURL, ec.Logger)
	if err != nil {
		ec.Logger.WithError(err).Warnf("could not negotiate REST API version, using %s", DefaultAPIVersion)
		ec.Version.APIVersion = DefaultAPIVersion
		return nil
	}
	ec.Version.APIVersion = negotiated
	ec.Logger.Debugf("negotiated REST API version %s", ec.Version.APIVersion)
	return nil
}

// WriteConfig writes the configuration from ec.Config or input config
func (ec *ExecutionContext) WriteConfig(config *Config) error {
	var op errors.Op = "tap.ExecutionContext.WriteConfig"
	cfg := config
	if cfg == nil {
		cfg = ec.Config
	}
	y, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.E(op, err)
	}
	if err := afero.WriteFile(ec.Fs, ec.ConfigFile, y, 0644); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Client assembles the Tableau client for this run from the validated
// configuration: one shared HTTP transport, the REST client and the
// metadata GraphQL client.
func (ec *ExecutionContext) Client() (*tableau.Client, error) {
	var op errors.Op = "tap.ExecutionContext.Client"
	tlsConfig, err := httpc.GenerateTLSConfig(ec.Config.CAPath, ec.Config.InsecureSkipTLSVerify)
	if err != nil {
		return nil, errors.E(op, err)
	}
	httpClient, err := httpc.NewHttpClientWithTLSConfig(tlsConfig)
	if err != nil {
		return nil, errors.E(op, err)
	}

	creds := ec.Config.Credentials()

	restHTTP, err := httpc.New(httpClient, ec.Config.BaseURL, nil)
	if err != nil {
		return nil, errors.E(op, err)
	}
	restHTTP.SetRetryAttempts(ec.Config.RetryAttempts)
	rest := restapi.New(restHTTP, creds, ec.Version.APIVersion, ec.Config.PageSize, ec.Logger)

	metaHTTP, err := httpc.New(httpClient, ec.Config.BaseURL, nil)
	if err != nil {
		return nil, errors.E(op, err)
	}
	metaHTTP.SetRetryAttempts(ec.Config.RetryAttempts)
	meta := metadataapi.New(metaHTTP, creds, ec.Version.APIVersion, ec.Logger)

	return &tableau.Client{
		Session:     rest,
		Datasources: rest,
		Groups:      rest,
		Projects:    rest,
		Schedules:   rest,
		Tasks:       rest,
		Workbooks:   rest,
		Metadata:    meta,
	}, nil
}

// setupSpinner creates a default spinner if the context does not
// already have one.
func (ec *ExecutionContext) setupSpinner() {
	if ec.Spinner == nil {
		spnr := spinner.New(spinner.CharSets[7], 100*time.Millisecond)
		spnr.Writer = os.Stderr
		ec.Spinner = spnr
	}
}

// Spin stops any existing spinner and starts a new one with the given
// message.
func (ec *ExecutionContext) Spin(message string) {
	if ec.IsTerminal {
		ec.Spinner.Stop()
		ec.Spinner.Prefix = message
		ec.Spinner.Start()
	} else {
		ec.Logger.Println(message)
	}
}

// setupLogger creates a default logger if context does not have one
// set. Logs always go to stderr, stdout is the record channel.
func (ec *ExecutionContext) setupLogger() {
	if ec.Logger == nil {
		logger := logrus.New()
		logger.Out = os.Stderr
		ec.Logger = logger
	}

	if ec.LogLevel != "" {
		level, err := logrus.ParseLevel(ec.LogLevel)
		if err != nil {
			ec.Logger.WithError(err).Error("error parsing log-level flag")
			return
		}
		ec.Logger.SetLevel(level)
	}

	ec.Logger.Hooks = make(logrus.LevelHooks)
	ec.Logger.AddHook(newSpinnerHandlerHook(ec.Logger, ec.Spinner, ec.IsTerminal, ec.NoColor))
}

// setVersion sets the version inside context, according to the
// variable 'version' set during build context.
func (ec *ExecutionContext) setVersion() {
	if ec.Version == nil {
		ec.Version = version.New()
	}
}
