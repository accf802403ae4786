package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tap "github.com/tapstack/tap-tableau"
	"github.com/tapstack/tap-tableau/internal/errors"
)

const defaultDirectory = "tableau"

// NewInitCmd is the definition for init command
func NewInitCmd(ec *tap.ExecutionContext) *cobra.Command {
	opts := &initOptions{
		EC: ec,
	}
	initCmd := &cobra.Command{
		Use:   "init [directory-name]",
		Short: "Initialize a directory for Tableau extraction",
		Long:  "Create the directory and config.yaml required to extract from a Tableau server. The token secret is written to a .env file, not to config.yaml.",
		Example: `  # Create a project directory, prompting for server and token:
  tap-tableau init

  # Create a project directory with everything configured:
  tap-tableau init my-site --base-url https://tableau.example.com --token-name extraction --token-secret secretvalue`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			ec.Viper = viper.New()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			op := genOpName(cmd, "RunE")
			if len(args) == 1 {
				opts.InitDir = args[0]
			}
			if err := opts.run(); err != nil {
				return errors.E(op, err)
			}
			return nil
		},
	}

	f := initCmd.Flags()
	f.StringVar(&opts.InitDir, "directory", "", "name of directory where files will be created")
	f.StringVar(&opts.BaseURL, "base-url", "", "http(s) URL of the Tableau server")
	f.StringVar(&opts.SiteURL, "site-url", "", "content URL of the site to extract from (default: the default site)")
	f.StringVar(&opts.TokenName, "token-name", "", "name of the personal access token")
	f.StringVar(&opts.TokenSecret, "token-secret", "", "secret of the personal access token")
	return initCmd
}

type initOptions struct {
	EC *tap.ExecutionContext

	InitDir     string
	BaseURL     string
	SiteURL     string
	TokenName   string
	TokenSecret string
}

func (o *initOptions) run() error {
	var op errors.Op = "commands.initOptions.run"
	ec := o.EC

	if err := o.prompt(); err != nil {
		return errors.E(op, err)
	}

	dir := o.InitDir
	if strings.TrimSpace(dir) == "" {
		dir = defaultDirectory
	}
	if ec.ExecutionDirectory == "" {
		ec.ExecutionDirectory = dir
	} else {
		ec.ExecutionDirectory = filepath.Join(ec.ExecutionDirectory, dir)
	}

	exists, err := afero.DirExists(ec.Fs, ec.ExecutionDirectory)
	if err != nil {
		return errors.E(op, err)
	}
	if exists {
		return errors.E(op, errors.KindBadInput, fmt.Errorf("directory %q already exists", ec.ExecutionDirectory))
	}
	if err := ec.Fs.MkdirAll(ec.ExecutionDirectory, 0755); err != nil {
		return errors.E(op, err)
	}

	ec.ConfigFile = filepath.Join(ec.ExecutionDirectory, "config.yaml")
	if err := ec.WriteConfig(&tap.Config{
		BaseURL:   o.BaseURL,
		SiteURL:   o.SiteURL,
		TokenName: o.TokenName,
	}); err != nil {
		return errors.E(op, err)
	}

	// the secret lives in .env so config.yaml stays shareable
	envfile := filepath.Join(ec.ExecutionDirectory, ".env")
	env := fmt.Sprintf("TAP_TABLEAU_TOKEN_SECRET=%s\n", o.TokenSecret)
	if err := afero.WriteFile(ec.Fs, envfile, []byte(env), 0600); err != nil {
		return errors.E(op, err)
	}

	ec.Logger.Infof(`directory created. execute the following commands to continue:

  cd %s
  %s extract
`, ec.ExecutionDirectory, ec.CMDName)
	return nil
}

// prompt asks for whatever required values the flags did not provide.
// Outside a terminal the flags are the only source.
func (o *initOptions) prompt() error {
	var op errors.Op = "commands.initOptions.prompt"
	if !o.EC.IsTerminal {
		if o.BaseURL == "" || o.TokenName == "" || o.TokenSecret == "" {
			return errors.E(op, errors.KindBadInput, "base-url, token-name and token-secret are required when not running interactively")
		}
		return nil
	}

	var qs []*survey.Question
	if o.BaseURL == "" {
		qs = append(qs, &survey.Question{
			Name:     "baseurl",
			Prompt:   &survey.Input{Message: "Tableau server URL:"},
			Validate: survey.Required,
		})
	}
	if o.TokenName == "" {
		qs = append(qs, &survey.Question{
			Name:     "tokenname",
			Prompt:   &survey.Input{Message: "Personal access token name:"},
			Validate: survey.Required,
		})
	}
	if o.TokenSecret == "" {
		qs = append(qs, &survey.Question{
			Name:     "tokensecret",
			Prompt:   &survey.Password{Message: "Personal access token secret:"},
			Validate: survey.Required,
		})
	}
	if len(qs) == 0 {
		return nil
	}

	answers := struct {
		BaseURL     string `survey:"baseurl"`
		TokenName   string `survey:"tokenname"`
		TokenSecret string `survey:"tokensecret"`
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return errors.E(op, err)
	}
	if answers.BaseURL != "" {
		o.BaseURL = answers.BaseURL
	}
	if answers.TokenName != "" {
		o.TokenName = answers.TokenName
	}
	if answers.TokenSecret != "" {
		o.TokenSecret = answers.TokenSecret
	}
	return nil
}
