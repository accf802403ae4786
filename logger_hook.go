package tap

import (
	"io"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// spinnerHook pauses the spinner while a log entry is written, so
// entries never interleave with the spinner animation, and routes the
// entry through a formatter matched to the session: colored text on a
// terminal, JSON otherwise.
type spinnerHook struct {
	logger  *logrus.Logger
	spinner *spinner.Spinner
	noColor bool
}

func newSpinnerHandlerHook(parent *logrus.Logger, spinner *spinner.Spinner, isTerminal, noColor bool) *spinnerHook {
	logger := logrus.New()
	logger.Out = parent.Out
	if parent.Out != io.Discard {
		if isTerminal {
			logger.Formatter = &logrus.TextFormatter{
				ForceColors:      !noColor,
				DisableColors:    noColor,
				DisableTimestamp: true,
			}
			logger.Out = colorable.NewColorableStderr()
		} else {
			logger.Formatter = &logrus.JSONFormatter{}
		}
		logger.Level = parent.GetLevel()
	}
	return &spinnerHook{
		logger:  logger,
		spinner: spinner,
		noColor: noColor,
	}
}

// Levels returns all levels this hook should be registered to
func (hook *spinnerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire is triggered on new log entries
func (hook *spinnerHook) Fire(entry *logrus.Entry) error {
	if hook.spinner.Active() {
		hook.spinner.Stop()
		defer func() {
			hook.spinner.Start()
		}()
	}
	entry.Logger = hook.logger
	return nil
}
