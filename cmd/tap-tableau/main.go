// Package main is the entrypoint for the command line executable.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/tapstack/tap-tableau/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		logger := log.New()
		logger.Out = os.Stderr
		logger.Fatal(err)
	}
}
