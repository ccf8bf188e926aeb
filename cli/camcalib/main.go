// Package main is the camcalib command.
package main

import (
	"os"

	"go.viam.com/camcalib/cli"
	"go.viam.com/camcalib/logging"
)

func main() {
	// results go to stdout, logs to stderr
	logger := logging.NewBlankLogger("camcalib")
	logger.SetLevel(logging.INFO)
	logger.AddAppender(logging.NewWriterAppender(os.Stderr))
	app := cli.NewApp(os.Stdout, os.Stderr, logger)
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}
