// Package cli implements the pdftools command tree using Cobra.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pdftools/api"
	"pdftools/config"
	"pdftools/extract"
	"pdftools/office"
	"pdftools/pdf"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	engine    pdf.Engine
	runner    api.Runner
	newRunner func(a *app) api.Runner
}

// buildProcessor wires the production collaborators from configuration.
func buildProcessor(a *app) api.Runner {
	return pdf.NewProcessor(pdf.Deps{
		Engine:     a.engine,
		Crypter:    pdf.PDFCPUCrypter{},
		Rasterizer: a.cfg.Tools,
		Compressor: a.cfg.Tools,
		Converter:  a.cfg.Tools,
		Extractor:  extract.New(a.log),
		Office:     office.NewWriter(a.log),
		Log:        a.log,
	})
}

// newLogger builds the process logger from a level name and a format
// ("text" or "json").
func newLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pdf.ErrInvalidInput, err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", pdf.ErrInvalidInput, format)
	}
	return log, nil
}

// NewRootCommand returns the full command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{newRunner: buildProcessor})
}

func newRootCommand(a *app) *cobra.Command {
	a.cfg = config.Load()

	var logLevel, logFormat string
	root := &cobra.Command{
		Use:   "pdftools",
		Short: "pdftools: merge, split, convert and secure PDF files",
		Long: `pdftools runs one PDF operation per invocation, or serves them all over HTTP.

Usage:
  pdftools <operation> [flags]
  pdftools serve [--port 4000]`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(logLevel, logFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.log = log
			if a.engine == nil {
				a.engine = pdf.NewPDFCPUEngine()
			}
			if a.runner == nil {
				a.runner = a.newRunner(a)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", a.cfg.LogFormat, "log format (text, json)")

	for _, def := range operations {
		root.AddCommand(newOperationCommand(a, def))
	}
	root.AddCommand(newServeCommand(a), newInfoCommand(a))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
