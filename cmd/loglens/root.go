package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dfrtlabs/loglens/internal/config"
	"github.com/dfrtlabs/loglens/internal/export"
	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/output"
	"github.com/dfrtlabs/loglens/internal/utils"
)

const formatPretty = "pretty"

type globalFlags struct {
	configPath string
	logLevel   string
	jsonLogs   bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "loglens",
		Short:         "LogLens - security log analysis",
		Long:          "LogLens parses security and system log files, detects brute-force and log-tampering activity,\nprofiles user behaviour and reconstructs incident timelines.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: $LOGLENS_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.jsonLogs, "log-json", false, "emit logs as JSON")

	root.AddCommand(
		newAnalyzeCommand(flags),
		newServeCommand(flags),
		newSubmitCommand(flags),
		newVersionCommand(),
	)
	return root
}

// load reads configuration and builds the stderr logger for a command.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.jsonLogs {
		cfg.Logging.JSON = true
	}
	return cfg, utils.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the loglens version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "loglens %s\n", version)
			return err
		},
	}
}

// validateFormat accepts the export formats plus the terminal summary.
func validateFormat(format string) error {
	if strings.EqualFold(strings.TrimSpace(format), formatPretty) {
		return nil
	}
	_, err := export.ParseFormat(format)
	return err
}

// writeResult renders result to w in the named format.
func writeResult(w io.Writer, result *models.AnalysisResult, format string) error {
	if strings.EqualFold(strings.TrimSpace(format), formatPretty) {
		return output.NewRenderer(w).Render(result)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := export.Render(result, f, time.Now())
	if err != nil {
		return err
	}
	if f == export.FormatJSON {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}
