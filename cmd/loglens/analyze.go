package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfrtlabs/loglens/internal/engine"
	"github.com/dfrtlabs/loglens/internal/models"
)

type analyzeFlags struct {
	format    string
	output    string
	threshold int
	window    int

	noParsing      bool
	noEvents       bool
	noLogins       bool
	noFailedLogins bool
	noBruteForce   bool
	noTampering    bool
	noCorrelation  bool
	noProfiles     bool
	noTimeline     bool
}

func newAnalyzeCommand(global *globalFlags) *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze log files and print the result",
		Example: `  loglens analyze /var/log/auth.log
  loglens analyze --format json --threshold 3 auth.log secure.log
  loglens analyze --format csv --output entries.csv --no-timeline auth.log`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, flags, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.format, "format", "f", "text", "output format: text, json, csv, pretty")
	f.StringVarP(&flags.output, "output", "o", "", "write output to this file instead of stdout")
	f.IntVar(&flags.threshold, "threshold", models.DefaultBruteForceThreshold, "failed attempts from one IP that count as a brute-force attack")
	f.IntVar(&flags.window, "window", models.DefaultBruteForceWindowSeconds, "brute-force correlation window in seconds")
	f.BoolVar(&flags.noParsing, "no-parsing", false, "skip timestamp, IP and user extraction")
	f.BoolVar(&flags.noEvents, "no-events", false, "skip event ID extraction")
	f.BoolVar(&flags.noLogins, "no-login-analysis", false, "disable login analysis")
	f.BoolVar(&flags.noFailedLogins, "no-failed-logins", false, "disable the failed-login rule")
	f.BoolVar(&flags.noBruteForce, "no-brute-force", false, "disable per-IP brute-force correlation")
	f.BoolVar(&flags.noTampering, "no-tampering", false, "disable the log-tampering rule")
	f.BoolVar(&flags.noCorrelation, "no-correlation", false, "do not collect targeted users per attack")
	f.BoolVar(&flags.noProfiles, "no-profiles", false, "disable user profiling")
	f.BoolVar(&flags.noTimeline, "no-timeline", false, "disable timeline reconstruction")
	return cmd
}

// options layers explicitly set flags over the configured analysis options.
func (a *analyzeFlags) options(cmd *cobra.Command, base models.AnalysisOptions) models.AnalysisOptions {
	opts := base
	if cmd.Flags().Changed("threshold") {
		opts.BruteForceThreshold = a.threshold
	}
	if cmd.Flags().Changed("window") {
		opts.BruteForceWindowSeconds = a.window
	}
	disable := []struct {
		off bool
		dst *bool
	}{
		{a.noParsing, &opts.EnableBasicParsing},
		{a.noEvents, &opts.EnableEventExtraction},
		{a.noLogins, &opts.EnableLoginAnalysis},
		{a.noFailedLogins, &opts.EnableFailedLoginDetection},
		{a.noBruteForce, &opts.EnableBruteForceDetection},
		{a.noTampering, &opts.EnableLogTamperingDetection},
		{a.noCorrelation, &opts.EnableCrossCorrelation},
		{a.noProfiles, &opts.EnableUserProfiling},
		{a.noTimeline, &opts.EnableTimelineReconstruction},
	}
	for _, d := range disable {
		if d.off {
			*d.dst = false
		}
	}
	return opts.Normalize()
}

func runAnalyze(cmd *cobra.Command, global *globalFlags, flags *analyzeFlags, paths []string) error {
	if err := validateFormat(flags.format); err != nil {
		return err
	}
	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}

	rules, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		return fmt.Errorf("load rule pack %s: %w", cfg.Rules.Path, err)
	}
	pipeline := engine.NewPipeline(logger, rules, cfg.Ingest.MaxLineBytes)

	result, err := pipeline.RunAnalysis(cmd.Context(), paths, flags.options(cmd, cfg.Analysis))
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if flags.output != "" {
		file, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := writeResult(w, result, flags.format); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if flags.output != "" {
		logger.Info("analysis written", slog.String("analysis_id", result.AnalysisID), slog.String("path", flags.output))
	}
	return nil
}
