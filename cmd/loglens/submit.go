package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/dfrtlabs/loglens/internal/api"
)

func newSubmitCommand(global *globalFlags) *cobra.Command {
	var (
		server  string
		format  string
		timeout time.Duration
	)
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "submit FILE...",
		Short: "Run an analysis on a remote loglens server",
		Long:  "Submit asks a running `loglens serve` instance to analyze files on its own filesystem\nand prints the returned result.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, _, err := global.load(cmd)
			if err != nil {
				return err
			}

			conn, err := grpc.NewClient(server, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("connect to %s: %w", server, err)
			}
			defer conn.Close()

			req, err := api.ToStruct(api.RunRequest{Paths: args, Options: flags.options(cmd, cfg.Analysis)})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			resp, err := api.NewAnalyzerClient(conn).RunAnalysis(ctx, req)
			if err != nil {
				if st, ok := status.FromError(err); ok {
					return fmt.Errorf("remote analysis failed (%s): %s", st.Code(), st.Message())
				}
				return err
			}
			result, err := api.FromStructResult(resp)
			if err != nil {
				return fmt.Errorf("decode remote result: %w", err)
			}
			return writeResult(cmd.OutOrStdout(), result, format)
		},
	}
	cmd.Flags().StringVarP(&server, "server", "s", "localhost:50051", "address of the loglens gRPC service")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, csv, pretty")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	cmd.Flags().IntVar(&flags.threshold, "threshold", 0, "failed attempts from one IP that count as a brute-force attack")
	cmd.Flags().IntVar(&flags.window, "window", 0, "brute-force correlation window in seconds")
	cmd.Flags().BoolVar(&flags.noTimeline, "no-timeline", false, "disable timeline reconstruction")
	cmd.Flags().BoolVar(&flags.noProfiles, "no-profiles", false, "disable user profiling")
	return cmd
}
