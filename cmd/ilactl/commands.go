package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/ila-server/internal/app"
	"github.com/godilite/ila-server/internal/config"
	"github.com/godilite/ila-server/internal/scoring"
	"github.com/godilite/ila-server/internal/transport/api"
)

type rootOptions struct {
	envFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ilactl",
		Short: "Operate the Local Attraction Index store from the command line",
		Long: `ilactl scores businesses, runs batches and inspects score history directly
against the configured database, without going through the HTTP or gRPC servers.

Configuration is read from the same environment variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newScoreCmd(opts),
		newBatchCmd(opts),
		newHistoryCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
	)
	return root
}

// withCore loads configuration, opens storage and hands the core to fn.
func withCore(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, core *app.Core) error) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = config.NewLogger(cfg); err != nil {
			return err
		}
		defer logger.Sync()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	core, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	return fn(ctx, core)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <business-id>",
		Short: "Compute and persist the index of one business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				resp, err := api.Calculate(ctx, core.Runner, api.CalculateRequest{BusinessID: args[0]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Score one page of businesses that have never been scored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				resp, err := api.Calculate(ctx, core.Runner, api.CalculateRequest{BatchMode: true})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <business-id>",
		Short: "Show past index computations of a business, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				entries, err := core.Runner.History(ctx, args[0], limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), api.HistoryResponse{BusinessID: args[0], History: entries})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of entries (default 20)")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening the core applies the schema
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Insert or update businesses from a JSON array of raw signals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var businesses []scoring.BusinessSignals
			if err := json.Unmarshal(data, &businesses); err != nil {
				return fmt.Errorf("parse seed file %s: %w", args[0], err)
			}

			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				for _, b := range businesses {
					if b.ID == "" {
						return fmt.Errorf("seed file %s: business without id", args[0])
					}
					if err := core.Repo.UpsertBusiness(ctx, b); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d businesses\n", len(businesses))
				return nil
			})
		},
	}
}
