package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinRegime/internal/di"
	"FinRegime/internal/domain/models"
	"FinRegime/internal/usecase"
	"FinRegime/pkg/config"
	"FinRegime/pkg/util"
)

// errRunFailed signals a run in which no series could be processed.
var errRunFailed = errors.New("run failed: no series processed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "finregime",
		Short:         "Crisis regime panel for equity indices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	root.AddCommand(newRunCmd(&configPath), newServeCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var (
		series    string
		window    int
		pre, post int
		printJSON bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and write the configured outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			opts := usecase.RunOptions{Series: util.SplitList(series), Window: window}
			if cmd.Flags().Changed("pre-crisis-months") {
				opts.PreCrisisMonths = &pre
			}
			if cmd.Flags().Changed("post-crisis-months") {
				opts.PostCrisisMonths = &post
			}

			rep, err := app.RunOnce(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if printJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					return err
				}
			}
			if rep.Status == models.RunFailed {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "comma separated series names (default: pipeline.series)")
	cmd.Flags().IntVar(&window, "window", 0, "rolling volatility window (default: pipeline.volatility_window)")
	cmd.Flags().IntVar(&pre, "pre-crisis-months", 0, "months before each crisis labeled pre_crisis")
	cmd.Flags().IntVar(&post, "post-crisis-months", 0, "months after each crisis labeled post_crisis")
	cmd.Flags().BoolVar(&printJSON, "json", false, "print the run report as JSON")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			return app.Serve(cmd.Context())
		},
	}
}
