package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/logger"
	"sheet-compiler/internal/pipeline"
)

// RootCmd builds the command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sheet-compiler",
		Short:         "Compile, compare and export tables from a declarative config",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(RunCmd())

	return root
}

type runFlags struct {
	config   string
	profile  string
	output   string
	envFile  string
	logLevel string
	logJSON  bool
}

// RunCmd runs the full pipeline for one config.
func RunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load sources, compile targets, compare pairs and write workbooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init(&logger.Config{
				Level:  logger.ParseLevel(f.logLevel),
				Output: cmd.ErrOrStderr(),
				JSON:   f.logJSON,
			})

			req := pipeline.Request{ConfigPath: f.config, Profile: f.profile, EnvFile: f.envFile}

			if f.output != "" {
				dir, err := filepath.Abs(f.output)
				if err != nil {
					return fmt.Errorf("bad --output: %w", err)
				}

				req.Output = config.Output{Dir: dir}
			}

			res, err := pipeline.New().Run(req)
			if err != nil {
				return err
			}

			for _, path := range res.Written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.config, "config", "c", "", "Path to the pipeline config (JSON or YAML)")
	flags.StringVarP(&f.profile, "profile", "p", "", "Profile overlay from profiles/<name>.json next to the config")
	flags.StringVarP(&f.output, "output", "o", "", "Output directory, overriding output.dir")
	flags.StringVar(&f.envFile, "env-file", "", "Dotenv file with variables for ${VAR} interpolation")
	flags.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.BoolVar(&f.logJSON, "log-json", false, "Log as JSON")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}
