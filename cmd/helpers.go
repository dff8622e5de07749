package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bimcvcovid19i/relman/internal/config"
	"github.com/bimcvcovid19i/relman/internal/db"
	"github.com/bimcvcovid19i/relman/internal/executor"
	"github.com/bimcvcovid19i/relman/internal/history"
	"github.com/bimcvcovid19i/relman/internal/release"
	"github.com/bimcvcovid19i/relman/internal/user"
	"github.com/bimcvcovid19i/relman/internal/utils"
)

// timeLayout matches the timestamps SQLite writes into the runs table.
const timeLayout = "2006-01-02T15:04:05.000Z"

// newRunner builds the command runner; tests replace it.
var newRunner = func(dry, verbose bool) executor.Runner {
	return executor.New(dry, verbose)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadProject reads the project configuration and applies the --package and
// --repository flags when the command defines them.
func loadProject(cmd *cobra.Command) (config.Project, error) {
	cfg, err := config.LoadProject(projectDir)
	if err != nil {
		return config.Project{}, err
	}
	if f := cmd.Flags().Lookup("package"); f != nil && f.Changed {
		cfg.SetPackage(f.Value.String())
	}
	if f := cmd.Flags().Lookup("repository"); f != nil && f.Changed {
		cfg.Repository = f.Value.String()
	}
	if f := cmd.Flags().Lookup("retries"); f != nil && f.Changed {
		n, _ := cmd.Flags().GetInt("retries")
		cfg.UploadRetries = n
	}
	return cfg, cfg.Validate()
}

func openStore() (*history.Repository, error) {
	conn, err := db.InitDB()
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return history.NewRepository(conn), nil
}

// pipelineFlags are the flags shared by every command that drives the pipeline.
func pipelineFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Print the commands without running them or deleting anything")
	cmd.Flags().Bool("force", false, "Run commands that fail the safety checks")
	cmd.Flags().String("package", "", "Package name (default from relman.yaml)")
	cmd.Flags().String("repository", "", "Repository name passed to the upload command")
}

func pipelineOptions(cmd *cobra.Command) release.Options {
	dry, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	return release.Options{
		DryRun: dry,
		Force:  force,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
}

// newPipeline builds a pipeline with the stored releaser identity and, when
// store is non-nil, run history.
func newPipeline(cmd *cobra.Command, cfg config.Project, opts release.Options, store release.Store) *release.Pipeline {
	with := []release.Option{release.WithLogger(cmdLogger(cmd))}
	if store != nil {
		with = append(with, release.WithStore(store))
	}
	if p, ok, err := user.GetProfile(); err == nil && ok {
		with = append(with, release.WithReleaser(p))
	}
	return release.New(cfg, newRunner(opts.DryRun, true), opts, with...)
}

func confirmFunc(cmd *cobra.Command) func(string) bool {
	return func(prompt string) bool {
		if !utils.IsInteractive() {
			fmt.Fprintln(cmd.ErrOrStderr(), "not a terminal; refusing to confirm upload")
			return false
		}
		return utils.ConfirmReader(prompt, cmd.InOrStdin(), cmd.OutOrStdout())
	}
}

func humanTime(ts string) string {
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}
