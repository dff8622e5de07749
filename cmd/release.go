package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bimcvcovid19i/relman/internal/release"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Generate stubs, build, upload and clean up",
	Long: "Run the full release: generate type stubs, build an sdist and a wheel,\n" +
		"upload them, then delete the generated stubs and the dist and build\n" +
		"directories. Cleanup also runs when a step fails unless --keep-on-failure\n" +
		"is given.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadProject(cmd)
		if err != nil {
			return err
		}
		opts := pipelineOptions(cmd)
		opts.SkipUpload, _ = cmd.Flags().GetBool("skip-upload")
		keep, _ := cmd.Flags().GetBool("keep-on-failure")
		opts.KeepOnFailure = keep || cfg.KeepOnFailure
		opts.CleanFirst, _ = cmd.Flags().GetBool("clean-first")
		opts.AllowRepublish, _ = cmd.Flags().GetBool("allow-republish")
		if confirm, _ := cmd.Flags().GetBool("confirm"); confirm {
			opts.Confirm = confirmFunc(cmd)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		rep, runErr := newPipeline(cmd, cfg, opts, store).Run(commandContext(cmd))
		printReport(cmd.OutOrStdout(), rep)
		return runErr
	},
}

func printReport(w io.Writer, rep *release.Report) {
	if rep == nil {
		return
	}
	version := rep.Version
	if version == "" {
		version = "(unknown version)"
	}
	fmt.Fprintf(w, "\n%s %s -> %s: %s\n", rep.Package, version, rep.Repository, rep.Status)
	for _, s := range rep.Steps {
		line := fmt.Sprintf("  %-14s %-8s", s.Name, s.Status)
		if s.Status != release.StepSkipped {
			line += " " + s.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintln(w, line)
	}
	for _, a := range rep.Artifacts {
		fmt.Fprintf(w, "  artifact  %s (%s, %s)\n", a.Name, a.Kind, humanize.Bytes(uint64(a.Size)))
	}
	if n := len(rep.RemovedStubs); n > 0 {
		fmt.Fprintf(w, "  removed %d generated stub file(s)\n", n)
	}
	for _, p := range rep.RemovedPaths {
		fmt.Fprintf(w, "  removed %s\n", p)
	}
	if rep.RunID != "" {
		fmt.Fprintf(w, "run %s\n", rep.RunID)
	}
}

func init() {
	pipelineFlags(releaseCmd)
	releaseCmd.Flags().Bool("skip-upload", false, "Build and clean up without uploading")
	releaseCmd.Flags().Bool("keep-on-failure", false, "Keep stubs and build outputs when a step fails")
	releaseCmd.Flags().Bool("clean-first", false, "Remove leftover dist and build directories before starting")
	releaseCmd.Flags().Bool("allow-republish", false, "Upload even if history shows this version as published")
	releaseCmd.Flags().Bool("confirm", false, "Ask before uploading")
	releaseCmd.Flags().Int("retries", 0, "Extra upload attempts (default from relman.yaml)")
	rootCmd.AddCommand(releaseCmd)
}
