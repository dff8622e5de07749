package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bimcvcovid19i/relman/internal/project"
)

// errTreeNotClean is returned by status --check.
var errTreeNotClean = errors.New("working tree has release leftovers")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show leftover stubs and build outputs and the last published version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadProject(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "project:    %s\n", cfg.Root)
		fmt.Fprintf(out, "package:    %s (%s)\n", cfg.Package, cfg.PackageDir)
		if md, err := project.Load(cfg.Root, cfg.PackageDir); err == nil && md.Version != "" {
			fmt.Fprintf(out, "version:    %s (from %s)\n", md.Version, md.VersionSource)
		} else {
			fmt.Fprintln(out, "version:    unknown")
		}
		fmt.Fprintf(out, "repository: %s\n", cfg.Repository)

		if store, err := openStore(); err == nil {
			last, err := store.LastPublished(cfg.Package, cfg.Repository)
			_ = store.Close()
			if err == nil && last != "" {
				fmt.Fprintf(out, "published:  %s\n", last)
			} else {
				fmt.Fprintln(out, "published:  never")
			}
		}

		st, err := newPipeline(cmd, cfg, pipelineOptions(cmd), nil).Status()
		if err != nil {
			return err
		}
		if st.Clean() {
			fmt.Fprintln(out, "tree:       clean")
			return nil
		}
		fmt.Fprintln(out, "tree:       leftovers")
		for _, s := range st.Stubs {
			rel, _ := filepath.Rel(cfg.Root, s)
			fmt.Fprintf(out, "  stub      %s\n", rel)
		}
		for _, o := range st.Outputs {
			fmt.Fprintf(out, "  output    %s\n", o)
		}
		for _, a := range st.Artifacts {
			fmt.Fprintf(out, "  artifact  %s\n", a.Name)
		}
		if check, _ := cmd.Flags().GetBool("check"); check {
			return errTreeNotClean
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("check", false, "Exit non-zero when leftovers are found")
	statusCmd.Flags().String("package", "", "Package name (default from relman.yaml)")
	statusCmd.Flags().String("repository", "", "Repository name")
	rootCmd.AddCommand(statusCmd)
}
