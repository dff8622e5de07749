package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var stubsCmd = &cobra.Command{
	Use:   "stubs",
	Short: "Generate type stubs for the package",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadProject(cmd)
		if err != nil {
			return err
		}
		p := newPipeline(cmd, cfg, pipelineOptions(cmd), nil)
		if err := p.GenerateStubs(commandContext(cmd)); err != nil {
			return err
		}
		st, err := p.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d stub file(s) under %s\n", len(st.Stubs), cfg.PackageDir)
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the sdist and wheel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadProject(cmd)
		if err != nil {
			return err
		}
		arts, err := newPipeline(cmd, cfg, pipelineOptions(cmd), nil).Build(commandContext(cmd))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, a := range arts {
			fmt.Fprintf(out, "%s\t%s\t%s\tsha256:%s\n", a.Name, a.Kind, humanize.Bytes(uint64(a.Size)), a.SHA256)
		}
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload everything in the distribution directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadProject(cmd)
		if err != nil {
			return err
		}
		opts := pipelineOptions(cmd)
		if confirm, _ := cmd.Flags().GetBool("confirm"); confirm {
			opts.Confirm = confirmFunc(cmd)
		}
		arts, err := newPipeline(cmd, cfg, opts, nil).Upload(commandContext(cmd))
		if err != nil {
			return err
		}
		if !opts.DryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d file(s) to %s\n", len(arts), cfg.Repository)
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the dist and build directories",
	Long: "Remove the distribution and build directories and any extra_clean paths.\n" +
		"With --stubs also remove every .pyi file under the package directory\n" +
		"except those matching keep_stubs in relman.yaml.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadProject(cmd)
		if err != nil {
			return err
		}
		opts := pipelineOptions(cmd)
		p := newPipeline(cmd, cfg, opts, nil)
		out := cmd.OutOrStdout()
		verb := "removed"
		if opts.DryRun {
			verb = "would remove"
		}

		if stubs, _ := cmd.Flags().GetBool("stubs"); stubs {
			removed, err := p.CleanStubs()
			for _, s := range removed {
				rel, _ := filepath.Rel(cfg.Root, s)
				fmt.Fprintf(out, "%s %s\n", verb, rel)
			}
			if err != nil {
				return err
			}
		}
		removed, err := p.CleanOutputs()
		for _, r := range removed {
			fmt.Fprintf(out, "%s %s\n", verb, r)
		}
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{stubsCmd, buildCmd, uploadCmd, cleanCmd} {
		pipelineFlags(c)
		rootCmd.AddCommand(c)
	}
	uploadCmd.Flags().Bool("confirm", false, "Ask before uploading")
	uploadCmd.Flags().Int("retries", 0, "Extra upload attempts (default from relman.yaml)")
	cleanCmd.Flags().Bool("stubs", false, "Also remove stub files under the package directory (keep_stubs matches are kept)")
}
