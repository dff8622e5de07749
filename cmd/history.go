package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded release runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pkg, _ := cmd.Flags().GetString("package")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		runs, err := store.ListRuns(pkg, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "no recorded runs")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tPACKAGE\tVERSION\tREPOSITORY\tSTATUS\tSTARTED\tBY")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				shortID(r.ID), r.Package, orDash(r.Version.String), r.Repository, r.Status,
				humanTime(r.StartedAt), orDash(r.ReleaserName.String))
		}
		return tw.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the steps and artifacts of a recorded run",
	Long:  "Show a recorded run. The run ID may be abbreviated to any unique prefix.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		r, err := store.GetRun(args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("run not found: %s", args[0])
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run:        %s\n", r.ID)
		fmt.Fprintf(out, "package:    %s %s\n", r.Package, orDash(r.Version.String))
		fmt.Fprintf(out, "repository: %s\n", r.Repository)
		fmt.Fprintf(out, "status:     %s\n", r.Status)
		fmt.Fprintf(out, "started:    %s (%s)\n", r.StartedAt, humanTime(r.StartedAt))
		if r.FinishedAt.Valid {
			fmt.Fprintf(out, "finished:   %s\n", r.FinishedAt.String)
		}
		if r.ReleaserName.Valid || r.ReleaserEmail.Valid {
			fmt.Fprintf(out, "releaser:   %s <%s>\n", r.ReleaserName.String, r.ReleaserEmail.String)
		}
		if r.Error.Valid {
			fmt.Fprintf(out, "error:      %s\n", r.Error.String)
		}

		if len(r.Steps) > 0 {
			fmt.Fprintln(out, "\nsteps:")
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, s := range r.Steps {
				fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", s.Position, s.Name, s.Status,
					s.Duration.Round(time.Millisecond), s.Error.String)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		if len(r.Artifacts) > 0 {
			fmt.Fprintln(out, "\nartifacts:")
			for _, a := range r.Artifacts {
				fmt.Fprintf(out, "  %s (%s, %s)\n    sha256 %s\n    sha1   %s\n",
					a.Filename, a.Kind, humanize.Bytes(uint64(a.Size)), a.SHA256, a.SHA1)
			}
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write recorded runs to a standalone database file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, _ := cmd.Flags().GetString("package")
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		n, err := store.Export(args[0], pkg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d run(s) to %s\n", n, args[0])
		return nil
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge runs from a database written by 'history export'",
	Long:  "Merge runs from a database written by 'history export', e.g. one produced\nby a CI job. Runs already recorded are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		n, err := store.Import(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d run(s)\n", n)
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	historyCmd.Flags().String("package", "", "Only list runs of this package")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 for all)")
	historyExportCmd.Flags().String("package", "", "Only export runs of this package")
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyImportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
}
