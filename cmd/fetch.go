package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bimcvcovid19i/relman/internal/checksum"
	"github.com/bimcvcovid19i/relman/internal/config"
	"github.com/bimcvcovid19i/relman/internal/fetch"
)

// newRemote builds the WebDAV client; tests replace it.
var newRemote = func(m config.Mirror) fetch.Remote {
	return fetch.NewRemote(m)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [mirror]",
	Short: "Download a dataset mirror over WebDAV",
	Long: "Download every file of a WebDAV share into <dest>/original, verifying\n" +
		"each against the share's sha1sums.txt. Files already present and matching\n" +
		"are skipped. Mirrors are configured in relman.yaml; 'positive' and\n" +
		"'negative' are built in. --url fetches an unconfigured share.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadProject(projectDir)
		if err != nil {
			return err
		}
		m, err := resolveMirror(cmd, cfg, args)
		if err != nil {
			return err
		}
		dest, _ := cmd.Flags().GetString("dest")
		retries, _ := cmd.Flags().GetUint("retries")

		d := fetch.New(newRemote(m), cmdLogger(cmd))
		d.Retries = retries
		sum, err := d.DownloadAll(commandContext(cmd), dest)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d file(s), %s in %s\n", len(sum.Downloaded), humanize.Bytes(uint64(sum.Bytes)), sum.Dir)
		for _, n := range sum.Mismatched {
			fmt.Fprintf(out, "  checksum mismatch  %s\n", n)
		}
		for _, n := range sum.NotDownloaded {
			fmt.Fprintf(out, "  not downloaded     %s\n", n)
		}
		if err != nil {
			return err
		}
		if len(sum.Mismatched) > 0 {
			return fmt.Errorf("%d file(s) failed checksum verification", len(sum.Mismatched))
		}
		return nil
	},
}

func resolveMirror(cmd *cobra.Command, cfg config.Project, args []string) (config.Mirror, error) {
	var m config.Mirror
	if len(args) == 1 {
		var ok bool
		if m, ok = cfg.Mirrors[args[0]]; !ok {
			names := make([]string, 0, len(cfg.Mirrors))
			for n := range cfg.Mirrors {
				names = append(names, n)
			}
			sort.Strings(names)
			return m, fmt.Errorf("unknown mirror %q (configured: %s)", args[0], strings.Join(names, ", "))
		}
	}
	if f := cmd.Flags().Lookup("url"); f.Changed {
		m.URL = f.Value.String()
	}
	if f := cmd.Flags().Lookup("login"); f.Changed {
		m.Login = f.Value.String()
	}
	if f := cmd.Flags().Lookup("password"); f.Changed {
		m.Password = f.Value.String()
	}
	if m.URL == "" {
		return m, errors.New("name a mirror or pass --url")
	}
	return m, nil
}

var verifyCmd = &cobra.Command{
	Use:   "verify <dir>",
	Short: "Check the files in a directory against its sha1sums.txt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		sumsPath, _ := cmd.Flags().GetString("sums")
		if sumsPath == "" {
			sumsPath = filepath.Join(dir, checksum.FileName)
		}
		sep, _ := cmd.Flags().GetString("sep")

		sums, err := checksum.Read(sumsPath, sep)
		if err != nil {
			return err
		}
		res, err := checksum.Verify(dir, sums)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			for _, n := range res.OK {
				fmt.Fprintf(out, "OK        %s\n", n)
			}
		}
		for _, n := range res.Mismatched {
			fmt.Fprintf(out, "MISMATCH  %s\n", n)
		}
		for _, n := range res.Missing {
			fmt.Fprintf(out, "MISSING   %s\n", n)
		}
		fmt.Fprintf(out, "%d ok, %d mismatched, %d missing\n", len(res.OK), len(res.Mismatched), len(res.Missing))
		if !res.Clean() {
			return errors.New("verification failed")
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("dest", ".", "Download root; files go to <dest>/original")
	fetchCmd.Flags().Uint("retries", 2, "Extra attempts per file")
	fetchCmd.Flags().String("url", "", "WebDAV URL (overrides the mirror's)")
	fetchCmd.Flags().String("login", "", "WebDAV login (overrides the mirror's)")
	fetchCmd.Flags().String("password", "", "WebDAV password (overrides the mirror's)")
	verifyCmd.Flags().String("sums", "", "Checksum file (default <dir>/sha1sums.txt)")
	verifyCmd.Flags().String("sep", "", "Field separator in the checksum file (default any whitespace)")
	verifyCmd.Flags().BoolP("verbose", "v", false, "Also list files that verified")
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(verifyCmd)
}
