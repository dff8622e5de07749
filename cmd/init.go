package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bimcvcovid19i/relman/internal/config"
	"github.com/bimcvcovid19i/relman/internal/nameutil"
	"github.com/bimcvcovid19i/relman/internal/project"
	"github.com/bimcvcovid19i/relman/internal/utils"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a relman.yaml for the project",
	Long: "Write relman.yaml with the default release commands. The package name is\n" +
		"taken from --package, pyproject.toml or setup.py, in that order.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := filepath.Abs(projectDir)
		if err != nil {
			return err
		}
		path := filepath.Join(root, config.ProjectFile)
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		cfg := config.DefaultProject(root)
		pkg, _ := cmd.Flags().GetString("package")
		if pkg == "" {
			if md, err := project.Load(root, ""); err == nil && md.Name != "" {
				pkg = nameutil.FilenameForm(md.Name)
			}
		}
		if pkg == "" && utils.IsInteractive() {
			pkg = utils.PromptReader("Package", cfg.Package, cmd.InOrStdin(), cmd.OutOrStdout())
		}
		if pkg != "" {
			cfg.Package = pkg
		}
		if err := nameutil.ValidateName(cfg.Package); err != nil {
			return err
		}
		cfg.PackageDir = cfg.Package
		if repo, _ := cmd.Flags().GetString("repository"); repo != "" {
			cfg.Repository = repo
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (package %s, repository %s)\n", path, cfg.Package, cfg.Repository)

		if edit, _ := cmd.Flags().GetBool("edit"); edit {
			return utils.OpenEditor(path)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("package", "", "Package name")
	initCmd.Flags().String("repository", "", "Repository name passed to the upload command")
	initCmd.Flags().Bool("force", false, "Overwrite an existing relman.yaml")
	initCmd.Flags().Bool("edit", false, "Open the written file in $EDITOR")
	rootCmd.AddCommand(initCmd)
}
