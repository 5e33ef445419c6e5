package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sitebuilder-backend/internal/preview"
	"sitebuilder-backend/internal/storage"
)

var renderOutput string

var renderCmd = &cobra.Command{
	Use:   "render <project-dir>",
	Short: "Render the preview document of a project directory",
	Long: `Reads every file under a project directory and prints the reconstructed
preview document, the same one served by /api/projects/:projectId/preview.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		store := storage.NewDiskStorage(filepath.Dir(dir))
		files, err := store.LoadProject(context.Background(), filepath.Base(dir))
		if err != nil {
			return fmt.Errorf("load %s: %w", dir, err)
		}

		doc := preview.NewReconstructor(preview.Options{FrameworkURL: cfg.Preview.FrameworkURL}).Render(files)
		if renderOutput == "" {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), doc)
			return err
		}
		return os.WriteFile(renderOutput, []byte(doc), 0644)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "write the document to a file instead of stdout")
}
