package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"grayblend/internal/files"
	"grayblend/internal/naming"
	"grayblend/internal/packager"
)

var previewCmd = &cobra.Command{
	Use:   "preview [flags] <file>",
	Short: "Render a single blended preview without packaging",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		opts := packagerOptions(cfg)
		input := packager.InputImage{Name: filepath.Base(path), Data: data}
		img, err := packager.Preview(cmd.Context(), input, opts)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return fmt.Errorf("encode preview: %w", err)
		}

		dest, err := files.WriteArtifact(cfg.Output.Dir, naming.PreviewName(input.Name, opts.Intensity), buf.Bytes())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Preview written to: %s\n", dest)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntP("intensity", "g", 100, "grayscale intensity, 0 (original) to 100 (fully gray)")
	previewCmd.Flags().StringP("output", "o", "grayblend-out", "destination folder for the preview")
	previewCmd.Flags().Bool("no-orient", false, "ignore EXIF orientation")

	rootCmd.AddCommand(previewCmd)
}
