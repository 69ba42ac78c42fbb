package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"grayblend/internal/files"
	"grayblend/internal/packager"
	"grayblend/internal/tui"
)

var convertNoTUI bool

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <path>...",
	Short: "Blend images towards grayscale and write a PNG or zip",
	Long: `Convert files or directories. Directories are walked recursively and
only files that look like images are picked up.

One input produces <name>_G<intensity>.PNG; more inputs produce
Grayscale_Level_<intensity>_Images.zip. Images that cannot be decoded are
skipped and reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		inputs, skipped, err := files.Collect(ctx, args, files.CollectOptions{
			ExcludeDir: cfg.Output.Dir,
			Logger:     slog.Default(),
		})
		if err != nil {
			return err
		}

		opts := packagerOptions(cfg)
		out := cmd.OutOrStdout()

		var result *packager.BatchResult
		if convertNoTUI || len(inputs) == 0 {
			result, err = packager.Run(ctx, inputs, opts, nil)
		} else {
			// Sized so Run never blocks if the UI exits early.
			updates := make(chan packager.ProgressUpdate, len(inputs))
			program := tea.NewProgram(tui.NewModel(updates, cancel, len(inputs), opts.Intensity), tea.WithOutput(out))

			uiDone := make(chan struct{})
			go func() {
				_, _ = program.Run()
				close(uiDone)
			}()

			result, err = packager.Run(ctx, inputs, opts, updates)
			close(updates)
			<-uiDone
		}
		if err != nil {
			var empty *packager.EmptyBatchError
			if errors.As(err, &empty) {
				printFailures(out, empty.Failures)
			}
			return err
		}

		filename, data, _ := result.Artifact()
		path, err := files.WriteArtifact(cfg.Output.Dir, filename, data)
		if err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		if abs, absErr := filepath.Abs(path); absErr == nil {
			path = abs
		}

		failures := result.Failures()
		rows := []tui.SummaryRow{
			{Label: "Images found", Value: strconv.Itoa(len(inputs))},
			{Label: "Converted", Value: strconv.Itoa(result.Succeeded()), Tone: tui.ToneGood},
			{Label: "Failed", Value: strconv.Itoa(len(failures)), Tone: failTone(len(failures))},
		}
		if len(skipped) > 0 {
			rows = append(rows, tui.SummaryRow{Label: "Non-image files ignored", Value: strconv.Itoa(len(skipped))})
		}
		rows = append(rows,
			tui.SummaryRow{Label: "Intensity", Value: fmt.Sprintf("G%d", opts.Intensity)},
			tui.SummaryRow{Label: "Written to", Value: path},
		)
		fmt.Fprintln(out, tui.RenderSummary(rows))
		printFailures(out, failures)
		return nil
	},
}

func failTone(n int) tui.Tone {
	if n > 0 {
		return tui.ToneWarn
	}
	return tui.ToneNormal
}

func printFailures(w io.Writer, items []packager.ItemResult) {
	if len(items) == 0 {
		return
	}
	rows := make([]tui.FailedItem, 0, len(items))
	for _, item := range items {
		reason := "unknown error"
		if item.Err != nil {
			reason = item.Err.Error()
		}
		rows = append(rows, tui.FailedItem{Name: item.Name, Reason: reason})
	}
	fmt.Fprintln(w, tui.RenderFailures(rows))
}

func init() {
	convertCmd.Flags().IntP("intensity", "g", 100, "grayscale intensity, 0 (original) to 100 (fully gray)")
	convertCmd.Flags().StringP("output", "o", "grayblend-out", "destination folder for the PNG or zip")
	convertCmd.Flags().Int("workers", 0, "parallel workers (0 = one per CPU)")
	convertCmd.Flags().Bool("no-orient", false, "ignore EXIF orientation")
	convertCmd.Flags().BoolVar(&convertNoTUI, "no-tui", false, "disable the progress view")

	rootCmd.AddCommand(convertCmd)
}
