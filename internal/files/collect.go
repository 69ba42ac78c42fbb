// Package files turns command-line paths into packager inputs and writes
// finished artifacts back to disk.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"grayblend/internal/packager"
	"grayblend/pkg/imgutil"
)

// CollectOptions tunes Collect.
type CollectOptions struct {
	// ExcludeDir is skipped during directory walks, typically the output
	// directory when it sits inside an input tree.
	ExcludeDir string
	Logger     *slog.Logger
}

// Skipped records a walked file that was not recognised as an image.
type Skipped struct {
	Path   string
	Reason string
}

// Collect reads every path into an InputImage, in argument order.
// Directories are walked recursively in lexical order and only files with a
// known image signature are kept from them. Files named explicitly are
// always passed through so that undecodable ones surface as item failures.
func Collect(ctx context.Context, paths []string, opts CollectOptions) ([]packager.InputImage, []Skipped, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var excludeAbs string
	if opts.ExcludeDir != "" {
		if abs, err := filepath.Abs(opts.ExcludeDir); err == nil {
			excludeAbs = filepath.Clean(abs)
		}
	}

	var inputs []packager.InputImage
	var skipped []Skipped

	for _, root := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, err
		}

		if !info.IsDir() {
			in, err := readInput(root, filepath.Base(root))
			if err != nil {
				return nil, nil, err
			}
			inputs = append(inputs, in)
			continue
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, nil, err
		}

		fsys := os.DirFS(absRoot)
		err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			fullPath := filepath.Join(absRoot, path)
			if d.IsDir() {
				if excludeAbs != "" && path != "." && isWithin(fullPath, excludeAbs) {
					logger.Debug("skipping output directory", "path", fullPath)
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			kind, err := imgutil.SniffFile(fullPath)
			if err != nil && !errors.Is(err, imgutil.ErrShortHeader) {
				return err
			}
			if kind == imgutil.KindUnknown {
				skipped = append(skipped, Skipped{Path: fullPath, Reason: "not a supported image"})
				logger.Debug("skipping non-image file", "path", fullPath)
				return nil
			}

			in, err := readInput(fullPath, path)
			if err != nil {
				return err
			}
			inputs = append(inputs, in)
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return inputs, skipped, nil
}

func readInput(path, name string) (packager.InputImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return packager.InputImage{}, err
	}
	return packager.InputImage{Name: filepath.ToSlash(name), Data: data}, nil
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
