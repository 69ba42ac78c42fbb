// Package packager runs a batch of uploads through decode, blend and PNG
// encode, then packages the outcome as a single file or a zip archive.
//
// Items are independent: a failure to decode or encode one input is recorded
// on its ItemResult and the rest of the batch carries on. Only a batch where
// nothing succeeds is an error.
package packager

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"grayblend/internal/archive"
	"grayblend/internal/blend"
	"grayblend/internal/naming"
	"grayblend/internal/orient"
	"grayblend/pkg/imgutil"
)

type job struct {
	index int
	input InputImage
}

// encode is swapped in tests to simulate encoder failures.
var encode = encodePNG

// Run converts inputs at opts.Intensity. A batch with exactly one input
// yields KindSingleFile; larger batches yield KindArchive holding every
// successful item in input order. updates, when non-nil, receives one
// ProgressUpdate per finished item; Run never closes it.
//
// Run returns ErrInvalidIntensity before doing any work, an *EmptyBatchError
// when nothing could be converted, and ctx.Err() when cancelled.
func Run(ctx context.Context, inputs []InputImage, opts Options, updates chan<- ProgressUpdate) (*BatchResult, error) {
	if err := blend.ValidateIntensity(opts.Intensity); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &EmptyBatchError{}
	}

	logger := opts.logger()
	total := len(inputs)
	workers := opts.workerCount(total)
	logger.Debug("batch started", "stage", StageIdle.String(), "items", total, "workers", workers, "intensity", opts.Intensity)
	start := time.Now()

	jobs := make(chan job)
	results := make(chan ItemResult)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- job{index: i, input: in}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		g.Go(func() error {
			defer wg.Done()
			return worker(gctx, jobs, results, opts, logger)
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// items is the ordered accumulator: each slot is written once, by index,
	// from this goroutine only.
	items := make([]ItemResult, total)
	completed, failed := 0, 0
	for res := range results {
		items[res.Index] = res
		completed++
		if res.Err != nil {
			failed++
			logger.Warn("image skipped", "name", res.Name, "index", res.Index, "error", res.Err)
		}
		notify(ctx, updates, ProgressUpdate{
			Completed: completed,
			Failed:    failed,
			Total:     total,
			Name:      res.Name,
			Err:       res.Err,
		})
	}

	if err := g.Wait(); err != nil {
		logger.Info("batch cancelled", "completed", completed, "items", total, "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("aggregating results", "stage", StageAggregating.String(), "succeeded", completed-failed, "failed", failed)
	result, err := aggregate(items, opts.Intensity)
	if err != nil {
		return nil, err
	}

	logger.Info("batch finished",
		"stage", StageDone.String(),
		"kind", result.Kind.String(),
		"items", total,
		"succeeded", completed-failed,
		"failed", failed,
		"duration", time.Since(start),
	)
	return result, nil
}

func worker(ctx context.Context, jobs <-chan job, results chan<- ItemResult, opts Options, logger *slog.Logger) error {
	for j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		results <- process(j, opts, logger)
	}
	return nil
}

func process(j job, opts Options, logger *slog.Logger) ItemResult {
	res := ItemResult{Index: j.index, Name: j.input.Name}
	log := logger.With("name", j.input.Name, "index", j.index)

	log.Debug("item stage", "stage", StageDecoding.String())
	img, err := decode(j.input.Data, opts, log)
	if err != nil {
		res.Err = &ItemError{Op: OpDecode, Name: j.input.Name, Err: err}
		return res
	}

	log.Debug("item stage", "stage", StageBlending.String())
	blended := blend.Blend(img, opts.Intensity)

	log.Debug("item stage", "stage", StageEncoding.String())
	data, err := encode(blended)
	if err != nil {
		res.Err = &ItemError{Op: OpEncode, Name: j.input.Name, Err: err}
		return res
	}

	res.Image = &ProcessedImage{
		Filename: naming.OutputName(j.input.Name, opts.Intensity),
		Data:     data,
		MIMEType: MIMETypePNG,
	}
	return res
}

// decode reads data by content signature. With AutoOrient set, JPEG and
// TIFF inputs are turned upright; an unreadable EXIF block is not an error.
func decode(data []byte, opts Options, log *slog.Logger) (image.Image, error) {
	img, kind, err := imgutil.Decode(data, opts.MaxPixels)
	if err != nil {
		return nil, err
	}
	if !opts.AutoOrient || !kind.HasExif() {
		return img, nil
	}

	o, err := orient.Read(data)
	if err != nil {
		log.Debug("ignoring exif orientation", "error", err)
		return img, nil
	}
	return orient.Apply(img, o), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// aggregate resolves name collisions in input order and picks the output shape.
func aggregate(items []ItemResult, intensity int) (*BatchResult, error) {
	resolver := naming.NewCollisionResolver()
	var entries []archive.Entry
	for i := range items {
		if !items[i].OK() {
			continue
		}
		img := items[i].Image
		img.Filename = resolver.Resolve(img.Filename)
		entries = append(entries, archive.Entry{Name: img.Filename, Data: img.Data})
	}

	if len(entries) == 0 {
		return nil, &EmptyBatchError{Total: len(items), Failures: failures(items)}
	}

	result := &BatchResult{Items: items}
	if len(items) == 1 {
		result.Kind = KindSingleFile
		result.File = items[0].Image
		return result, nil
	}

	data, err := archive.Build(entries, time.Now())
	if err != nil {
		return nil, fmt.Errorf("build archive: %w", err)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	result.Kind = KindArchive
	result.Archive = &Archive{
		Filename: naming.ArchiveName(intensity),
		Data:     data,
		MIMEType: archive.MIMEType,
		Entries:  names,
	}
	return result, nil
}

func notify(ctx context.Context, updates chan<- ProgressUpdate, u ProgressUpdate) {
	if updates == nil {
		return
	}
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}
