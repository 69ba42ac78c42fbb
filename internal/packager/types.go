package packager

import (
	"log/slog"
	"runtime"
)

// MIMETypePNG is the media type of every converted image.
const MIMETypePNG = "image/png"

// InputImage is one named, still-encoded upload.
type InputImage struct {
	Name string
	Data []byte
}

// ProcessedImage is a blended image re-encoded as PNG.
type ProcessedImage struct {
	Filename string
	Data     []byte
	MIMEType string
}

// Archive is the zip produced for batches with more than one input.
type Archive struct {
	Filename string
	Data     []byte
	MIMEType string
	Entries  []string
}

// ResultKind tells which variant of BatchResult is populated.
type ResultKind int

const (
	KindSingleFile ResultKind = iota + 1
	KindArchive
)

func (k ResultKind) String() string {
	switch k {
	case KindSingleFile:
		return "single"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// ItemResult records what happened to one input. Exactly one of Image and
// Err is set.
type ItemResult struct {
	Index int
	Name  string
	Image *ProcessedImage
	Err   error
}

// OK reports whether the item produced an image.
func (r ItemResult) OK() bool {
	return r.Err == nil && r.Image != nil
}

// BatchResult is either a single file (File) or an archive (Archive),
// selected by Kind. Items always lists every input's outcome in input order.
type BatchResult struct {
	Kind    ResultKind
	File    *ProcessedImage
	Archive *Archive
	Items   []ItemResult
}

// Artifact returns the deliverable regardless of the result kind.
func (b *BatchResult) Artifact() (filename string, data []byte, mimeType string) {
	switch b.Kind {
	case KindSingleFile:
		return b.File.Filename, b.File.Data, b.File.MIMEType
	case KindArchive:
		return b.Archive.Filename, b.Archive.Data, b.Archive.MIMEType
	default:
		return "", nil, ""
	}
}

// Succeeded counts items that produced an image.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, item := range b.Items {
		if item.OK() {
			n++
		}
	}
	return n
}

// Failures returns the items that did not produce an image, in input order.
func (b *BatchResult) Failures() []ItemResult {
	return failures(b.Items)
}

func failures(items []ItemResult) []ItemResult {
	var out []ItemResult
	for _, item := range items {
		if !item.OK() {
			out = append(out, item)
		}
	}
	return out
}

// Options configures a batch run.
type Options struct {
	// Intensity is the blend weight towards grayscale, 0-100.
	Intensity int
	// Workers bounds item parallelism. Zero means runtime.NumCPU(); one
	// processes items strictly in sequence.
	Workers int
	// AutoOrient rotates JPEG and TIFF inputs according to their EXIF tag.
	AutoOrient bool
	// MaxPixels rejects inputs whose declared width*height is larger, before
	// decoding. Zero means imgutil.DefaultMaxPixels.
	MaxPixels int
	// Logger receives per-item diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) workerCount(items int) int {
	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return max(1, min(workers, items))
}

// ProgressUpdate is sent after every finished item.
type ProgressUpdate struct {
	Completed int
	Failed    int
	Total     int
	// Name and Err describe the item that just finished.
	Name string
	Err  error
}

// Fraction returns Completed/Total in [0,1].
func (p ProgressUpdate) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(1, float64(p.Completed)/float64(p.Total))
}
