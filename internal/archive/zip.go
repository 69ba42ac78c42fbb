// Package archive packs converted images into a deflate-compressed zip.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

// MIMEType is the media type of archives built by this package.
const MIMEType = "application/zip"

// Entry is one file stored in the archive.
type Entry struct {
	Name string
	Data []byte
}

// Write streams entries, in order, into w as a zip archive.
func Write(w io.Writer, entries []Entry, modified time.Time) error {
	zw := zip.NewWriter(w)

	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("write %s: %w", e.Name, err)
		}
	}

	return zw.Close()
}

// Build returns the archive bytes for entries. On failure nothing is
// returned; a partially written archive never leaves this function.
func Build(entries []Entry, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, entries, modified); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// List returns the entry names of a zip archive in stored order.
func List(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}
