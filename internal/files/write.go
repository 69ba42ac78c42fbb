package files

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact writes data to dir/name through a temporary file in the same
// directory, so readers never observe a half-written artifact. It returns
// the destination path.
func WriteArtifact(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	destPath := filepath.Join(dir, filepath.Base(name))

	tmpFile, err := os.CreateTemp(dir, "grayblend-*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return "", err
	}
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := replaceFile(tmpFile.Name(), destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
