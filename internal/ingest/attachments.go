package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRetention is how long saved attachments are kept by Prune.
const DefaultRetention = 7 * 24 * time.Hour

var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")

// SanitizeFilename makes an attachment filename safe to use inside the
// attachments directory.
func SanitizeFilename(name string) string {
	name = filenameReplacer.Replace(strings.TrimSpace(name))
	if name == "" {
		return "attachment"
	}
	return name
}

// saveAttachment writes data under dir and returns the path. The name
// carries the time, the message id and the attachment position, so
// same-named attachments of different messages never share a file.
func saveAttachment(dir, msgID string, n int, filename string, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create attachments directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%d_%s",
		now.Format("20060102_150405"), SanitizeFilename(msgID), n, SanitizeFilename(filename))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to save attachment: %w", err)
	}
	return path, nil
}

// Prune removes regular files in dir last modified before now minus
// olderThan and returns how many were removed. A missing directory is not
// an error.
func Prune(dir string, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read attachments directory: %w", err)
	}

	cutoff := now.Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
