package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HashBytes returns the hex-encoded SHA256 of content.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// WriteFileVerified writes content to dst through a temporary file in the same
// directory, then re-reads the result and compares SHA256 + size before the
// final rename. The temporary file is removed on any failure.
func WriteFileVerified(dst string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return err
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		cleanup()
		return fmt.Errorf("verify written file: %w", err)
	}
	if len(written) != len(content) {
		cleanup()
		return fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(content), len(written))
	}
	want := sha256.Sum256(content)
	got := sha256.Sum256(written)
	if !bytes.Equal(want[:], got[:]) {
		cleanup()
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return err
	}
	return nil
}

// DetectMimeType guesses the media type of a document from its extension,
// falling back to content sniffing. Parameters such as charset are stripped.
func DetectMimeType(path string, content []byte) string {
	if ext := strings.ToLower(filepath.Ext(path)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return stripParams(byExt)
		}
	}
	if len(content) == 0 {
		return "application/octet-stream"
	}
	return stripParams(http.DetectContentType(content))
}

func stripParams(mediaType string) string {
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return strings.TrimSpace(mediaType)
}
