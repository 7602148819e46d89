package engine

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/docpreview/preview"
	"github.com/oklog/ulid/v2"
)

// FileStore keeps uploaded originals and rendered artifacts on local disk,
// named by record ULID so display names never reach the filesystem.
type FileStore struct {
	DocumentPath string
	PreviewPath  string
}

// SaveDocument writes the original document and returns its path and hash.
// The written file is verified against the hash of the uploaded bytes.
func (store *FileStore) SaveDocument(id ulid.ULID, displayName string, data []byte) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(displayName))
	if ext == "" {
		ext = ".pdf"
	}
	path := filepath.Join(store.DocumentPath, id.String()+ext)
	expectedHash := calculateHash(data)
	if err := writeAndVerifyFile(path, data, expectedHash); err != nil {
		return "", "", err
	}
	return path, expectedHash, nil
}

// SaveArtifact writes a rendered preview and returns its path
func (store *FileStore) SaveArtifact(id ulid.ULID, artifact *preview.Artifact) (string, error) {
	if artifact == nil || len(artifact.Data) == 0 {
		return "", preview.ErrEncode
	}
	path := filepath.Join(store.PreviewPath, id.String()+filepath.Ext(artifact.Name))
	if err := writeAndVerifyFile(path, artifact.Data, calculateHash(artifact.Data)); err != nil {
		return "", err
	}
	return path, nil
}

// Remove deletes stored files, ignoring ones already gone
func (store *FileStore) Remove(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := DeleteFile(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// calculateHash computes the MD5 hash of the content
func calculateHash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// calculateFileHash computes MD5 hash of a file
func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// writeAndVerifyFile writes the file and verifies the hash matches
func writeAndVerifyFile(destPath string, data []byte, expectedHash string) error {
	// Create destination directory if needed
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write destination file: %w", err)
	}

	destHash, err := calculateFileHash(destPath)
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to verify destination file: %w", err)
	}

	if destHash != expectedHash {
		os.Remove(destPath)
		return fmt.Errorf("hash mismatch after write (expected: %s, got: %s)", expectedHash, destHash)
	}
	return nil
}

// DeleteFile removes a single stored file
func DeleteFile(filePath string) error {
	if err := os.Remove(filePath); err != nil {
		if !os.IsNotExist(err) {
			Logger.Error("Unable to delete file", "path", filePath, "error", err)
		}
		return err
	}
	return nil
}
