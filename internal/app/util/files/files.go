package files

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// MediaFile is one discovered input file.
type MediaFile struct {
	FullPath string
	Name     string
	ModTime  time.Time
}

// VideoExtensions are the input container formats the pipeline accepts.
var VideoExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".webm", ".flv"}

// AudioExtensions are accepted as direct audio inputs, skipping extraction.
var AudioExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg"}

// FindMediaFiles lists files in inputDir whose extension matches exts,
// ordered by modification time.
func FindMediaFiles(inputDir string, exts []string) ([]MediaFile, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}

	var found []MediaFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !extSet[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, MediaFile{
			FullPath: filepath.Join(inputDir, entry.Name()),
			Name:     entry.Name(),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].ModTime.Before(found[j].ModTime)
	})
	return found, nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to path through a temp file plus rename, so a
// crash never leaves a half-written artifact at path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}

// GetProjectRoot walks up from this source file to the directory containing
// go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, _ := runtime.Caller(0)
	return findGoModRoot(filename)
}

func findGoModRoot(path string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path, nil
		}
		newPath := filepath.Dir(path)
		if newPath == path {
			return "", fmt.Errorf("go.mod not found")
		}
		path = newPath
	}
}
