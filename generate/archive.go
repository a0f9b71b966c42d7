// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// ArchiveBuildDirs zips every subdirectory of buildDir into
// distDir/<name>.zip, one archive per subdirectory, paths inside the
// archive relative to the subdirectory. Entries are written in
// lexical walk order, so identical trees produce structurally
// identical archives.
func ArchiveBuildDirs(buildDir, distDir string, logger *slog.Logger) error {
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return fmt.Errorf("reading build dir: %w", err)
	}
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return fmt.Errorf("creating dist dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		archivePath := filepath.Join(distDir, entry.Name()+".zip")
		logger.Info("archiving", "dir", entry.Name(), "archive", archivePath)
		if err := zipDirectory(filepath.Join(buildDir, entry.Name()), archivePath); err != nil {
			return fmt.Errorf("archiving %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// zipDirectory writes a zip archive of dir's contents to archivePath.
func zipDirectory(dir, archivePath string) error {
	archive, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	writer := zip.NewWriter(archive)

	// Swap in the klauspost flate implementation for Deflate. Same
	// format, substantially faster than the stdlib compressor.
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		relative, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relative)
		header.Method = zip.Deflate

		destination, err := writer.CreateHeader(header)
		if err != nil {
			return err
		}

		source, err := os.Open(path)
		if err != nil {
			return err
		}
		defer source.Close()

		_, err = io.Copy(destination, source)
		return err
	})
	if err != nil {
		writer.Close()
		return err
	}

	if err := writer.Close(); err != nil {
		return err
	}
	return archive.Close()
}
