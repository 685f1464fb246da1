// Copyright (C) 2025 IAMVanilka
// Mnemy - game save backup client
// SPDX-License-Identifier: GPL-3.0-or-later

// package archive handles the file-level half of a sync: hashing a save
// directory into a manifest that the server compares against its own state,
// and streaming save files as tar.gz archives in both directions.
package archive

import (
	"archive/tar"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Manifest maps a file path, relative to the save directory and
// slash-separated, to the hex MD5 digest of its contents. MD5 here is a
// change detector matching the server's manifest format, not a security
// boundary.
type Manifest map[string]string

// BuildManifest walks baseDir and hashes every regular file.
func BuildManifest(baseDir string) (Manifest, error) {
	m := Manifest{}
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		sum, err := hashFile(path)
		if err != nil {
			return err
		}
		m[filepath.ToSlash(rel)] = sum
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Pack streams the given files (paths relative to baseDir) as a tar.gz
// archive. The returned reader produces the archive incrementally so an
// upload never materializes it on disk or in memory. The reader reports any
// packing error on Read/Close.
func Pack(baseDir string, relPaths []string) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		gz, _ := gzip.NewWriterLevel(pw, 6)
		tw := tar.NewWriter(gz)

		var werr error
		for _, rel := range relPaths {
			if werr = addFile(tw, baseDir, rel); werr != nil {
				break
			}
		}
		if cerr := tw.Close(); werr == nil {
			werr = cerr
		}
		if cerr := gz.Close(); werr == nil {
			werr = cerr
		}
		pw.CloseWithError(werr)
	}()

	return pr
}

func addFile(tw *tar.Writer, baseDir, rel string) error {
	path := filepath.Join(baseDir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A file may vanish between manifest and pack (games write saves
			// at odd times). Skip it; the next sync picks it up.
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = io.Copy(tw, f)
	return err
}

// Unpack extracts a tar.gz stream into destDir. The destination is wiped
// and recreated first: a download replaces local state wholesale, matching
// the sync protocol. Entries that would escape destDir are rejected.
func Unpack(r io.Reader, destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("could not clear save directory %s: %w", destDir, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("could not create save directory %s: %w", destDir, err)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("invalid archive stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		target, err := sanitizePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Symlinks and other special entries have no business in a save
			// archive.
			continue
		}
	}
}

func sanitizePath(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("archive entry escapes target directory: %q", name)
	}
	return filepath.Join(destDir, cleaned), nil
}

func writeFile(target string, r io.Reader, mode fs.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
