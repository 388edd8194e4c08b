// Package backup archives and restores a database directory as a single
// zstd-compressed tar stream. It operates purely on the files written by
// pkg/storage and pkg/relation (BinData/, dm_save.bin, tables.sv) — it
// never touches a live page store, so the caller must flush buffers and
// save the catalog before calling Snapshot.
package backup

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Extension is the suffix every snapshot file carries.
const Extension = ".sgbdbak"

// Snapshot walks dbpath and writes every file into a zstd-compressed tar
// archive at {destDir}/sgbd-{timestamp}.sgbdbak, returning its path.
func Snapshot(dbpath, destDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("backup: failed to create %s: %w", destDir, err)
	}

	name := fmt.Sprintf("sgbd-%s%s", now.UTC().Format("20060102T150405Z"), Extension)
	path := filepath.Join(destDir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("backup: failed to create %s: %w", path, err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return "", fmt.Errorf("backup: failed to create zstd encoder: %w", err)
	}
	defer enc.Close()

	tw := tar.NewWriter(enc)
	defer tw.Close()

	err = filepath.Walk(dbpath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dbpath, p)
		if err != nil {
			return err
		}
		return addFileToTar(tw, p, rel, info)
	})
	if err != nil {
		return "", fmt.Errorf("backup: failed to archive %s: %w", dbpath, err)
	}

	return path, nil
}

func addFileToTar(tw *tar.Writer, srcPath, archivePath string, info os.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(archivePath)

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

// Restore unpacks a snapshot produced by Snapshot into destDir, which
// must not already contain a database (it is the caller's
// responsibility to pick an empty or new directory).
func Restore(snapshotPath, destDir string) error {
	in, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: failed to open %s: %w", snapshotPath, err)
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("backup: failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("backup: failed to create %s: %w", destDir, err)
	}

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("backup: failed to read tar entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		out.Close()
	}
}
