package pkgmanager

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// bundleDir tars and gzips every file under srcDir into a single archive
// at dstFile, preserving relative paths. Streams directly to a file on
// disk instead of an in-memory buffer, since package archives (volume
// backups especially) can be large.
func bundleDir(srcDir, dstFile string) error {
	out, err := os.Create(dstFile)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryPackage, "ARCHIVE_CREATE", "failed to create %s", dstFile)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}

// extractTarOverlay extracts a plain (uncompressed) tar file at srcFile
// into dstDir, overlaying its contents. Used for the `code/<B>.tar`
// payload, which `git archive` produces without compression.
func extractTarOverlay(srcFile, dstDir string) error {
	f, err := os.Open(srcFile)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryIntegrity, dterrors.CodeTruncatedArchive,
			"failed to open %s", srcFile)
	}
	defer f.Close()
	return extractTarReader(tar.NewReader(f), dstDir, srcFile)
}

// extractArchive extracts a tar.gz archive at srcFile into dstDir,
// creating dstDir if necessary. Used both for whole-package extraction
// (import) and for a single `volumes/<V>.tar.gz` payload.
func extractArchive(srcFile, dstDir string) error {
	f, err := os.Open(srcFile)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryIntegrity, dterrors.CodeTruncatedArchive,
			"failed to open %s", srcFile)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryIntegrity, dterrors.CodeTruncatedArchive,
			"failed to decompress %s", srcFile)
	}
	defer gr.Close()

	return extractTarReader(tar.NewReader(gr), dstDir, srcFile)
}

// extractTarReader walks tr's entries into dstDir, shared by extractArchive
// (gzip-compressed) and extractTarOverlay (plain tar).
func extractTarReader(tr *tar.Reader, dstDir, srcFile string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return dterrors.Wrapf(err, dterrors.CategoryIntegrity, dterrors.CodeTruncatedArchive,
				"failed to read archive entries from %s", srcFile)
		}

		target := filepath.Join(dstDir, header.Name)
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			w, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			_, cerr := io.Copy(w, tr)
			w.Close()
			if cerr != nil {
				return cerr
			}
		}
	}
}
