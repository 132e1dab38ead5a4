package volume

import (
	"context"
	"fmt"
	"path/filepath"
)

// volumeCopierImage is the throwaway image used for tar-based volume
// backup/restore/size operations, matching the image class the package
// manager's own backupVolume uses for the same purpose.
const volumeCopierImage = "alpine:3.20"

// Backup streams name's file tree into a gzip-compressed tar file at
// dstArchive using a throwaway container, per the same shape as the
// package manager's export-time volume backup (spec §4.9 step 4).
func (c *Cloner) Backup(ctx context.Context, name, dstArchive string) error {
	hostDir := filepath.Dir(dstArchive)
	archiveName := filepath.Base(dstArchive)
	return c.rt.RunOneShot(ctx, volumeCopierImage,
		[]string{"sh", "-c", "tar czf /out/" + archiveName + " -C /src ."},
		[]string{name + ":/src:ro", hostDir + ":/out"})
}

// Restore extracts a gzip-compressed tar archive into volume name,
// creating the volume first if it does not already exist.
func (c *Cloner) Restore(ctx context.Context, name, srcArchive string) error {
	if _, err := c.rt.VolumeCreate(ctx, name); err != nil {
		return err
	}
	hostDir := filepath.Dir(srcArchive)
	archiveName := filepath.Base(srcArchive)
	return c.rt.RunOneShot(ctx, volumeCopierImage,
		[]string{"sh", "-c", "tar xzf /in/" + archiveName + " -C /dst"},
		[]string{name + ":/dst", hostDir + ":/in:ro"})
}

// Size reports a volume's on-disk footprint in bytes, via a throwaway
// container running `du`.
func (c *Cloner) Size(ctx context.Context, name string) (int64, error) {
	var nBytes int64
	err := c.rt.RunOneShotCapture(ctx, volumeCopierImage,
		[]string{"du", "-sb", "/src"},
		[]string{name + ":/src:ro"},
		func(line string) {
			var n int64
			var path string
			if _, scanErr := fmt.Sscan(line, &n, &path); scanErr == nil {
				nBytes = n
			}
		})
	return nBytes, err
}

// Clean removes volume name's contents without removing the volume
// itself, via a throwaway container.
func (c *Cloner) Clean(ctx context.Context, name string) error {
	return c.rt.RunOneShot(ctx, volumeCopierImage,
		[]string{"sh", "-c", "rm -rf /src/* /src/.[!.]*"},
		[]string{name + ":/src"})
}
