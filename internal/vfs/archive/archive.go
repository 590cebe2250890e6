// Package archive streams a stored subtree as a compressed tarball.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/pathutil"
)

// Format is an archive container and compression pair.
type Format string

const (
	FormatTar  Format = "tar"
	FormatGzip Format = "tar.gz"
	FormatZstd Format = "tar.zst"
)

// ParseFormat accepts the canonical names plus the common short aliases.
// The empty string selects gzip.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tar.gz", "tgz", "gz", "gzip":
		return FormatGzip, nil
	case "tar.zst", "zst", "zstd":
		return FormatZstd, nil
	case "tar":
		return FormatTar, nil
	}
	return "", fmt.Errorf("unsupported archive format %q", s)
}

// ContentType is the media type to serve the archive with.
func (f Format) ContentType() string {
	switch f {
	case FormatGzip:
		return "application/gzip"
	case FormatZstd:
		return "application/zstd"
	default:
		return "application/x-tar"
	}
}

// Filename names the archive of dir.
func Filename(dir string, f Format) string {
	name := pathutil.Base(dir)
	if name == "" {
		name = "root"
	}
	return name + "." + string(f)
}

// Tree is the part of the engine an export needs.
type Tree interface {
	Walk(ctx context.Context, dir string, fn vfs.WalkFunc) error
	ReadFile(ctx context.Context, p string) ([]byte, *objectstore.Entry, error)
}

// Stats summarizes a finished export.
type Stats struct {
	Files   int   `json:"files"`
	Folders int   `json:"folders"`
	Bytes   int64 `json:"bytes"`
}

// Export writes every file below dir to w as a tar stream in format. Member
// names are relative to dir and prefixed with its base name. Files are read
// one at a time; a failed read aborts the export and leaves the stream
// without its trailer, so a reader cannot mistake it for a complete archive.
func Export(ctx context.Context, tree Tree, dir string, w io.Writer, format Format) (Stats, error) {
	var stats Stats
	dir, err := pathutil.Normalize(dir)
	if err != nil {
		return stats, err
	}

	out := &cutoff{w: w}
	comp, err := compressor(out, format)
	if err != nil {
		return stats, err
	}
	tw := tar.NewWriter(comp)

	prefix := strings.TrimSuffix(Filename(dir, FormatTar), ".tar")
	modTime := time.Now().Truncate(time.Second)

	walkErr := tree.Walk(ctx, dir, func(ent objectstore.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := pathutil.Rel(dir, ent.Path)
		if err != nil {
			return err
		}
		name := pathutil.Join(prefix, rel)

		if ent.IsDir() {
			stats.Folders++
			return tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     0o755,
				ModTime:  modTime,
			})
		}

		data, _, err := tree.ReadFile(ctx, ent.Path)
		if err != nil {
			return err
		}
		if err := tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  modTime,
		}); err != nil {
			return err
		}
		if _, err := tw.Write(data); err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += int64(len(data))
		return nil
	})

	if walkErr != nil {
		// Release the compressor without emitting its end of stream.
		out.cut = true
		_ = comp.Close()
		return stats, walkErr
	}
	if err := tw.Close(); err != nil {
		return stats, err
	}
	return stats, comp.Close()
}

// cutoff discards everything written after cut is set.
type cutoff struct {
	w   io.Writer
	cut bool
}

func (c *cutoff) Write(p []byte) (int, error) {
	if c.cut {
		return len(p), nil
	}
	return c.w.Write(p)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func compressor(w io.Writer, f Format) (io.WriteCloser, error) {
	switch f {
	case FormatGzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	case FormatZstd:
		return zstd.NewWriter(w)
	case FormatTar:
		return nopCloser{w}, nil
	}
	return nil, fmt.Errorf("unsupported archive format %q", f)
}
