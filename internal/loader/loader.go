// Package loader reads program images from disk, unpacking compressed
// files and archives, and works out how they should be placed in memory.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/bodgit/sevenzip"
	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

var (
	// ErrEmptyArchive indicates an archive holds no files.
	ErrEmptyArchive = errors.New("archive contains no files")

	// ErrUnsupportedFormat indicates a container format that cannot be read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format is the kind of program image.
type Format int

const (
	// FormatRaw is a plain memory image loaded at a caller chosen origin.
	FormatRaw Format = iota
	// FormatCOM is a CP/M executable loaded at 0100.
	FormatCOM
	// FormatSNA is a 48K Spectrum snapshot.
	FormatSNA
)

func (f Format) String() string {
	switch f {
	case FormatCOM:
		return "CP/M COM"
	case FormatSNA:
		return "SNA snapshot"
	default:
		return "raw"
	}
}

// Origin returns the load address the format implies, and whether it has one.
func (f Format) Origin() (uint16, bool) {
	if f == FormatCOM {
		return 0x0100, true
	}
	return 0, false
}

// DetectFormat picks the image format from a file name.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".com":
		return FormatCOM
	case ".sna":
		return FormatSNA
	default:
		return FormatRaw
	}
}

// Image is a program image read from disk.
type Image struct {
	Name   string // name of the file inside any compression or archive
	Format Format
	Data   []byte
}

// Checksum returns the xxhash of the image contents.
func (i *Image) Checksum() uint64 {
	return xxhash.Sum64(i.Data)
}

// Load reads the file at path, unpacking it if needed.
func Load(path string) (*Image, error) {
	// #nosec G304 - path is provided by the user via CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(filepath.Base(path), data)
}

// Decode unpacks data read from a file called name.
func Decode(name string, data []byte) (*Image, error) {
	ext := strings.ToLower(filepath.Ext(name))
	inner := strings.TrimSuffix(name, filepath.Ext(name))

	var (
		r   io.Reader
		err error
	)
	switch ext {
	case ".gz":
		r, err = gzip.NewReader(bytes.NewReader(data))
	case ".zst":
		var d *zstd.Decoder
		d, err = zstd.NewReader(bytes.NewReader(data))
		if err == nil {
			defer d.Close()
			r = d
		}
	case ".xz":
		r, err = xz.NewReader(bytes.NewReader(data))
	case ".lz4":
		r = lz4.NewReader(bytes.NewReader(data))
	case ".br":
		r = brotli.NewReader(bytes.NewReader(data))
	case ".zip":
		return readZip(data)
	case ".7z":
		return read7z(data)
	case ".rar", ".tar", ".tgz", ".lzh":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	default:
		return &Image{Name: name, Format: DetectFormat(name), Data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
	}
	return &Image{Name: inner, Format: DetectFormat(inner), Data: out}, nil
}

// readZip returns the first file in a zip archive.
func readZip(data []byte) (*Image, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return readEntry(f.Name, rc)
	}
	return nil, ErrEmptyArchive
}

// read7z returns the first file in a 7-Zip archive.
func read7z(data []byte) (*Image, error) {
	sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z archive: %w", err)
	}
	for _, f := range sr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return readEntry(f.Name, rc)
	}
	return nil, ErrEmptyArchive
}

func readEntry(name string, r io.Reader) (*Image, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}
	base := filepath.Base(name)
	return &Image{Name: base, Format: DetectFormat(base), Data: out}, nil
}
