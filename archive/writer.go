package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FixedTime keeps written jars byte-for-byte reproducible (1980-01-01 UTC).
var FixedTime = time.Unix(315532800, 0).UTC()

// SanitizePath normalizes entry paths: forward slashes, no drive letter,
// no leading '/', and no '.' or '..' segments escaping the root.
func SanitizePath(p string) string {
	s := filepath.ToSlash(p)
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	s = strings.TrimLeft(s, "/")
	var stack []string
	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".":
		case "..":
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	if len(stack) == 0 {
		return "entry"
	}
	return strings.Join(stack, "/")
}

// Sink receives exported files.
type Sink interface {
	WriteFile(name string, data []byte) error
	Close() error
}

// ZipSink writes entries into a new zip file.
type ZipSink struct {
	f  *os.File
	zw *zip.Writer
}

func CreateZip(path string) (*ZipSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &ZipSink{f: f, zw: zip.NewWriter(f)}, nil
}

// NewZipSink writes entries to w. Close does not close w.
func NewZipSink(w io.Writer) *ZipSink {
	return &ZipSink{zw: zip.NewWriter(w)}
}

func (s *ZipSink) WriteFile(name string, data []byte) error {
	h := &zip.FileHeader{Name: SanitizePath(name), Method: zip.Deflate}
	h.SetMode(0o644)
	h.Modified = FixedTime
	w, err := s.zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *ZipSink) Close() error {
	err := s.zw.Close()
	if s.f != nil {
		if cerr := s.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// DirSink writes entries as files below a directory.
type DirSink struct {
	Root string
}

func (s DirSink) WriteFile(name string, data []byte) error {
	path := filepath.Join(s.Root, filepath.FromSlash(SanitizePath(name)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (DirSink) Close() error { return nil }

// OpenSink picks a zip sink for paths ending in .zip or .jar and a
// directory sink otherwise.
func OpenSink(path string) (Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".jar":
		return CreateZip(path)
	}
	return DirSink{Root: path}, nil
}
