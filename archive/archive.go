// Package archive gives read access to the class files of a jar.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/swind/go-enigma/enigmaerr"
)

const classSuffix = ".class"

// Archive is an open jar. The underlying file stays open until Close and
// all reads are safe for concurrent use.
type Archive struct {
	Path    string
	zr      *zip.Reader
	closer  io.Closer
	classes map[string]*zip.File
	names   []string
}

// Open opens the jar at path.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, enigmaerr.ErrArchiveRead, err)
	}
	a := newArchive(path, &rc.Reader)
	a.closer = rc
	return a, nil
}

// FromBytes reads a jar held in memory.
func FromBytes(name string, data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", name, enigmaerr.ErrArchiveRead, err)
	}
	return newArchive(name, zr), nil
}

func newArchive(path string, zr *zip.Reader) *Archive {
	a := &Archive{Path: path, zr: zr, classes: make(map[string]*zip.File)}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, classSuffix) {
			continue
		}
		name := strings.TrimSuffix(f.Name, classSuffix)
		if _, dup := a.classes[name]; dup {
			continue
		}
		a.classes[name] = f
		a.names = append(a.names, name)
	}
	sort.Strings(a.names)
	return a
}

// ClassNames lists the internal names of all class entries, sorted.
func (a *Archive) ClassNames() []string {
	return a.names
}

// ReadClass returns the bytes of the class with the given internal name.
func (a *Archive) ReadClass(name string) ([]byte, error) {
	f, ok := a.classes[name]
	if !ok {
		return nil, fmt.Errorf("%s: no such class in %s: %w", name, a.Path, enigmaerr.ErrArchiveRead)
	}
	return readFile(f)
}

// Entry is a non-class file of the jar.
type Entry struct {
	Name string
	Data []byte
}

// Resources returns every entry that is not a class file, in archive order.
func (a *Archive) Resources() ([]Entry, error) {
	var out []Entry
	for _, f := range a.zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, classSuffix) {
			continue
		}
		data, err := readFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Name: f.Name, Data: data})
	}
	return out, nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", f.Name, enigmaerr.ErrArchiveRead, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", f.Name, enigmaerr.ErrArchiveRead, err)
	}
	return data, nil
}

func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
