package jartest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// File is a raw jar entry.
type File struct {
	Name string
	Data []byte
}

// Jar zips the classes, each under its internal name plus ".class",
// followed by any extra files.
func Jar(classes []*ClassBuilder, extra ...File) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(data); err != nil {
			panic(err)
		}
	}
	for _, c := range classes {
		write(c.name+".class", c.Bytes())
	}
	for _, f := range extra {
		write(f.Name, f.Data)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Classes is shorthand for a slice literal.
func Classes(c ...*ClassBuilder) []*ClassBuilder { return c }

// WriteJar stores a jar in a temporary directory and returns its path.
func WriteJar(t testing.TB, classes []*ClassBuilder, extra ...File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jar")
	if err := os.WriteFile(path, Jar(classes, extra...), 0o644); err != nil {
		t.Fatalf("write jar: %v", err)
	}
	return path
}
