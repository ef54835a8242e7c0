package archive_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/jartest"
)

func TestOpen(t *testing.T) {
	path := jartest.WriteJar(t,
		jartest.Classes(jartest.NewClass("b/B"), jartest.NewClass("a/A")),
		jartest.File{Name: "META-INF/MANIFEST.MF", Data: []byte("Manifest-Version: 1.0\n")},
	)

	a, err := archive.Open(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"a/A", "b/B"}, a.ClassNames())

	data, err := a.ReadClass("a/A")
	require.NoError(t, err)
	assert.Equal(t, jartest.NewClass("a/A").Bytes(), data)

	_, err = a.ReadClass("missing")
	assert.True(t, errors.Is(err, enigmaerr.ErrArchiveRead))

	res, err := a.Resources()
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "META-INF/MANIFEST.MF", res[0].Name)
}

func TestOpenNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jar")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := archive.Open(path)
	assert.True(t, errors.Is(err, enigmaerr.ErrArchiveRead))

	_, err = archive.FromBytes("mem", []byte("nope"))
	assert.True(t, errors.Is(err, enigmaerr.ErrArchiveRead))
}

func TestSanitizePath(t *testing.T) {
	tests := map[string]string{
		"a/b/C.java":     "a/b/C.java",
		"/abs/x":         "abs/x",
		"../../etc/pass": "etc/pass",
		"a/./b/../c":     "a/c",
		"":               "entry",
	}
	for in, want := range tests {
		assert.Equal(t, want, archive.SanitizePath(in), in)
	}
}

func TestSinks(t *testing.T) {
	var buf bytes.Buffer
	zs := archive.NewZipSink(&buf)
	require.NoError(t, zs.WriteFile("p/A.java", []byte("class A {}")))
	require.NoError(t, zs.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "p/A.java", zr.File[0].Name)
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "class A {}", string(data))

	dir := t.TempDir()
	ds, err := archive.OpenSink(dir)
	require.NoError(t, err)
	require.NoError(t, ds.WriteFile("p/B.java", []byte("class B {}")))
	got, err := os.ReadFile(filepath.Join(dir, "p", "B.java"))
	require.NoError(t, err)
	assert.Equal(t, "class B {}", string(got))
}
