package cmd

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/entry"
)

func TestOpenInputGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("\tat a.a(SourceFile:1)\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	in, err := openInput(path)
	require.NoError(t, err)
	defer in.Close()
	data, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "\tat a.a(SourceFile:1)\n", string(data))
}

func TestMatchFiles(t *testing.T) {
	t.Cleanup(func() { viper.Set("convert.matches-dir", "") })

	assert.Equal(t, "maps/game.mappings.class.matches", matchFiles("maps/game.mappings").Classes)

	viper.Set("convert.matches-dir", "work")
	files := matchFiles("maps/game.mappings")
	assert.Equal(t, filepath.Join("work", "game.mappings.method.matches"), files.Behaviors)
}

func TestReadMappingsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo.Bar -> a:\n    int count -> b\n"), 0o644))

	s, err := readMappings(path, "proguard")
	require.NoError(t, err)
	name, ok := s.ClassName(entry.NewClassEntry("a"))
	require.True(t, ok)
	assert.Equal(t, "foo/Bar", name)

	_, err = readMappings(path, "srg")
	assert.Error(t, err)
}
