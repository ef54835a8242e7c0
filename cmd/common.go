package cmd

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/caarlos0/ctrlc"
	"github.com/spf13/viper"

	"github.com/swind/go-enigma/progress"
	"github.com/swind/go-enigma/workbench"
)

// interruptible runs fn with a context canceled by Ctrl-C.
func interruptible(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ctrlc.Default.Run(ctx, func() error {
		return fn(ctx)
	}); err != nil {
		if errors.As(err, &ctrlc.ErrorCtrlC{}) {
			log.Warn("Exiting...")
		}
		return err
	}
	return nil
}

func newController() *workbench.Controller {
	return workbench.New(
		workbench.WithLogger(log.Log),
		workbench.WithWorkers(viper.GetInt("workers")),
		workbench.WithCacheSize(viper.GetInt("cache-size")))
}

// openWorkbench opens jar and, when mappings is set, the mappings file.
// Records that do not fit the jar are logged and dropped.
func openWorkbench(ctx context.Context, jar, mappings string) (*workbench.Controller, error) {
	c := newController()
	bars := progress.NewBars(os.Stderr)
	err := c.OpenJar(ctx, jar, bars)
	bars.Wait()
	if err != nil {
		return nil, err
	}
	if mappings != "" {
		report, err := c.OpenMappings(mappings)
		if err != nil {
			c.CloseJar()
			return nil, err
		}
		for _, line := range report.Lines() {
			log.WithField("mappings", mappings).Warn(line)
		}
	}
	if rl := viper.GetString("regex-list"); rl != "" {
		if err := c.OpenRegexList(rl); err != nil {
			c.CloseJar()
			return nil, err
		}
	}
	return c, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	g.Reader.Close()
	return g.f.Close()
}

// openInput opens path for reading, "-" being stdin. Files ending in .gz
// are decompressed.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipFile{Reader: zr, f: f}, nil
}
