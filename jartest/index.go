package jartest

import (
	"context"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/swind/go-enigma/archive"
	"github.com/swind/go-enigma/jarindex"
)

// Quiet is a logger for tests that expect warnings.
var Quiet = &log.Logger{Handler: discard.Default, Level: log.DebugLevel}

// Archive opens the classes as an in-memory jar.
func Archive(t testing.TB, classes ...*ClassBuilder) *archive.Archive {
	t.Helper()
	a, err := archive.FromBytes("test.jar", Jar(classes))
	if err != nil {
		t.Fatalf("open jar: %v", err)
	}
	return a
}

// Index builds the index of the classes.
func Index(t testing.TB, classes ...*ClassBuilder) *jarindex.Index {
	t.Helper()
	x, err := jarindex.Build(context.Background(), Archive(t, classes...), jarindex.WithLogger(Quiet))
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return x
}
