package deobf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/apex/log"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/progress"
)

// FixNames gives every field and class of the jar a readable default
// name: fields become fieldN, inner classes ClassN and top-level classes
// get a capital first letter, with a number when the name is a single
// letter. Entries a name cannot be given to are skipped. The whole batch
// is one edit; on cancellation nothing is published.
func (d *Deobfuscator) FixNames(ctx context.Context, l progress.Listener) (renamed int, err error) {
	l = progress.OrNop(l)
	err = d.edit("fix", func(e *editor) (bool, error) {
		try := func(obf entry.Entry, name string) error {
			if name == obfSimpleName(obf) {
				return nil
			}
			err := e.rename(obf, name)
			switch {
			case err == nil:
				renamed++
			case errors.Is(err, enigmaerr.ErrInvalidName), errors.Is(err, enigmaerr.ErrDuplicateName), errors.Is(err, enigmaerr.ErrNonRenameable):
				d.logger.WithError(err).WithField("entry", obf.String()).Debug("skipping")
			default:
				return err
			}
			return nil
		}

		var fields []entry.FieldEntry
		for _, c := range d.index.Classes() {
			fields = append(fields, d.index.Fields(c)...)
		}
		counter := progress.NewCounter(l, len(fields), "Fixing field names")
		for i, f := range fields {
			if err := progress.Check(ctx, l); err != nil {
				return false, err
			}
			name := fmt.Sprintf("field%d", i+1)
			if err := try(f, name); err != nil {
				return false, err
			}
			counter.Step(name)
		}

		classes := d.index.Classes()
		counter = progress.NewCounter(l, len(classes), "Fixing class names")
		n := 0
		for _, c := range classes {
			if err := progress.Check(ctx, l); err != nil {
				return false, err
			}
			var name string
			if c.IsInner() {
				n++
				name = fmt.Sprintf("Class%d", n)
			} else {
				name = capitalized(c, &n)
			}
			if err := try(c, name); err != nil {
				return false, err
			}
			counter.Step(name)
		}
		return renamed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	d.logger.WithFields(log.Fields{"renamed": renamed}).Info("fixed names")
	return renamed, nil
}

// capitalized upper-cases the first letter of the simple name of a
// top-level class. One letter names take the next number of n instead of
// their remainder.
func capitalized(c entry.ClassEntry, n *int) string {
	simple := c.SimpleName()
	first, size := utf8.DecodeRuneInString(simple)
	rest := simple[size:]
	if utf8.RuneCountInString(simple) == 1 {
		*n++
		rest = fmt.Sprint(*n)
	}
	var sb strings.Builder
	if pkg := c.Package(); pkg != "" {
		sb.WriteString(pkg)
		sb.WriteByte('/')
	}
	sb.WriteRune(unicode.ToUpper(first))
	sb.WriteString(rest)
	return sb.String()
}
