package convert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
)

const keySeparator = "|"

// WriteMatches prints m one group per line, tab separated:
//
//	MATCHED	p/A	q/A
//	AMBIGUOUS	p/B|p/C	q/B|q/C
//	UNMATCHED	p/D
//	UNMATCHED		q/E
func WriteMatches[E entry.Entry](w io.Writer, m *Matches[E]) error {
	bw := bufio.NewWriter(w)
	for _, p := range m.Matched() {
		fmt.Fprintf(bw, "%s\t%s\t%s\n", Matched, entry.Key(p.Source), entry.Key(p.Dest))
	}
	for _, g := range m.Ambiguous() {
		fmt.Fprintf(bw, "%s\t%s\t%s\n", Ambiguous, joinKeys(g.Source), joinKeys(g.Dest))
	}
	for _, e := range m.UnmatchedSource() {
		fmt.Fprintf(bw, "%s\t%s\t\n", Unmatched, entry.Key(e))
	}
	for _, e := range m.UnmatchedDest() {
		fmt.Fprintf(bw, "%s\t\t%s\n", Unmatched, entry.Key(e))
	}
	return bw.Flush()
}

func joinKeys[E entry.Entry](list []E) string {
	keys := make([]string, len(list))
	for i, e := range list {
		keys[i] = entry.Key(e)
	}
	return strings.Join(keys, keySeparator)
}

// ReadMatches parses a match file. Key lists are split on the literal '|'.
// Failures are returned as *enigmaerr.LineError of kind ErrMatchFile.
func ReadMatches[E entry.Entry](r io.Reader) (*Matches[E], error) {
	m := NewMatches[E]()
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "want 3 tab separated fields, got %d", len(fields))
		}
		for len(fields) < 3 {
			fields = append(fields, "")
		}

		source, err := parseKeys[E](fields[1])
		if err != nil {
			return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "source: %w", err)
		}
		dest, err := parseKeys[E](fields[2])
		if err != nil {
			return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "dest: %w", err)
		}
		for side, list := range [][]E{source, dest} {
			for _, e := range list {
				key := fmt.Sprint(side, entry.Key(e))
				if seen[key] {
					return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "%s listed twice", e)
				}
				seen[key] = true
			}
		}

		switch fields[0] {
		case Matched.String():
			if len(source) != 1 || len(dest) != 1 {
				return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "a match pairs one source with one dest")
			}
		case Ambiguous.String():
			if len(source) == 0 || len(dest) == 0 || len(source) == 1 && len(dest) == 1 {
				return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "an ambiguous group needs several candidates")
			}
		case Unmatched.String():
			if (len(source) == 0) == (len(dest) == 0) {
				return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "an unmatched line lists one side only")
			}
		default:
			return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber, "unknown bucket %q", fields[0])
		}
		m.Add(source, dest)
	}
	if err := scanner.Err(); err != nil {
		return nil, enigmaerr.AtLine(enigmaerr.ErrMatchFile, lineNumber+1, "%w", err)
	}
	return m, nil
}

func parseKeys[E entry.Entry](field string) ([]E, error) {
	var out []E
	for _, key := range strings.Split(field, keySeparator) {
		if key == "" {
			continue
		}
		parsed, err := entry.ParseKey(key)
		if err != nil {
			return nil, err
		}
		e, ok := parsed.(E)
		if !ok {
			return nil, fmt.Errorf("%q is a %s key", key, parsed.Kind())
		}
		out = append(out, e)
	}
	return out, nil
}

// Files names the three match files kept next to a mappings file.
type Files struct {
	Classes   string
	Fields    string
	Behaviors string
}

// FilesFor returns the match files of the mappings file at path.
func FilesFor(path string) Files {
	return Files{
		Classes:   path + ".class.matches",
		Fields:    path + ".field.matches",
		Behaviors: path + ".method.matches",
	}
}

func readFile[E entry.Entry](path string) (*Matches[E], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadMatches[E](f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

func writeFile[E entry.Entry](path string, m *Matches[E]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteMatches(f, m); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Read loads the tables that exist. The class table is required; missing
// member tables are left nil.
func (f Files) Read() (Tables, error) {
	var t Tables
	var err error
	if t.Classes, err = readFile[entry.ClassEntry](f.Classes); err != nil {
		return Tables{}, err
	}
	if t.Fields, err = readFile[entry.FieldEntry](f.Fields); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Tables{}, err
	}
	if t.Behaviors, err = readFile[entry.BehaviorEntry](f.Behaviors); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Tables{}, err
	}
	return t, nil
}

// Write saves the non nil tables of t.
func (f Files) Write(t Tables) error {
	if t.Classes != nil {
		if err := writeFile(f.Classes, t.Classes); err != nil {
			return err
		}
	}
	if t.Fields != nil {
		if err := writeFile(f.Fields, t.Fields); err != nil {
			return err
		}
	}
	if t.Behaviors != nil {
		if err := writeFile(f.Behaviors, t.Behaviors); err != nil {
			return err
		}
	}
	return nil
}
