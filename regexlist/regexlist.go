// Package regexlist rewrites decompiled source with a list of regular
// expression replacements.
//
// A list file holds one rule per line, tab separated, in one of two forms:
//
//	PATTERN	REPLACEMENT
//	TARGETS	PATTERN	REPLACEMENT
//
// TARGETS is "*" or a '|' separated list of class names; rules without
// targets apply to every class. Replacements use $1 for groups.
package regexlist

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/emirpasic/gods/sets/hashset"

	"github.com/swind/go-enigma/enigmaerr"
)

// Entry is one rule of a list.
type Entry struct {
	targets     *hashset.Set // nil matches every class
	regex       *regexp.Regexp
	replacement string
}

// NewEntry compiles a rule. No targets means every class.
func NewEntry(targets []string, pattern, replacement string) (*Entry, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e := &Entry{regex: re, replacement: expandable(replacement)}
	if len(targets) > 0 {
		e.targets = hashset.New()
		for _, t := range targets {
			e.targets.Add(normalize(t))
		}
	}
	return e, nil
}

func normalize(class string) string {
	return strings.ReplaceAll(class, ".", "/")
}

// expandable rewrites $n group references to ${n} so a digit run ends the
// group number, and \$ to a literal dollar.
func expandable(replacement string) string {
	var sb strings.Builder
	for i := 0; i < len(replacement); i++ {
		c := replacement[i]
		switch {
		case c == '\\' && i+1 < len(replacement):
			i++
			if replacement[i] == '$' {
				sb.WriteString("$$")
			} else {
				sb.WriteByte(replacement[i])
			}
		case c == '$' && i+1 < len(replacement) && isDigit(replacement[i+1]):
			sb.WriteString("${")
			sb.WriteByte(replacement[i+1])
			i++
			sb.WriteByte('}')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// IsTarget reports whether the rule applies to the class. Names may use
// '.' or '/'.
func (e *Entry) IsTarget(class string) bool {
	if e.targets == nil {
		return true
	}
	return e.targets.Contains(normalize(class))
}

func (e *Entry) ReplaceAll(content string) string {
	return e.regex.ReplaceAllString(content, e.replacement)
}

// List is an ordered set of rules.
type List []*Entry

// Apply runs every rule that targets class over content, in order.
func (l List) Apply(class, content string) string {
	for _, e := range l {
		if e.IsTarget(class) {
			content = e.ReplaceAll(content)
		}
	}
	return content
}

// Read parses a list. Bad lines fail with a *enigmaerr.LineError of kind
// ErrRegexSyntax.
func Read(r io.Reader) (List, error) {
	var list List
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		data := strings.Split(line, "\t")
		var targets []string
		switch len(data) {
		case 2:
		case 3:
			if data[0] != "*" {
				for _, t := range strings.Split(data[0], "|") {
					if t = strings.TrimSpace(t); t != "" {
						targets = append(targets, t)
					}
				}
				if len(targets) == 0 {
					return nil, enigmaerr.AtLine(enigmaerr.ErrRegexSyntax, lineNumber, "no target classes")
				}
			}
			data = data[1:]
		default:
			return nil, enigmaerr.AtLine(enigmaerr.ErrRegexSyntax, lineNumber, "want 2 or 3 tab separated fields, got %d", len(data))
		}
		e, err := NewEntry(targets, data[0], data[1])
		if err != nil {
			return nil, enigmaerr.AtLine(enigmaerr.ErrRegexSyntax, lineNumber, "%w", err)
		}
		list = append(list, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, enigmaerr.AtLine(enigmaerr.ErrRegexSyntax, lineNumber+1, "%w", err)
	}
	return list, nil
}

// ReadFile reads the list at path.
func ReadFile(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Builtin undoes the generic casts decompilers insert around erased
// types. It runs before any user list.
var Builtin = List{
	// (List<String>)Lists.newArrayList() -> Lists.<String>newArrayList()
	mustEntry(`\((?:\w+)\<((?:\w{2,}(?:\<(?:\w+|\?(?: extends \w+)?|, )+\>|(?:\[\])+|)|, |\.)+)\>\)(\w+)\.(\w+)`, "$2.<$1>$3"),
	// (Map<String, T>)Maps.newHashMap() -> Maps.newHashMap(), T being a
	// type variable the decompiler lost
	mustEntry(`\((?:\w+)\<(?:[A-Z\?]|[A-Z\?], \w+|\w+, [A-Z\?]|[A-Z\?], [A-Z\?])>\)((?:\w|\.|\(\))+)`, "$1"),
	// new Qt<Object>(1.0) -> new Qt(1.0)
	mustEntry(`(new (?:\w|\.)+)\<Object\>(\(.+\))`, "$1$2"),
}

func mustEntry(pattern, replacement string) *Entry {
	e, err := NewEntry(nil, pattern, replacement)
	if err != nil {
		panic(err)
	}
	return e
}
