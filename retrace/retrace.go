// Package retrace deobfuscates Java stack traces with the names of a
// mapping store, the way ProGuard's retrace does.
package retrace

import (
	"bufio"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// For example: "com.example.Foo.bar"
const expressionClassMethod = `%c\.%m`

// For example:
// "(Foo.java:123:0) ~[0]"
// "()(Foo.java:123:0)"     (unknown origin, possibly Sentry)
// or no source line info   (Sentry)
const expressionSourceLine = `(?:\(\))?(?:\((?:%s)?(?::?%l)?(?::\d+)?\))?\s*(?:~\[.*\])?`

// For example: "at o.afc.b + 45(:45)", found in crashlytics traces.
const expressionOptionalSourceLineInfo = `(?:\+\s+[0-9]+)?`

// For example: "    at com.example.Foo.bar(Foo.java:123:0) ~[0]"
const expressionAt = `.*?\bat\s+` + expressionClassMethod + `\s*` + expressionOptionalSourceLineInfo + expressionSourceLine

// For example: "java.lang.ClassCastException: com.example.Foo cannot be cast to com.example.Bar"
// A line holds a single class, so the longer unobfuscated name is avoided.
const (
	expressionCast1 = `.*?\bjava\.lang\.ClassCastException: %c cannot be cast to .{5,}`
	expressionCast2 = `.*?\bjava\.lang\.ClassCastException: .* cannot be cast to %c`
)

// For example: "java.lang.NullPointerException: Attempt to read from field 'java.lang.String com.example.Foo.bar' on a null object reference"
const expressionNullFieldRead = `.*?\bjava\.lang\.NullPointerException: Attempt to read from field '%t %c\.%f' on a null object reference`

// For example: "java.lang.NullPointerException: Attempt to write to field 'java.lang.String com.example.Foo.bar' on a null object reference"
const expressionNullFieldWrite = `.*?\bjava\.lang\.NullPointerException: Attempt to write to field '%t %c\.%f' on a null object reference`

// For example: "java.lang.NullPointerException: Attempt to invoke virtual method 'void com.example.Foo.bar(int,boolean)' on a null object reference"
const expressionNullMethod = `.*?\bjava\.lang\.NullPointerException: Attempt to invoke (?:virtual|interface) method '%t %c\.%m\(%a\)' on a null object reference`

// For example: "Something: com.example.FooException: something"
const expressionThrow = `(?:.*?[:"]\s+)?%c(?::.*)?`

// For example: java.lang.NullPointerException: Cannot invoke "com.example.Foo.bar.foo(int)" because the return value of "com.example.Foo.bar.foo2()" is null
const (
	expressionReturnValueNull1 = `.*?\bjava\.lang\.NullPointerException: Cannot invoke \".*\" because the return value of \"%c\.%m\(%a\)\" is null`
	expressionReturnValueNull2 = `.*?\bjava\.lang\.NullPointerException: Cannot invoke \"%c\.%m\(%a\)\" because the return value of \".*\" is null`
)

// For example: Cannot invoke "java.net.ServerSocket.close()" because "com.example.Foo.bar" is null
const expressionBecauseIsNull = `.*?\bbecause \"%c\.%f\" is null`

// LineExpression matches one line of a stack trace.
const LineExpression = "(?:" + expressionAt + ")|" +
	"(?:" + expressionCast1 + ")|" +
	"(?:" + expressionCast2 + ")|" +
	"(?:" + expressionNullFieldRead + ")|" +
	"(?:" + expressionNullFieldWrite + ")|" +
	"(?:" + expressionNullMethod + ")|" +
	"(?:" + expressionReturnValueNull1 + ")|" +
	"(?:" + expressionBecauseIsNull + ")|" +
	"(?:" + expressionThrow + ")"

// SecondExpression runs over the output of LineExpression: Java 16 helpful
// NullPointerException messages name two methods on one line.
const SecondExpression = "(?:" + expressionReturnValueNull2 + ")"

type Option func(*Retrace)

// WithAllClassNames also deobfuscates class names outside of frames.
func WithAllClassNames() Option {
	return func(r *Retrace) { r.allClassNames = true }
}

// WithVerbose prints full method signatures.
func WithVerbose() Option {
	return func(r *Retrace) { r.verbose = true }
}

type Retrace struct {
	mapper        *FrameRemapper
	allClassNames bool
	verbose       bool
	patterns      []*FramePattern
}

func New(mapper *FrameRemapper, opts ...Option) *Retrace {
	r := &Retrace{mapper: mapper}
	for _, opt := range opts {
		opt(r)
	}
	r.patterns = []*FramePattern{
		NewFramePattern(LineExpression, r.verbose),
		NewFramePattern(SecondExpression, r.verbose),
	}
	return r
}

// Retrace copies the trace from reader to writer with every frame
// deobfuscated.
func (r *Retrace) Retrace(reader io.Reader, writer io.Writer) error {
	w := bufio.NewWriter(writer)
	br := bufio.NewReader(reader)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			text, newline := strings.CutSuffix(line, "\n")
			lines := r.handle(r.patterns[0], text, r.allClassNames)
			for _, p := range r.patterns[1:] {
				var next []string
				for _, l := range lines {
					next = append(next, r.handle(p, l, false)...)
				}
				lines = next
			}
			out := strings.Join(lines, "\n")
			if newline {
				out += "\n"
			}
			if _, err := w.WriteString(out); err != nil {
				return err
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

// handle returns the retraced alternatives of line. Ambiguous
// alternatives of a frame without a line number have their common start
// blanked out.
func (r *Retrace) handle(pattern *FramePattern, line string, allClassNames bool) []string {
	obf, ok := pattern.Parse(line)
	if !ok {
		if allClassNames {
			return []string{r.Deobfuscate(line)}
		}
		return []string{line}
	}

	var out []string
	previous := ""
	for i, frame := range r.mapper.Transform(obf) {
		retraced := pattern.Format(line, frame)
		trimmed := retraced
		if i > 0 && obf.LineNumber == 0 {
			trimmed = Trim(retraced, previous)
		}
		if allClassNames {
			trimmed = r.Deobfuscate(trimmed)
		}
		out = append(out, trimmed)
		previous = retraced
	}
	return out
}

// Trim returns s with the leading characters it shares with previous
// replaced by spaces.
func Trim(s, previous string) string {
	end := FirstNonCommonIndex(s, previous)
	return strings.Repeat(" ", end) + s[end:]
}

func FirstNonCommonIndex(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}

func deobfuscateFieldsFunc(c rune) bool {
	return unicode.IsSpace(c) ||
		c == '(' || c == ')' ||
		c == '<' || c == '>' ||
		c == '[' || c == ']' ||
		c == '{' || c == '}' ||
		c == ';' || c == ':' || c == ',' ||
		c == '\'' || c == '"' ||
		c == '/' || c == '\\'
}

// Deobfuscate renames every word of line that is a mapped class name.
func (r *Retrace) Deobfuscate(line string) string {
	var b strings.Builder
	for _, token := range FieldsFuncWithDelims(line, deobfuscateFieldsFunc) {
		if first, size := utf8.DecodeRuneInString(token); size == len(token) && deobfuscateFieldsFunc(first) {
			b.WriteString(token)
			continue
		}
		b.WriteString(r.mapper.OriginalClassName(token))
	}
	return b.String()
}
