package retrace

import (
	"regexp"
	"strconv"
	"strings"
)

// Reference: https://github.com/Guardsquare/proguard/blob/0344c58b3d43799ce203737eea3fd1b58ca701ad/retrace/src/proguard/retrace/FramePattern.java

const (
	regexClass      = `(?:[^\s\":./()]+\.)*[^\s":./()]+`
	regexClassSlash = `(?:[^\s\":./()]+/)*[^\s":./()]+`
	regexSourceFile = `(?:[^:()\d][^:()]*)?`
	regexLineNumber = `-?\b\d+\b`
	regexMember     = `<?[^\s\":./()]+>?`
	regexType       = regexClass + `(?:\[\])*`
	regexArguments  = `(?:` + regexType + `(?:\s*,\s*` + regexType + `)*)?`
)

// groups maps a placeholder letter to the expression it stands for.
var groups = map[byte]string{
	'c': regexClass,
	'C': regexClassSlash,
	's': regexSourceFile,
	'l': regexLineNumber,
	't': regexType,
	'f': regexMember,
	'm': regexMember,
	'a': regexArguments,
}

// FramePattern parses and formats lines that match an expression with
// placeholders: %c class, %C slashed class, %s source file, %l line
// number, %t type, %f field, %m method, %a arguments. The expression must
// match the whole line.
type FramePattern struct {
	kinds   []byte // kinds[i] is the placeholder of group i+1
	pattern *regexp.Regexp
	verbose bool
}

func NewFramePattern(expression string, verbose bool) *FramePattern {
	var b strings.Builder
	var kinds []byte
	for {
		i := strings.IndexByte(expression, '%')
		if i < 0 || i == len(expression)-1 {
			break
		}
		b.WriteString(expression[:i])
		kind := expression[i+1]
		b.WriteString("(" + groups[kind] + ")")
		kinds = append(kinds, kind)
		expression = expression[i+2:]
	}
	b.WriteString(expression)

	return &FramePattern{
		kinds:   kinds,
		pattern: regexp.MustCompile("^(?:" + b.String() + ")$"),
		verbose: verbose,
	}
}

// Parse reads the frame of line. ok is false when line is not a frame.
func (f *FramePattern) Parse(line string) (info FrameInfo, ok bool) {
	results := f.pattern.FindStringSubmatch(line)
	if results == nil {
		return FrameInfo{}, false
	}
	for i, kind := range f.kinds {
		result := results[i+1]
		if len(result) == 0 {
			continue
		}
		switch kind {
		case 'c':
			info.ClassName = result
		case 'C':
			info.ClassName = strings.ReplaceAll(result, "/", ".")
		case 's':
			info.SourceFile = result
		case 'l':
			n, err := strconv.Atoi(result)
			if err != nil {
				n = -1
			}
			info.LineNumber = n
		case 't':
			info.Type = result
		case 'f':
			info.FieldName = result
		case 'm':
			info.MethodName = result
		case 'a':
			info.Arguments = result
		}
	}
	return info, true
}

// Format rewrites the frame parts of line with info and keeps the rest.
func (f *FramePattern) Format(line string, info FrameInfo) string {
	loc := f.pattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return line
	}
	var b strings.Builder
	last := 0
	for i, kind := range f.kinds {
		start, end := loc[2*(i+1)], loc[2*(i+1)+1]
		if start < 0 {
			continue
		}
		b.WriteString(line[last:start])
		switch kind {
		case 'c':
			b.WriteString(info.ClassName)
		case 'C':
			b.WriteString(strings.ReplaceAll(info.ClassName, ".", "/"))
		case 's':
			b.WriteString(info.SourceFile)
		case 'l':
			b.WriteString(strconv.Itoa(info.LineNumber))
		case 't':
			b.WriteString(info.Type)
		case 'f':
			if f.verbose {
				b.WriteString(info.Type + " ")
			}
			b.WriteString(info.FieldName)
		case 'm':
			if f.verbose {
				b.WriteString(info.Type + " ")
			}
			b.WriteString(info.MethodName)
			if f.verbose {
				b.WriteString("(" + info.Arguments + ")")
			}
		case 'a':
			b.WriteString(info.Arguments)
		}
		last = end
	}
	b.WriteString(line[last:])
	return b.String()
}
