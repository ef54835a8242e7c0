package retrace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/mapping"
)

// MappingProcessor receives the records of a ProGuard mapping file.
// Class names are dotted and types are Java source types; "new" names are
// the obfuscated ones.
type MappingProcessor interface {
	// ProcessClassMapping reports whether the members of the class are
	// wanted.
	ProcessClassMapping(className, newClassName string) bool

	ProcessFieldMapping(className, fieldType, fieldName, newClassName, newFieldName string)

	// Line numbers are 0 when unknown.
	ProcessMethodMapping(
		className string,
		firstLineNumber, lastLineNumber int,
		methodReturnType, methodName, methodArguments string,
		newClassName string,
		newFirstLineNumber, newLastLineNumber int,
		newMethodName string)
}

// MappingReader pumps a ProGuard or R8 mapping.txt into a processor.
type MappingReader struct {
	fileReader io.Reader
}

func NewMappingReader(fileReader io.Reader) *MappingReader {
	return &MappingReader{fileReader: fileReader}
}

func indexFrom(s, sub string, position int) int {
	if position < 0 || position > len(s) {
		return -1
	}
	i := strings.Index(s[position:], sub)
	if i < 0 {
		return i
	}
	return position + i
}

// Pump reads every record. Malformed member lines fail with a
// *enigmaerr.LineError of kind ErrMappingParse.
func (r *MappingReader) Pump(processor MappingProcessor) error {
	var className, newClassName string

	scanner := bufio.NewScanner(r.fileReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") {
			className, newClassName = r.processClassMapping(line, processor)
		} else if len(className) > 0 {
			if err := r.processClassMemberMapping(className, newClassName, line, processor); err != nil {
				return enigmaerr.AtLine(enigmaerr.ErrMappingParse, lineNumber, "%w", err)
			}
		}
	}
	return scanner.Err()
}

// processClassMapping parses "___ -> ___:" and returns both names, or
// empty names when the members of the class are not wanted.
func (r *MappingReader) processClassMapping(line string, processor MappingProcessor) (string, string) {
	arrowIndex := indexFrom(line, "->", 0)
	if arrowIndex < 0 {
		return "", ""
	}
	colonIndex := indexFrom(line, ":", arrowIndex+2)
	if colonIndex < 0 {
		return "", ""
	}

	className := strings.TrimSpace(line[:arrowIndex])
	newClassName := strings.TrimSpace(line[arrowIndex+2 : colonIndex])
	if !processor.ProcessClassMapping(className, newClassName) {
		return "", ""
	}
	return className, newClassName
}

// processClassMemberMapping parses one of
//
//	___ ___ -> ___
//	___:___:___ ___(___) -> ___
//	___:___:___ ___(___):___ -> ___
//	___:___:___ ___(___):___:___ -> ___
//
// holding the optional obfuscated line numbers, the type, the original
// name (possibly qualified by the class it was inlined from), the
// arguments, the optional original line numbers and the new name.
func (r *MappingReader) processClassMemberMapping(className, newClassName, line string, processor MappingProcessor) error {
	var (
		colonIndex1, colonIndex2    = -1, -1
		colonIndex3, colonIndex4    = -1, -1
		argumentIndex1, argumentEnd = -1, -1
	)

	colonIndex1 = indexFrom(line, ":", 0)
	if colonIndex1 >= 0 {
		colonIndex2 = indexFrom(line, ":", colonIndex1+1)
	}

	spaceIndex := indexFrom(line, " ", colonIndex2+2)
	cursor := spaceIndex

	argumentIndex1 = indexFrom(line, "(", spaceIndex+1)
	if argumentIndex1 >= 0 {
		argumentEnd = indexFrom(line, ")", argumentIndex1+1)
	}
	if argumentEnd >= 0 {
		cursor = argumentEnd
		colonIndex3 = indexFrom(line, ":", argumentEnd+1)
	}
	if colonIndex3 >= 0 {
		cursor = colonIndex3
		colonIndex4 = indexFrom(line, ":", colonIndex3+1)
	}
	if colonIndex4 >= 0 {
		cursor = colonIndex4
	}

	arrowIndex := indexFrom(line, "->", cursor+1)
	if spaceIndex < 0 || arrowIndex < 0 {
		return errors.New("want a type, a name and '->'")
	}

	memberType := strings.TrimSpace(line[colonIndex2+1 : spaceIndex])
	nameEnd := arrowIndex
	if argumentIndex1 >= 0 {
		nameEnd = argumentIndex1
	}
	memberName := strings.TrimSpace(line[spaceIndex+1 : nameEnd])
	newMemberName := strings.TrimSpace(line[arrowIndex+2:])

	if dot := strings.LastIndex(memberName, "."); dot >= 0 {
		className = memberName[:dot]
		memberName = memberName[dot+1:]
	}

	if len(memberType) == 0 || len(memberName) == 0 || len(newMemberName) == 0 {
		return nil
	}
	if argumentEnd < 0 {
		processor.ProcessFieldMapping(className, memberType, memberName, newClassName, newMemberName)
		return nil
	}

	atoi := func(s string) (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("line number %q: %w", s, err)
		}
		return n, nil
	}
	var firstLineNumber, lastLineNumber, newFirstLineNumber, newLastLineNumber int
	var err error
	if colonIndex2 >= 0 {
		if newFirstLineNumber, err = atoi(line[:colonIndex1]); err != nil {
			return err
		}
		if newLastLineNumber, err = atoi(line[colonIndex1+1 : colonIndex2]); err != nil {
			return err
		}
		firstLineNumber, lastLineNumber = newFirstLineNumber, newLastLineNumber
	}
	if colonIndex3 >= 0 {
		end := arrowIndex
		if colonIndex4 > 0 {
			end = colonIndex4
		}
		if firstLineNumber, err = atoi(line[colonIndex3+1 : end]); err != nil {
			return err
		}
		lastLineNumber = firstLineNumber
		if colonIndex4 >= 0 {
			if lastLineNumber, err = atoi(line[colonIndex4+1 : arrowIndex]); err != nil {
				return err
			}
		}
	}

	processor.ProcessMethodMapping(
		className,
		firstLineNumber, lastLineNumber,
		memberType, memberName, strings.TrimSpace(line[argumentIndex1+1:argumentEnd]),
		newClassName,
		newFirstLineNumber, newLastLineNumber,
		newMemberName)
	return nil
}

type proguardMember struct {
	class, typ, name, arguments string
	newClass, newName           string
	method                      bool
}

// storeBuilder collects ProGuard records. Member types can only be
// obfuscated once every class record is known, so the store is built at
// the end.
type storeBuilder struct {
	classes  [][2]string       // original, obfuscated
	obfNames map[string]string // original -> obfuscated
	members  []proguardMember
}

func (b *storeBuilder) ProcessClassMapping(className, newClassName string) bool {
	b.classes = append(b.classes, [2]string{className, newClassName})
	b.obfNames[className] = newClassName
	return true
}

func (b *storeBuilder) ProcessFieldMapping(className, fieldType, fieldName, newClassName, newFieldName string) {
	b.members = append(b.members, proguardMember{
		class: className, typ: fieldType, name: fieldName,
		newClass: newClassName, newName: newFieldName,
	})
}

func (b *storeBuilder) ProcessMethodMapping(
	className string,
	_, _ int,
	methodReturnType, methodName, methodArguments string,
	newClassName string,
	_, _ int,
	newMethodName string) {
	b.members = append(b.members, proguardMember{
		class: className, typ: methodReturnType, name: methodName, arguments: methodArguments,
		newClass: newClassName, newName: newMethodName, method: true,
	})
}

var primitives = map[string]string{
	"boolean": "Z", "byte": "B", "char": "C", "short": "S",
	"int": "I", "long": "J", "float": "F", "double": "D", "void": "V",
}

// descriptor turns a Java source type into an obfuscated descriptor.
func (b *storeBuilder) descriptor(javaType string) string {
	javaType = strings.TrimSpace(javaType)
	dims := 0
	for strings.HasSuffix(javaType, "[]") {
		dims++
		javaType = javaType[:len(javaType)-2]
	}
	d, ok := primitives[javaType]
	if !ok {
		name := javaType
		if obf, ok := b.obfNames[javaType]; ok {
			name = obf
		}
		d = "L" + strings.ReplaceAll(name, ".", "/") + ";"
	}
	return strings.Repeat("[", dims) + d
}

func (b *storeBuilder) signature(arguments, returnType string) entry.Signature {
	var sb strings.Builder
	sb.WriteByte('(')
	if strings.TrimSpace(arguments) != "" {
		for _, a := range strings.Split(arguments, ",") {
			sb.WriteString(b.descriptor(a))
		}
	}
	sb.WriteByte(')')
	sb.WriteString(b.descriptor(returnType))
	return entry.Signature(sb.String())
}

func (b *storeBuilder) build() (*mapping.Store, error) {
	s := mapping.New()
	for _, c := range b.classes {
		original, obfName := c[0], c[1]
		if original == obfName {
			continue
		}
		obf := classEntry(obfName)
		name := strings.ReplaceAll(original, ".", "/")
		if obf.IsInner() {
			name = classEntry(original).InnermostName()
		}
		s.EnsureClass(obf)
		if err := s.SetClassName(obf, name); err != nil {
			return nil, err
		}
	}

	// Constructors keep their names and inlined members describe other
	// classes.
	for _, m := range b.members {
		if m.name == m.newName || m.name == "<init>" || m.name == "<clinit>" || b.obfNames[m.class] != m.newClass {
			continue
		}
		owner := classEntry(m.newClass)
		s.EnsureClass(owner)
		var err error
		if m.method {
			err = s.SetMethodName(entry.NewMethodEntry(owner, m.newName, b.signature(m.arguments, m.typ)), m.name)
		} else {
			err = s.SetFieldName(entry.NewFieldEntry(owner, m.newName, entry.Type(b.descriptor(m.typ))), m.name)
		}
		// R8 repeats inlined records under every caller.
		if err != nil && !errors.Is(err, enigmaerr.ErrDuplicateName) {
			return nil, err
		}
	}
	return s, nil
}

// ReadProGuard reads a ProGuard or R8 mapping.txt as a mapping store.
// Line number ranges are dropped.
func ReadProGuard(r io.Reader) (*mapping.Store, error) {
	b := &storeBuilder{obfNames: make(map[string]string)}
	if err := NewMappingReader(r).Pump(b); err != nil {
		return nil, err
	}
	return b.build()
}
