package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/swind/go-enigma/enigmaerr"
	"github.com/swind/go-enigma/entry"
)

// Processor receives the records of a mappings file in file order.
type Processor interface {
	// ProcessClass is called for every CLASS line.
	//
	// Parameters:
	//    obf   the obfuscated class, inner classes carry their full name.
	//    deobf the new name, a simple name for inner classes, or empty.
	ProcessClass(obf entry.ClassEntry, deobf string) error

	// ProcessField is called for every FIELD line.
	ProcessField(obf entry.FieldEntry, deobf string) error

	// ProcessMethod is called for every METHOD line. Constructors come as
	// constructor entries with an empty deobf name.
	ProcessMethod(obf entry.BehaviorEntry, deobf string) error

	// ProcessArgument is called for every ARG line. The entry carries the
	// new argument name.
	ProcessArgument(arg entry.ArgumentEntry) error

	// ProcessUnknown receives every line the reader does not understand,
	// without its indentation.
	//
	// Parameters:
	//    parent the class or behavior the line is nested in, nil at top level.
	//    line   the trimmed line.
	ProcessUnknown(parent entry.Entry, line string) error
}

type MappingReader struct {
	fileReader io.Reader
}

func NewMappingReader(fileReader io.Reader) *MappingReader {
	return &MappingReader{fileReader: fileReader}
}

// Pump parses the file and hands every record to processor. Nesting is
// given by leading tabs. Any failure, from the parser or the processor,
// stops the pump and is returned as a *enigmaerr.LineError.
func (r *MappingReader) Pump(processor Processor) error {
	// stack[d] is the class or behavior open at depth d.
	var stack []entry.Entry

	scanner := bufio.NewScanner(r.fileReader)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		raw := scanner.Text()
		depth := 0
		for depth < len(raw) && raw[depth] == '\t' {
			depth++
		}
		line := strings.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		if depth > len(stack) {
			return enigmaerr.AtLine(enigmaerr.ErrMappingParse, lineNumber, "unexpected indentation")
		}
		stack = stack[:depth]

		var parent entry.Entry
		if depth > 0 {
			parent = stack[depth-1]
		}
		opened, err := r.processLine(parent, line, processor)
		if err != nil {
			return &enigmaerr.LineError{Kind: enigmaerr.ErrMappingParse, Line: lineNumber, Err: err}
		}
		if opened != nil {
			stack = append(stack, opened)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read mappings: %w", err)
	}

	return nil
}

// processLine handles one record and returns the entry it opens for
// nested lines, if any.
func (r *MappingReader) processLine(parent entry.Entry, line string, processor Processor) (entry.Entry, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "CLASS":
		return r.processClass(parent, fields[1:], processor)
	case "FIELD":
		owner, ok := parent.(entry.ClassEntry)
		if !ok {
			return nil, fmt.Errorf("FIELD outside of a class")
		}
		return nil, r.processField(owner, fields[1:], processor)
	case "METHOD":
		owner, ok := parent.(entry.ClassEntry)
		if !ok {
			return nil, fmt.Errorf("METHOD outside of a class")
		}
		return r.processMethod(owner, fields[1:], processor)
	case "ARG":
		behavior, ok := parent.(entry.BehaviorEntry)
		if !ok {
			return nil, fmt.Errorf("ARG outside of a method")
		}
		return nil, r.processArgument(behavior, fields[1:], processor)
	}
	return nil, processor.ProcessUnknown(parent, line)
}

func (r *MappingReader) processClass(parent entry.Entry, args []string, processor Processor) (entry.Entry, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("CLASS takes an obfuscated name and an optional new name")
	}
	obf := entry.NewClassEntry(args[0])
	deobf := ""
	if len(args) == 2 {
		deobf = strings.ReplaceAll(args[1], ".", "/")
	}

	if parent != nil {
		outer, ok := parent.(entry.ClassEntry)
		if !ok {
			return nil, fmt.Errorf("CLASS nested in a method")
		}
		// Inner classes may be written with their simple name.
		if !strings.HasPrefix(obf.Name(), outer.Name()+"$") {
			if strings.ContainsAny(obf.Name(), "/$") {
				return nil, fmt.Errorf("inner class %s is not nested in %s: %w", obf, outer, enigmaerr.ErrUnknownOwner)
			}
			obf = outer.BuildChild(obf.Name())
		}
		if i := strings.LastIndexByte(deobf, '$'); i >= 0 {
			deobf = deobf[i+1:]
		}
	} else if obf.IsInner() {
		return nil, fmt.Errorf("inner class %s at top level: %w", obf, enigmaerr.ErrUnknownOwner)
	}

	return obf, processor.ProcessClass(obf, deobf)
}

func (r *MappingReader) processField(owner entry.ClassEntry, args []string, processor Processor) error {
	if len(args) != 3 {
		return fmt.Errorf("FIELD takes an obfuscated name, a new name and a type")
	}
	typ := entry.Type(args[2])
	if !typ.Valid() || typ.IsVoid() {
		return fmt.Errorf("bad field type %q", args[2])
	}
	return processor.ProcessField(entry.NewFieldEntry(owner, args[0], typ), args[1])
}

func (r *MappingReader) processMethod(owner entry.ClassEntry, args []string, processor Processor) (entry.Entry, error) {
	var name, deobf, sig string
	switch len(args) {
	case 2:
		name, sig = args[0], args[1]
	case 3:
		name, deobf, sig = args[0], args[1], args[2]
	default:
		return nil, fmt.Errorf("METHOD takes an obfuscated name, an optional new name and a signature")
	}
	if !entry.Signature(sig).Valid() {
		return nil, fmt.Errorf("bad method signature %q", sig)
	}
	b := entry.NewBehaviorEntry(owner, name, entry.Signature(sig))
	return b, processor.ProcessMethod(b, deobf)
}

func (r *MappingReader) processArgument(behavior entry.BehaviorEntry, args []string, processor Processor) error {
	if len(args) != 2 {
		return fmt.Errorf("ARG takes an index and a name")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		return fmt.Errorf("bad argument index %q", args[0])
	}
	if n := behavior.Signature().ArgumentCount(); index >= n {
		return fmt.Errorf("argument %d out of range, %s takes %d", index, behavior, n)
	}
	return processor.ProcessArgument(entry.NewArgumentEntry(behavior, index, args[1]))
}

// storeBuilder is the Processor that fills a Store.
type storeBuilder struct {
	store *Store
}

func (b *storeBuilder) ProcessClass(obf entry.ClassEntry, deobf string) error {
	if _, ok := b.store.Class(obf); ok {
		return fmt.Errorf("class %s mapped twice: %w", obf, enigmaerr.ErrDuplicateName)
	}
	if _, err := b.store.AddClass(obf); err != nil {
		return err
	}
	return b.store.SetClassName(obf, deobf)
}

func (b *storeBuilder) ProcessField(obf entry.FieldEntry, deobf string) error {
	if _, ok := b.store.Field(obf); ok {
		return fmt.Errorf("field %s mapped twice: %w", obf, enigmaerr.ErrDuplicateName)
	}
	return b.store.SetFieldName(obf, deobf)
}

func (b *storeBuilder) ProcessMethod(obf entry.BehaviorEntry, deobf string) error {
	if _, ok := b.store.Method(obf); ok {
		return fmt.Errorf("method %s mapped twice: %w", obf, enigmaerr.ErrDuplicateName)
	}
	if _, _, err := b.store.addMethod(obf); err != nil {
		return err
	}
	if deobf == "" {
		return nil
	}
	return b.store.SetMethodName(obf, deobf)
}

func (b *storeBuilder) ProcessArgument(arg entry.ArgumentEntry) error {
	if _, ok := b.store.ArgumentName(arg.Behavior(), arg.Index()); ok {
		return fmt.Errorf("argument %d of %s mapped twice: %w", arg.Index(), arg.Behavior(), enigmaerr.ErrDuplicateName)
	}
	return b.store.SetArgumentName(arg, arg.Name())
}

func (b *storeBuilder) ProcessUnknown(parent entry.Entry, line string) error {
	switch v := parent.(type) {
	case nil:
		b.store.extra = append(b.store.extra, line)
	case entry.ClassEntry:
		cm, _ := b.store.Class(v)
		cm.extra = append(cm.extra, line)
	case entry.BehaviorEntry:
		mm, _ := b.store.Method(v)
		mm.extra = append(mm.extra, line)
	}
	return nil
}

// Read parses a mappings file into a new Store.
func Read(r io.Reader) (*Store, error) {
	s := New()
	if err := NewMappingReader(r).Pump(&storeBuilder{store: s}); err != nil {
		return nil, err
	}
	return s, nil
}
