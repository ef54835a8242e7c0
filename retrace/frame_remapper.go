package retrace

import (
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"

	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/mapping"
	"github.com/swind/go-enigma/translate"
)

// Reference: https://github.com/Guardsquare/proguard/blob/0344c58b3d43799ce203737eea3fd1b58ca701ad/retrace/src/proguard/retrace/FrameRemapper.java

// FrameRemapper turns obfuscated frames back into original ones through a
// mapping store. With the index of the obfuscated jar it also knows the
// members nobody named and the names inherited from overridden methods.
type FrameRemapper struct {
	index *jarindex.Index
	store *mapping.Store
	tr    *translate.Translator
}

// NewFrameRemapper reads names from store. x may be nil.
func NewFrameRemapper(store *mapping.Store, x *jarindex.Index) *FrameRemapper {
	if store == nil {
		store = mapping.New()
	}
	return &FrameRemapper{
		index: x,
		store: store,
		tr:    translate.New(translate.Deobfuscating, x, store),
	}
}

func classEntry(external string) entry.ClassEntry {
	return entry.NewClassEntry(strings.ReplaceAll(external, ".", "/"))
}

// traceType spells t the way stack traces and exception messages do,
// keeping '$' in inner class names.
func traceType(t entry.Type) string {
	c, ok := t.ElementType().ClassEntry()
	if !ok {
		return t.Java()
	}
	return c.ExternalName() + strings.Repeat("[]", t.ArrayDimension())
}

func traceArguments(sig entry.Signature) string {
	args := sig.Arguments()
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = traceType(a)
	}
	return strings.Join(out, ",")
}

// FrameInfo is what a FramePattern reads from one stack trace line. Class
// names are dotted and types are spelled as traces spell them. Empty
// fields were not on the line.
type FrameInfo struct {
	ClassName  string
	SourceFile string
	LineNumber int
	Type       string
	FieldName  string
	MethodName string
	Arguments  string
}

// Class is the class the frame names, in internal form.
func (fi FrameInfo) Class() entry.ClassEntry { return classEntry(fi.ClassName) }

// movedTo returns fi attributed to className, with the source file
// guessed for that class.
func (fi FrameInfo) movedTo(className string) FrameInfo {
	fi.ClassName = className
	fi.SourceFile = originalSourceFile(fi.SourceFile, className)
	return fi
}

// Transform returns the original frames obf may stand for, in mapping
// order. A frame that names nothing known keeps its members and only gets
// its class renamed.
func (r *FrameRemapper) Transform(obf FrameInfo) []FrameInfo {
	class := obf.Class()

	var frames []FrameInfo
	frames = r.transformFieldInfo(obf, class, frames)
	frames = r.transformMethodInfo(obf, class, frames)
	if len(frames) == 0 {
		out := obf.movedTo(r.OriginalClassName(obf.ClassName))
		out.Type = r.originalType(obf.Type)
		out.Arguments = r.renameTypes(obf.Arguments)
		frames = append(frames, out)
	}
	return frames
}

func (r *FrameRemapper) fields(c entry.ClassEntry, name string) []entry.FieldEntry {
	set := linkedhashset.New()
	if r.index != nil {
		for _, f := range r.index.Fields(c) {
			if f.Name() == name {
				set.Add(f)
			}
		}
	}
	if cm, ok := r.store.Class(c); ok {
		for _, fm := range cm.Fields() {
			if fm.ObfName() == name {
				set.Add(fm.Entry(c))
			}
		}
	}
	out := make([]entry.FieldEntry, 0, set.Size())
	for _, v := range set.Values() {
		out = append(out, v.(entry.FieldEntry))
	}
	return out
}

func (r *FrameRemapper) methods(c entry.ClassEntry, name string) []entry.BehaviorEntry {
	set := linkedhashset.New()
	if r.index != nil {
		for _, b := range r.index.Behaviors(c) {
			if b.Name() == name {
				set.Add(b)
			}
		}
	}
	if cm, ok := r.store.Class(c); ok {
		for _, mm := range cm.Methods() {
			if mm.ObfName() == name {
				set.Add(mm.Entry(c))
			}
		}
	}
	out := make([]entry.BehaviorEntry, 0, set.Size())
	for _, v := range set.Values() {
		out = append(out, v.(entry.BehaviorEntry))
	}
	return out
}

func (r *FrameRemapper) transformFieldInfo(obf FrameInfo, class entry.ClassEntry, frames []FrameInfo) []FrameInfo {
	if obf.FieldName == "" {
		return frames
	}
	originalType := r.originalType(obf.Type)
	for _, f := range r.fields(class, obf.FieldName) {
		original := r.tr.Field(f)
		typ := traceType(original.Type())
		if originalType != "" && originalType != typ {
			continue
		}
		out := obf.movedTo(original.ClassEntry().ExternalName())
		out.Type = typ
		out.FieldName = original.Name()
		frames = append(frames, out)
	}
	return frames
}

func (r *FrameRemapper) transformMethodInfo(obf FrameInfo, class entry.ClassEntry, frames []FrameInfo) []FrameInfo {
	if obf.MethodName == "" {
		return frames
	}
	originalType := r.originalType(obf.Type)
	originalArguments := r.originalArguments(obf.Arguments)
	for _, b := range r.methods(class, obf.MethodName) {
		original := r.tr.Behavior(b)
		typ := traceType(original.Signature().Return())
		args := traceArguments(original.Signature())
		if originalType != "" && originalType != typ {
			continue
		}
		if originalArguments != "" && originalArguments != args {
			continue
		}
		out := obf.movedTo(original.ClassEntry().ExternalName())
		out.Type = typ
		out.MethodName = original.Name()
		out.Arguments = args
		frames = append(frames, out)
	}
	return frames
}

// originalSourceFile guesses the source file of className, unless the
// frame says the source is unknown or native.
func originalSourceFile(sourceFile, className string) string {
	if sourceFile == "" || sourceFile == "Unknown Source" || sourceFile == "Native Method" {
		return sourceFile
	}
	start := strings.LastIndex(className, ".") + 1
	simple := className[start:]
	if i := strings.IndexByte(simple, '$'); i > 0 {
		simple = simple[:i]
	}
	return simple + ".java"
}

// OriginalClassName deobfuscates a dotted class name. Names without a
// mapping come back unchanged.
func (r *FrameRemapper) OriginalClassName(obf string) string {
	if obf == "" {
		return obf
	}
	return r.tr.Class(classEntry(obf)).ExternalName()
}

func (r *FrameRemapper) originalType(obf string) string {
	if i := strings.IndexByte(obf, '['); i >= 0 {
		return r.OriginalClassName(obf[:i]) + obf[i:]
	}
	return r.OriginalClassName(obf)
}

func (r *FrameRemapper) originalArguments(obf string) string {
	if strings.TrimSpace(obf) == "" {
		return ""
	}
	tokens := strings.Split(obf, ",")
	for i, token := range tokens {
		tokens[i] = r.originalType(strings.TrimSpace(token))
	}
	return strings.Join(tokens, ",")
}

// renameTypes deobfuscates every type in a list and keeps its separators.
func (r *FrameRemapper) renameTypes(list string) string {
	var b strings.Builder
	for _, token := range FieldsFuncWithDelims(list, isTypeDelim) {
		if len(token) == 1 && isTypeDelim(rune(token[0])) {
			b.WriteString(token)
		} else {
			b.WriteString(r.originalType(token))
		}
	}
	return b.String()
}

func isTypeDelim(c rune) bool { return c == ',' || c == ' ' }
