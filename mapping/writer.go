package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Write prints s in the mappings file format. Output is deterministic:
// classes in obfuscated name order, then inside each class its fields,
// methods and inner classes, each sorted by obfuscated key. Unknown lines
// come last in the record they were read in.
func Write(w io.Writer, s *Store) error {
	bw := bufio.NewWriter(w)
	for _, cm := range s.Classes() {
		writeClass(bw, cm, 0)
	}
	for _, line := range s.extra {
		fmt.Fprintln(bw, line)
	}
	return bw.Flush()
}

func indent(depth int) string {
	return strings.Repeat("\t", depth)
}

func writeClass(w *bufio.Writer, cm *ClassMapping, depth int) {
	if cm.deobf == "" {
		fmt.Fprintf(w, "%sCLASS %s\n", indent(depth), cm.obf.Name())
	} else {
		fmt.Fprintf(w, "%sCLASS %s %s\n", indent(depth), cm.obf.Name(), cm.deobf)
	}
	for _, fm := range cm.Fields() {
		fmt.Fprintf(w, "%sFIELD %s %s %s\n", indent(depth+1), fm.obfName, fm.deobf, fm.obfType)
	}
	for _, mm := range cm.Methods() {
		if mm.deobf == "" {
			fmt.Fprintf(w, "%sMETHOD %s %s\n", indent(depth+1), mm.obfName, mm.obfSig)
		} else {
			fmt.Fprintf(w, "%sMETHOD %s %s %s\n", indent(depth+1), mm.obfName, mm.deobf, mm.obfSig)
		}
		for _, arg := range mm.Arguments() {
			fmt.Fprintf(w, "%sARG %d %s\n", indent(depth+2), arg.Index, arg.Name)
		}
		for _, line := range mm.extra {
			fmt.Fprintf(w, "%s%s\n", indent(depth+2), line)
		}
	}
	for _, in := range cm.InnerClasses() {
		writeClass(w, in, depth+1)
	}
	for _, line := range cm.extra {
		fmt.Fprintf(w, "%s%s\n", indent(depth+1), line)
	}
}

// Text is the canonical text of s.
func (s *Store) Text() string {
	var sb strings.Builder
	// strings.Builder never fails.
	_ = Write(&sb, s)
	return sb.String()
}
