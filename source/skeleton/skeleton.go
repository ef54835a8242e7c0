// Package skeleton prints the declarations of a class straight from a jar
// index: the class headers, fields, constructors and methods of a class
// and its member classes, with method bodies reduced to the fields and
// methods they use. It stands in for a full decompiler.
package skeleton

import (
	"context"
	"fmt"
	"strings"

	"github.com/swind/go-enigma/classfile"
	"github.com/swind/go-enigma/entry"
	"github.com/swind/go-enigma/jarindex"
	"github.com/swind/go-enigma/source"
)

var javaLangObject = entry.NewClassEntry("java/lang/Object")

type Decompiler struct {
	index *jarindex.Index
}

func New(x *jarindex.Index) *Decompiler {
	return &Decompiler{index: x}
}

func (d *Decompiler) Decompile(ctx context.Context, class entry.ClassEntry) (*source.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := d.index.Access(class); !ok {
		return nil, fmt.Errorf("class %s is not in the jar", class)
	}
	p := &printer{x: d.index}
	p.span(packageStatement(class), entry.DeclarationReference(class), source.Package)
	p.class(class)
	return &source.Unit{Class: class, Source: p.sb.String(), Spans: p.spans}, nil
}

func packageStatement(c entry.ClassEntry) string {
	if c.Package() == "" {
		return ""
	}
	return "package " + strings.ReplaceAll(c.Package(), "/", ".") + ";\n\n"
}

type printer struct {
	x     *jarindex.Index
	sb    strings.Builder
	spans []source.Span
	depth int
}

func (p *printer) write(parts ...string) {
	for _, s := range parts {
		p.sb.WriteString(s)
	}
}

func (p *printer) indent() {
	p.write(strings.Repeat("\t", p.depth))
}

func (p *printer) span(text string, ref entry.Reference, form source.Form) {
	start := p.sb.Len()
	p.write(text)
	p.spans = append(p.spans, source.Span{
		Token:     source.Token{Start: start, End: p.sb.Len()},
		Reference: ref,
		Form:      form,
	})
}

// classRef spells a use of c inside owner, optionally inside a behavior.
func (p *printer) classRef(c, owner entry.ClassEntry, context entry.BehaviorEntry) {
	p.span(entry.ClassType(c).Java(), entry.NewReference(c, owner, context), source.Qualified)
}

func (p *printer) typ(t entry.Type, owner entry.ClassEntry, context entry.BehaviorEntry) {
	c, ok := t.ElementType().ClassEntry()
	if !ok {
		p.write(t.Java())
		return
	}
	p.classRef(c, owner, context)
	p.write(strings.Repeat("[]", t.ArrayDimension()))
}

func (p *printer) class(c entry.ClassEntry) {
	access, _ := p.x.Access(c)
	_, nested := p.x.OuterClass(c)

	p.indent()
	p.write(classModifiers(access, nested))
	switch {
	case access.Has(classfile.AccAnnotation):
		p.write("@interface ")
	case access.Has(classfile.AccInterface):
		p.write("interface ")
	case access.Has(classfile.AccEnum):
		p.write("enum ")
	default:
		p.write("class ")
	}
	p.span(c.InnermostName(), entry.DeclarationReference(c), source.Simple)

	interfaces := p.x.Interfaces(c)
	if !access.Has(classfile.AccInterface) && !access.Has(classfile.AccEnum) {
		if super, ok := p.x.Superclass(c); ok && super != javaLangObject {
			p.write(" extends ")
			p.classRef(super, c, nil)
		}
	}
	if len(interfaces) > 0 {
		if access.Has(classfile.AccInterface) {
			p.write(" extends ")
		} else {
			p.write(" implements ")
		}
		for i, iface := range interfaces {
			if i > 0 {
				p.write(", ")
			}
			p.classRef(iface, c, nil)
		}
	}
	p.write(" {\n")
	p.depth++

	for _, f := range p.x.Fields(c) {
		p.field(f)
	}
	for _, b := range p.x.Behaviors(c) {
		p.behavior(c, b, access.Has(classfile.AccInterface))
	}
	for _, inner := range p.x.InnerClasses(c) {
		if p.x.IsAnonymous(inner) {
			continue
		}
		if outer, ok := p.x.OuterClass(inner); !ok || outer != c {
			continue
		}
		p.write("\n")
		p.class(inner)
	}

	p.depth--
	p.indent()
	p.write("}\n")
}

func (p *printer) field(f entry.FieldEntry) {
	access, _ := p.x.Access(f)
	if access.Has(classfile.AccSynthetic) {
		return
	}
	p.indent()
	p.write(fieldModifiers(access))
	p.typ(f.Type(), f.ClassEntry(), nil)
	p.write(" ")
	p.span(f.Name(), entry.DeclarationReference(f), source.Simple)
	p.write(";\n")
}

func (p *printer) behavior(c entry.ClassEntry, b entry.BehaviorEntry, iface bool) {
	access, _ := p.x.Access(b)
	if access.Has(classfile.AccSynthetic) {
		return
	}
	p.write("\n")
	p.indent()
	if ctor, ok := b.(entry.ConstructorEntry); ok && ctor.IsStatic() {
		p.write("static")
		p.body(c, b)
		return
	}
	p.write(methodModifiers(access, iface))
	if _, ok := b.(entry.ConstructorEntry); ok {
		p.span(c.InnermostName(), entry.DeclarationReference(b), source.Simple)
	} else {
		p.typ(b.Signature().Return(), c, b)
		p.write(" ")
		p.span(b.Name(), entry.DeclarationReference(b), source.Simple)
	}
	p.write("(")
	for i, t := range b.Signature().Arguments() {
		if i > 0 {
			p.write(", ")
		}
		p.typ(t, c, b)
		p.write(" ")
		arg := entry.NewArgumentEntry(b, i, entry.ObfArgumentName(i))
		p.span(arg.Name(), entry.DeclarationReference(arg), source.Simple)
	}
	p.write(")")
	if access.Has(classfile.AccAbstract) || access.Has(classfile.AccNative) {
		p.write(";\n")
		return
	}
	p.body(c, b)
}

// body lists each distinct member the behavior uses, one comment line
// each. Instantiations show up as constructor calls.
func (p *printer) body(c entry.ClassEntry, b entry.BehaviorEntry) {
	var refs []entry.Reference
	for _, r := range p.x.ReferencesFrom(b) {
		if _, ok := r.Entry.(entry.ClassEntry); !ok {
			refs = append(refs, r)
		}
	}
	if len(refs) == 0 {
		p.write(" {}\n")
		return
	}
	p.write(" {\n")
	p.depth++
	seen := make(map[entry.Entry]bool)
	for _, r := range refs {
		if seen[r.Entry] {
			continue
		}
		seen[r.Entry] = true
		p.indent()
		p.write("// ")
		switch v := r.Entry.(type) {
		case entry.ConstructorEntry:
			p.write("new ")
			p.span(entry.ClassType(v.ClassEntry()).Java(), r, source.Qualified)
			p.write("()")
		case entry.FieldEntry:
			p.classRef(v.ClassEntry(), c, b)
			p.write(".")
			p.span(v.Name(), r, source.Simple)
		default:
			p.classRef(r.Entry.ClassEntry(), c, b)
			p.write(".")
			p.span(r.Entry.Name(), r, source.Simple)
			p.write("()")
		}
		p.write("\n")
	}
	p.depth--
	p.indent()
	p.write("}\n")
}

func visibility(access classfile.AccessFlags) string {
	switch {
	case access.Has(classfile.AccPublic):
		return "public "
	case access.Has(classfile.AccProtected):
		return "protected "
	case access.Has(classfile.AccPrivate):
		return "private "
	}
	return ""
}

func classModifiers(access classfile.AccessFlags, nested bool) string {
	s := visibility(access)
	if nested && access.Has(classfile.AccStatic) {
		s += "static "
	}
	if access.Has(classfile.AccAbstract) && !access.Has(classfile.AccInterface) {
		s += "abstract "
	}
	if access.Has(classfile.AccFinal) && !access.Has(classfile.AccEnum) {
		s += "final "
	}
	return s
}

func fieldModifiers(access classfile.AccessFlags) string {
	s := visibility(access)
	for _, m := range []struct {
		flag classfile.AccessFlags
		word string
	}{
		{classfile.AccStatic, "static "},
		{classfile.AccFinal, "final "},
		{classfile.AccTransient, "transient "},
		{classfile.AccVolatile, "volatile "},
	} {
		if access.Has(m.flag) {
			s += m.word
		}
	}
	return s
}

func methodModifiers(access classfile.AccessFlags, iface bool) string {
	s := visibility(access)
	if iface && !access.Has(classfile.AccAbstract) && !access.Has(classfile.AccStatic) && !access.Has(classfile.AccPrivate) {
		s += "default "
	}
	if access.Has(classfile.AccStatic) {
		s += "static "
	}
	if access.Has(classfile.AccAbstract) && !iface {
		s += "abstract "
	}
	if access.Has(classfile.AccFinal) {
		s += "final "
	}
	if access.Has(classfile.AccSynchronized) {
		s += "synchronized "
	}
	if access.Has(classfile.AccNative) {
		s += "native "
	}
	return s
}
