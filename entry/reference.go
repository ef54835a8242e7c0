package entry

// Reference is a use of Entry found in a class, optionally inside one of
// its behaviors. References are compared by all three parts.
type Reference struct {
	Entry    Entry
	Location ClassEntry
	Context  BehaviorEntry
}

func NewReference(e Entry, location ClassEntry, context BehaviorEntry) Reference {
	return Reference{Entry: e, Location: location, Context: context}
}

// DeclarationReference is a reference of e to itself, the way a
// declaration token refers to the entry it declares.
func DeclarationReference(e Entry) Reference {
	return Reference{Entry: e, Location: e.ClassEntry()}
}

// LocationClass is the class that holds the use site.
func (r Reference) LocationClass() ClassEntry {
	if r.Context != nil {
		return r.Context.ClassEntry()
	}
	return r.Location
}

// NameableEntry is the entry a rename at this reference applies to.
// A constructor reference is named by its class.
func (r Reference) NameableEntry() Entry {
	if c, ok := r.Entry.(ConstructorEntry); ok {
		return c.ClassEntry()
	}
	return r.Entry
}

func (r Reference) String() string {
	s := r.Entry.String() + " in " + r.Location.String()
	if r.Context != nil {
		s += " (" + r.Context.String() + ")"
	}
	return s
}
