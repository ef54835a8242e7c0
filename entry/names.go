package entry

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/swind/go-enigma/enigmaerr"
)

var keywords = map[string]struct{}{}

func init() {
	for _, k := range strings.Fields(`abstract assert boolean break byte case catch char class const
		continue default do double else enum extends final finally float for goto if
		implements import instanceof int interface long native new package private
		protected public return short static strictfp super switch synchronized this
		throw throws transient try void volatile while true false null _`) {
		keywords[k] = struct{}{}
	}
}

// IsKeyword reports whether name is reserved in Java source.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// ValidateIdentifier checks name against the Java identifier grammar.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", enigmaerr.ErrInvalidName)
	}
	for i, r := range name {
		if i == 0 && !isIdentStart(r) || i > 0 && !isIdentPart(r) {
			return fmt.Errorf("%q: illegal character %q: %w", name, r, enigmaerr.ErrInvalidName)
		}
	}
	if IsKeyword(name) {
		return fmt.Errorf("%q is a reserved word: %w", name, enigmaerr.ErrInvalidName)
	}
	return nil
}

// ValidateClassName checks a slash separated class name. Inner class names
// are simple names. '$' is rejected since it separates inner classes.
func ValidateClassName(name string, inner bool) error {
	if inner && strings.Contains(name, "/") {
		return fmt.Errorf("%q: inner class names have no package: %w", name, enigmaerr.ErrInvalidName)
	}
	for _, part := range strings.Split(name, "/") {
		if strings.Contains(part, "$") {
			return fmt.Errorf("%q: '$' is reserved for inner classes: %w", name, enigmaerr.ErrInvalidName)
		}
		if err := ValidateIdentifier(part); err != nil {
			return fmt.Errorf("class %q: %w", name, err)
		}
	}
	return nil
}
