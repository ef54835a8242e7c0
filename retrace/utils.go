package retrace

import "unicode/utf8"

// FieldsFuncWithDelims splits s like strings.FieldsFunc but keeps every
// delimiter rune as a field of its own.
func FieldsFuncWithDelims(s string, f func(rune) bool) []string {
	var fields []string
	start := -1
	for i, r := range s {
		if !f(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fields = append(fields, s[start:i])
			start = -1
		}
		fields = append(fields, s[i:i+utf8.RuneLen(r)])
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}
