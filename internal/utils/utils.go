package utils

import (
	"strings"

	"github.com/fatih/structs"
)

// FieldTagNames returns the names given in the tagName tag of the passed
// fields. Fields without a name or with the name "-" are skipped.
func FieldTagNames(fields []*structs.Field, tagName string) (names []string) {
	for _, f := range fields {
		tag := f.Tag(tagName)
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	return
}

// StructTagNames is a shortcut for FieldTagNames on all fields of s
func StructTagNames(s any, tagName string) []string {
	return FieldTagNames(structs.New(s).Fields(), tagName)
}
