package graphframe

import (
	"fmt"
	"reflect"
	"strings"
)

// entityMetadata holds the parsed `crud` tag information for a specific struct type.
// This metadata is cached by the PersistenceManager to avoid costly reflection on every operation.
type entityMetadata struct {
	// Label is the graph node label: the struct's name.
	Label string
	// PKField is the name of the struct field marked as the primary key.
	PKField string
	// PKProp is the property name of the primary key in the database.
	PKProp string
	// Mappings maps struct field names to their corresponding database property names.
	Mappings map[string]string
}

// parseTagsFromType is the core non-generic function that inspects a reflect.Type
// and extracts persistence metadata from `crud` struct tags. It serves as the reusable
// heart of the tag parsing logic, usable in both generic and dynamic contexts.
//
// Every label/property name a `crud` tag declares is validated through the
// same identifier registry the frame/write compilers use (identifier.go):
// Repository[T] turns Label/Mappings directly into NodeFrame's label and
// Select/Where field names, so a malformed tag would otherwise surface only
// as broken Cypher much later, at Compile time, far from its source.
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	// If the type is a pointer, get the underlying element's type.
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	r := newRegistry()
	label, err := r.validateStrict(typ.Name())
	if err != nil {
		return nil, &TagMappingError{Struct: typ.Name(), Reason: "struct name is not a valid label", Err: err}
	}

	meta := &entityMetadata{
		Label:    label,
		Mappings: make(map[string]string),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("crud")

		// Skip fields that are not part of the persistence mapping.
		if tag == "" {
			continue
		}

		parts := strings.Split(tag, ",")
		isPk := false
		propName := ""

		for _, part := range parts {
			if part == "pk" {
				isPk = true
			}
			if strings.HasPrefix(part, "property:") {
				propName = strings.TrimPrefix(part, "property:")
			}
		}

		if propName == "" {
			return nil, &TagMappingError{Struct: typ.Name(), Field: field.Name, Reason: "missing 'property' tag component"}
		}
		if _, err := r.validateStrict(propName); err != nil {
			return nil, &TagMappingError{Struct: typ.Name(), Field: field.Name, Reason: fmt.Sprintf("property name %q is not a valid identifier", propName), Err: err}
		}

		if isPk {
			meta.PKField = field.Name
			meta.PKProp = propName
		}
		meta.Mappings[field.Name] = propName
	}

	if meta.PKField == "" {
		return nil, &TagMappingError{Struct: typ.Name(), Reason: "no primary key ('pk') tag defined"}
	}

	return meta, nil
}

// parseTags is a generic convenience wrapper around parseTagsFromType.
// It allows getting metadata from a compile-time type T instead of a runtime reflect.Type,
// which is useful for the generic Repository.
func parseTags[T any]() (*entityMetadata, error) {
	var instance T
	typ := reflect.TypeOf(instance)
	return parseTagsFromType(typ)
}
