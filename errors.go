package graphframe

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by FindOne/FindByID-style lookups when no record
// matches the search criteria.
var ErrNotFound = errors.New("record not found")

// InvalidIdentifierError is raised when a label, relationship type, or
// property name fails strict identifier validation.
type InvalidIdentifierError struct {
	Identifier string
	Reason     string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Identifier, e.Reason)
}

// UnknownOperatorError is raised when a filter key's operator suffix does
// not match the enumerated operator set.
type UnknownOperatorError struct {
	Operator string
	Key      string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator %q in filter key %q", e.Operator, e.Key)
}

// TypeMismatchError is raised when an operator is given a value of the
// wrong kind: a nullary operator given a non-truthy argument, or a list
// operator given a non-list value.
type TypeMismatchError struct {
	Field    string
	Op       FilterOp
	Value    any
	Expected string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("operator %q on field %q expects %s, got %T", e.Op, e.Field, e.Expected, e.Value)
}

// EmptyInputError is raised for upserts with an empty row list, or an
// empty key-field list.
type EmptyInputError struct {
	Target string
	Reason string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Target, e.Reason)
}

// TagMappingError is raised when a struct's `crud` tags describe a label or
// property name the IPR would reject, or omit a required tag component —
// the same identifier grammar the frame/write compilers enforce on every
// MATCH/MERGE/SET they emit applies to a tag-declared name, since it flows
// straight into that text once Repository[T] builds a NodeFrame off it.
type TagMappingError struct {
	Struct string
	Field  string
	Reason string
	Err    error
}

func (e *TagMappingError) Error() string {
	return fmt.Sprintf("crud tag on %s.%s: %s", e.Struct, e.Field, e.Reason)
}

func (e *TagMappingError) Unwrap() error { return e.Err }

// AmbiguousNamespaceError is raised when a predicate namespace segment
// cannot be resolved against the active alias set. The three-step
// resolution order in the frame compiler is deterministic for every alias
// configuration it currently supports, so this is reserved for namespace
// resolution strategies added later rather than something the shipped
// resolver can trigger today.
type AmbiguousNamespaceError struct {
	Segment string
	Field   string
}

func (e *AmbiguousNamespaceError) Error() string {
	return fmt.Sprintf("ambiguous namespace %q in field %q", e.Segment, e.Field)
}

// ExecutionError wraps any failure originating from the execution
// collaborator. It carries the compiled text and the bound parameter
// *names* (never the bound values) so a caller can log the failure without
// leaking secrets.
type ExecutionError struct {
	Text       string
	ParamNames []string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %v (statement=%q params=%v)", e.Err, e.Text, e.ParamNames)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func newExecutionError(text string, params map[string]any, err error) *ExecutionError {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	return &ExecutionError{Text: text, ParamNames: names, Err: err}
}
