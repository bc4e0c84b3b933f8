package graphframe

import "strings"

// FilterOp enumerates the operator suffixes recognized by the field-key
// grammar and the WHERE forms they compile to.
type FilterOp string

const (
	OpEq         FilterOp = "eq"
	OpNe         FilterOp = "ne"
	OpGt         FilterOp = "gt"
	OpGte        FilterOp = "gte"
	OpLt         FilterOp = "lt"
	OpLte        FilterOp = "lte"
	OpIn         FilterOp = "in"
	OpNotIn      FilterOp = "not_in"
	OpContains   FilterOp = "contains"
	OpStartsWith FilterOp = "startswith"
	OpEndsWith   FilterOp = "endswith"
	OpRegex      FilterOp = "regex"
	OpExists     FilterOp = "exists"
	OpNotNull    FilterOp = "not_null"
	OpIsNull     FilterOp = "is_null"
)

var opForms = map[FilterOp]string{
	OpEq:         "=",
	OpNe:         "<>",
	OpGt:         ">",
	OpGte:        ">=",
	OpLt:         "<",
	OpLte:        "<=",
	OpIn:         "IN",
	OpNotIn:      "NOT IN",
	OpContains:   "CONTAINS",
	OpStartsWith: "STARTS WITH",
	OpEndsWith:   "ENDS WITH",
	OpRegex:      "=~",
}

var knownOps = map[string]FilterOp{
	"eq": OpEq, "ne": OpNe, "gt": OpGt, "gte": OpGte, "lt": OpLt, "lte": OpLte,
	"in": OpIn, "not_in": OpNotIn, "contains": OpContains,
	"startswith": OpStartsWith, "endswith": OpEndsWith, "regex": OpRegex,
	"exists": OpExists, "not_null": OpNotNull, "is_null": OpIsNull,
}

func isNullary(op FilterOp) bool {
	return op == OpExists || op == OpNotNull || op == OpIsNull
}

func isListOp(op FilterOp) bool {
	return op == OpIn || op == OpNotIn
}

// Filter is one field/value entry as supplied to a builder's Where call. A
// caller writes Where(F("age__gte", 21), F("country", "US")); order is
// preserved from call to call, which is what makes placeholder ordering
// (and therefore compiled text) deterministic (P4) without Go's unordered
// map literals getting in the way.
type Filter struct {
	Key   string
	Value any
}

// F constructs a Filter. It exists purely for call-site brevity:
// Where(F("age__gte", 21)) reads like the kwargs it replaces.
func F(key string, value any) Filter {
	return Filter{Key: key, Value: value}
}

// Predicate is a parsed (field, operator, value) triple, namespaced to one
// of the pattern elements of a traversal (see frame.go's namespace
// resolution). Predicate is what the filter compiler actually consumes;
// Filter/parsedKey are the pre-resolution representation a builder holds
// before Compile.
type Predicate struct {
	Field     string
	Op        FilterOp
	Value     any
	Namespace string // resolved alias (e.g. "n", "r", "from", "rel", "to", or a custom alias)
}

// parsedKey is a Filter.Key split into its namespace/field/operator
// components, before namespace resolution. Namespace is empty when the key
// carried no separable leading segment — which, outside a traversal
// context, simply means there is nothing to resolve.
type parsedKey struct {
	Namespace string
	Field     string
	Op        FilterOp
}

// parseFilterKey implements the field-key grammar of §4.2: split on the
// double-underscore separator into at most three segments (namespace,
// field, operator). A two-segment key whose trailing segment is not a known
// operator is read as namespace__field with eq, never as an error. A key of
// three or more segments must end in a known operator, otherwise it fails
// with UnknownOperator; any middle segments are joined back into the field.
func parseFilterKey(key string) (parsedKey, error) {
	segments := strings.Split(key, "__")
	switch len(segments) {
	case 1:
		return parsedKey{Field: segments[0], Op: OpEq}, nil
	case 2:
		if op, ok := knownOps[segments[1]]; ok {
			return parsedKey{Field: segments[0], Op: op}, nil
		}
		return parsedKey{Namespace: segments[0], Field: segments[1], Op: OpEq}, nil
	default:
		last := segments[len(segments)-1]
		op, ok := knownOps[last]
		if !ok {
			return parsedKey{}, &UnknownOperatorError{Operator: last, Key: key}
		}
		namespace := segments[0]
		field := strings.Join(segments[1:len(segments)-1], "__")
		return parsedKey{Namespace: namespace, Field: field, Op: op}, nil
	}
}

// validatePredicateValue enforces the value-kind rules of §4.2: nullary
// operators take no meaningful argument (Go callers pass nil, or true by
// convention — anything else is a TypeMismatch only if explicitly falsy),
// and in/not_in require a list.
func validatePredicateValue(field string, op FilterOp, value any) error {
	if isNullary(op) {
		if value == nil {
			return nil
		}
		if b, ok := value.(bool); ok && !b {
			return &TypeMismatchError{Field: field, Op: op, Value: value, Expected: "truthy or omitted"}
		}
		return nil
	}
	if isListOp(op) {
		if !isListValue(value) {
			return &TypeMismatchError{Field: field, Op: op, Value: value, Expected: "a list"}
		}
	}
	return nil
}

func isListValue(value any) bool {
	switch value.(type) {
	case []any, []string, []int, []int64, []float64, []bool:
		return true
	default:
		return false
	}
}

// compileWhere renders a conjunctive WHERE fragment from preds, binding
// every scalar/list value through r and leaving nullary operators unbound.
// An empty predicate list yields "" (no WHERE clause at all, not "WHERE").
func compileWhere(preds []Predicate, r *registry) (string, error) {
	if len(preds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		if err := validatePredicateValue(p.Field, p.Op, p.Value); err != nil {
			return "", err
		}
		part, err := compilePredicate(p, r)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "WHERE " + strings.Join(parts, " AND "), nil
}

func compilePredicate(p Predicate, r *registry) (string, error) {
	alias := p.Namespace
	field, err := r.validateStrict(p.Field)
	if err != nil {
		return "", err
	}

	switch p.Op {
	case OpExists, OpNotNull:
		return alias + "." + field + " IS NOT NULL", nil
	case OpIsNull:
		return alias + "." + field + " IS NULL", nil
	case OpIn:
		if emptyList(p.Value) {
			return "FALSE", nil
		}
		name := r.bind(p.Value)
		return alias + "." + field + " IN $" + name, nil
	case OpNotIn:
		if emptyList(p.Value) {
			return "TRUE", nil
		}
		name := r.bind(p.Value)
		return "NOT " + alias + "." + field + " IN $" + name, nil
	default:
		form, ok := opForms[p.Op]
		if !ok {
			return "", &UnknownOperatorError{Operator: string(p.Op), Key: p.Field}
		}
		name := r.bind(p.Value)
		return alias + "." + field + " " + form + " $" + name, nil
	}
}

func emptyList(value any) bool {
	switch v := value.(type) {
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case []int:
		return len(v) == 0
	case []int64:
		return len(v) == 0
	case []float64:
		return len(v) == 0
	case []bool:
		return len(v) == 0
	default:
		return false
	}
}
