package graphframe

import (
	"regexp"
	"strconv"
	"strings"
)

// identifierPattern is the strict identifier grammar from the data model:
// a non-empty string starting with a letter or underscore, followed by
// letters, digits, or underscores.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords are backend (Cypher) keywords that must be backtick-quoted
// when they appear as a label, relationship type, or property name, even
// though they otherwise satisfy identifierPattern.
var reservedWords = map[string]bool{
	"MATCH": true, "WHERE": true, "RETURN": true, "CREATE": true,
	"MERGE": true, "SET": true, "DELETE": true, "DETACH": true,
	"REMOVE": true, "WITH": true, "UNWIND": true, "AS": true,
	"ORDER": true, "BY": true, "SKIP": true, "LIMIT": true,
	"AND": true, "OR": true, "NOT": true, "IN": true, "IS": true,
	"NULL": true, "CASE": true, "WHEN": true, "THEN": true,
	"ELSE": true, "END": true, "CALL": true, "YIELD": true,
	"UNION": true, "OPTIONAL": true, "ON": true, "CONSTRAINT": true,
	"INDEX": true, "DROP": true, "EXISTS": true, "COUNT": true,
}

// registry is the Identifier & Parameter Registry (IPR). A fresh registry
// backs every single compilation and is discarded afterward; it carries no
// state between compilations, which is what keeps the parameter counter
// (and therefore placeholder uniqueness, I2) local to one statement.
type registry struct {
	params  map[string]any
	counter int
}

func newRegistry() *registry {
	return &registry{params: make(map[string]any)}
}

// validate returns the form an identifier should take when emitted into
// statement text: the identifier itself when it is well-formed and not a
// reserved word, or a backtick-quoted form otherwise. In strict mode, an
// identifier that fails identifierPattern is rejected outright instead of
// being quoted — strict mode only gates the pattern-failure path; a
// reserved-word collision is always backtick-quoted regardless of strict,
// since a reserved word can otherwise be a perfectly well-formed
// identifier.
func (r *registry) validate(id string, strict bool) (string, error) {
	if id == "" {
		return "", &InvalidIdentifierError{Identifier: id, Reason: "identifier is empty"}
	}
	if !identifierPattern.MatchString(id) {
		if strict {
			return "", &InvalidIdentifierError{Identifier: id, Reason: "does not match identifier pattern"}
		}
		return "`" + id + "`", nil
	}
	if reservedWords[strings.ToUpper(id)] {
		return "`" + id + "`", nil
	}
	return id, nil
}

// validateStrict is the common case: validate(id, true).
func (r *registry) validateStrict(id string) (string, error) {
	return r.validate(id, true)
}

// bind appends value under a fresh placeholder name and returns that name
// without the leading '$'. Nullary operators never call bind.
func (r *registry) bind(value any) string {
	name := paramName(r.counter)
	r.counter++
	r.params[name] = value
	return name
}

func paramName(k int) string {
	return "param_" + strconv.Itoa(k)
}
