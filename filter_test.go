package graphframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterKeySingleSegmentDefaultsToEq(t *testing.T) {
	pk, err := parseFilterKey("name")
	require.NoError(t, err)
	assert.Equal(t, parsedKey{Field: "name", Op: OpEq}, pk)
}

func TestParseFilterKeyTwoSegmentKnownOperator(t *testing.T) {
	pk, err := parseFilterKey("age__gte")
	require.NoError(t, err)
	assert.Equal(t, parsedKey{Field: "age", Op: OpGte}, pk)
}

func TestParseFilterKeyTwoSegmentUnknownTrailingIsNamespace(t *testing.T) {
	pk, err := parseFilterKey("from__age")
	require.NoError(t, err)
	assert.Equal(t, parsedKey{Namespace: "from", Field: "age", Op: OpEq}, pk)
}

func TestParseFilterKeyThreeSegmentNamespaceFieldOperator(t *testing.T) {
	pk, err := parseFilterKey("rel__weight__gt")
	require.NoError(t, err)
	assert.Equal(t, parsedKey{Namespace: "rel", Field: "weight", Op: OpGt}, pk)
}

func TestParseFilterKeyUnknownOperatorSuffixFails(t *testing.T) {
	_, err := parseFilterKey("from__age__bogus")
	require.Error(t, err)
	var target *UnknownOperatorError
	assert.ErrorAs(t, err, &target)
}

func TestCompileWhereDeterministicParamOrder(t *testing.T) {
	r := newRegistry()
	preds := []Predicate{
		{Field: "age", Op: OpGte, Value: 21, Namespace: "n"},
		{Field: "country", Op: OpEq, Value: "US", Namespace: "n"},
	}
	where, err := compileWhere(preds, r)
	require.NoError(t, err)
	assert.Equal(t, "WHERE n.age >= $param_0 AND n.country = $param_1", where)
	assert.Equal(t, 21, r.params["param_0"])
	assert.Equal(t, "US", r.params["param_1"])
}

func TestCompileWhereEmptyPredicatesYieldsEmptyString(t *testing.T) {
	r := newRegistry()
	where, err := compileWhere(nil, r)
	require.NoError(t, err)
	assert.Empty(t, where)
}

func TestCompileWhereNullaryOperatorDoesNotBind(t *testing.T) {
	r := newRegistry()
	preds := []Predicate{{Field: "email", Op: OpNotNull, Namespace: "n"}}
	where, err := compileWhere(preds, r)
	require.NoError(t, err)
	assert.Equal(t, "WHERE n.email IS NOT NULL", where)
	assert.Empty(t, r.params)
}

func TestCompileWhereIsNull(t *testing.T) {
	r := newRegistry()
	preds := []Predicate{{Field: "email", Op: OpIsNull, Namespace: "n"}}
	where, err := compileWhere(preds, r)
	require.NoError(t, err)
	assert.Equal(t, "WHERE n.email IS NULL", where)
}

func TestCompileWhereEmptyInListIsConstantFalse(t *testing.T) {
	r := newRegistry()
	preds := []Predicate{{Field: "status", Op: OpIn, Value: []any{}, Namespace: "n"}}
	where, err := compileWhere(preds, r)
	require.NoError(t, err)
	assert.Equal(t, "WHERE FALSE", where)
	assert.Empty(t, r.params)
}

func TestCompileWhereEmptyNotInListIsConstantTrue(t *testing.T) {
	r := newRegistry()
	preds := []Predicate{{Field: "status", Op: OpNotIn, Value: []any{}, Namespace: "n"}}
	where, err := compileWhere(preds, r)
	require.NoError(t, err)
	assert.Equal(t, "WHERE TRUE", where)
	assert.Empty(t, r.params)
}

func TestCompileWhereNonEmptyInListBinds(t *testing.T) {
	r := newRegistry()
	preds := []Predicate{{Field: "status", Op: OpIn, Value: []any{"active", "pending"}, Namespace: "n"}}
	where, err := compileWhere(preds, r)
	require.NoError(t, err)
	assert.Equal(t, "WHERE n.status IN $param_0", where)
}

func TestCompileWhereNotInRendersNegation(t *testing.T) {
	r := newRegistry()
	preds := []Predicate{{Field: "status", Op: OpNotIn, Value: []any{"banned"}, Namespace: "n"}}
	where, err := compileWhere(preds, r)
	require.NoError(t, err)
	assert.Equal(t, "WHERE NOT n.status IN $param_0", where)
}

func TestValidatePredicateValueRejectsNonListForInOperator(t *testing.T) {
	err := validatePredicateValue("status", OpIn, "not-a-list")
	require.Error(t, err)
	var target *TypeMismatchError
	assert.ErrorAs(t, err, &target)
}

func TestValidatePredicateValueAllowsNilForNullaryOperator(t *testing.T) {
	err := validatePredicateValue("email", OpExists, nil)
	assert.NoError(t, err)
}

func TestValidatePredicateValueRejectsFalseForNullaryOperator(t *testing.T) {
	err := validatePredicateValue("email", OpExists, false)
	require.Error(t, err)
}

func TestCompileWhereOperatorForms(t *testing.T) {
	cases := []struct {
		op   FilterOp
		want string
	}{
		{OpEq, "="},
		{OpNe, "<>"},
		{OpGt, ">"},
		{OpGte, ">="},
		{OpLt, "<"},
		{OpLte, "<="},
		{OpContains, "CONTAINS"},
		{OpStartsWith, "STARTS WITH"},
		{OpEndsWith, "ENDS WITH"},
		{OpRegex, "=~"},
	}
	for _, c := range cases {
		r := newRegistry()
		where, err := compileWhere([]Predicate{{Field: "x", Op: c.op, Value: "v", Namespace: "n"}}, r)
		require.NoError(t, err)
		assert.Contains(t, where, c.want)
	}
}
