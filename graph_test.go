package graphframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph() *Graph {
	return &Graph{exec: &Neo4jExecutor{}, relPolicy: RelUniquenessSingle}
}

func TestGraphNodesStartsFrameScopedToLabel(t *testing.T) {
	g := newTestGraph()
	stmt, err := g.Nodes("User").Compile()
	require.NoError(t, err)
	assert.Contains(t, stmt.Text, "MATCH (n:User)")
}

func TestGraphRelsStartsFrameScopedToRelType(t *testing.T) {
	g := newTestGraph()
	stmt, err := g.Rels("FOLLOWS").Compile()
	require.NoError(t, err)
	assert.Contains(t, stmt.Text, "FOLLOWS")
}

func TestGraphSchemaSharesGraphsExecutor(t *testing.T) {
	g := newTestGraph()
	stmts, err := g.Schema().EnsureUnique("User", "userId").Compile()
	require.NoError(t, err)
	assert.Contains(t, stmts[0].Text, "CREATE CONSTRAINT")
	assert.Equal(t, g.exec, g.Schema().exec)
}

func TestGraphRelUpsertCarriesGraphsDefaultRelPolicy(t *testing.T) {
	g := newTestGraph().WithRelUniquenessPolicy(RelUniquenessKeyed)
	plan := g.RelUpsert("FOLLOWS", []map[string]any{{"src_userId": "u1", "dst_userId": "u2"}},
		"User", []string{"userId"}, "User", []string{"userId"})
	assert.Equal(t, RelUniquenessKeyed, plan.relPolicy)
}

func TestGraphRelUpsertDefaultsToSingleWithoutOverride(t *testing.T) {
	g := newTestGraph()
	plan := g.RelUpsert("FOLLOWS", []map[string]any{{"src_userId": "u1", "dst_userId": "u2"}},
		"User", []string{"userId"}, "User", []string{"userId"})
	assert.Equal(t, RelUniquenessSingle, plan.relPolicy)
}

func TestGraphManagerSharesGraphsExecutor(t *testing.T) {
	g := newTestGraph()
	pm := g.Manager()
	assert.Equal(t, g.exec, pm.exec)
}
