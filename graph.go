package graphframe

import (
	"context"
)

// Graph is the top-level entry point: it owns the Executor and hands out
// NodeFrame/RelFrame reads, a SchemaOps collaborator, and a raw Cypher
// escape hatch, all sharing the same underlying connection.
type Graph struct {
	exec      *Neo4jExecutor
	relPolicy RelUniquenessPolicy
}

// Connect opens a Neo4jExecutor against uri/username/password/dbName and
// wraps it in a Graph. Configuration is explicit constructor arguments
// only — there is no file or environment loader, matching the absence of
// one anywhere in the executor it wraps.
func Connect(uri, username, password, dbName string) (*Graph, error) {
	exec, err := NewNeo4jExecutor(uri, username, password, dbName)
	if err != nil {
		return nil, err
	}
	return &Graph{exec: exec, relPolicy: RelUniquenessSingle}, nil
}

// WithRelUniquenessPolicy sets the default relationship-upsert uniqueness
// policy new RelUpsert plans created through this Graph will carry unless
// overridden per-plan.
func (g *Graph) WithRelUniquenessPolicy(policy RelUniquenessPolicy) *Graph {
	g.relPolicy = policy
	return g
}

// Verify checks connectivity to the underlying database.
func (g *Graph) Verify(ctx context.Context) error {
	return g.exec.Verify(ctx)
}

// Close releases the underlying driver's resources.
func (g *Graph) Close(ctx context.Context) error {
	return g.exec.Close(ctx)
}

// Nodes starts a read over nodes carrying label.
func (g *Graph) Nodes(label string) NodeFrame {
	return NewNodeFrame(g.exec, label)
}

// Rels starts a read over relationships of type relType.
func (g *Graph) Rels(relType string) RelFrame {
	return NewRelFrame(g.exec, relType)
}

// Schema returns the schema-operation builder for this graph.
func (g *Graph) Schema() SchemaOps {
	return NewSchemaOps(g.exec)
}

// RelUpsert starts a relationship upsert plan using this Graph's default
// relationship-uniqueness policy (RelUniquenessSingle, unless
// WithRelUniquenessPolicy was called). Callers needing RelUniquenessKeyed
// should call RelUniquenessPolicy on the returned plan with the
// relationship's key fields.
func (g *Graph) RelUpsert(relType string, rows []map[string]any, srcLabel string, srcKey []string, dstLabel string, dstKey []string) WritePlan {
	plan := NewRelUpsertPlan(g.exec, relType, rows, srcLabel, srcKey, dstLabel, dstKey)
	plan.relPolicy = g.relPolicy
	return plan
}

// Cypher runs a raw Cypher statement directly, bypassing every compiler —
// the one remaining escape hatch for queries the frame/write-plan
// vocabulary can't express.
func (g *Graph) Cypher(ctx context.Context, text string, params map[string]any) ([]map[string]any, error) {
	res, err := g.exec.Run(ctx, text, params)
	if err != nil {
		return nil, newExecutionError(text, params, err)
	}
	return res.Records(), nil
}

// Manager returns a PersistenceManager sharing this Graph's Executor, for
// callers that want the typed Repository[T] layer.
func (g *Graph) Manager() *PersistenceManager {
	return NewPersistenceManager(g.exec)
}
