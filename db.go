// Package graphframe provides a fluent query-construction and
// write-planning layer over a Cypher-speaking property graph, wired to the
// official Neo4j Go driver for execution.
package graphframe

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jExecutor is the concrete Executor backed by the official Neo4j Go
// driver. It manages the driver instance and the target database name.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// It establishes a connection driver with the provided credentials.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to connect to (e.g., "neo4j").
func NewNeo4jExecutor(uri, username, password, dbName string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName}, nil
}

// Verify checks connectivity to the Neo4j database.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the underlying driver's resources.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes a Cypher query using the modern ExecuteQuery function, which
// handles session and transaction management automatically, and adapts the
// eager result to the Executor/Result interfaces the frame and write-plan
// compilers depend on.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]any) (Result, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer, // Buffers all results in memory before returning.
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return &eagerResult{result}, nil
}

// eagerResult adapts *neo4j.EagerResult to the Result interface, unwrapping
// each record's keyed values into a plain map[string]any view.
type eagerResult struct {
	inner *neo4j.EagerResult
}

func (r *eagerResult) Records() []map[string]any {
	out := make([]map[string]any, 0, len(r.inner.Records))
	for _, rec := range r.inner.Records {
		row := make(map[string]any, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			row[key] = value
		}
		out = append(out, row)
	}
	return out
}
