package graphframe

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/NolanChai/graphframe-neo4j/examples/models"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// PersistenceManager is the central orchestrator for the typed repository
// layer. It holds the Executor every Repository[T] and Graph collaborator
// shares, and provides cross-entity operations — like creating a
// relationship between two already-persisted entities — that don't belong
// to any single repository.
type PersistenceManager struct {
	exec Executor
	// metaCache stores parsed entityMetadata to avoid costly reflection on every call.
	metaCache sync.Map
}

// NewPersistenceManager creates a new instance of the PersistenceManager.
func NewPersistenceManager(exec Executor) *PersistenceManager {
	return &PersistenceManager{exec: exec}
}

// RepositoryFor is a generic function that creates and returns a repository
// for a specific struct type T, managed by the given PersistenceManager.
func RepositoryFor[T any](pm *PersistenceManager) (*Repository[T], error) {
	return NewRepository[T](pm.exec)
}

// CreateRelation creates a directed relationship between two existing
// entities in the database. It uses reflection to find the entities'
// primary keys and labels, and gocypher to build the pattern — the ad hoc
// query builder remains the right tool here since neither entity side has
// a frame description to compile through.
func (pm *PersistenceManager) CreateRelation(ctx context.Context, fromEntity any, toEntity any, relType string, relProps map[string]interface{}) error {
	fromMeta, fromPKVal, err := pm.getEntityMetaAndPK(fromEntity)
	if err != nil {
		return err
	}
	toMeta, toPKVal, err := pm.getEntityMetaAndPK(toEntity)
	if err != nil {
		return err
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", fromMeta.Label).WithProperties(map[string]interface{}{fromMeta.PKProp: fromPKVal})).
		Match(gocypher.N("b", toMeta.Label).WithProperties(map[string]interface{}{toMeta.PKProp: toPKVal})).
		Create(
			gocypher.N("a", ""), // Reference the 'a' alias without its label
			gocypher.R("r", relType).To().WithProperties(relProps),
			gocypher.N("b", ""), // Reference the 'b' alias without its label
		)

	query, params, err := qb.Build()
	if err != nil {
		return err
	}

	_, err = pm.exec.Run(ctx, query, params)
	return err
}

// getEntityMetaAndPK is an internal helper that retrieves an entity's metadata and primary key value.
// It uses a cache to optimize performance by avoiding repeated reflection.
func (pm *PersistenceManager) getEntityMetaAndPK(entity any) (*entityMetadata, any, error) {
	val := reflect.ValueOf(entity)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return nil, nil, fmt.Errorf("entity must be a non-nil pointer")
	}

	typ := val.Elem().Type()

	// First, attempt to load metadata from the cache for performance.
	if cached, ok := pm.metaCache.Load(typ); ok {
		meta := cached.(*entityMetadata)
		pkValue := val.Elem().FieldByName(meta.PKField).Interface()
		return meta, pkValue, nil
	}

	// If not found in cache, parse the tags using reflection.
	meta, err := parseTagsFromType(typ)
	if err != nil {
		return nil, nil, err
	}
	pm.metaCache.Store(typ, meta)

	pkValue := val.Elem().FieldByName(meta.PKField).Interface()
	return meta, pkValue, nil
}

// FindGraph executes a graph query defined by a gocypher.QueryBuilder and
// maps the result into a generic graph structure composed of nodes and
// edges. It is domain-agnostic: the caller is responsible for a RETURN
// clause naming whichever nodes and relationships belong in the result
// (e.g. "RETURN u, r, p"), and de-duplication is by ElementId across every
// row and every returned value in that row.
func (pm *PersistenceManager) FindGraph(ctx context.Context, qb *gocypher.QueryBuilder) (*models.GraphResult, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}
	return pm.findGraphRaw(ctx, query, params)
}

// FindGraphStatement is the escape hatch for callers holding a
// CompiledStatement from a NodeFrame/PathFrame/WritePlan instead of a
// gocypher.QueryBuilder — it shares the same de-duplication logic as
// FindGraph.
func (pm *PersistenceManager) FindGraphStatement(ctx context.Context, stmt CompiledStatement) (*models.GraphResult, error) {
	return pm.findGraphRaw(ctx, stmt.Text, stmt.Parameters)
}

func (pm *PersistenceManager) findGraphRaw(ctx context.Context, query string, params map[string]any) (*models.GraphResult, error) {
	res, err := pm.exec.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	records := res.Records()
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	graph := &models.GraphResult{
		Nodes: make([]*models.GraphNode, 0),
		Edges: make([]*models.Edge, 0),
	}
	seenNodeIDs := make(map[string]bool)
	seenEdgeIDs := make(map[string]bool)

	for _, record := range records {
		for _, value := range record {
			switch v := value.(type) {
			case neo4j.Node:
				if !seenNodeIDs[v.ElementId] {
					graph.Nodes = append(graph.Nodes, &models.GraphNode{
						ID:         v.ElementId,
						Labels:     v.Labels,
						Properties: v.Props,
					})
					seenNodeIDs[v.ElementId] = true
				}
			case neo4j.Relationship:
				if !seenEdgeIDs[v.ElementId] {
					graph.Edges = append(graph.Edges, &models.Edge{
						ID:         v.ElementId,
						Source:     v.StartElementId,
						Target:     v.EndElementId,
						Type:       v.Type,
						Properties: v.Props,
					})
					seenEdgeIDs[v.ElementId] = true
				}
			}
		}
	}

	return graph, nil
}
