// Package graphframe provides a generic repository pattern for Neo4j,
// simplifying CRUD (Create, Read, Update, Delete) operations on top of the
// frame/write-plan compilers.
package graphframe

import (
	"context"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// Repository provides a generic abstraction for CRUD operations for a specific
// entity type T. It relies on struct tags to map struct fields to node properties.
type Repository[T any] struct {
	exec Executor
	meta *entityMetadata
}

// NewRepository creates a new generic repository for the type T.
// It parses the struct tags of T to understand its mapping to a Neo4j node.
//
// Parameters:
//   - exec: The Executor used to run all Cypher statements.
//
// Returns:
//
//	A new Repository instance or an error if the struct tags are invalid.
func NewRepository[T any](exec Executor) (*Repository[T], error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{
		exec: exec,
		meta: meta,
	}, nil
}

// frame returns a NodeFrame scoped to this repository's label, ready for
// Where/Select/OrderBy chaining.
func (r *Repository[T]) frame() NodeFrame {
	return NewNodeFrame(r.exec, r.meta.Label)
}

// Save creates a new node or updates an existing one.
// It uses a MERGE query based on the struct's primary key (`pk` tag).
// All other tagged fields are set on the node.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	val := reflect.ValueOf(entity).Elem()
	pkValue := val.FieldByName(r.meta.PKField).Interface()
	mergeProps := map[string]interface{}{r.meta.PKProp: pkValue}

	setProps := make(map[string]interface{})
	for fieldName, propName := range r.meta.Mappings {
		if fieldName != r.meta.PKField {
			setProps["n."+propName] = val.FieldByName(fieldName).Interface()
		}
	}

	qb := gocypher.NewQueryBuilder().
		Merge(gocypher.N("n", r.meta.Label).WithProperties(mergeProps)).
		Set(setProps).
		Return("n")

	query, params, err := qb.Build()
	if err != nil {
		return err
	}
	_, err = r.exec.Run(ctx, query, params)
	return err
}

// FindByID retrieves a single entity from the database by its primary key.
func (r *Repository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	props := map[string]interface{}{r.meta.PKProp: id}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		Return("n").
		Build()
	if err != nil {
		return nil, err
	}

	res, err := r.exec.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records := res.Records()
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	if len(records) > 1 {
		return nil, fmt.Errorf("expected 1 record but found %d", len(records))
	}

	return entityFromRow[T](records[0], r.meta)
}

// FindAll returns every node carrying this repository's label.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	rows, err := r.frame().Collect(ctx)
	if err != nil {
		return nil, err
	}
	return entitiesFromRows[T](rows, r.meta)
}

// FindByProperty returns every node whose property matches value. fieldName
// is a struct field name (not the database property name); it is resolved
// through the repository's tag mapping the same way Save/FindByID are.
func (r *Repository[T]) FindByProperty(ctx context.Context, fieldName string, value any) ([]*T, error) {
	propName, ok := r.meta.Mappings[fieldName]
	if !ok {
		return nil, fmt.Errorf("field %q is not a mapped property of %s", fieldName, r.meta.Label)
	}
	rows, err := r.frame().Where(F(propName, value)).Collect(ctx)
	if err != nil {
		return nil, err
	}
	return entitiesFromRows[T](rows, r.meta)
}

// Find returns every node matching the given filters. Filter keys use the
// field-key grammar (property, property__op, etc.) against database
// property names.
func (r *Repository[T]) Find(ctx context.Context, filters ...Filter) ([]*T, error) {
	rows, err := r.frame().Where(filters...).Collect(ctx)
	if err != nil {
		return nil, err
	}
	return entitiesFromRows[T](rows, r.meta)
}

// FindOne returns the first node matching the given filters, or ErrNotFound
// if none match.
func (r *Repository[T]) FindOne(ctx context.Context, filters ...Filter) (*T, error) {
	rows, err := r.frame().Where(filters...).Limit(1).Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return entityFromRow[T](rows[0], r.meta)
}

// Count returns the number of nodes carrying this repository's label.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.frame().Count(ctx)
}

// CountByProperty returns the number of nodes whose property matches value.
func (r *Repository[T]) CountByProperty(ctx context.Context, fieldName string, value any) (int64, error) {
	propName, ok := r.meta.Mappings[fieldName]
	if !ok {
		return 0, fmt.Errorf("field %q is not a mapped property of %s", fieldName, r.meta.Label)
	}
	return r.frame().Where(F(propName, value)).Count(ctx)
}

// Delete removes a node from the database by its primary key.
// It uses a DETACH DELETE query to also remove any relationships connected to the node.
func (r *Repository[T]) Delete(ctx context.Context, id interface{}) error {
	props := map[string]interface{}{r.meta.PKProp: id}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		DetachDelete("n").
		Build()
	if err != nil {
		return err
	}
	_, err = r.exec.Run(ctx, query, params)
	return err
}

// entityFromRow extracts the sole "n" value from row — a neo4j.Node, the
// shape every NodeFrame.Compile with no Select produces — and maps it into
// a new *T.
func entityFromRow[T any](row map[string]any, meta *entityMetadata) (*T, error) {
	nodeValue, ok := row["n"]
	if !ok {
		return nil, fmt.Errorf("could not find return value 'n' in query result")
	}
	node, ok := nodeValue.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("return value 'n' is not a node")
	}
	entity := new(T)
	if err := mapNodeToStruct(node, entity, meta); err != nil {
		return nil, err
	}
	return entity, nil
}

func entitiesFromRows[T any](rows []map[string]any, meta *entityMetadata) ([]*T, error) {
	entities := make([]*T, 0, len(rows))
	for _, row := range rows {
		entity, err := entityFromRow[T](row, meta)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// mapNodeToStruct is an internal helper function that populates a struct's fields
// from a neo4j.Node's properties, based on the parsed metadata.
func mapNodeToStruct(node neo4j.Node, entity any, meta *entityMetadata) error {
	val := reflect.ValueOf(entity).Elem()

	for fieldName, propName := range meta.Mappings {
		field := val.FieldByName(fieldName)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		propValue, ok := node.Props[propName]
		if !ok {
			continue
		}

		field.Set(reflect.ValueOf(propValue))
	}
	return nil
}
