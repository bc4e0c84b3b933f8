package graphframe

import "fmt"

// SchemaOps is the entry point for constraint/index management, reached
// via Graph.Schema(). Every method returns a WritePlan so schema changes
// go through the same Compile/Preview/Commit lifecycle as data writes.
type SchemaOps struct {
	exec Executor
}

func NewSchemaOps(exec Executor) SchemaOps {
	return SchemaOps{exec: exec}
}

func constraintName(label string, props []string) string {
	name := "constraint_" + label
	for _, p := range props {
		name += "_" + p
	}
	return name
}

func indexName(label string, props []string) string {
	name := "index_" + label
	for _, p := range props {
		name += "_" + p
	}
	return name
}

func (s SchemaOps) EnsureUnique(label string, property string) WritePlan {
	return WritePlan{
		kind: kindSchemaOp, state: stateDescribed, exec: s.exec,
		schemaOp: "ensure_unique", schemaLabel: label, schemaProps: []string{property},
	}
}

func (s SchemaOps) EnsureNodeKey(label string, properties []string) WritePlan {
	return WritePlan{
		kind: kindSchemaOp, state: stateDescribed, exec: s.exec,
		schemaOp: "ensure_node_key", schemaLabel: label, schemaProps: properties,
	}
}

func (s SchemaOps) EnsureIndex(label string, properties []string) WritePlan {
	return WritePlan{
		kind: kindSchemaOp, state: stateDescribed, exec: s.exec,
		schemaOp: "ensure_index", schemaLabel: label, schemaProps: properties,
	}
}

func (s SchemaOps) DropUnique(label string, property string) WritePlan {
	return WritePlan{
		kind: kindSchemaOp, state: stateDescribed, exec: s.exec,
		schemaOp: "drop_unique", schemaLabel: label, schemaProps: []string{property},
	}
}

func (s SchemaOps) DropIndex(label string, properties []string) WritePlan {
	return WritePlan{
		kind: kindSchemaOp, state: stateDescribed, exec: s.exec,
		schemaOp: "drop_index", schemaLabel: label, schemaProps: properties,
	}
}

func compileSchemaOp(p WritePlan) (CompiledStatement, error) {
	r := newRegistry()
	label, err := r.validateStrict(p.schemaLabel)
	if err != nil {
		return CompiledStatement{}, err
	}
	if len(p.schemaProps) == 0 {
		return CompiledStatement{}, &EmptyInputError{Target: "schema operation", Reason: "at least one property is required"}
	}
	props := make([]string, 0, len(p.schemaProps))
	for _, prop := range p.schemaProps {
		name, err := r.validateStrict(prop)
		if err != nil {
			return CompiledStatement{}, err
		}
		props = append(props, "n."+name)
	}

	var text string
	switch p.schemaOp {
	case "ensure_unique":
		text = fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE %s IS UNIQUE",
			constraintName(p.schemaLabel, p.schemaProps), label, props[0])
	case "ensure_node_key":
		text = fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE (%s) IS NODE KEY",
			constraintName(p.schemaLabel, p.schemaProps), label, joinProps(props))
	case "ensure_index":
		text = fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (%s)",
			indexName(p.schemaLabel, p.schemaProps), label, joinProps(props))
	case "drop_unique":
		text = fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", constraintName(p.schemaLabel, p.schemaProps))
	case "drop_index":
		text = fmt.Sprintf("DROP INDEX %s IF EXISTS", indexName(p.schemaLabel, p.schemaProps))
	default:
		return CompiledStatement{}, fmt.Errorf("unknown schema operation %q", p.schemaOp)
	}
	return CompiledStatement{Text: text, Parameters: r.params}, nil
}

func joinProps(props []string) string {
	out := props[0]
	for _, p := range props[1:] {
		out += ", " + p
	}
	return out
}
