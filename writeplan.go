package graphframe

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// writeState tracks a WritePlan's lifecycle. Commit moves the plan it
// returns from Described through Compiled to Committed, or to Failed on the
// first error, and refuses to run a plan already in Committed. Compile and
// Preview leave the state as it is; Previewed and Closed are declared but
// no method sets them.
type writeState string

const (
	stateDescribed writeState = "described"
	stateCompiled  writeState = "compiled"
	statePreviewed writeState = "previewed"
	stateCommitted writeState = "committed"
	stateClosed    writeState = "closed"
	stateFailed    writeState = "failed"
)

// writeKind discriminates the write shape a WritePlan carries.
type writeKind string

const (
	kindNodeUpsert    writeKind = "node_upsert"
	kindRelUpsert     writeKind = "rel_upsert"
	kindPatch         writeKind = "patch"
	kindDelete        writeKind = "delete"
	kindAdvancedMut   writeKind = "advanced_mutation"
	kindSchemaOp      writeKind = "schema_op"
)

// NullPolicy governs how a missing field in an upsert row is treated on
// ON MATCH SET, whether or not the plan is in patch mode. NullPolicySetNulls (the default, per the data
// model) writes the row's value through as-is, which for a row missing the
// field becomes an explicit null via UNWIND's per-row null-on-missing-key
// behavior. NullPolicyKeep instead emits a coalesce-style conditional that
// leaves the stored value untouched when the row doesn't carry the field.
type NullPolicy string

const (
	NullPolicySetNulls NullPolicy = "set_nulls"
	NullPolicyKeep      NullPolicy = "keep"
)

// RelUniquenessPolicy governs which properties a relationship upsert's
// MERGE pattern matches an existing edge on: RelUniquenessSingle merges on
// the relationship type between the two endpoints alone, RelUniquenessKeyed
// also on the relationship key fields. Both always MERGE.
type RelUniquenessPolicy string

const (
	RelUniquenessSingle RelUniquenessPolicy = "single"
	RelUniquenessKeyed  RelUniquenessPolicy = "keyed"
)

const defaultBatchSize = 1000

// nodeTarget names what a Patch or Delete plan operates on: a
// label+alias is all the MATCH clause needs, since the predicate list
// already carries the filters to narrow it.
type nodeTarget struct {
	label string
	alias string
}

type advancedKind string

const (
	advInc        advancedKind = "inc"
	advUnset      advancedKind = "unset"
	advListAppend advancedKind = "list_append"
	advListRemove advancedKind = "list_remove"
	advMapMerge   advancedKind = "map_merge"
)

// WritePlan describes one pending write. Like NodeFrame, every builder
// method returns a new WritePlan; Compile/Preview/Commit read the
// accumulated description but never mutate it, and the plan's state field
// only changes in the WritePlan that Commit returns (which is the one place
// a WritePlan's lifecycle is genuinely sequential rather than branchable).
type WritePlan struct {
	kind  writeKind
	state writeState
	exec  Executor

	// node/rel upsert
	label      string
	relType    string
	srcLabel   string
	dstLabel   string
	rows       []map[string]any
	key        []string
	srcKey     []string
	dstKey     []string
	patchMode  bool
	policy     NullPolicy
	relPolicy  RelUniquenessPolicy
	batchSize  int

	// patch / delete
	target  nodeTarget
	preds   []Predicate
	updates map[string]any
	detach  bool

	// advanced mutation
	advKind  advancedKind
	advField string
	advValue any

	// schema op
	schemaOp    string
	schemaLabel string
	schemaProps []string

	err error
}

func newNodeUpsertPlan(exec Executor, label string, rows []map[string]any, key []string) WritePlan {
	return WritePlan{
		kind: kindNodeUpsert, state: stateDescribed, exec: exec,
		label: label, rows: rows, key: key,
		policy: NullPolicySetNulls, batchSize: defaultBatchSize,
	}
}

// NewRelUpsertPlan describes a relationship upsert between a srcLabel node
// matched by srcKey fields and a dstLabel node matched by dstKey fields,
// both present on each row under src_<key> and dst_<key> names (a row for
// srcKey "userId" carries "src_userId"). Endpoints are MERGEd, not MATCHed: a row whose
// endpoint doesn't exist yet creates it, which is what keeps the whole
// upsert idempotent rather than requiring the nodes to pre-exist.
func NewRelUpsertPlan(exec Executor, relType string, rows []map[string]any, srcLabel string, srcKey []string, dstLabel string, dstKey []string) WritePlan {
	return WritePlan{
		kind: kindRelUpsert, state: stateDescribed, exec: exec,
		relType: relType, rows: rows,
		srcLabel: srcLabel, srcKey: srcKey, dstLabel: dstLabel, dstKey: dstKey,
		policy: NullPolicySetNulls, relPolicy: RelUniquenessSingle, batchSize: defaultBatchSize,
	}
}

func newPatchPlan(exec Executor, target nodeTarget, preds []Predicate, updates map[string]any) WritePlan {
	return WritePlan{
		kind: kindPatch, state: stateDescribed, exec: exec,
		target: target, preds: preds, updates: updates, policy: NullPolicyKeep,
	}
}

func newDeletePlan(exec Executor, target nodeTarget, preds []Predicate, detach bool) WritePlan {
	return WritePlan{
		kind: kindDelete, state: stateDescribed, exec: exec,
		target: target, preds: preds, detach: detach,
	}
}

// NullPolicy overrides the default null policy for an upsert plan.
func (p WritePlan) NullPolicy(policy NullPolicy) WritePlan {
	p.policy = policy
	return p
}

// Patch marks a node/rel upsert as patch-mode. A field a row omits reads
// as null through UNWIND, so what ON MATCH SET does with it is decided by
// NullPolicy alone: NullPolicySetNulls writes null, NullPolicyKeep leaves
// the stored value (as it also does for a field explicitly set to nil).
// The patch flag itself does not change the compiled statement.
func (p WritePlan) Patch() WritePlan {
	p.patchMode = true
	return p
}

// BatchSize overrides the default row-batch size (1000) an upsert splits
// into.
func (p WritePlan) BatchSize(n int) WritePlan {
	p.batchSize = n
	return p
}

// RelUniquenessPolicy selects how a relationship upsert matches an
// existing edge. RelUniquenessKeyed requires rel key fields to be supplied
// here; a plan missing them fails to compile with EmptyInputError.
func (p WritePlan) RelUniquenessPolicy(policy RelUniquenessPolicy, relKeyFields []string) WritePlan {
	p.relPolicy = policy
	p.key = relKeyFields
	return p
}

// NodeFrame.Inc/Unset/ListAppend/ListRemove/MapMerge each describe one
// AdvancedMutation.
func (f NodeFrame) Inc(field string, amount any) WritePlan {
	return f.advancedPlan(advInc, field, amount)
}

func (f NodeFrame) Unset(field string) WritePlan {
	return f.advancedPlan(advUnset, field, nil)
}

func (f NodeFrame) ListAppend(field string, value any) WritePlan {
	return f.advancedPlan(advListAppend, field, value)
}

func (f NodeFrame) ListRemove(field string, value any) WritePlan {
	return f.advancedPlan(advListRemove, field, value)
}

func (f NodeFrame) MapMerge(field string, value any) WritePlan {
	return f.advancedPlan(advMapMerge, field, value)
}

func (f NodeFrame) advancedPlan(kind advancedKind, field string, value any) WritePlan {
	preds, _ := f.resolvePredicates()
	return WritePlan{
		kind: kindAdvancedMut, state: stateDescribed, exec: f.exec,
		target: nodeTarget{label: f.label, alias: f.alias}, preds: preds,
		advKind: kind, advField: field, advValue: value,
	}
}

// Compile renders the plan's pending write(s) as CompiledStatements — one
// per batch for node/rel upserts, exactly one otherwise.
func (p WritePlan) Compile() ([]CompiledStatement, error) {
	switch p.kind {
	case kindNodeUpsert:
		return compileNodeUpsert(p)
	case kindRelUpsert:
		return compileRelUpsert(p)
	case kindPatch:
		stmt, err := compilePatch(p)
		if err != nil {
			return nil, err
		}
		return []CompiledStatement{stmt}, nil
	case kindDelete:
		stmt, err := compileDelete(p)
		if err != nil {
			return nil, err
		}
		return []CompiledStatement{stmt}, nil
	case kindAdvancedMut:
		stmt, err := compileAdvancedMutation(p)
		if err != nil {
			return nil, err
		}
		return []CompiledStatement{stmt}, nil
	case kindSchemaOp:
		stmt, err := compileSchemaOp(p)
		if err != nil {
			return nil, err
		}
		return []CompiledStatement{stmt}, nil
	default:
		return nil, fmt.Errorf("unknown write kind %q", p.kind)
	}
}

// Preview compiles without executing, returning the statements a Commit
// would run. Preview and Compile are deliberately the same operation; the
// distinction is purely the caller's stated intent.
func (p WritePlan) Preview() ([]CompiledStatement, error) {
	return p.Compile()
}

// Explain prepends EXPLAIN to each compiled statement and executes it,
// returning the planner output each row carries.
func (p WritePlan) Explain(ctx context.Context) ([]map[string]any, error) {
	return p.runPrefixed(ctx, "EXPLAIN ")
}

// Profile prepends PROFILE to each compiled statement and executes it.
func (p WritePlan) Profile(ctx context.Context) ([]map[string]any, error) {
	return p.runPrefixed(ctx, "PROFILE ")
}

func (p WritePlan) runPrefixed(ctx context.Context, prefix string) ([]map[string]any, error) {
	stmts, err := p.Compile()
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	for _, stmt := range stmts {
		res, err := p.exec.Run(ctx, prefix+stmt.Text, stmt.Parameters)
		if err != nil {
			return nil, newExecutionError(stmt.Text, stmt.Parameters, err)
		}
		rows = append(rows, res.Records()...)
	}
	return rows, nil
}

// Commit compiles and executes every statement in order, advancing state to
// Committed on success or Failed on the first error.
func (p WritePlan) Commit(ctx context.Context) (WritePlan, error) {
	if p.state == stateCommitted {
		return p, fmt.Errorf("write plan already committed")
	}
	stmts, err := p.Compile()
	if err != nil {
		p.state, p.err = stateFailed, err
		return p, err
	}
	p.state = stateCompiled
	for _, stmt := range stmts {
		if _, err := p.exec.Run(ctx, stmt.Text, stmt.Parameters); err != nil {
			p.state = stateFailed
			p.err = newExecutionError(stmt.Text, stmt.Parameters, err)
			return p, p.err
		}
	}
	p.state = stateCommitted
	return p, nil
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]map[string]any
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[i:end])
	}
	return out
}

func validateKeyPresence(rows []map[string]any, key []string, target string) error {
	if len(key) == 0 {
		return &EmptyInputError{Target: target, Reason: "key fields must not be empty"}
	}
	if len(rows) == 0 {
		return &EmptyInputError{Target: target, Reason: "row batch must not be empty"}
	}
	for i, row := range rows {
		for _, k := range key {
			if _, ok := row[k]; !ok {
				return &EmptyInputError{Target: target, Reason: fmt.Sprintf("row %d missing key field %q", i, k)}
			}
		}
	}
	return nil
}

// compileNodeUpsert renders UNWIND $batch AS item MERGE (n:Label {keyprops})
// ON CREATE SET ... ON MATCH SET ... for each batch, matching on key fields
// only (MERGE never matches on non-key fields, which is what keeps repeated
// commits of the same logical row idempotent). ON CREATE SET always writes
// every non-key field plainly — a freshly created node has no prior value
// worth keeping. ON MATCH SET writes the same fields, except under
// NullPolicyKeep each becomes a coalesce-style conditional that leaves the
// stored value alone when the row doesn't carry that field.
func compileNodeUpsert(p WritePlan) ([]CompiledStatement, error) {
	if err := validateKeyPresence(p.rows, p.key, "node upsert"); err != nil {
		return nil, err
	}
	r := newRegistry()
	if _, err := r.validateStrict(p.label); err != nil {
		return nil, err
	}
	keySet := make(map[string]bool, len(p.key))
	for _, k := range p.key {
		keySet[k] = true
	}
	fieldOrder, err := collectFieldOrder(p.rows, r)
	if err != nil {
		return nil, err
	}

	var stmts []CompiledStatement
	for _, batch := range batches(p.rows, p.batchSize) {
		rr := newRegistry()
		label, err := rr.validateStrict(p.label)
		if err != nil {
			return nil, err
		}
		keyProps := make([]string, 0, len(p.key))
		for _, k := range p.key {
			prop, err := rr.validateStrict(k)
			if err != nil {
				return nil, err
			}
			keyProps = append(keyProps, fmt.Sprintf("%s: item.%s", prop, prop))
		}
		onCreate := make([]string, 0)
		onMatch := make([]string, 0)
		for _, field := range fieldOrder {
			if keySet[field] {
				continue
			}
			prop, err := rr.validateStrict(field)
			if err != nil {
				return nil, err
			}
			onCreate = append(onCreate, fmt.Sprintf("n.%s = item.%s", prop, prop))
			if p.policy == NullPolicyKeep {
				onMatch = append(onMatch, fmt.Sprintf(
					"n.%s = CASE WHEN item.%s IS NULL THEN n.%s ELSE item.%s END", prop, prop, prop, prop))
			} else {
				onMatch = append(onMatch, fmt.Sprintf("n.%s = item.%s", prop, prop))
			}
		}
		rr.params["batch"] = batch
		clauses := []string{
			"UNWIND $batch AS item",
			fmt.Sprintf("MERGE (n:%s {%s})", label, strings.Join(keyProps, ", ")),
		}
		if len(onCreate) > 0 {
			clauses = append(clauses, "ON CREATE SET "+strings.Join(onCreate, ", "))
		}
		if len(onMatch) > 0 {
			clauses = append(clauses, "ON MATCH SET "+strings.Join(onMatch, ", "))
		}
		stmts = append(stmts, CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: rr.params})
	}
	return stmts, nil
}

// collectFieldOrder returns the union of row keys across batch in first-seen
// row order (fields first seen in the same row in sorted order), validating
// each as an identifier along the way.
func collectFieldOrder(rows []map[string]any, r *registry) ([]string, error) {
	seen := map[string]bool{}
	var order []string
	for _, row := range rows {
		fields := make([]string, 0, len(row))
		for field := range row {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if seen[field] {
				continue
			}
			if _, err := r.validateStrict(field); err != nil {
				return nil, err
			}
			seen[field] = true
			order = append(order, field)
		}
	}
	return order, nil
}

// compileRelUpsert renders UNWIND $batch AS item MERGE (src:SrcLabel {...})
// MERGE (dst:DstLabel {...}) MERGE (src)-[r:TYPE]->(dst) ON CREATE SET ...
// ON MATCH SET ..., honoring RelUniquenessPolicy: under RelUniquenessKeyed,
// the MERGE pattern includes the relationship key properties so repeated
// commits land on the same edge instead of creating duplicates. Both
// endpoints are MERGEd rather than MATCHed: a row whose endpoint doesn't
// exist yet creates it labeled, rather than requiring it to pre-exist.
func compileRelUpsert(p WritePlan) ([]CompiledStatement, error) {
	// Row fields carry the same prefixes matchProps reads them under.
	prefixed := func(prefix string, key []string) []string {
		out := make([]string, 0, len(key))
		for _, k := range key {
			out = append(out, prefix+"_"+k)
		}
		return out
	}
	srcFields, dstFields, relFields := prefixed("src", p.srcKey), prefixed("dst", p.dstKey), prefixed("rel", p.key)
	if err := validateKeyPresence(p.rows, srcFields, "relationship upsert (source)"); err != nil {
		return nil, err
	}
	if err := validateKeyPresence(p.rows, dstFields, "relationship upsert (destination)"); err != nil {
		return nil, err
	}
	if p.relPolicy == RelUniquenessKeyed && len(p.key) == 0 {
		return nil, &EmptyInputError{Target: "relationship upsert", Reason: "RelUniquenessKeyed policy requires rel key fields"}
	}

	keySet := map[string]bool{}
	for _, k := range srcFields {
		keySet[k] = true
	}
	for _, k := range dstFields {
		keySet[k] = true
	}
	for _, k := range relFields {
		keySet[k] = true
	}
	fieldOrder, err := collectFieldOrder(p.rows, newRegistry())
	if err != nil {
		return nil, err
	}

	var stmts []CompiledStatement
	for _, batch := range batches(p.rows, p.batchSize) {
		rr := newRegistry()
		srcLabel, err := rr.validateStrict(p.srcLabel)
		if err != nil {
			return nil, err
		}
		dstLabel, err := rr.validateStrict(p.dstLabel)
		if err != nil {
			return nil, err
		}
		relType, err := rr.validateStrict(p.relType)
		if err != nil {
			return nil, err
		}
		srcProps, err := matchProps("src", p.srcKey, rr)
		if err != nil {
			return nil, err
		}
		dstProps, err := matchProps("dst", p.dstKey, rr)
		if err != nil {
			return nil, err
		}

		relPattern := fmt.Sprintf("-[r:%s]->", relType)
		if p.relPolicy == RelUniquenessKeyed {
			relProps, err := matchProps("rel", p.key, rr)
			if err != nil {
				return nil, err
			}
			relPattern = fmt.Sprintf("-[r:%s {%s}]->", relType, strings.Join(relProps, ", "))
		}

		onCreate := make([]string, 0)
		onMatch := make([]string, 0)
		for _, field := range fieldOrder {
			if keySet[field] {
				continue
			}
			prop, err := rr.validateStrict(field)
			if err != nil {
				return nil, err
			}
			onCreate = append(onCreate, fmt.Sprintf("r.%s = item.%s", prop, prop))
			if p.policy == NullPolicyKeep {
				onMatch = append(onMatch, fmt.Sprintf(
					"r.%s = CASE WHEN item.%s IS NULL THEN r.%s ELSE item.%s END", prop, prop, prop, prop))
			} else {
				onMatch = append(onMatch, fmt.Sprintf("r.%s = item.%s", prop, prop))
			}
		}

		rr.params["batch"] = batch
		clauses := []string{
			"UNWIND $batch AS item",
			fmt.Sprintf("MERGE (src:%s {%s})", srcLabel, strings.Join(srcProps, ", ")),
			fmt.Sprintf("MERGE (dst:%s {%s})", dstLabel, strings.Join(dstProps, ", ")),
			fmt.Sprintf("MERGE (src)%s(dst)", relPattern),
		}
		if len(onCreate) > 0 {
			clauses = append(clauses, "ON CREATE SET "+strings.Join(onCreate, ", "))
		}
		if len(onMatch) > 0 {
			clauses = append(clauses, "ON MATCH SET "+strings.Join(onMatch, ", "))
		}
		stmts = append(stmts, CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: rr.params})
	}
	return stmts, nil
}

func matchProps(prefix string, key []string, r *registry) ([]string, error) {
	props := make([]string, 0, len(key))
	for _, k := range key {
		prop, err := r.validateStrict(k)
		if err != nil {
			return nil, err
		}
		props = append(props, fmt.Sprintf("%s: item.%s_%s", prop, prefix, prop))
	}
	return props, nil
}

// compilePatch renders MATCH (alias:Label) WHERE <preds> SET <updates>.
// With NullPolicyKeep (the Patch default), a field explicitly set to nil in
// updates is skipped rather than written — patch semantics only ever touch
// fields the caller actually named.
func compilePatch(p WritePlan) (CompiledStatement, error) {
	r := newRegistry()
	label, err := r.validateStrict(p.target.label)
	if err != nil {
		return CompiledStatement{}, err
	}
	where, err := compileWhere(p.preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}
	if len(p.updates) == 0 {
		return CompiledStatement{}, &EmptyInputError{Target: "patch", Reason: "updates must not be empty"}
	}

	fields := make([]string, 0, len(p.updates))
	for field := range p.updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	setParts := make([]string, 0, len(fields))
	for _, field := range fields {
		value := p.updates[field]
		if value == nil && p.policy == NullPolicyKeep {
			continue
		}
		prop, err := r.validateStrict(field)
		if err != nil {
			return CompiledStatement{}, err
		}
		param := r.bind(value)
		setParts = append(setParts, fmt.Sprintf("%s.%s = $%s", p.target.alias, prop, param))
	}

	clauses := []string{fmt.Sprintf("MATCH (%s:%s)", p.target.alias, label)}
	if where != "" {
		clauses = append(clauses, where)
	}
	if len(setParts) > 0 {
		clauses = append(clauses, "SET "+strings.Join(setParts, ", "))
	}
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}

func compileDelete(p WritePlan) (CompiledStatement, error) {
	r := newRegistry()
	label, err := r.validateStrict(p.target.label)
	if err != nil {
		return CompiledStatement{}, err
	}
	where, err := compileWhere(p.preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}
	clauses := []string{fmt.Sprintf("MATCH (%s:%s)", p.target.alias, label)}
	if where != "" {
		clauses = append(clauses, where)
	}
	if p.detach {
		clauses = append(clauses, fmt.Sprintf("DETACH DELETE %s", p.target.alias))
	} else {
		clauses = append(clauses, fmt.Sprintf("DELETE %s", p.target.alias))
	}
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}

// compileAdvancedMutation renders one of the five SET/REMOVE forms (inc,
// list_append and list_remove coalesce a missing property, unset removes
// it, map_merge applies += to the node). The MATCH/WHERE prefix is shared;
// each kind renders its own mutation clause rather than going through a
// single generic SET renderer.
func compileAdvancedMutation(p WritePlan) (CompiledStatement, error) {
	r := newRegistry()
	label, err := r.validateStrict(p.target.label)
	if err != nil {
		return CompiledStatement{}, err
	}
	where, err := compileWhere(p.preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}
	field, err := r.validateStrict(p.advField)
	if err != nil {
		return CompiledStatement{}, err
	}
	alias := p.target.alias

	var mutation string
	switch p.advKind {
	case advInc:
		param := r.bind(p.advValue)
		mutation = fmt.Sprintf("SET %s.%s = coalesce(%s.%s, 0) + $%s", alias, field, alias, field, param)
	case advUnset:
		mutation = fmt.Sprintf("REMOVE %s.%s", alias, field)
	case advListAppend:
		param := r.bind(p.advValue)
		mutation = fmt.Sprintf("SET %s.%s = coalesce(%s.%s, []) + $%s", alias, field, alias, field, param)
	case advListRemove:
		param := r.bind(p.advValue)
		mutation = fmt.Sprintf(
			"SET %s.%s = [x IN coalesce(%s.%s, []) WHERE x <> $%s]", alias, field, alias, field, param)
	case advMapMerge:
		param := r.bind(p.advValue)
		mutation = fmt.Sprintf("SET %s += $%s", alias, param)
	default:
		return CompiledStatement{}, fmt.Errorf("unknown advanced mutation kind %q", p.advKind)
	}

	clauses := []string{fmt.Sprintf("MATCH (%s:%s)", alias, label)}
	if where != "" {
		clauses = append(clauses, where)
	}
	clauses = append(clauses, mutation)
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}
