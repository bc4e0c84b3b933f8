package graphframe

import (
	"context"
	"fmt"
	"strings"
)

// Direction selects how a traversal's relationship pattern is rendered.
type Direction string

const (
	DirOut  Direction = "out"
	DirIn   Direction = "in"
	DirBoth Direction = "both"
)

// orderTerm is one ORDER BY entry: a field name plus its direction, parsed
// from a "field__desc"/"field__asc" suffix (ascending when no suffix is
// given).
type orderTerm struct {
	Field string
	Desc  bool
}

func parseOrderTerm(spec string) orderTerm {
	if strings.HasSuffix(spec, "__desc") {
		return orderTerm{Field: strings.TrimSuffix(spec, "__desc"), Desc: true}
	}
	if strings.HasSuffix(spec, "__asc") {
		return orderTerm{Field: strings.TrimSuffix(spec, "__asc"), Desc: false}
	}
	return orderTerm{Field: spec, Desc: false}
}

// CompiledStatement is the terminal output of every frame/write compilation:
// parameterized text plus its bound values, ready to hand to an executor.
type CompiledStatement struct {
	Text       string
	Parameters map[string]any
}

// Executor is the sole collaborator a frame or write plan needs to actually
// run. Neo4jExecutor (db.go) is the only production implementation; tests
// supply fakes.
type Executor interface {
	Run(ctx context.Context, query string, params map[string]any) (Result, error)
}

// Result is the minimal row-producing shape a frame's Collect/Count
// methods need. Neo4jExecutor adapts *neo4j.EagerResult to this.
type Result interface {
	Records() []map[string]any
}

// NodeFrame describes a read (and, via its write-producing methods, a
// write) over a single node label. Every builder method returns a new
// NodeFrame value; none mutate the receiver, so a NodeFrame can be safely
// shared and branched (I5).
type NodeFrame struct {
	label   string
	alias   string
	filters []Filter
	selects []string
	orders  []orderTerm
	limit   *int
	offset  *int
	exec    Executor
}

// NewNodeFrame starts a read over nodes carrying label, bound under the
// alias "n"; Alias overrides it.
func NewNodeFrame(exec Executor, label string) NodeFrame {
	return NodeFrame{label: label, alias: "n", exec: exec}
}

func (f NodeFrame) Alias(alias string) NodeFrame {
	f.alias = alias
	return f
}

func (f NodeFrame) Where(filters ...Filter) NodeFrame {
	f.filters = append(append([]Filter{}, f.filters...), filters...)
	return f
}

func (f NodeFrame) Select(fields ...string) NodeFrame {
	f.selects = append(append([]string{}, f.selects...), fields...)
	return f
}

func (f NodeFrame) OrderBy(specs ...string) NodeFrame {
	terms := make([]orderTerm, 0, len(specs))
	for _, s := range specs {
		terms = append(terms, parseOrderTerm(s))
	}
	f.orders = append(append([]orderTerm{}, f.orders...), terms...)
	return f
}

func (f NodeFrame) Limit(n int) NodeFrame {
	f.limit = &n
	return f
}

func (f NodeFrame) Offset(n int) NodeFrame {
	f.offset = &n
	return f
}

// Traverse produces a PathFrame describing a relationship walk from this
// frame's nodes, by default bound under aliases "from"/"rel"/"to".
func (f NodeFrame) Traverse(relType string, to string, direction Direction) PathFrame {
	return PathFrame{
		fromLabel: f.label,
		fromAlias: "from",
		relType:   relType,
		toLabel:   to,
		relAlias:  "rel",
		toAlias:   "to",
		direction: direction,
		filters:   append([]Filter{}, f.filters...),
		exec:      f.exec,
	}
}

// resolvePredicates turns f.filters into Predicates namespaced to f.alias,
// or to the key's leading namespace segment when it carries one.
func (f NodeFrame) resolvePredicates() ([]Predicate, error) {
	preds := make([]Predicate, 0, len(f.filters))
	for _, flt := range f.filters {
		pk, err := parseFilterKey(flt.Key)
		if err != nil {
			return nil, err
		}
		ns := f.alias
		if pk.Namespace != "" {
			ns = pk.Namespace
		}
		field := pk.Field
		if pk.Namespace == "" {
			// no namespace segment: the key was a bare field or
			// field__op, so the predicate stays on f.alias.
		}
		preds = append(preds, Predicate{Field: field, Op: pk.Op, Value: flt.Value, Namespace: ns})
	}
	return preds, nil
}

func compileSelectClause(alias string, fields []string) string {
	if len(fields) == 0 {
		return alias
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, alias+"."+field)
	}
	return strings.Join(parts, ", ")
}

func compileOrderByClause(alias string, orders []orderTerm) string {
	if len(orders) == 0 {
		return ""
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		term := alias + "." + o.Field
		if o.Desc {
			term += " DESC"
		}
		parts = append(parts, term)
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// Compile renders this frame's read as a MATCH/WHERE/RETURN statement.
func (f NodeFrame) Compile() (CompiledStatement, error) {
	r := newRegistry()
	label, err := r.validateStrict(f.label)
	if err != nil {
		return CompiledStatement{}, err
	}
	preds, err := f.resolvePredicates()
	if err != nil {
		return CompiledStatement{}, err
	}
	where, err := compileWhere(preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}

	clauses := []string{fmt.Sprintf("MATCH (%s:%s)", f.alias, label)}
	if where != "" {
		clauses = append(clauses, where)
	}
	clauses = append(clauses, "RETURN "+compileSelectClause(f.alias, f.selects))
	if ob := compileOrderByClause(f.alias, f.orders); ob != "" {
		clauses = append(clauses, ob)
	}
	if f.offset != nil {
		clauses = append(clauses, fmt.Sprintf("SKIP %d", *f.offset))
	}
	if f.limit != nil {
		clauses = append(clauses, fmt.Sprintf("LIMIT %d", *f.limit))
	}
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}

// CompileCount renders this frame's filters as MATCH/WHERE/RETURN
// count(alias), discarding Select/OrderBy/Limit/Offset — none of them
// affect a count.
func (f NodeFrame) CompileCount() (CompiledStatement, error) {
	r := newRegistry()
	label, err := r.validateStrict(f.label)
	if err != nil {
		return CompiledStatement{}, err
	}
	preds, err := f.resolvePredicates()
	if err != nil {
		return CompiledStatement{}, err
	}
	where, err := compileWhere(preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}
	clauses := []string{fmt.Sprintf("MATCH (%s:%s)", f.alias, label)}
	if where != "" {
		clauses = append(clauses, where)
	}
	clauses = append(clauses, fmt.Sprintf("RETURN count(%s) AS count", f.alias))
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}

// Count compiles and executes CompileCount, returning the matched row count.
func (f NodeFrame) Count(ctx context.Context) (int64, error) {
	stmt, err := f.CompileCount()
	if err != nil {
		return 0, err
	}
	res, err := f.exec.Run(ctx, stmt.Text, stmt.Parameters)
	if err != nil {
		return 0, newExecutionError(stmt.Text, stmt.Parameters, err)
	}
	records := res.Records()
	if len(records) == 0 {
		return 0, nil
	}
	return toInt64(records[0]["count"]), nil
}

func toInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// Collect compiles and executes the frame's read, returning its rows.
func (f NodeFrame) Collect(ctx context.Context) ([]map[string]any, error) {
	stmt, err := f.Compile()
	if err != nil {
		return nil, err
	}
	res, err := f.exec.Run(ctx, stmt.Text, stmt.Parameters)
	if err != nil {
		return nil, newExecutionError(stmt.Text, stmt.Parameters, err)
	}
	return res.Records(), nil
}

// Upsert starts a NodeUpsert write plan rooted at this frame's label.
func (f NodeFrame) Upsert(data []map[string]any, key []string) WritePlan {
	return newNodeUpsertPlan(f.exec, f.label, data, key)
}

// Patch starts a Patch write plan over nodes matched by this frame's
// filters.
func (f NodeFrame) Patch(updates map[string]any) WritePlan {
	preds, _ := f.resolvePredicates()
	return newPatchPlan(f.exec, nodeTarget{label: f.label, alias: f.alias}, preds, updates)
}

// Delete starts a Delete write plan over nodes matched by this frame's
// filters.
func (f NodeFrame) Delete(detach bool) WritePlan {
	preds, _ := f.resolvePredicates()
	return newDeletePlan(f.exec, nodeTarget{label: f.label, alias: f.alias}, preds, detach)
}

// RelFrame describes a read over relationships of a single type,
// independent of the nodes at either end.
type RelFrame struct {
	relType string
	alias   string
	filters []Filter
	selects []string
	orders  []orderTerm
	limit   *int
	offset  *int
	exec    Executor
}

func NewRelFrame(exec Executor, relType string) RelFrame {
	return RelFrame{relType: relType, alias: "r", exec: exec}
}

func (f RelFrame) Where(filters ...Filter) RelFrame {
	f.filters = append(append([]Filter{}, f.filters...), filters...)
	return f
}

func (f RelFrame) Select(fields ...string) RelFrame {
	f.selects = append(append([]string{}, f.selects...), fields...)
	return f
}

func (f RelFrame) Limit(n int) RelFrame {
	f.limit = &n
	return f
}

func (f RelFrame) resolvePredicates() ([]Predicate, error) {
	preds := make([]Predicate, 0, len(f.filters))
	for _, flt := range f.filters {
		pk, err := parseFilterKey(flt.Key)
		if err != nil {
			return nil, err
		}
		ns := f.alias
		if pk.Namespace != "" {
			ns = pk.Namespace
		}
		preds = append(preds, Predicate{Field: pk.Field, Op: pk.Op, Value: flt.Value, Namespace: ns})
	}
	return preds, nil
}

// Compile renders this frame's read as an undirected relationship match.
func (f RelFrame) Compile() (CompiledStatement, error) {
	r := newRegistry()
	relType, err := r.validateStrict(f.relType)
	if err != nil {
		return CompiledStatement{}, err
	}
	preds, err := f.resolvePredicates()
	if err != nil {
		return CompiledStatement{}, err
	}
	where, err := compileWhere(preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}

	clauses := []string{fmt.Sprintf("MATCH ()-[%s:%s]-()", f.alias, relType)}
	if where != "" {
		clauses = append(clauses, where)
	}
	if len(f.selects) == 0 {
		clauses = append(clauses, "RETURN "+f.alias)
	} else {
		clauses = append(clauses, "RETURN "+compileSelectClause(f.alias, f.selects))
	}
	if f.limit != nil {
		clauses = append(clauses, fmt.Sprintf("LIMIT %d", *f.limit))
	}
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}

// PathFrame describes a single-relationship traversal: (from)-[rel]-(to). Alias
// customization is tracked separately from the built-in "from"/"rel"/"to"
// names so namespace resolution (resolveNamespace) can tell whether the
// caller customized the full alias triple.
type PathFrame struct {
	fromLabel string
	fromAlias string
	relType   string
	relAlias  string
	toLabel   string
	toAlias   string
	direction Direction

	customAliases bool

	filters []Filter
	selects []string
	orders  []orderTerm
	limit   *int
	offset  *int
	exec    Executor
}

// Aliases overrides the default "from"/"rel"/"to" triple. Once called, the
// frame compiler's namespace resolution checks a segment against these
// custom aliases first, and only then against the built-in names (see
// resolveNamespace).
func (f PathFrame) Aliases(from, rel, to string) PathFrame {
	f.fromAlias, f.relAlias, f.toAlias = from, rel, to
	f.customAliases = true
	return f
}

func (f PathFrame) Where(filters ...Filter) PathFrame {
	f.filters = append(append([]Filter{}, f.filters...), filters...)
	return f
}

func (f PathFrame) Select(fields ...string) PathFrame {
	f.selects = append(append([]string{}, f.selects...), fields...)
	return f
}

func (f PathFrame) OrderBy(specs ...string) PathFrame {
	terms := make([]orderTerm, 0, len(specs))
	for _, s := range specs {
		terms = append(terms, parseOrderTerm(s))
	}
	f.orders = append(append([]orderTerm{}, f.orders...), terms...)
	return f
}

func (f PathFrame) Limit(n int) PathFrame {
	f.limit = &n
	return f
}

func (f PathFrame) Offset(n int) PathFrame {
	f.offset = &n
	return f
}

// resolveNamespace implements the three-step order: when the caller has
// customized the full alias triple, a segment that literally names one of
// those custom aliases wins first — this is the only case a genuine
// collision with a built-in name can arise (e.g. Aliases("to", "rel",
// "dest") names the from-slot "to", colliding with the built-in "to"
// segment). Failing that, the built-in names {from, rel, to} resolve to
// whatever alias currently occupies that slot, customized or not. Anything
// else is treated as belonging to the "from" side, since that is the
// implicit subject of a traversal that never names a namespace at all.
func (f PathFrame) resolveNamespace(segment string) string {
	if f.customAliases {
		switch segment {
		case f.fromAlias:
			return f.fromAlias
		case f.relAlias:
			return f.relAlias
		case f.toAlias:
			return f.toAlias
		}
	}
	switch segment {
	case "from":
		return f.fromAlias
	case "rel":
		return f.relAlias
	case "to":
		return f.toAlias
	}
	return f.fromAlias
}

func (f PathFrame) resolvePredicates() ([]Predicate, error) {
	return f.resolveFilters(f.filters)
}

// resolveFilters namespaces an arbitrary filter list against this
// traversal's alias cascade — shared by the traversal's own Where() and by
// backFrame, whose filters are accumulated into the same WHERE clause
// before the WITH.
func (f PathFrame) resolveFilters(filters []Filter) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(filters))
	for _, flt := range filters {
		pk, err := parseFilterKey(flt.Key)
		if err != nil {
			return nil, err
		}
		ns := f.fromAlias
		field := pk.Field
		if pk.Namespace != "" {
			ns = f.resolveNamespace(pk.Namespace)
		}
		preds = append(preds, Predicate{Field: field, Op: pk.Op, Value: flt.Value, Namespace: ns})
	}
	return preds, nil
}

// compileSelectClause renders f.selects as a RETURN projection, resolving
// each field's namespace the same way resolvePredicates does — a selected
// field follows the same from__/rel__/to__ grammar as a filter key, just
// without an operator suffix, so "to__age" projects to.age rather than
// always projecting off the from-side alias.
func (f PathFrame) compileSelectClause() (string, error) {
	parts := make([]string, 0, len(f.selects))
	for _, field := range f.selects {
		pk, err := parseFilterKey(field)
		if err != nil {
			return "", err
		}
		ns := f.fromAlias
		if pk.Namespace != "" {
			ns = f.resolveNamespace(pk.Namespace)
		}
		parts = append(parts, ns+"."+pk.Field)
	}
	return strings.Join(parts, ", "), nil
}

func relPattern(direction Direction, relAlias, relType string) string {
	switch direction {
	case DirOut:
		return fmt.Sprintf("-[%s:%s]->", relAlias, relType)
	case DirIn:
		return fmt.Sprintf("<-[%s:%s]-", relAlias, relType)
	default:
		return fmt.Sprintf("-[%s:%s]-", relAlias, relType)
	}
}

// Compile renders the traversal as MATCH (from)-[rel]-(to) WHERE ... RETURN.
func (f PathFrame) Compile() (CompiledStatement, error) {
	r := newRegistry()
	fromLabel, err := r.validateStrict(f.fromLabel)
	if err != nil {
		return CompiledStatement{}, err
	}
	toLabel, err := r.validateStrict(f.toLabel)
	if err != nil {
		return CompiledStatement{}, err
	}
	relType, err := r.validateStrict(f.relType)
	if err != nil {
		return CompiledStatement{}, err
	}
	preds, err := f.resolvePredicates()
	if err != nil {
		return CompiledStatement{}, err
	}
	where, err := compileWhere(preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}

	pattern := fmt.Sprintf("MATCH (%s:%s)%s(%s:%s)",
		f.fromAlias, fromLabel, relPattern(f.direction, f.relAlias, relType), f.toAlias, toLabel)
	clauses := []string{pattern}
	if where != "" {
		clauses = append(clauses, where)
	}

	returnAlias := f.fromAlias
	if len(f.selects) == 0 {
		clauses = append(clauses, fmt.Sprintf("RETURN %s, %s, %s", f.fromAlias, f.relAlias, f.toAlias))
	} else {
		projection, err := f.compileSelectClause()
		if err != nil {
			return CompiledStatement{}, err
		}
		clauses = append(clauses, "RETURN "+projection)
	}
	if ob := compileOrderByClause(returnAlias, f.orders); ob != "" {
		clauses = append(clauses, ob)
	}
	if f.offset != nil {
		clauses = append(clauses, fmt.Sprintf("SKIP %d", *f.offset))
	}
	if f.limit != nil {
		clauses = append(clauses, fmt.Sprintf("LIMIT %d", *f.limit))
	}
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}

// Back returns a backFrame describing the back-to-origin read: the same
// pattern and filters, but collapsed to the "from" side via WITH. Unlike
// the back-to-origin bug this intentionally does not inherit, the WITH
// clause names the real resolved from-alias rather than a literal "from".
func (f PathFrame) Back() backFrame {
	return backFrame{path: f}
}

// backFrame compiles a back-to-origin read: MATCH <pattern> WHERE <preds>
// WITH <from> RETURN <from-projection>. It exposes the same builder surface
// as a NodeFrame over the "from" side — Where/OrderBy/Limit/Offset/Select —
// because once collapsed to the from-alias it behaves like one; filters
// added here are namespaced against the traversal's full from/rel/to
// cascade and folded into the same WHERE clause as the traversal's own
// filters, ahead of the WITH, while OrderBy/Limit/Offset/Select apply to
// the single projected "from" value after it.
type backFrame struct {
	path    PathFrame
	filters []Filter
	selects []string
	orders  []orderTerm
	limit   *int
	offset  *int
}

func (b backFrame) Where(filters ...Filter) backFrame {
	b.filters = append(append([]Filter{}, b.filters...), filters...)
	return b
}

func (b backFrame) Select(fields ...string) backFrame {
	b.selects = append(append([]string{}, b.selects...), fields...)
	return b
}

func (b backFrame) OrderBy(specs ...string) backFrame {
	terms := make([]orderTerm, 0, len(specs))
	for _, s := range specs {
		terms = append(terms, parseOrderTerm(s))
	}
	b.orders = append(append([]orderTerm{}, b.orders...), terms...)
	return b
}

func (b backFrame) Limit(n int) backFrame {
	b.limit = &n
	return b
}

func (b backFrame) Offset(n int) backFrame {
	b.offset = &n
	return b
}

func (b backFrame) Compile() (CompiledStatement, error) {
	f := b.path
	r := newRegistry()
	fromLabel, err := r.validateStrict(f.fromLabel)
	if err != nil {
		return CompiledStatement{}, err
	}
	toLabel, err := r.validateStrict(f.toLabel)
	if err != nil {
		return CompiledStatement{}, err
	}
	relType, err := r.validateStrict(f.relType)
	if err != nil {
		return CompiledStatement{}, err
	}
	preds, err := f.resolveFilters(f.filters)
	if err != nil {
		return CompiledStatement{}, err
	}
	backPreds, err := f.resolveFilters(b.filters)
	if err != nil {
		return CompiledStatement{}, err
	}
	preds = append(preds, backPreds...)
	where, err := compileWhere(preds, r)
	if err != nil {
		return CompiledStatement{}, err
	}

	pattern := fmt.Sprintf("MATCH p = (%s:%s)%s(%s:%s)",
		f.fromAlias, fromLabel, relPattern(f.direction, f.relAlias, relType), f.toAlias, toLabel)
	clauses := []string{pattern}
	if where != "" {
		clauses = append(clauses, where)
	}
	clauses = append(clauses, "WITH "+f.fromAlias)
	if len(b.selects) == 0 {
		clauses = append(clauses, "RETURN "+f.fromAlias)
	} else {
		clauses = append(clauses, "RETURN "+compileSelectClause(f.fromAlias, b.selects))
	}
	if ob := compileOrderByClause(f.fromAlias, b.orders); ob != "" {
		clauses = append(clauses, ob)
	}
	if b.offset != nil {
		clauses = append(clauses, fmt.Sprintf("SKIP %d", *b.offset))
	}
	if b.limit != nil {
		clauses = append(clauses, fmt.Sprintf("LIMIT %d", *b.limit))
	}
	return CompiledStatement{Text: strings.Join(clauses, "\n"), Parameters: r.params}, nil
}
