package scanner

import (
	"sort"

	"github.com/scanhive/scanhive/ast"
	"github.com/scanhive/scanhive/internal/rx"
	"github.com/scanhive/scanhive/module"
)

// valKind tags an evalValue's active field, standing in for the tri-
// valued (defined-true / defined-false / undefined) + multi-typed value
// a condition expression computes (spec §4.7).
type valKind int

const (
	vUndefined valKind = iota
	vBool
	vInt
	vFloat
	vBytes
	vModuleRoot  // a bare module name, not yet dereferenced by a field
	vModuleValue // the result of resolving a module access chain so far
)

type evalValue struct {
	kind       valKind
	b          bool
	i          int64
	f          float64
	s          []byte
	moduleName string
	mv         module.Value
}

var undefinedVal = evalValue{kind: vUndefined}

func boolVal(b bool) evalValue   { return evalValue{kind: vBool, b: b} }
func intVal(i int64) evalValue   { return evalValue{kind: vInt, i: i} }
func floatVal(f float64) evalValue { return evalValue{kind: vFloat, f: f} }
func bytesVal(s []byte) evalValue  { return evalValue{kind: vBytes, s: s} }

// evalContext is the per-scan state the evaluator walks a rule's
// ast.Expr condition against: the buffer, the current rule's matched
// variable spans, loop bindings, and a memoization cache for rule-name
// references (spec §4.7's "rule identifier" evaluates the referenced
// rule's own condition, at most once per scan).
type evalContext struct {
	buf        []byte
	rules      *Rules
	cache      map[string]*bool             // namespace+"\x00"+name -> memoized result
	modules    map[string]any                // module name -> cached module.Value root
	allMatches map[int]map[string][]matchSpan // every rule's AC/raw matches, computed once per scan
	scratch    map[string]any

	namespace   string
	stringNames []string
	matched     map[string][]matchSpan
	loopStack   []map[string]evalValue
}

// evalRule evaluates rule ruleIdx's condition against matched, memoizing
// by namespace+name so a rule referenced by name from another rule's
// condition is evaluated at most once per scan (spec §4.7).
func (ec *evalContext) evalRule(ruleIdx int, matched map[string][]matchSpan) bool {
	cr := ec.rules.rules[ruleIdx]
	key := cr.namespace + "\x00" + cr.name
	if ec.cache == nil {
		ec.cache = map[string]*bool{}
	}
	if cached, ok := ec.cache[key]; ok {
		return *cached
	}

	saveNS, saveNames, saveMatched := ec.namespace, ec.stringNames, ec.matched
	ec.namespace, ec.stringNames, ec.matched = cr.namespace, cr.stringNames, sortedSpans(matched)

	v := ec.eval(cr.condition)
	result := coerceBool(v)

	ec.namespace, ec.stringNames, ec.matched = saveNS, saveNames, saveMatched
	ec.cache[key] = &result
	return result
}

func sortedSpans(matched map[string][]matchSpan) map[string][]matchSpan {
	out := make(map[string][]matchSpan, len(matched))
	for name, spans := range matched {
		cp := append([]matchSpan(nil), spans...)
		sort.Slice(cp, func(i, j int) bool { return cp[i].start < cp[j].start })
		out[name] = cp
	}
	return out
}

func coerceBool(v evalValue) bool {
	switch v.kind {
	case vBool:
		return v.b
	case vInt:
		return v.i != 0
	case vFloat:
		return v.f != 0
	case vBytes:
		return len(v.s) > 0
	case vModuleValue:
		return true
	default:
		return false
	}
}

func (ec *evalContext) scanCtx() *module.ScanContext {
	return &module.ScanContext{Input: ec.buf, Scratch: ec.scratch}
}

// eval is the tri-valued condition evaluator's main dispatch, mirroring
// the structure of compiler/rule.go's type-checking walk but computing
// values against live scan data instead of static types (see DESIGN.md's
// single-AST decision: this is the second of the two walks over the same
// ast.Expr tree).
func (ec *evalContext) eval(e ast.Expr) evalValue {
	switch v := e.(type) {
	case *ast.BoolLit:
		return boolVal(v.Value)
	case *ast.IntLit:
		return intVal(v.Value)
	case *ast.FloatLit:
		return floatVal(v.Value)
	case *ast.BytesLit:
		return bytesVal(v.Value)
	case *ast.RegexLit:
		return undefinedVal // standalone regex literals aren't directly evaluable; only used via MatchesExpr
	case *ast.Filesize:
		return intVal(int64(len(ec.buf)))
	case *ast.Entrypoint:
		return ec.entrypoint()

	case *ast.StringRef:
		_, ok := ec.matched[v.Name]
		return boolVal(ok)
	case *ast.StringCount:
		spans := ec.matched[v.Name]
		if v.InFrom == nil {
			return intVal(int64(len(spans)))
		}
		from, to := ec.evalInt(v.InFrom), ec.evalInt(v.InTo)
		var n int64
		for _, sp := range spans {
			if int64(sp.start) >= from && int64(sp.start) <= to {
				n++
			}
		}
		return intVal(n)
	case *ast.StringOffset:
		return ec.stringNth(v.Name, v.Index, func(sp matchSpan) int64 { return int64(sp.start) })
	case *ast.StringLength:
		return ec.stringNth(v.Name, v.Index, func(sp matchSpan) int64 { return int64(sp.end - sp.start) })
	case *ast.StringAt:
		spans, ok := ec.matched[v.Name]
		if !ok {
			return boolVal(false)
		}
		pos := ec.evalInt(v.Pos)
		for _, sp := range spans {
			if int64(sp.start) == pos {
				return boolVal(true)
			}
		}
		return boolVal(false)
	case *ast.StringIn:
		spans, ok := ec.matched[v.Name]
		if !ok {
			return boolVal(false)
		}
		from, to := ec.evalInt(v.From), ec.evalInt(v.To)
		for _, sp := range spans {
			if int64(sp.start) >= from && int64(sp.start) <= to {
				return boolVal(true)
			}
		}
		return boolVal(false)

	case *ast.Ident:
		return ec.evalIdent(v)
	case *ast.FieldAccess:
		return ec.moduleField(ec.evalModuleBase(v.Target), v.Field)
	case *ast.IndexAccess:
		return ec.moduleIndex(ec.evalModuleBase(v.Target), ec.eval(v.Index))
	case *ast.Call:
		args := make([]evalValue, len(v.Args))
		for i, a := range v.Args {
			args[i] = ec.eval(a)
		}
		return ec.moduleCall(ec.evalModuleBase(v.Target), args)

	case *ast.UnaryExpr:
		return ec.evalUnary(v)
	case *ast.BinaryExpr:
		return ec.evalBinary(v)
	case *ast.MatchesExpr:
		return ec.evalMatches(v)
	case *ast.OfExpr:
		return boolVal(ec.evalOf(v))
	case *ast.ForExpr:
		return boolVal(ec.evalFor(v))

	default:
		return undefinedVal
	}
}

// evalModuleBase evaluates the Target of a FieldAccess/IndexAccess/Call
// without collapsing a bare module-name Ident straight to "undefined":
// module roots only become meaningful once a field is taken off them.
func (ec *evalContext) evalModuleBase(e ast.Expr) evalValue {
	if id, ok := e.(*ast.Ident); ok {
		if v, ok := ec.lookupLoopIdent(id.Name); ok {
			return v
		}
		if _, ok := ec.rules.modules[id.Name]; ok {
			return evalValue{kind: vModuleRoot, moduleName: id.Name}
		}
	}
	return ec.eval(e)
}

func (ec *evalContext) stringNth(name string, idxExpr ast.Expr, pick func(matchSpan) int64) evalValue {
	spans, ok := ec.matched[name]
	if !ok {
		return undefinedVal
	}
	idx := int64(1)
	if idxExpr != nil {
		idx = ec.evalInt(idxExpr)
	}
	if idx < 1 || idx > int64(len(spans)) {
		return undefinedVal
	}
	return intVal(pick(spans[idx-1]))
}

func (ec *evalContext) evalInt(e ast.Expr) int64 {
	v := ec.eval(e)
	switch v.kind {
	case vInt:
		return v.i
	case vFloat:
		return int64(v.f)
	default:
		return 0
	}
}

func (ec *evalContext) entrypoint() evalValue {
	// Without a backing pe/elf module parse, entrypoint falls back to 0
	// (spec's file-format introspection is an independent collaborator,
	// see module/formats.go); a wired pe module's own entry_point field
	// remains the authoritative source once one is plugged in.
	return intVal(0)
}

func (ec *evalContext) lookupLoopIdent(name string) (evalValue, bool) {
	for i := len(ec.loopStack) - 1; i >= 0; i-- {
		if v, ok := ec.loopStack[i][name]; ok {
			return v, true
		}
	}
	return evalValue{}, false
}

func (ec *evalContext) evalIdent(id *ast.Ident) evalValue {
	if v, ok := ec.lookupLoopIdent(id.Name); ok {
		return v
	}
	if idx, ok := ec.rules.byNS[ec.namespace][id.Name]; ok {
		return boolVal(ec.evalRuleByIndex(idx))
	}
	if _, ok := ec.rules.modules[id.Name]; ok {
		return evalValue{kind: vModuleRoot, moduleName: id.Name}
	}
	return undefinedVal
}

// evalRuleByIndex evaluates another rule referenced by bare name from
// this rule's condition (same-namespace Ident resolution, or a global
// rule's prerequisite gate), against the matches ScanMem already
// computed for the whole ruleset in one AC pass.
func (ec *evalContext) evalRuleByIndex(ruleIdx int) bool {
	return ec.evalRule(ruleIdx, ec.allMatches[ruleIdx])
}

func (ec *evalContext) moduleDynamicRoot(name string) module.Value {
	if ec.modules == nil {
		ec.modules = map[string]any{}
	}
	if v, ok := ec.modules[name]; ok {
		return v.(module.Value)
	}
	mod := ec.rules.modules[name]
	dv := mod.DynamicValue(ec.scanCtx())
	ec.modules[name] = dv
	return dv
}

func fromModuleValue(v module.Value) evalValue {
	switch vv := v.(type) {
	case module.VInteger:
		return intVal(vv.V)
	case module.VFloat:
		return floatVal(vv.V)
	case module.VString:
		return bytesVal(vv.V)
	case module.VBoolean:
		return boolVal(vv.V)
	default:
		return evalValue{kind: vModuleValue, mv: v}
	}
}

func toModuleValue(v evalValue) module.Value {
	switch v.kind {
	case vInt:
		return module.VInteger{V: v.i}
	case vFloat:
		return module.VFloat{V: v.f}
	case vBytes:
		return module.VString{V: v.s}
	case vBool:
		return module.VBoolean{V: v.b}
	case vModuleValue:
		return v.mv
	default:
		return module.VInteger{V: 0}
	}
}

func (ec *evalContext) moduleField(base evalValue, field string) evalValue {
	switch base.kind {
	case vModuleRoot:
		mod := ec.rules.modules[base.moduleName]
		if sv, ok := mod.StaticValues()[field]; ok {
			return fromModuleValue(sv)
		}
		if dict, ok := ec.moduleDynamicRoot(base.moduleName).(module.VDictionary); ok {
			if f, ok := dict.Fields[field]; ok {
				return fromModuleValue(f)
			}
		}
		return undefinedVal
	case vModuleValue:
		if dict, ok := base.mv.(module.VDictionary); ok {
			if f, ok := dict.Fields[field]; ok {
				return fromModuleValue(f)
			}
		}
		return undefinedVal
	default:
		return undefinedVal
	}
}

func (ec *evalContext) moduleIndex(base, idx evalValue) evalValue {
	if base.kind != vModuleValue {
		return undefinedVal
	}
	arr, ok := base.mv.(module.VArray)
	if !ok {
		return undefinedVal
	}
	i := idx.i
	vals := arr.On(ec.scanCtx())
	if i < 0 || i >= int64(len(vals)) {
		return undefinedVal
	}
	return fromModuleValue(vals[i])
}

func (ec *evalContext) moduleCall(base evalValue, args []evalValue) evalValue {
	if base.kind != vModuleValue {
		return undefinedVal
	}
	fn, ok := base.mv.(module.VFunction)
	if !ok {
		return undefinedVal
	}
	moduleArgs := make([]module.Value, len(args))
	for i, a := range args {
		moduleArgs[i] = toModuleValue(a)
	}
	v, ok := fn.Call(ec.scanCtx(), moduleArgs)
	if !ok {
		return undefinedVal
	}
	return fromModuleValue(v)
}

func (ec *evalContext) evalUnary(u *ast.UnaryExpr) evalValue {
	switch u.Op {
	case "defined":
		return boolVal(ec.eval(u.Operand).kind != vUndefined)
	case "not":
		v := ec.eval(u.Operand)
		if v.kind == vUndefined {
			return undefinedVal
		}
		return boolVal(!coerceBool(v))
	case "-":
		v := ec.eval(u.Operand)
		switch v.kind {
		case vInt:
			return intVal(-v.i)
		case vFloat:
			return floatVal(-v.f)
		default:
			return undefinedVal
		}
	case "~":
		v := ec.eval(u.Operand)
		if v.kind != vInt {
			return undefinedVal
		}
		return intVal(^v.i)
	default:
		return undefinedVal
	}
}

func (ec *evalContext) evalBinary(b *ast.BinaryExpr) evalValue {
	switch b.Op {
	case "and":
		l := ec.eval(b.Left)
		if l.kind != vUndefined && !coerceBool(l) {
			return boolVal(false) // short-circuit
		}
		r := ec.eval(b.Right)
		if l.kind == vUndefined || r.kind == vUndefined {
			return undefinedVal
		}
		return boolVal(coerceBool(l) && coerceBool(r))
	case "or":
		l := ec.eval(b.Left)
		if l.kind != vUndefined && coerceBool(l) {
			return boolVal(true) // short-circuit
		}
		r := ec.eval(b.Right)
		if l.kind == vUndefined || r.kind == vUndefined {
			return undefinedVal
		}
		return boolVal(coerceBool(l) || coerceBool(r))
	case "==", "!=":
		return ec.evalEquality(b)
	case "<", "<=", ">", ">=":
		return ec.evalOrder(b)
	case "+", "-", "*", "\\", "%":
		return ec.evalArith(b)
	case "&", "|", "^", "<<", ">>":
		return ec.evalBitwise(b)
	case "iequals":
		l, r := ec.eval(b.Left), ec.eval(b.Right)
		if l.kind == vUndefined || r.kind == vUndefined {
			return undefinedVal
		}
		return boolVal(asciiEqualFold(l.s, r.s))
	case "contains", "icontains":
		l, r := ec.eval(b.Left), ec.eval(b.Right)
		if l.kind == vUndefined || r.kind == vUndefined {
			return undefinedVal
		}
		if b.Op == "icontains" {
			return boolVal(containsFold(l.s, r.s))
		}
		return boolVal(bytesContains(l.s, r.s))
	case "startswith", "istartswith":
		l, r := ec.eval(b.Left), ec.eval(b.Right)
		if l.kind == vUndefined || r.kind == vUndefined {
			return undefinedVal
		}
		if len(r.s) > len(l.s) {
			return boolVal(false)
		}
		if b.Op == "istartswith" {
			return boolVal(asciiEqualFold(l.s[:len(r.s)], r.s))
		}
		return boolVal(bytesEqual(l.s[:len(r.s)], r.s))
	case "endswith", "iendswith":
		l, r := ec.eval(b.Left), ec.eval(b.Right)
		if l.kind == vUndefined || r.kind == vUndefined {
			return undefinedVal
		}
		if len(r.s) > len(l.s) {
			return boolVal(false)
		}
		tail := l.s[len(l.s)-len(r.s):]
		if b.Op == "iendswith" {
			return boolVal(asciiEqualFold(tail, r.s))
		}
		return boolVal(bytesEqual(tail, r.s))
	default:
		return undefinedVal
	}
}

func (ec *evalContext) evalEquality(b *ast.BinaryExpr) evalValue {
	l, r := ec.eval(b.Left), ec.eval(b.Right)
	if l.kind == vUndefined || r.kind == vUndefined {
		return undefinedVal
	}
	var eq bool
	switch {
	case isNumeric(l) && isNumeric(r):
		eq = asFloatVal(l) == asFloatVal(r)
	case l.kind == vBytes && r.kind == vBytes:
		eq = bytesEqual(l.s, r.s)
	case l.kind == vBool && r.kind == vBool:
		eq = l.b == r.b
	default:
		eq = false
	}
	if b.Op == "!=" {
		eq = !eq
	}
	return boolVal(eq)
}

func (ec *evalContext) evalOrder(b *ast.BinaryExpr) evalValue {
	l, r := ec.eval(b.Left), ec.eval(b.Right)
	if l.kind == vUndefined || r.kind == vUndefined || !isNumeric(l) || !isNumeric(r) {
		return undefinedVal
	}
	lf, rf := asFloatVal(l), asFloatVal(r)
	var res bool
	switch b.Op {
	case "<":
		res = lf < rf
	case "<=":
		res = lf <= rf
	case ">":
		res = lf > rf
	case ">=":
		res = lf >= rf
	}
	return boolVal(res)
}

func (ec *evalContext) evalArith(b *ast.BinaryExpr) evalValue {
	l, r := ec.eval(b.Left), ec.eval(b.Right)
	if l.kind == vUndefined || r.kind == vUndefined || !isNumeric(l) || !isNumeric(r) {
		return undefinedVal
	}
	if l.kind == vFloat || r.kind == vFloat {
		lf, rf := asFloatVal(l), asFloatVal(r)
		switch b.Op {
		case "+":
			return floatVal(lf + rf)
		case "-":
			return floatVal(lf - rf)
		case "*":
			return floatVal(lf * rf)
		case "\\":
			if rf == 0 {
				return undefinedVal
			}
			return floatVal(lf / rf)
		case "%":
			if rf == 0 {
				return undefinedVal
			}
			return floatVal(float64(int64(lf) % int64(rf)))
		}
	}
	li, ri := l.i, r.i
	switch b.Op {
	case "+":
		return intVal(li + ri)
	case "-":
		return intVal(li - ri)
	case "*":
		return intVal(li * ri)
	case "\\":
		if ri == 0 {
			return undefinedVal
		}
		return intVal(li / ri)
	case "%":
		if ri == 0 {
			return undefinedVal
		}
		return intVal(li % ri)
	}
	return undefinedVal
}

func (ec *evalContext) evalBitwise(b *ast.BinaryExpr) evalValue {
	l, r := ec.eval(b.Left), ec.eval(b.Right)
	if l.kind != vInt || r.kind != vInt {
		return undefinedVal
	}
	switch b.Op {
	case "&":
		return intVal(l.i & r.i)
	case "|":
		return intVal(l.i | r.i)
	case "^":
		return intVal(l.i ^ r.i)
	case "<<":
		return intVal(l.i << uint64(r.i))
	case ">>":
		return intVal(l.i >> uint64(r.i))
	default:
		return undefinedVal
	}
}

func (ec *evalContext) evalMatches(m *ast.MatchesExpr) evalValue {
	target := ec.eval(m.Target)
	if target.kind != vBytes {
		return undefinedVal
	}
	lit, ok := m.Regex.(*ast.RegexLit)
	if !ok {
		return undefinedVal
	}
	compiled, err := rx.Compile(rx.BuildPattern(lit.Pattern, lit.Modifiers))
	if err != nil {
		return undefinedVal
	}
	return boolVal(compiled.Match(target.s))
}

func isNumeric(v evalValue) bool { return v.kind == vInt || v.kind == vFloat }

func asFloatVal(v evalValue) float64 {
	if v.kind == vFloat {
		return v.f
	}
	return float64(v.i)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bytesContains(haystack, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if bytesEqual(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func asciiLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func asciiEqualFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if asciiLower(a[i]) != asciiLower(b[i]) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if asciiEqualFold(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

// evalOf evaluates "quantifier of (set)" (spec §4.4): "them", a
// wildcard prefix, and individual string references all expand to one
// matched/unmatched slot each; a parenthesized boolean expression
// contributes its own coerced truth value.
func (ec *evalContext) evalOf(o *ast.OfExpr) bool {
	return ec.satisfiesQuantifier(o.Quantifier, o.QuantKind, ec.expandSetItems(o.Items))
}

func (ec *evalContext) expandSetItems(items []ast.SetItem) []bool {
	var out []bool
	for _, item := range items {
		switch {
		case item.StringPattern == "them":
			for _, name := range ec.stringNames {
				_, ok := ec.matched[name]
				out = append(out, ok)
			}
		case len(item.StringPattern) > 0 && item.StringPattern[len(item.StringPattern)-1] == '*':
			prefix := item.StringPattern[:len(item.StringPattern)-1]
			for _, name := range ec.stringNames {
				if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
					_, ok := ec.matched[name]
					out = append(out, ok)
				}
			}
		case item.StringPattern != "":
			_, ok := ec.matched[item.StringPattern]
			out = append(out, ok)
		default:
			out = append(out, coerceBool(ec.eval(item.Value)))
		}
	}
	return out
}

func (ec *evalContext) satisfiesQuantifier(quantifier ast.Expr, kind ast.QuantKind, results []bool) bool {
	var satisfied int
	for _, r := range results {
		if r {
			satisfied++
		}
	}
	switch kind {
	case ast.QuantAny:
		return satisfied >= 1
	case ast.QuantAll:
		return len(results) > 0 && satisfied == len(results)
	default:
		return int64(satisfied) >= ec.evalInt(quantifier)
	}
}

// evalFor evaluates "for quantifier ident[, ident] in iterable : (body)"
// and "for quantifier of (set) : (body)" (spec §4.4).
func (ec *evalContext) evalFor(f *ast.ForExpr) bool {
	if f.Set != nil {
		// Each set element (string reference or boolean expr) counts as
		// its own satisfied/unsatisfied slot; body is an additional
		// shared condition evaluated once, matching the single
		// type-check pass compiler/rule.go's checkFor performs over it.
		results := ec.expandSetItems(f.Set)
		return ec.satisfiesQuantifier(f.Quantifier, f.QuantKind, results) && coerceBool(ec.eval(f.Body))
	}

	elems := ec.iterableValues(f.Iterable)
	results := make([]bool, 0, len(elems))
	for i, elem := range elems {
		bindings := map[string]evalValue{}
		switch len(f.IdentList) {
		case 1:
			bindings[f.IdentList[0]] = elem
		case 2:
			bindings[f.IdentList[0]] = intVal(int64(i))
			bindings[f.IdentList[1]] = elem
		}
		ec.loopStack = append(ec.loopStack, bindings)
		results = append(results, coerceBool(ec.eval(f.Body)))
		ec.loopStack = ec.loopStack[:len(ec.loopStack)-1]
	}
	return ec.satisfiesQuantifier(f.Quantifier, f.QuantKind, results)
}

// iterableValues evaluates a ForExpr's iterable source to the sequence
// of per-iteration bound values.
func (ec *evalContext) iterableValues(it ast.Iterable) []evalValue {
	switch v := it.(type) {
	case ast.IntRange:
		from, to := ec.evalInt(v.From), ec.evalInt(v.To)
		out := make([]evalValue, 0, max(0, int(to-from+1)))
		for i := from; i <= to; i++ {
			out = append(out, intVal(i))
		}
		return out
	case ast.IntSet:
		out := make([]evalValue, 0, len(v.Items))
		for _, e := range v.Items {
			out = append(out, ec.eval(e))
		}
		return out
	case ast.ModuleIterable:
		base := ec.eval(v.Expr)
		if base.kind != vModuleValue {
			return nil
		}
		arr, ok := base.mv.(module.VArray)
		if !ok {
			return nil
		}
		elems := arr.On(ec.scanCtx())
		out := make([]evalValue, len(elems))
		for i, e := range elems {
			out[i] = fromModuleValue(e)
		}
		return out
	default:
		return nil
	}
}
