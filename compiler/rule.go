package compiler

import (
	"fmt"

	"github.com/scanhive/scanhive/ast"
	"github.com/scanhive/scanhive/module"
)

// CompilerParams controls the rule compiler's behavior, mirroring the
// knobs spec §6's library API exposes.
type CompilerParams struct {
	MaxConditionDepth int
	FailOnWarnings    bool
	ComputeStatistics bool
}

// DefaultCompilerParams matches the teacher's own compiler defaults: a
// generous recursion ceiling and warnings that don't fail the build.
func DefaultCompilerParams() CompilerParams {
	return CompilerParams{MaxConditionDepth: 256}
}

// CompiledVariable pairs a source declaration with its lowered Matcher,
// keeping the rule's original modifier/name visible to the scanner
// without re-deriving it from the Matcher.
type CompiledVariable struct {
	Def     *ast.StringDef
	Matcher *Matcher
}

// CompiledRule is one fully type-checked, variable-compiled rule, ready
// to be registered into a scanner.CompiledRules set.
type CompiledRule struct {
	Name      string
	Namespace string
	Tags      []string
	Meta      []*ast.MetaEntry
	Private   bool
	Global    bool
	Variables []*CompiledVariable
	Condition ast.Expr
}

// ruleScope is the identifier-resolution environment for one rule's
// condition, per spec §4.4's resolution order: variable refs ($name,
// #name, ...) are parsed as distinct node kinds and never go through
// this table; bare Ident nodes resolve, in order, against loop-bound
// identifiers currently in scope, then other rules in the same
// namespace, then imported modules.
type ruleScope struct {
	rule       *ast.Rule
	variables  map[string]*ast.StringDef
	namespace  map[string]*ast.Rule // other rules visible to "this" + bare rule references
	modules    map[string]module.Module
	loopStack  []map[string]ast.Type
	depth      int
	maxDepth   int
	errs       []*CompileError
	warnings   []Warning
	acCount    int
	rawCount   int
}

func (s *ruleScope) addErr(span ast.Span, kind ErrorKind, format string, args ...any) {
	s.errs = append(s.errs, newErr(s.rule.Name, span, kind, format, args...))
}

func (s *ruleScope) addWarn(span ast.Span, format string, args ...any) {
	s.warnings = append(s.warnings, Warning{Rule: s.rule.Name, Span: span, Msg: fmt.Sprintf(format, args...)})
}

func (s *ruleScope) lookupLoopIdent(name string) (ast.Type, bool) {
	for i := len(s.loopStack) - 1; i >= 0; i-- {
		if t, ok := s.loopStack[i][name]; ok {
			return t, true
		}
	}
	return ast.TypeUnknown, false
}

// compileRuleCondition type-checks rule's condition expression, recording
// errors/warnings on scope as it walks. Per-rule matcher statistics are
// computed separately by compileOneRule.
func compileRuleCondition(rule *ast.Rule, variables map[string]*ast.StringDef,
	namespace map[string]*ast.Rule, modules map[string]module.Module, params CompilerParams) (*ruleScope, ast.Type) {

	maxDepth := params.MaxConditionDepth
	if maxDepth <= 0 {
		maxDepth = 256
	}
	s := &ruleScope{rule: rule, variables: variables, namespace: namespace, modules: modules, maxDepth: maxDepth}
	t := s.check(rule.Condition)
	return s, t
}

// check type-checks e, returning its static ast.Type (TypeUnknown on
// error, with a CompileError already recorded on s).
func (s *ruleScope) check(e ast.Expr) ast.Type {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.maxDepth {
		s.addErr(ast.Spanof(e), ErrConditionTooDeep, "condition nesting exceeds maximum depth %d", s.maxDepth)
		return ast.TypeUnknown
	}

	switch v := e.(type) {
	case *ast.BoolLit:
		return ast.TypeBoolean
	case *ast.IntLit:
		return ast.TypeInteger
	case *ast.FloatLit:
		return ast.TypeFloat
	case *ast.BytesLit:
		return ast.TypeBytes
	case *ast.RegexLit:
		return ast.TypeRegex
	case *ast.Filesize, *ast.Entrypoint:
		return ast.TypeInteger

	case *ast.StringRef:
		s.useVariable(v.Name, v.Span)
		return ast.TypeBoolean
	case *ast.StringCount:
		s.useVariable(v.Name, v.Span)
		if v.InFrom != nil {
			s.expectInteger(v.InFrom)
			s.expectInteger(v.InTo)
		}
		return ast.TypeInteger
	case *ast.StringOffset:
		s.useVariable(v.Name, v.Span)
		s.expectInteger(v.Index)
		return ast.TypeInteger
	case *ast.StringLength:
		s.useVariable(v.Name, v.Span)
		s.expectInteger(v.Index)
		return ast.TypeInteger
	case *ast.StringAt:
		s.useVariable(v.Name, v.Span)
		s.expectInteger(v.Pos)
		return ast.TypeBoolean
	case *ast.StringIn:
		s.useVariable(v.Name, v.Span)
		s.expectInteger(v.From)
		s.expectInteger(v.To)
		return ast.TypeBoolean

	case *ast.Ident:
		return s.checkIdent(v)
	case *ast.FieldAccess, *ast.IndexAccess, *ast.Call:
		return s.checkModuleChain(e)

	case *ast.UnaryExpr:
		return s.checkUnary(v)
	case *ast.BinaryExpr:
		return s.checkBinary(v)
	case *ast.MatchesExpr:
		s.expectType(v.Target, ast.TypeBytes)
		s.expectType(v.Regex, ast.TypeRegex)
		return ast.TypeBoolean

	case *ast.OfExpr:
		return s.checkOf(v)
	case *ast.ForExpr:
		return s.checkFor(v)

	default:
		s.addErr(ast.Spanof(e), ErrUnknown, "unhandled expression kind %T", e)
		return ast.TypeUnknown
	}
}

func (s *ruleScope) useVariable(name string, span ast.Span) {
	if name == "" || name == "*" {
		return // anonymous/"them" handled by the caller's set expansion
	}
	def, ok := s.variables[name]
	if !ok {
		s.addErr(span, ErrUnknownIdentifier, "undefined variable $%s", name)
		return
	}
	if def.Modifiers.Private {
		// private variables are usable within their own rule only; since
		// variables is already scoped to this rule's own declarations,
		// no further check is needed here.
		_ = def
	}
}

func (s *ruleScope) expectInteger(e ast.Expr) {
	if e == nil {
		return
	}
	s.expectType(e, ast.TypeInteger)
}

func (s *ruleScope) expectType(e ast.Expr, want ast.Type) {
	got := s.check(e)
	if got == ast.TypeUnknown {
		return // already reported
	}
	if got == want {
		return
	}
	if want == ast.TypeInteger && got == ast.TypeFloat {
		return // integer/float are mutually coercible, per spec §4.7
	}
	if want == ast.TypeFloat && got == ast.TypeInteger {
		return
	}
	s.addErr(ast.Spanof(e), ErrTypeMismatch, "expected %s, got %s", want, got)
}

func (s *ruleScope) checkIdent(id *ast.Ident) ast.Type {
	if t, ok := s.lookupLoopIdent(id.Name); ok {
		return t
	}
	if _, ok := s.namespace[id.Name]; ok {
		return ast.TypeBoolean // bare reference to another rule
	}
	if _, ok := s.modules[id.Name]; ok {
		s.addErr(id.Span, ErrInvalidIdentifierUse, "module %q used as a bare value; expected a field access", id.Name)
		return ast.TypeUnknown
	}
	s.addErr(id.Span, ErrUnknownIdentifier, "undefined identifier %q", id.Name)
	return ast.TypeUnknown
}

func (s *ruleScope) checkModuleChain(e ast.Expr) ast.Type {
	root, ops, ok := flattenModuleChain(e, func(a ast.Expr) ast.Type { return s.check(a) })
	if !ok {
		s.addErr(ast.Spanof(e), ErrInvalidIdentifierUse, "invalid expression")
		return ast.TypeUnknown
	}
	if _, isLoop := s.lookupLoopIdent(root); isLoop {
		// a loop-bound dictionary/struct value indexed/called further;
		// without the bound value's module type this can't be fully
		// checked here, so defer entirely to the evaluator at scan time.
		return ast.TypeUnknown
	}
	mod, ok := s.modules[root]
	if !ok {
		s.addErr(ast.Spanof(e), ErrUnknownIdentifier, "undefined identifier %q", root)
		return ast.TypeUnknown
	}
	t, err := resolveModuleType(mod, ops)
	if err != nil {
		s.addErr(ast.Spanof(e), ErrUnknownField, "%s", err.Error())
		return ast.TypeUnknown
	}
	return t
}

func (s *ruleScope) checkUnary(u *ast.UnaryExpr) ast.Type {
	switch u.Op {
	case "not":
		s.expectType(u.Operand, ast.TypeBoolean)
		return ast.TypeBoolean
	case "defined":
		s.check(u.Operand)
		return ast.TypeBoolean
	case "-":
		t := s.check(u.Operand)
		if t != ast.TypeInteger && t != ast.TypeFloat && t != ast.TypeUnknown {
			s.addErr(u.Span, ErrIncompatibleOperands, "unary - requires a numeric operand, got %s", t)
		}
		return t
	case "~":
		s.expectType(u.Operand, ast.TypeInteger)
		return ast.TypeInteger
	default:
		s.addErr(u.Span, ErrUnknown, "unknown unary operator %q", u.Op)
		return ast.TypeUnknown
	}
}

func (s *ruleScope) checkBinary(b *ast.BinaryExpr) ast.Type {
	switch b.Op {
	case "and", "or":
		s.coerceBoolean(b.Left)
		s.coerceBoolean(b.Right)
		return ast.TypeBoolean
	case "==", "!=":
		lt, rt := s.check(b.Left), s.check(b.Right)
		if lt != ast.TypeUnknown && rt != ast.TypeUnknown && !comparableTypes(lt, rt) {
			s.addErr(b.Span, ErrIncompatibleOperands, "cannot compare %s with %s", lt, rt)
		}
		return ast.TypeBoolean
	case "<", "<=", ">", ">=":
		lt, rt := s.check(b.Left), s.check(b.Right)
		if lt != ast.TypeUnknown && rt != ast.TypeUnknown && !comparableTypes(lt, rt) {
			s.addErr(b.Span, ErrIncompatibleOperands, "cannot order-compare %s with %s", lt, rt)
		}
		return ast.TypeBoolean
	case "+", "-", "*", "\\", "%":
		lt := s.checkNumeric(b.Left)
		rt := s.checkNumeric(b.Right)
		if lt == ast.TypeFloat || rt == ast.TypeFloat {
			return ast.TypeFloat
		}
		return ast.TypeInteger
	case "&", "|", "^", "<<", ">>":
		s.expectType(b.Left, ast.TypeInteger)
		s.expectType(b.Right, ast.TypeInteger)
		return ast.TypeInteger
	case "iequals":
		s.expectType(b.Left, ast.TypeBytes)
		s.expectType(b.Right, ast.TypeBytes)
		return ast.TypeBoolean
	case "contains", "icontains", "startswith", "istartswith", "endswith", "iendswith":
		s.expectType(b.Left, ast.TypeBytes)
		s.expectType(b.Right, ast.TypeBytes)
		return ast.TypeBoolean
	default:
		s.addErr(b.Span, ErrUnknown, "unknown binary operator %q", b.Op)
		return ast.TypeUnknown
	}
}

func (s *ruleScope) checkNumeric(e ast.Expr) ast.Type {
	t := s.check(e)
	if t != ast.TypeInteger && t != ast.TypeFloat && t != ast.TypeUnknown {
		s.addErr(ast.Spanof(e), ErrIncompatibleOperands, "expected a numeric operand, got %s", t)
	}
	return t
}

// coerceBoolean implements spec §4.7's implicit bytes-to-boolean cast
// ("a bare string/integer in a boolean position is true iff non-empty/
// non-zero") emitting a Warning exactly where that coercion happens.
func (s *ruleScope) coerceBoolean(e ast.Expr) {
	t := s.check(e)
	if t == ast.TypeBoolean || t == ast.TypeUnknown {
		return
	}
	s.addWarn(ast.Spanof(e), "implicit cast of %s to boolean", t)
}

func comparableTypes(a, b ast.Type) bool {
	numeric := func(t ast.Type) bool { return t == ast.TypeInteger || t == ast.TypeFloat }
	if numeric(a) && numeric(b) {
		return true
	}
	return a == b
}

func (s *ruleScope) checkOf(o *ast.OfExpr) ast.Type {
	if o.Quantifier != nil {
		s.expectInteger(o.Quantifier)
	}
	wildcardSeen := map[string]bool{}
	for _, item := range o.Items {
		switch {
		case item.StringPattern == "them":
			// every variable of the rule participates; nothing further to check
		case len(item.StringPattern) > 0 && item.StringPattern[len(item.StringPattern)-1] == '*':
			prefix := item.StringPattern[:len(item.StringPattern)-1]
			s.checkWildcardPrefix(prefix, o.Span)
			wildcardSeen[prefix] = true
		case item.StringPattern != "":
			s.useVariable(item.StringPattern, o.Span)
		default:
			s.check(item.Value)
		}
	}
	return ast.TypeBoolean
}

// checkWildcardPrefix reports ErrMatchOnWildcardRuleSet when a prefix set
// like ($a*) in the rule's condition matches none of the rule's declared
// variables.
func (s *ruleScope) checkWildcardPrefix(prefix string, span ast.Span) {
	matched := false
	for name := range s.variables {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			matched = true
			break
		}
	}
	if !matched {
		s.addErr(span, ErrMatchOnWildcardRuleSet, "wildcard %q matches no declared variable", prefix+"*")
	}
}

func (s *ruleScope) checkFor(f *ast.ForExpr) ast.Type {
	if f.Quantifier != nil {
		s.expectInteger(f.Quantifier)
	}

	bindings := map[string]ast.Type{}
	switch {
	case f.Iterable != nil:
		switch it := f.Iterable.(type) {
		case ast.IntRange:
			s.expectInteger(it.From)
			s.expectInteger(it.To)
			if len(f.IdentList) != 1 {
				s.addErr(f.Span, ErrInvalidLoopBindingCardinality, "integer range iteration binds exactly 1 identifier, got %d", len(f.IdentList))
			}
			for _, name := range f.IdentList {
				if _, dup := bindings[name]; dup {
					s.addErr(f.Span, ErrDuplicatedLoopBinding, "duplicated loop binding %q", name)
				}
				bindings[name] = ast.TypeInteger
			}
		case ast.IntSet:
			for _, e := range it.Items {
				s.expectInteger(e)
			}
			if len(f.IdentList) != 1 {
				s.addErr(f.Span, ErrInvalidLoopBindingCardinality, "integer set iteration binds exactly 1 identifier, got %d", len(f.IdentList))
			}
			for _, name := range f.IdentList {
				bindings[name] = ast.TypeInteger
			}
		case ast.ModuleIterable:
			elemType := s.moduleIterableElemType(it.Expr)
			// Module iterables resolve only to arrays, which bind one identifier.
			if len(f.IdentList) == 1 {
				bindings[f.IdentList[0]] = elemType
			} else {
				s.addErr(f.Span, ErrInvalidLoopBindingCardinality, "array iteration binds exactly 1 identifier, got %d", len(f.IdentList))
			}
		default:
			s.addErr(f.Span, ErrNonIterable, "unsupported iterable %T", it)
		}
	case f.Set != nil:
		for _, item := range f.Set {
			if item.Value != nil {
				s.check(item.Value)
			} else {
				s.useVariable(item.StringPattern, f.Span)
			}
		}
	}

	s.loopStack = append(s.loopStack, bindings)
	s.check(f.Body)
	s.loopStack = s.loopStack[:len(s.loopStack)-1]
	return ast.TypeBoolean
}

// moduleIterableElemType resolves the array element type of a bare
// module chain used as a for-loop's iterable source.
func (s *ruleScope) moduleIterableElemType(e ast.Expr) ast.Type {
	root, ops, ok := flattenModuleChain(e, func(a ast.Expr) ast.Type { return s.check(a) })
	if !ok {
		s.addErr(ast.Spanof(e), ErrNonIterable, "invalid iterable expression")
		return ast.TypeUnknown
	}
	mod, ok := s.modules[root]
	if !ok {
		s.addErr(ast.Spanof(e), ErrUnknownIdentifier, "undefined identifier %q", root)
		return ast.TypeUnknown
	}
	// Drop the trailing implicit array dereference resolveModuleType would
	// otherwise require: resolve the chain up to (not including) the final
	// subscript, then confirm it is array-typed.
	if len(ops) == 0 {
		s.addErr(ast.Spanof(e), ErrNonIterable, "module %q is not iterable", mod.Name())
		return ast.TypeUnknown
	}
	t, err := resolveModuleArrayElem(mod, ops)
	if err != nil {
		s.addErr(ast.Spanof(e), ErrNonIterable, "%s", err.Error())
		return ast.TypeUnknown
	}
	return t
}

// resolveModuleArrayElem walks ops the same way resolveModuleType does
// but returns the element type of the chain's final array instead of
// requiring a terminal subscript, for "for x in pe.sections" style loops.
func resolveModuleArrayElem(mod module.Module, ops []chainOp) (ast.Type, error) {
	first := ops[0]
	if first.kind != "field" {
		return ast.TypeUnknown, fmt.Errorf("module %q must be followed by a field access", mod.Name())
	}
	vt := moduleValueOrType{}
	if sv, ok := mod.StaticValues()[first.field]; ok {
		vt.hasVal, vt.val = true, sv
	} else if dict, ok := mod.DynamicType().(module.TDictionary); ok {
		if t, ok := dict.Fields[first.field]; ok {
			vt.typ = t
		} else {
			return ast.TypeUnknown, fmt.Errorf("module %q has no field %q", mod.Name(), first.field)
		}
	} else {
		return ast.TypeUnknown, fmt.Errorf("module %q has no field %q", mod.Name(), first.field)
	}
	for _, op := range ops[1:] {
		var err error
		switch op.kind {
		case "field":
			err = vt.subfield(op.field)
		case "index":
			err = vt.subscript()
		case "call":
			err = vt.call(op.argTypes)
		}
		if err != nil {
			return ast.TypeUnknown, err
		}
	}
	var arrType module.ValueType
	if vt.hasVal {
		if arr, ok := vt.val.(module.VArray); ok {
			arrType = arr.ElemType
		}
	} else if arr, ok := vt.typ.(module.TArray); ok {
		arrType = arr.Elem
	}
	if arrType == nil {
		return ast.TypeUnknown, fmt.Errorf("expression is not an array")
	}
	switch arrType.(type) {
	case module.TInteger:
		return ast.TypeInteger, nil
	case module.TFloat:
		return ast.TypeFloat, nil
	case module.TString:
		return ast.TypeBytes, nil
	case module.TBoolean:
		return ast.TypeBoolean, nil
	default:
		return ast.TypeUnknown, nil // structured element; evaluator resolves fields dynamically
	}
}
