package compiler

import (
	"fmt"

	"github.com/scanhive/scanhive/ast"
	"github.com/scanhive/scanhive/module"
	"github.com/scanhive/scanhive/parser"
)

// Compiler accumulates rules across one or more AddRulesStr calls,
// compiling each rule's variables and condition as it's added and
// holding the namespace/module bindings later rules' conditions resolve
// identifiers against (spec §6's library API: "add rules incrementally,
// compile once, scan many times").
type Compiler struct {
	params  CompilerParams
	modules map[string]module.Module

	rules      []*CompiledRule
	byNS       map[string]map[string]*ast.Rule // namespace -> rule name -> source rule, for Ident resolution
	ruleNames  map[string]bool                 // namespace+"\x00"+name, duplicate detection

	warnings   []Warning
	statistics []RuleStatistics
}

// NewCompiler constructs a Compiler preloaded with the default module set
// (spec §6: "preloads default modules"): time and math are always
// available; hash/pe/elf/macho are registered too since this core ships
// schema-only stubs for the file-format ones rather than omitting them.
func NewCompiler() *Compiler {
	c := &Compiler{
		params:    DefaultCompilerParams(),
		modules:   map[string]module.Module{},
		byNS:      map[string]map[string]*ast.Rule{},
		ruleNames: map[string]bool{},
	}
	for _, m := range []module.Module{
		module.NewTimeModule(),
		module.NewMathModule(),
		module.NewHashModule(),
		module.NewPEModule(),
		module.NewELFModule(),
		module.NewMachOModule(),
	} {
		c.modules[m.Name()] = m
	}
	return c
}

// SetParams overrides the default CompilerParams.
func (c *Compiler) SetParams(p CompilerParams) { c.params = p }

// AddModule registers an additional module, rejecting a duplicate name
// (spec §6/§7: ErrDuplicatedModuleName).
func (c *Compiler) AddModule(m module.Module) error {
	if _, exists := c.modules[m.Name()]; exists {
		return newErr("", ast.Span{}, ErrDuplicatedModuleName, "module %q already registered", m.Name())
	}
	c.modules[m.Name()] = m
	return nil
}

// AddRulesStr parses and compiles src's rules into the default namespace.
func (c *Compiler) AddRulesStr(src string) (*Status, error) {
	return c.AddRulesStrInNamespace(src, "default")
}

// AddRulesStrInNamespace parses and compiles src's rules into namespace,
// returning the accumulated warnings/statistics for just this call (spec
// §6) or the first CompileError encountered.
func (c *Compiler) AddRulesStrInNamespace(src, namespace string) (*Status, error) {
	p, err := parser.New()
	if err != nil {
		return nil, fmt.Errorf("build parser: %w", err)
	}
	file, err := p.ParseString(namespace, src)
	if err != nil {
		if pe, ok := err.(*parser.ParseError); ok && pe.Kind == parser.ErrDuplicatedRuleName {
			return nil, newErr("", ast.Span{}, ErrDuplicatedRuleName, "%s", pe.Msg)
		}
		return nil, fmt.Errorf("parse: %w", err)
	}

	nsRules := c.byNS[namespace]
	if nsRules == nil {
		nsRules = map[string]*ast.Rule{}
		c.byNS[namespace] = nsRules
	}

	var status Status
	for _, imp := range file.Imports {
		if _, ok := c.modules[imp]; !ok {
			return nil, newErr("", ast.Span{}, ErrUnknownImport, "unknown import %q", imp)
		}
	}

	// Register rule names up front so forward references within the same
	// file (rule A's condition referencing rule B declared later) resolve.
	for _, r := range file.Rules {
		key := namespace + "\x00" + r.Name
		if c.ruleNames[key] {
			return nil, newErr(r.Name, r.Span, ErrDuplicatedRuleName, "rule %q already defined in namespace %q", r.Name, namespace)
		}
		c.ruleNames[key] = true
		nsRules[r.Name] = r
	}

	for _, r := range file.Rules {
		cr, warnings, stats, err := c.compileOneRule(r, nsRules)
		if err != nil {
			return nil, err
		}
		c.rules = append(c.rules, cr)
		status.Warnings = append(status.Warnings, warnings...)
		if c.params.ComputeStatistics {
			status.Statistics = append(status.Statistics, stats)
		}
	}

	if c.params.FailOnWarnings && len(status.Warnings) > 0 {
		return &status, fmt.Errorf("%d warning(s) treated as errors", len(status.Warnings))
	}
	c.warnings = append(c.warnings, status.Warnings...)
	c.statistics = append(c.statistics, status.Statistics...)
	return &status, nil
}

// compileOneRule type-checks and lowers r. Duplicated tags and variable
// names within a single rule are already rejected (or, for tags,
// silently deduplicated) by the parser (parser/parser.go convertRule),
// so this only has to worry about cross-rule/cross-file duplication,
// handled by AddRulesStrInNamespace's ruleNames table.
func (c *Compiler) compileOneRule(r *ast.Rule, nsRules map[string]*ast.Rule) (*CompiledRule, []Warning, RuleStatistics, error) {
	variables := map[string]*ast.StringDef{}
	compiledVars := make([]*CompiledVariable, 0, len(r.Strings))
	for _, def := range r.Strings {
		variables[def.Name] = def

		m, err := CompileVariable(def)
		if err != nil {
			return nil, nil, RuleStatistics{}, newErr(r.Name, def.Span, ErrVariableCompilation, "%s", err.Error())
		}
		compiledVars = append(compiledVars, &CompiledVariable{Def: def, Matcher: m})
	}

	scope, resultType := compileRuleCondition(r, variables, nsRules, c.modules, c.params)
	if len(scope.errs) > 0 {
		return nil, nil, RuleStatistics{}, scope.errs[0]
	}
	if resultType != ast.TypeBoolean && resultType != ast.TypeUnknown {
		scope.addWarn(ast.Spanof(r.Condition), "condition's top-level result (%s) is implicitly cast to boolean", resultType)
	}

	var acCount, rawCount int
	for _, cv := range compiledVars {
		for _, v := range cv.Matcher.Variants {
			if v.Kind == KindRaw {
				rawCount++
			} else {
				acCount++
			}
		}
	}

	cr := &CompiledRule{
		Name:      r.Name,
		Namespace: rNamespace(r),
		Tags:      r.Tags,
		Meta:      r.Meta,
		Private:   r.Private,
		Global:    r.Global,
		Variables: compiledVars,
		Condition: r.Condition,
	}
	return cr, scope.warnings, RuleStatistics{RuleName: r.Name, ACPatternCount: acCount, RawRegexCount: rawCount}, nil
}

func rNamespace(r *ast.Rule) string {
	if r.Namespace != "" {
		return r.Namespace
	}
	return "default"
}

// Rules returns every rule compiled so far, in declaration order.
func (c *Compiler) Rules() []*CompiledRule { return c.rules }

// Modules returns the module set rules may reference, keyed by name.
func (c *Compiler) Modules() map[string]module.Module { return c.modules }
