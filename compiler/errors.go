// Package compiler turns a parsed ast.File into CompiledRules ready to be
// handed to a Scanner: it type-checks and resolves each rule's condition
// (rule.go, module.go) and lowers each variable declaration into a Matcher
// (variable.go), mirroring the teacher's scanner/compile.go pipeline but
// generalized to the full grammar and module-aware identifier resolution.
package compiler

import (
	"fmt"

	"github.com/scanhive/scanhive/ast"
)

// ErrorKind enumerates the semantic (as opposed to lexical/syntactic)
// failures the compiler can report, per spec §7.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrUnknownIdentifier
	ErrUnknownImport
	ErrUnknownField
	ErrTypeMismatch
	ErrIncompatibleOperands
	ErrInvalidIdentifierUse
	ErrDuplicatedRuleName
	ErrDuplicatedVariableName
	ErrDuplicatedTag
	ErrDuplicatedLoopBinding
	ErrInvalidLoopBindingCardinality
	ErrNonIterable
	ErrMatchOnWildcardRuleSet
	ErrConditionTooDeep
	ErrVariableCompilation
	ErrWrongArgCount
	ErrWrongIndexedType
	ErrDuplicatedModuleName
)

// CompileError is a semantic compilation failure, carrying the rule and
// source span it was raised against so a renderer-agnostic diagnostic
// (spec §6) can be built from it without re-walking the AST.
type CompileError struct {
	Rule string
	Span ast.Span
	Kind ErrorKind
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("rule %q: %s", e.Rule, e.Msg)
	}
	return e.Msg
}

func newErr(rule string, span ast.Span, kind ErrorKind, format string, args ...any) *CompileError {
	return &CompileError{Rule: rule, Span: span, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Warning is a non-fatal compilation note (spec §7): implicit bytes-to-
// boolean casts, unused variables, non-ASCII bytes in a regex pattern.
type Warning struct {
	Rule string
	Span ast.Span
	Msg  string
}

// RuleStatistics is the optional per-rule compilation statistics recorded
// when CompilerParams.ComputeStatistics is set.
type RuleStatistics struct {
	RuleName       string
	ACPatternCount int
	RawRegexCount  int
}

// Status is returned by AddRulesStr/AddRulesStrInNamespace: the warnings
// accumulated and, if requested, per-rule statistics.
type Status struct {
	Warnings   []Warning
	Statistics []RuleStatistics
}

// ToDiagnostic renders a CompileError into the renderer-agnostic shape
// spec §6 describes for AddRuleError.to_diagnostic(): a terminal/IDE
// renderer is a consumer only, never constructed here.
func (e *CompileError) ToDiagnostic() Diagnostic {
	return Diagnostic{
		Severity: "error",
		Message:  e.Msg,
		Labels:   []DiagnosticLabel{{Span: e.Span, Message: e.Msg}},
	}
}

// Diagnostic is the renderer-agnostic shape a terminal/IDE front end
// consumes; this package only ever produces these, never renders them.
type Diagnostic struct {
	Severity string
	Message  string
	Labels   []DiagnosticLabel
	Notes    []string
}

// DiagnosticLabel annotates one source span within a Diagnostic.
type DiagnosticLabel struct {
	Span    ast.Span
	Message string
}
