// Package module defines the schema/value ABI a YARA module exposes to
// the rule compiler and condition evaluator (spec §3/§6/§9): a static
// ValueType schema resolved at compile time, and a live Value tree
// rebuilt once per scan from a ScanContext. Grounded on
// `original_source/boreal/src/module.rs`'s Type/Value split and on
// `compiler/module.rs`'s ModuleUse algorithm (ported to compiler/module.go).
package module

// ValueType is the static schema type of a module field, known without a
// running scan (spec §3 "Module schema").
type ValueType interface{ valueType() }

type TInteger struct{}
type TFloat struct{}
type TString struct{}
type TRegex struct{}
type TBoolean struct{}
type TArray struct{ Elem ValueType }
type TDictionary struct{ Fields map[string]ValueType }

// TFunction is a function value's schema: one or more accepted argument
// signatures (the compiler accepts a call site that type-checks against
// any one of them; the evaluator calls the function without consulting
// them) and a single return type.
type TFunction struct {
	Signatures [][]ValueType
	Return     ValueType
}

func (TInteger) valueType()    {}
func (TFloat) valueType()      {}
func (TString) valueType()     {}
func (TRegex) valueType()      {}
func (TBoolean) valueType()    {}
func (TArray) valueType()      {}
func (TDictionary) valueType() {}
func (TFunction) valueType()   {}

// Value is a node of a module's runtime value tree (spec §3 "Module
// runtime value"): a closed tagged variant, function leaves carrying a
// Go closure instead of a Rust function pointer.
type Value interface{ value() }

type VInteger struct{ V int64 }
type VFloat struct{ V float64 }
type VString struct{ V []byte }
type VBoolean struct{ V bool }

// VRegex is a module-exposed regex constant; CaseInsensitive/DotAll mirror
// ast.RegexModifiers without importing the ast package, since module must
// not depend on the compiler's or parser's packages.
type VRegex struct {
	Pattern         string
	CaseInsensitive bool
	DotAll          bool
}

// VArray is a dynamically-sized homogeneous array; On evaluates its
// elements for the current scan. ElemType lets the compiler type-check a
// subscript without running a scan.
type VArray struct {
	ElemType ValueType
	On       func(ctx *ScanContext) []Value
}

// VDictionary is a fixed-shape object; its fields are known at compile
// time (no dynamic key set), matching spec's ValueType.Dictionary.
type VDictionary struct{ Fields map[string]Value }

// VFunction is a callable; Call receives already arity/type-checked
// arguments (the compiler picks the matching signature) and returns
// ok=false for "undefined" (e.g. an out-of-range index, unparsable data).
type VFunction struct {
	Signatures [][]ValueType
	Return     ValueType
	Call       func(ctx *ScanContext, args []Value) (Value, bool)
}

func (VInteger) value()    {}
func (VFloat) value()      {}
func (VString) value()     {}
func (VBoolean) value()    {}
func (VRegex) value()      {}
func (VArray) value()      {}
func (VDictionary) value() {}
func (VFunction) value()   {}

// TypeOf returns v's static ValueType, used when a chain of field/
// subscript/call operations starts from a concrete Value during compile-
// time resolution (spec's ValueOrType::Value branch).
func TypeOf(v Value) ValueType {
	switch vv := v.(type) {
	case VInteger:
		return TInteger{}
	case VFloat:
		return TFloat{}
	case VString:
		return TString{}
	case VBoolean:
		return TBoolean{}
	case VRegex:
		return TRegex{}
	case VArray:
		return TArray{Elem: vv.ElemType}
	case VDictionary:
		fields := make(map[string]ValueType, len(vv.Fields))
		for k, f := range vv.Fields {
			fields[k] = TypeOf(f)
		}
		return TDictionary{Fields: fields}
	case VFunction:
		return TFunction{Signatures: vv.Signatures, Return: vv.Return}
	default:
		return nil
	}
}

// ScanContext is the per-scan scratch a module's dynamic value tree reads
// and writes (spec §3 "ScanContext"): the input bytes plus one opaque
// slot per module name, lazily populated the first time a scan touches
// that module.
type ScanContext struct {
	Input   []byte
	Scratch map[string]any
}

// Module is the ABI a built-in or external module implements (spec §6
// "Module ABI").
type Module interface {
	// Name is the identifier rules import the module under.
	Name() string

	// StaticValues are fields resolvable at compile time without a scan
	// (e.g. named integer constants): get_static_values().
	StaticValues() map[string]Value

	// DynamicType is the schema of the fields only known once a scan is
	// running: get_dynamic_types().
	DynamicType() ValueType

	// DynamicValue builds the live value tree for one scan:
	// get_dynamic_values(&mut ScanContext).
	DynamicValue(ctx *ScanContext) Value
}
