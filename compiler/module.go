package compiler

import (
	"fmt"

	"github.com/scanhive/scanhive/ast"
	"github.com/scanhive/scanhive/module"
)

// chainOp is one step of a module access chain (spec §4.4's "field /
// subscript / call" operations), flattened out of the nested
// ast.FieldAccess/IndexAccess/Call the parser produces.
type chainOp struct {
	kind     string // "field", "index", "call"
	field    string
	argTypes []ast.Type
}

// flattenModuleChain walks e's Target chain back to its root identifier,
// returning the root name and the ops applied to it in source order.
// Returns ok=false if e isn't built purely from Ident/FieldAccess/
// IndexAccess/Call (i.e. isn't a candidate module access at all).
func flattenModuleChain(e ast.Expr, argTypeOf func(ast.Expr) ast.Type) (string, []chainOp, bool) {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name, nil, true
	case *ast.FieldAccess:
		root, ops, ok := flattenModuleChain(v.Target, argTypeOf)
		if !ok {
			return "", nil, false
		}
		return root, append(ops, chainOp{kind: "field", field: v.Field}), true
	case *ast.IndexAccess:
		root, ops, ok := flattenModuleChain(v.Target, argTypeOf)
		if !ok {
			return "", nil, false
		}
		return root, append(ops, chainOp{kind: "index"}), true
	case *ast.Call:
		root, ops, ok := flattenModuleChain(v.Target, argTypeOf)
		if !ok {
			return "", nil, false
		}
		argTypes := make([]ast.Type, len(v.Args))
		for i, a := range v.Args {
			argTypes[i] = argTypeOf(a)
		}
		return root, append(ops, chainOp{kind: "call", argTypes: argTypes}), true
	default:
		return "", nil, false
	}
}

// moduleValueOrType is the Go port of boreal's ValueOrType<'a>: it tracks
// either a concrete compile-time module.Value (for static fields, letting
// the compiler fold the whole chain to an immediate literal) or just a
// module.ValueType schema (once the chain passes through a field only
// known at scan time), per `original_source/boreal/src/compiler/module.rs`.
type moduleValueOrType struct {
	val    module.Value
	typ    module.ValueType
	hasVal bool
}

func (vt *moduleValueOrType) currentType() module.ValueType {
	if vt.hasVal {
		return module.TypeOf(vt.val)
	}
	return vt.typ
}

func (vt *moduleValueOrType) subfield(field string) error {
	if vt.hasVal {
		if dict, ok := vt.val.(module.VDictionary); ok {
			f, ok := dict.Fields[field]
			if !ok {
				return fmt.Errorf("unknown field %q", field)
			}
			vt.val = f
			return nil
		}
		return fmt.Errorf("field access on non-dictionary value (%T)", vt.val)
	}
	dict, ok := vt.typ.(module.TDictionary)
	if !ok {
		return fmt.Errorf("field access on non-dictionary type")
	}
	f, ok := dict.Fields[field]
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	vt.typ = f
	return nil
}

func (vt *moduleValueOrType) subscript() error {
	if vt.hasVal {
		if arr, ok := vt.val.(module.VArray); ok {
			vt.hasVal = false
			vt.typ = arr.ElemType
			return nil
		}
		return fmt.Errorf("subscript on non-array value (%T)", vt.val)
	}
	arr, ok := vt.typ.(module.TArray)
	if !ok {
		return fmt.Errorf("subscript on non-array type")
	}
	vt.typ = arr.Elem
	return nil
}

func (vt *moduleValueOrType) call(argTypes []ast.Type) error {
	var sigs [][]module.ValueType
	var ret module.ValueType
	if vt.hasVal {
		fn, ok := vt.val.(module.VFunction)
		if !ok {
			return fmt.Errorf("call on non-function value (%T)", vt.val)
		}
		sigs, ret = fn.Signatures, fn.Return
	} else {
		fn, ok := vt.typ.(module.TFunction)
		if !ok {
			return fmt.Errorf("call on non-function type")
		}
		sigs, ret = fn.Signatures, fn.Return
	}
	if !matchesAnySignature(sigs, argTypes) {
		return fmt.Errorf("no matching signature for %d argument(s)", len(argTypes))
	}
	vt.hasVal = false
	vt.typ = ret
	return nil
}

func matchesAnySignature(sigs [][]module.ValueType, args []ast.Type) bool {
	for _, sig := range sigs {
		if len(sig) != len(args) {
			continue
		}
		ok := true
		for i, p := range sig {
			if !argMatchesParam(args[i], p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func argMatchesParam(arg ast.Type, param module.ValueType) bool {
	switch param.(type) {
	case module.TInteger:
		return arg == ast.TypeInteger
	case module.TFloat:
		return arg == ast.TypeFloat || arg == ast.TypeInteger
	case module.TString:
		return arg == ast.TypeBytes
	case module.TRegex:
		return arg == ast.TypeRegex
	case module.TBoolean:
		return arg == ast.TypeBoolean
	default:
		return false
	}
}

// resolveModuleType resolves a module access chain rooted at mod against
// its schema/static values, returning the static ast.Type of the fully-
// applied chain, per spec §4.4's module identifier resolution. The first
// op must be a field selecting either a compile-time-static value or a
// dynamic-schema field of the module's root dictionary.
func resolveModuleType(mod module.Module, ops []chainOp) (ast.Type, error) {
	if len(ops) == 0 {
		return ast.TypeUnknown, fmt.Errorf("module %q used without a field access", mod.Name())
	}
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

	switch vt.currentType().(type) {
	case module.TInteger:
		return ast.TypeInteger, nil
	case module.TFloat:
		return ast.TypeFloat, nil
	case module.TString:
		return ast.TypeBytes, nil
	case module.TRegex:
		return ast.TypeRegex, nil
	case module.TBoolean:
		return ast.TypeBoolean, nil
	default:
		return ast.TypeUnknown, fmt.Errorf("expression does not resolve to a usable value")
	}
}
