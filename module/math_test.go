package module

import (
	"math"
	"testing"
)

func callFn(t *testing.T, m Module, name string, ctx *ScanContext, args ...Value) Value {
	t.Helper()
	fn, ok := m.StaticValues()[name].(VFunction)
	if !ok {
		t.Fatalf("%s not a VFunction", name)
	}
	v, ok := fn.Call(ctx, args)
	if !ok {
		t.Fatalf("%s.Call() returned ok=false", name)
	}
	return v
}

func TestMathModule_MeanAndMinMax(t *testing.T) {
	m := NewMathModule()
	ctx := &ScanContext{Input: []byte{0, 10, 20, 30}}

	mean := callFn(t, m, "mean", ctx, VInteger{V: 0}, VInteger{V: 4}).(VFloat)
	if mean.V != 15 {
		t.Errorf("mean = %v, want 15", mean.V)
	}

	min := callFn(t, m, "min", ctx, VInteger{V: 3}, VInteger{V: 7}).(VInteger)
	if min.V != 3 {
		t.Errorf("min = %v, want 3", min.V)
	}

	maxV := callFn(t, m, "max", ctx, VInteger{V: 3}, VInteger{V: 7}).(VInteger)
	if maxV.V != 7 {
		t.Errorf("max = %v, want 7", maxV.V)
	}

	abs := callFn(t, m, "abs", ctx, VInteger{V: -5}).(VInteger)
	if abs.V != 5 {
		t.Errorf("abs = %v, want 5", abs.V)
	}
}

func TestMathModule_EntropyOfUniformBytes(t *testing.T) {
	m := NewMathModule()
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	ctx := &ScanContext{Input: data}
	e := callFn(t, m, "entropy", ctx, VInteger{V: 0}, VInteger{V: 256}).(VFloat)
	if math.Abs(e.V-8.0) > 0.001 {
		t.Errorf("entropy of 256 distinct bytes = %v, want ~8.0", e.V)
	}
}

func TestMathModule_RegionOutOfBounds(t *testing.T) {
	m := NewMathModule()
	ctx := &ScanContext{Input: []byte{1, 2, 3}}
	fn := m.StaticValues()["mean"].(VFunction)
	if _, ok := fn.Call(ctx, []Value{VInteger{V: -1}, VInteger{V: 2}}); ok {
		t.Error("expected a negative offset to fail")
	}
}

func TestMathModule_InRange(t *testing.T) {
	m := NewMathModule()
	in := callFn(t, m, "in_range", nil, VFloat{V: 5}, VFloat{V: 1}, VFloat{V: 10}).(VBoolean)
	if !in.V {
		t.Error("expected 5 to be in [1,10]")
	}
	out := callFn(t, m, "in_range", nil, VFloat{V: 50}, VFloat{V: 1}, VFloat{V: 10}).(VBoolean)
	if out.V {
		t.Error("expected 50 to be outside [1,10]")
	}
}

func TestMathModule_Name(t *testing.T) {
	if NewMathModule().Name() != "math" {
		t.Errorf("expected module name math")
	}
}
