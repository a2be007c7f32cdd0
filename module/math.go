package module

import "math"

// MathModule implements a useful subset of the `math` built-in module
// (spec §6 "preloads default modules (time, math, ...)"), grounded on
// `original_source/boreal/src/module/math.rs`'s function set: byte
// distribution statistics over a region of the scanned input.
type MathModule struct{}

func NewMathModule() *MathModule { return &MathModule{} }

func (*MathModule) Name() string { return "math" }

func (*MathModule) StaticValues() map[string]Value {
	fn := func(sig [][]ValueType, ret ValueType, call func(*ScanContext, []Value) (Value, bool)) Value {
		return VFunction{Signatures: sig, Return: ret, Call: call}
	}
	intint := [][]ValueType{{TInteger{}, TInteger{}}}
	return map[string]Value{
		"MEAN_BYTES": VFloat{V: 127.5},
		"in_range": fn([][]ValueType{{TFloat{}, TFloat{}, TFloat{}}}, TBoolean{},
			func(_ *ScanContext, args []Value) (Value, bool) {
				v, lo, hi := asFloat(args[0]), asFloat(args[1]), asFloat(args[2])
				return VBoolean{V: v >= lo && v <= hi}, true
			}),
		"mean": fn(intint, TFloat{}, func(ctx *ScanContext, args []Value) (Value, bool) {
			b, ok := region(ctx, args)
			if !ok {
				return nil, false
			}
			return VFloat{V: mean(b)}, true
		}),
		"deviation": fn([][]ValueType{{TInteger{}, TInteger{}, TFloat{}}}, TFloat{},
			func(ctx *ScanContext, args []Value) (Value, bool) {
				b, ok := region(ctx, args[:2])
				if !ok {
					return nil, false
				}
				return VFloat{V: deviation(b, asFloat(args[2]))}, true
			}),
		"entropy": fn(intint, TFloat{}, func(ctx *ScanContext, args []Value) (Value, bool) {
			b, ok := region(ctx, args)
			if !ok {
				return nil, false
			}
			return VFloat{V: entropy(b)}, true
		}),
		"serial_correlation": fn(intint, TFloat{}, func(ctx *ScanContext, args []Value) (Value, bool) {
			b, ok := region(ctx, args)
			if !ok {
				return nil, false
			}
			return VFloat{V: serialCorrelation(b)}, true
		}),
		"min": fn(intint, TInteger{}, func(_ *ScanContext, args []Value) (Value, bool) {
			a, b := asInt(args[0]), asInt(args[1])
			if a < b {
				return VInteger{V: a}, true
			}
			return VInteger{V: b}, true
		}),
		"max": fn(intint, TInteger{}, func(_ *ScanContext, args []Value) (Value, bool) {
			a, b := asInt(args[0]), asInt(args[1])
			if a > b {
				return VInteger{V: a}, true
			}
			return VInteger{V: b}, true
		}),
		"abs": fn([][]ValueType{{TInteger{}}}, TInteger{}, func(_ *ScanContext, args []Value) (Value, bool) {
			v := asInt(args[0])
			if v < 0 {
				v = -v
			}
			return VInteger{V: v}, true
		}),
		"to_number": fn([][]ValueType{{TBoolean{}}}, TInteger{}, func(_ *ScanContext, args []Value) (Value, bool) {
			if b, ok := args[0].(VBoolean); ok && b.V {
				return VInteger{V: 1}, true
			}
			return VInteger{V: 0}, true
		}),
	}
}

func (*MathModule) DynamicType() ValueType                      { return TDictionary{} }
func (*MathModule) DynamicValue(_ *ScanContext) Value            { return VDictionary{} }

func region(ctx *ScanContext, args []Value) ([]byte, bool) {
	offset, length := asInt(args[0]), asInt(args[1])
	if offset < 0 || length < 0 || offset > int64(len(ctx.Input)) {
		return nil, false
	}
	end := offset + length
	if end > int64(len(ctx.Input)) {
		end = int64(len(ctx.Input))
	}
	return ctx.Input[offset:end], true
}

func asInt(v Value) int64 {
	switch vv := v.(type) {
	case VInteger:
		return vv.V
	case VFloat:
		return int64(vv.V)
	default:
		return 0
	}
}

func asFloat(v Value) float64 {
	switch vv := v.(type) {
	case VInteger:
		return float64(vv.V)
	case VFloat:
		return vv.V
	default:
		return 0
	}
}

func distribution(b []byte) [256]uint64 {
	var d [256]uint64
	for _, c := range b {
		d[c]++
	}
	return d
}

func mean(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var sum float64
	for _, c := range b {
		sum += float64(c)
	}
	return sum / float64(len(b))
}

func deviation(b []byte, m float64) float64 {
	if len(b) == 0 {
		return 0
	}
	var sum float64
	for _, c := range b {
		sum += math.Abs(float64(c) - m)
	}
	return sum / float64(len(b))
}

func entropy(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	d := distribution(b)
	var e float64
	n := float64(len(b))
	for _, count := range d {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		e -= p * math.Log2(p)
	}
	return e
}

func serialCorrelation(b []byte) float64 {
	n := len(b)
	if n == 0 {
		return 0
	}
	var sccun, sccu1, scclast, scct1, scct2, scct3 float64
	scclast = 0
	for i, c := range b {
		sccun = float64(c)
		scct1 += scclast * sccun
		scct2 += sccun
		scct3 += sccun * sccun
		scclast = sccun
		if i == 0 {
			sccu1 = sccun
		}
	}
	scct1 += sccu1 * scclast
	scct2 *= scct2
	denom := float64(n)*scct3 - scct2
	if denom == 0 {
		return 0
	}
	num := float64(n)*scct1 - scct2
	return num / denom
}
