package module

import "testing"

func TestTypeOf_Scalars(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want ValueType
	}{
		{"int", VInteger{V: 1}, TInteger{}},
		{"float", VFloat{V: 1.5}, TFloat{}},
		{"string", VString{V: []byte("x")}, TString{}},
		{"bool", VBoolean{V: true}, TBoolean{}},
		{"regex", VRegex{Pattern: "a"}, TRegex{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypeOf(tt.v); got != tt.want {
				t.Errorf("TypeOf(%#v) = %#v, want %#v", tt.v, got, tt.want)
			}
		})
	}
}

func TestTypeOf_Dictionary(t *testing.T) {
	v := VDictionary{Fields: map[string]Value{"n": VInteger{V: 1}}}
	got, ok := TypeOf(v).(TDictionary)
	if !ok {
		t.Fatalf("expected TDictionary, got %#v", TypeOf(v))
	}
	if _, ok := got.Fields["n"].(TInteger); !ok {
		t.Errorf("expected field n to be TInteger, got %#v", got.Fields["n"])
	}
}

func TestTypeOf_Array(t *testing.T) {
	v := VArray{ElemType: TInteger{}}
	got, ok := TypeOf(v).(TArray)
	if !ok {
		t.Fatalf("expected TArray, got %#v", TypeOf(v))
	}
	if _, ok := got.Elem.(TInteger); !ok {
		t.Errorf("expected elem type TInteger, got %#v", got.Elem)
	}
}

func TestTypeOf_Function(t *testing.T) {
	v := VFunction{Signatures: [][]ValueType{{TInteger{}}}, Return: TBoolean{}}
	got, ok := TypeOf(v).(TFunction)
	if !ok {
		t.Fatalf("expected TFunction, got %#v", TypeOf(v))
	}
	if _, ok := got.Return.(TBoolean); !ok {
		t.Errorf("expected return type TBoolean, got %#v", got.Return)
	}
}
