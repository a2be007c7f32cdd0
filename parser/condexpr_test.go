package parser

import (
	"testing"

	"github.com/scanhive/scanhive/ast"
)

func mustParseCond(t *testing.T, src string) ast.Expr {
	t.Helper()
	e, err := ParseCondition(src)
	if err != nil {
		t.Fatalf("ParseCondition(%q) error = %v", src, err)
	}
	return e
}

func TestParseCondition_Literals(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"true", true},
		{"false", false},
		{"1", int64(1)},
		{"0x10", int64(16)},
		{"1.5", float64(1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e := mustParseCond(t, tt.src)
			switch want := tt.want.(type) {
			case bool:
				lit, ok := e.(*ast.BoolLit)
				if !ok || lit.Value != want {
					t.Errorf("got %#v, want BoolLit{%v}", e, want)
				}
			case int64:
				lit, ok := e.(*ast.IntLit)
				if !ok || lit.Value != want {
					t.Errorf("got %#v, want IntLit{%v}", e, want)
				}
			case float64:
				lit, ok := e.(*ast.FloatLit)
				if !ok || lit.Value != want {
					t.Errorf("got %#v, want FloatLit{%v}", e, want)
				}
			}
		})
	}
}

func TestParseCondition_BinaryOps(t *testing.T) {
	tests := []string{
		"1 and 2", "1 or 0", "not true",
		"$a contains \"x\"", "$a icontains \"x\"",
		"$a startswith \"x\"", "$a endswith \"x\"", "$a iequals \"x\"",
		"1 | 2", "1 ^ 2", "1 & 2", "1 << 2", "1 >> 2",
		"1 + 2", "1 - 2", "1 * 2", "1 \\ 2", "1 % 2",
		"1 == 2", "1 != 2", "1 < 2", "1 <= 2", "1 > 2", "1 >= 2",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			mustParseCond(t, src)
		})
	}
}

func TestParseCondition_OperatorPrecedence(t *testing.T) {
	e := mustParseCond(t, "1 + 2 * 3 == 7")
	bin, ok := e.(*ast.BinaryExpr)
	if !ok || bin.Op != "==" {
		t.Fatalf("expected top-level ==, got %#v", e)
	}
	lhs, ok := bin.Left.(*ast.BinaryExpr)
	if !ok || lhs.Op != "+" {
		t.Fatalf("expected + as left of ==, got %#v", bin.Left)
	}
	rhs, ok := lhs.Right.(*ast.BinaryExpr)
	if !ok || rhs.Op != "*" {
		t.Fatalf("expected * to bind tighter than +, got %#v", lhs.Right)
	}
}

func TestParseCondition_StringRefs(t *testing.T) {
	if _, ok := mustParseCond(t, "$a").(*ast.StringRef); !ok {
		t.Fatalf("expected StringRef")
	}
	if _, ok := mustParseCond(t, "#a == 1").(*ast.BinaryExpr); !ok {
		t.Fatalf("expected BinaryExpr for #a == 1")
	}
	if _, ok := mustParseCond(t, "@a[1]").(*ast.StringOffset); !ok {
		t.Fatalf("expected StringOffset")
	}
	if _, ok := mustParseCond(t, "!a[1]").(*ast.StringLength); !ok {
		t.Fatalf("expected StringLength")
	}
	if _, ok := mustParseCond(t, "$a at 0").(*ast.StringAt); !ok {
		t.Fatalf("expected StringAt")
	}
	if _, ok := mustParseCond(t, "$a in (0..10)").(*ast.StringIn); !ok {
		t.Fatalf("expected StringIn")
	}
}

func TestParseCondition_OfAndFor(t *testing.T) {
	if _, ok := mustParseCond(t, "any of them").(*ast.OfExpr); !ok {
		t.Fatalf("expected OfExpr for any of them")
	}
	if _, ok := mustParseCond(t, "2 of ($a, $b)").(*ast.OfExpr); !ok {
		t.Fatalf("expected OfExpr for 2 of (...)")
	}
	if _, ok := mustParseCond(t, "for all i in (1..3) : (i > 0)").(*ast.ForExpr); !ok {
		t.Fatalf("expected ForExpr for range iteration")
	}
	if _, ok := mustParseCond(t, "for any of ($a, $b) : ($)").(*ast.ForExpr); !ok {
		t.Fatalf("expected ForExpr for set iteration")
	}
}

func TestParseCondition_ModuleChain(t *testing.T) {
	e := mustParseCond(t, "math.mean(0, filesize) >= 0")
	bin, ok := e.(*ast.BinaryExpr)
	if !ok || bin.Op != ">=" {
		t.Fatalf("expected >= at top level, got %#v", e)
	}
	call, ok := bin.Left.(*ast.Call)
	if !ok {
		t.Fatalf("expected Call on the left, got %#v", bin.Left)
	}
	fa, ok := call.Target.(*ast.FieldAccess)
	if !ok || fa.Field != "mean" {
		t.Fatalf("expected FieldAccess to mean, got %#v", call.Target)
	}
}

func TestParseCondition_Defined(t *testing.T) {
	e := mustParseCond(t, "defined pe.entry_point")
	u, ok := e.(*ast.UnaryExpr)
	if !ok || u.Op != "defined" {
		t.Fatalf("expected defined unary, got %#v", e)
	}
}

func TestParseCondition_TrailingDataError(t *testing.T) {
	_, err := ParseCondition("true true")
	if err == nil {
		t.Fatal("expected a trailing-data error")
	}
	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != ErrTrailingData {
		t.Fatalf("expected ErrTrailingData, got %#v", err)
	}
}
