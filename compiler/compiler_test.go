package compiler_test

import (
	"strings"
	"testing"

	"github.com/scanhive/scanhive/compiler"
	"github.com/scanhive/scanhive/module"
)

func TestAddRulesStr_Basic(t *testing.T) {
	c := compiler.NewCompiler()
	if _, err := c.AddRulesStr(`
rule example {
	strings:
		$text = "hello world"
	condition:
		any of them
}`); err != nil {
		t.Fatalf("AddRulesStr() error = %v", err)
	}
	if len(c.Rules()) != 1 {
		t.Fatalf("expected 1 compiled rule, got %d", len(c.Rules()))
	}
	if c.Rules()[0].Name != "example" {
		t.Errorf("expected rule name example, got %q", c.Rules()[0].Name)
	}
}

func TestDuplicatedRuleName(t *testing.T) {
	c := compiler.NewCompiler()
	src := `
rule dup { condition: true }
rule dup { condition: false }`
	_, err := c.AddRulesStr(src)
	if err == nil {
		t.Fatal("expected an error for a duplicated rule name")
	}
	var ce *compiler.CompileError
	if !asCompileError(err, &ce) {
		t.Fatalf("expected a *compiler.CompileError, got %T: %v", err, err)
	}
	if ce.Kind != compiler.ErrDuplicatedRuleName {
		t.Errorf("expected ErrDuplicatedRuleName, got %v", ce.Kind)
	}
}

func TestUnknownIdentifier(t *testing.T) {
	c := compiler.NewCompiler()
	_, err := c.AddRulesStr(`
rule r {
	condition:
		nonexistent_ident
}`)
	if err == nil {
		t.Fatal("expected an error for an unknown identifier")
	}
	var ce *compiler.CompileError
	if !asCompileError(err, &ce) {
		t.Fatalf("expected a *compiler.CompileError, got %T: %v", err, err)
	}
	if ce.Kind != compiler.ErrUnknownIdentifier {
		t.Errorf("expected ErrUnknownIdentifier, got %v", ce.Kind)
	}
}

func TestUnknownImport(t *testing.T) {
	c := compiler.NewCompiler()
	_, err := c.AddRulesStr(`
import "not_a_real_module"
rule r { condition: true }`)
	if err == nil {
		t.Fatal("expected an error for an unknown import")
	}
	if !strings.Contains(err.Error(), "not_a_real_module") {
		t.Errorf("expected error to mention the unknown module, got %v", err)
	}
}

func TestDuplicatedModuleName(t *testing.T) {
	c := compiler.NewCompiler()
	err := c.AddModule(stubModule{name: "math"})
	if err == nil {
		t.Fatal("expected an error for re-registering an existing module name")
	}
}

func TestModuleFunctionCallTypeChecks(t *testing.T) {
	c := compiler.NewCompiler()
	if _, err := c.AddRulesStr(`
import "math"
rule r {
	condition:
		math.mean(0, filesize) >= 0
}`); err != nil {
		t.Fatalf("AddRulesStr() error = %v", err)
	}
}

func TestFailOnWarnings(t *testing.T) {
	c := compiler.NewCompiler()
	c.SetParams(compiler.CompilerParams{MaxConditionDepth: 64, FailOnWarnings: true})
	_, err := c.AddRulesStr(`
rule r {
	strings:
		$s = "x"
	condition:
		$s and "not boolean"
}`)
	if err == nil {
		t.Fatal("expected FailOnWarnings to turn an implicit-cast warning into an error")
	}
}

func asCompileError(err error, target **compiler.CompileError) bool {
	ce, ok := err.(*compiler.CompileError)
	if ok {
		*target = ce
	}
	return ok
}

type stubModule struct{ name string }

func (s stubModule) Name() string                            { return s.name }
func (stubModule) StaticValues() map[string]module.Value      { return nil }
func (stubModule) DynamicType() module.ValueType              { return module.TDictionary{} }
func (stubModule) DynamicValue(*module.ScanContext) module.Value {
	return module.VDictionary{}
}
