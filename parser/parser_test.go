package parser_test

import (
	"testing"

	"github.com/scanhive/scanhive/ast"
	"github.com/scanhive/scanhive/parser"
)

func mustParser(t *testing.T) *parser.Parser {
	t.Helper()
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New() error = %v", err)
	}
	return p
}

func TestParseString_FullRule(t *testing.T) {
	p := mustParser(t)
	f, err := p.ParseString("default", `
import "pe"

private global rule tagged : malware trojan {
	meta:
		author = "tester"
		count = 3
		active = true
	strings:
		$a = "plain"
		$b = /abc+/i
		$c = { 01 ?2 3? [2-4] ( AA | BB ) }
	condition:
		any of them
}
`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if len(f.Imports) != 1 || f.Imports[0] != "pe" {
		t.Errorf("expected imports [pe], got %v", f.Imports)
	}
	if len(f.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(f.Rules))
	}
	r := f.Rules[0]
	if !r.Private || !r.Global {
		t.Errorf("expected private and global, got private=%v global=%v", r.Private, r.Global)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "malware" || r.Tags[1] != "trojan" {
		t.Errorf("unexpected tags: %v", r.Tags)
	}
	if len(r.Meta) != 3 {
		t.Fatalf("expected 3 meta entries, got %d", len(r.Meta))
	}
	if r.Meta[0].Value != "tester" {
		t.Errorf("expected author=tester, got %v", r.Meta[0].Value)
	}
	if r.Meta[1].Value != int64(3) {
		t.Errorf("expected count=3, got %v", r.Meta[1].Value)
	}
	if r.Meta[2].Value != true {
		t.Errorf("expected active=true, got %v", r.Meta[2].Value)
	}
	if len(r.Strings) != 3 {
		t.Fatalf("expected 3 string defs, got %d", len(r.Strings))
	}
	if _, ok := r.Strings[1].Value.(ast.RegexString); !ok {
		t.Errorf("expected $b to be a RegexString, got %T", r.Strings[1].Value)
	}
	if _, ok := r.Strings[2].Value.(ast.HexString); !ok {
		t.Errorf("expected $c to be a HexString, got %T", r.Strings[2].Value)
	}
}

func TestParseString_DuplicatedRuleName(t *testing.T) {
	p := mustParser(t)
	_, err := p.ParseString("default", `
rule r { condition: true }
rule r { condition: false }
`)
	if err == nil {
		t.Fatal("expected an error for duplicated rule names")
	}
}

func TestParseString_AnonymousString(t *testing.T) {
	p := mustParser(t)
	f, err := p.ParseString("default", `
rule anon {
	strings:
		$ = "nameless"
	condition:
		any of them
}
`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if f.Rules[0].Strings[0].Name != "" {
		t.Errorf("expected an empty name for anonymous string, got %q", f.Rules[0].Strings[0].Name)
	}
}

func TestParseString_SyntaxError(t *testing.T) {
	p := mustParser(t)
	if _, err := p.ParseString("default", `rule { condition: true }`); err == nil {
		t.Fatal("expected a syntax error for a rule with no name")
	}
}
