package rx

import (
	"testing"

	"github.com/scanhive/scanhive/ast"
)

func TestBuildPattern_Modifiers(t *testing.T) {
	tests := []struct {
		name string
		mods ast.RegexModifiers
		want string
	}{
		{"plain", ast.RegexModifiers{}, "abc"},
		{"nocase", ast.RegexModifiers{CaseInsensitive: true}, "(?i)abc"},
		{"dotall", ast.RegexModifiers{DotMatchesAll: true}, "(?s)abc"},
		{"both", ast.RegexModifiers{CaseInsensitive: true, DotMatchesAll: true}, "(?i)(?s)abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPattern("abc", tt.mods); got != tt.want {
				t.Errorf("BuildPattern() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildPattern_CommaQuantifierFixup(t *testing.T) {
	got := BuildPattern(`a{,5}`, ast.RegexModifiers{})
	if got != `a{0,5}` {
		t.Errorf("BuildPattern() = %q, want a{0,5}", got)
	}
}

func TestBuildPattern_CommaQuantifierInsideEscape(t *testing.T) {
	got := BuildPattern(`\{,5}`, ast.RegexModifiers{})
	if got != `\{,5}` {
		t.Errorf("expected an escaped brace to be left untouched, got %q", got)
	}
}

func TestCompile_MatchesAndFinds(t *testing.T) {
	re, err := Compile("ab+c")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !re.Match([]byte("xxabbbcxx")) {
		t.Error("expected a match")
	}
	if re.Match([]byte("no match here")) {
		t.Error("expected no match")
	}
	loc := re.FindIndex([]byte("xxabbbcxx"))
	if loc == nil || string([]byte("xxabbbcxx")[loc[0]:loc[1]]) != "abbbc" {
		t.Errorf("FindIndex() = %v, want the span of abbbc", loc)
	}
}

func TestHexPattern_PlainBytes(t *testing.T) {
	toks := []ast.HexToken{ast.HexByte{Value: 0x41}, ast.HexByte{Value: 0x42}}
	got := HexPattern(toks)
	want := `(?s)\x41\x42`
	if got != want {
		t.Errorf("HexPattern() = %q, want %q", got, want)
	}
}

func TestHexPattern_Wildcard(t *testing.T) {
	toks := []ast.HexToken{ast.HexByte{Value: 0x41}, ast.HexWildcard{}, ast.HexWildcard{}, ast.HexByte{Value: 0x42}}
	got := HexPattern(toks)
	want := `(?s)\x41.{2}\x42`
	if got != want {
		t.Errorf("HexPattern() = %q, want %q", got, want)
	}
}

func TestHexPattern_MaskedByte(t *testing.T) {
	lowWild := HexPattern([]ast.HexToken{ast.HexMaskedByte{Nibble: 0x4, HighMasked: false}})
	if lowWild != `(?s)[\x40-\x4f]` {
		t.Errorf("low-nibble-wild pattern = %q", lowWild)
	}
	highWild := HexPattern([]ast.HexToken{ast.HexMaskedByte{Nibble: 0x4, HighMasked: true}})
	want := `(?s)[\x04\x14\x24\x34\x44\x54\x64\x74\x84\x94\xa4\xb4\xc4\xd4\xe4\xf4]`
	if highWild != want {
		t.Errorf("high-nibble-wild pattern = %q, want %q", highWild, want)
	}
}

func TestHexPattern_BoundedJump(t *testing.T) {
	min, max := 2, 4
	toks := []ast.HexToken{ast.HexJump{Min: &min, Max: &max}}
	got := HexPattern(toks)
	if got != `(?s).{2,4}` {
		t.Errorf("HexPattern() = %q, want (?s).{2,4}", got)
	}
}

func TestHexPattern_UnboundedJump(t *testing.T) {
	toks := []ast.HexToken{ast.HexJump{}}
	got := HexPattern(toks)
	if got != `(?s).*` {
		t.Errorf("HexPattern() = %q, want (?s).*", got)
	}
}

func TestHexPattern_Alternation(t *testing.T) {
	toks := []ast.HexToken{
		ast.HexAlt{Branches: [][]ast.HexToken{
			{ast.HexByte{Value: 0xAA}},
			{ast.HexByte{Value: 0xBB}},
		}},
	}
	got := HexPattern(toks)
	want := `(?s)(\xaa|\xbb)`
	if got != want {
		t.Errorf("HexPattern() = %q, want %q", got, want)
	}
}

func TestTokenRangeOffsets(t *testing.T) {
	toks := []ast.HexToken{
		ast.HexByte{Value: 0x01},
		ast.HexByte{Value: 0x02},
		ast.HexByte{Value: 0x03},
	}
	start, end := TokenRangeOffsets(toks, 1, 3)
	full := HexPattern(toks)
	if full[start:end] != `\x02\x03` {
		t.Errorf("TokenRangeOffsets sliced %q, want \\x02\\x03", full[start:end])
	}
}

func TestWiden_PlainLiteral(t *testing.T) {
	got, err := Widen("abc")
	if err != nil {
		t.Fatalf("Widen() error = %v", err)
	}
	want := `a\x00b\x00c\x00`
	if got != want {
		t.Errorf("Widen() = %q, want %q", got, want)
	}
}

func TestWiden_Quantifier(t *testing.T) {
	got, err := Widen("a*")
	if err != nil {
		t.Fatalf("Widen() error = %v", err)
	}
	want := `(?:a\x00)*`
	if got != want {
		t.Errorf("Widen() = %q, want %q", got, want)
	}
}
