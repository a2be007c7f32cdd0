// Package rx wraps RE2 regex compilation for validator matching and
// provides AST-level transforms on top of github.com/quasilyte/regex/syntax:
// lowering a hex-string token list to an RE2 pattern, and widening a
// pattern's literal bytes into UTF-16LE form for a "wide" string modifier.
// Grounded on the teacher's scanner/compile.go buildRE2Pattern/
// hexStringToRegex/fixCommaQuantifiers, generalized to the full hex-token
// set (masked nibbles, bounded/unbounded jumps, alternation) that the
// teacher's subset grammar didn't produce.
package rx

import (
	"fmt"
	"strings"

	"github.com/wasilibs/go-re2/experimental"

	"github.com/scanhive/scanhive/ast"
)

// Regexp is the subset of the compiled-regex surface a validator needs;
// satisfied by both experimental.CompileLatin1's result and the stdlib
// regexp.Regexp, mirroring the teacher's scanner.Regexp interface.
type Regexp interface {
	Match(b []byte) bool
	FindIndex(b []byte) []int
	FindAllIndex(b []byte, n int) [][]int
}

// Compile compiles pattern as a Latin1 RE2 program, the byte-oriented mode
// the teacher uses throughout so match offsets line up with raw file bytes
// instead of being interpreted as UTF-8.
func Compile(pattern string) (Regexp, error) {
	return experimental.CompileLatin1(pattern)
}

// BuildPattern assembles the final RE2 source for a regex string literal:
// inline-flag prefixes plus the {,N} quantifier fixup RE2 requires.
func BuildPattern(pattern string, mods ast.RegexModifiers) string {
	var prefix string
	if mods.CaseInsensitive {
		prefix = "(?i)"
	}
	if mods.DotMatchesAll {
		prefix += "(?s)"
	}
	return prefix + fixCommaQuantifiers(pattern)
}

// fixCommaQuantifiers rewrites "{,N}" to "{0,N}": RE2 treats a bare comma
// quantifier as literal text rather than as shorthand for a zero lower
// bound.
func fixCommaQuantifiers(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '\\' && i+1 < len(pattern) {
			b.WriteByte(pattern[i])
			b.WriteByte(pattern[i+1])
			i++
			continue
		}
		if pattern[i] == '{' && i+1 < len(pattern) && pattern[i+1] == ',' {
			b.WriteString("{0")
			continue
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}

// HexPattern lowers a hex-string token list into an RE2 pattern, wrapped
// in "(?s)" so "." spans the wildcard/jump gaps across newlines.
func HexPattern(tokens []ast.HexToken) string {
	var sb strings.Builder
	sb.WriteString("(?s)")
	writeHexTokens(&sb, tokens)
	return sb.String()
}

// TokenRangeOffsets measures the byte span HexPattern(tokens[tokStart:tokEnd])
// occupies within HexPattern(tokens), letting a hex atom found by token
// index (internal/atom.ExtractHex) be converted into the pattern-text
// Start/End an rx.Compile'd left/right validator needs.
func TokenRangeOffsets(tokens []ast.HexToken, tokStart, tokEnd int) (start, end int) {
	var sb strings.Builder
	writeHexTokens(&sb, tokens[:tokStart])
	start = len(sb.String())
	sb.Reset()
	writeHexTokens(&sb, tokens[:tokEnd])
	end = len(sb.String())
	return start + len("(?s)"), end + len("(?s)")
}

func writeHexTokens(sb *strings.Builder, tokens []ast.HexToken) {
	i := 0
	for i < len(tokens) {
		switch t := tokens[i].(type) {
		case ast.HexByte:
			fmt.Fprintf(sb, "\\x%02x", t.Value)
		case ast.HexMaskedByte:
			writeMaskedByte(sb, t)
		case ast.HexWildcard:
			count := 1
			for i+count < len(tokens) {
				if _, ok := tokens[i+count].(ast.HexWildcard); ok {
					count++
				} else {
					break
				}
			}
			if count == 1 {
				sb.WriteByte('.')
			} else {
				fmt.Fprintf(sb, ".{%d}", count)
			}
			i += count - 1
		case ast.HexJump:
			writeJump(sb, t)
		case ast.HexAlt:
			writeAlt(sb, t)
		}
		i++
	}
}

func writeMaskedByte(sb *strings.Builder, t ast.HexMaskedByte) {
	if !t.HighMasked {
		// "X?": high nibble fixed, low nibble wild -> contiguous range.
		lo := t.Nibble << 4
		fmt.Fprintf(sb, "[\\x%02x-\\x%02x]", lo, lo+0x0f)
		return
	}
	// "?X": low nibble fixed, high nibble wild -> strided, enumerate.
	sb.WriteByte('[')
	for hi := 0; hi < 16; hi++ {
		fmt.Fprintf(sb, "\\x%02x", byte(hi<<4)|t.Nibble)
	}
	sb.WriteByte(']')
}

func writeJump(sb *strings.Builder, t ast.HexJump) {
	switch {
	case t.Min == nil && t.Max == nil:
		sb.WriteString(".*")
	case t.Max == nil:
		fmt.Fprintf(sb, ".{%d,}", *t.Min)
	case t.Min == nil:
		fmt.Fprintf(sb, ".{0,%d}", *t.Max)
	case *t.Min == *t.Max:
		fmt.Fprintf(sb, ".{%d}", *t.Min)
	default:
		fmt.Fprintf(sb, ".{%d,%d}", *t.Min, *t.Max)
	}
}

func writeAlt(sb *strings.Builder, t ast.HexAlt) {
	sb.WriteByte('(')
	for i, branch := range t.Branches {
		if i > 0 {
			sb.WriteByte('|')
		}
		writeHexTokens(sb, branch)
	}
	sb.WriteByte(')')
}
