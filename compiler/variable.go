package compiler

import (
	"encoding/base64"
	"fmt"

	"github.com/scanhive/scanhive/ast"
	"github.com/scanhive/scanhive/internal/atom"
	"github.com/scanhive/scanhive/internal/rx"
)

// MatcherKind is the strategy a Variant uses to confirm/expand an
// Aho-Corasick hit, per spec §3/§4.6.
type MatcherKind int

const (
	KindLiterals MatcherKind = iota
	KindAtomized
	KindRaw
)

// Variant is one matchable form of a variable: the plain literal(s) for
// an ascii-only string, the wide expansion for a "wide" string, one of a
// xor/base64 literal's several keys/alignments, or the atomized/raw
// encoding of a regex or masked hex string.
type Variant struct {
	Kind MatcherKind
	Wide bool

	// Literals kind: each byte string is registered whole in the AC set.
	Literals [][]byte

	// Atomized kind: exactly one atom, plus the offsets (from the atom's
	// own bounds back out to the full pattern's bounds) the scanner uses
	// to re-expand a literal AC hit before running the validators.
	Atom            []byte
	AtomOffsetLeft  int
	AtomOffsetRight int
	LeftValidator   rx.Regexp
	RightValidator  rx.Regexp

	// Raw kind: no AC participation; scanned on demand.
	RawRegex rx.Regexp
}

// Matcher is the compiled form of one ast.StringDef (spec §3/§4.3).
type Matcher struct {
	Name      string
	Modifiers ast.StringModifiers
	Variants  []Variant

	// WordBoundaryRegex is the secondary non-wide regex kept for the
	// wide-with-word-boundary post-check (spec §4.3 step 2, §4.6), set
	// only when the source pattern used `\b`/`\B` and is widened.
	WordBoundaryRegex rx.Regexp
}

// CompileVariable lowers a parsed variable declaration into a Matcher,
// dispatching on its declared kind (spec §4.3): plain bytes, regex, or
// hex string. It returns no warnings; bytes-to-boolean cast warnings are
// emitted by the rule compiler.
func CompileVariable(def *ast.StringDef) (*Matcher, error) {
	m := &Matcher{Name: def.Name, Modifiers: def.Modifiers}
	if !m.Modifiers.Ascii && !m.Modifiers.Wide {
		m.Modifiers.Ascii = true
	}

	switch v := def.Value.(type) {
	case ast.TextString:
		if err := compilePlainVariable(m, v.Value); err != nil {
			return nil, err
		}
	case ast.RegexString:
		if err := compileRegexVariable(m, v.Pattern, v.Modifiers); err != nil {
			return nil, err
		}
	case ast.HexString:
		if err := compileHexVariable(m, v.Tokens); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("variable %q: unknown string value type %T", def.Name, v)
	}
	return m, nil
}

// compilePlainVariable implements spec §4.3's plain-bytes path.
func compilePlainVariable(m *Matcher, plain []byte) error {
	if len(plain) == 0 {
		return fmt.Errorf("variable %q: empty literal", m.Name)
	}
	literals := [][]byte{plain}

	mods := m.Modifiers
	if mods.Xor {
		literals = xorLiterals(literals, mods.XorFrom, mods.XorTo)
	} else if mods.Base64 || mods.Base64Wide {
		literals = base64Literals(literals, mods.Base64Alph)
	}

	if mods.Ascii {
		m.Variants = append(m.Variants, Variant{Kind: KindLiterals, Literals: cloneAll(literals)})
	}
	if mods.Wide || mods.Base64Wide {
		wide := make([][]byte, len(literals))
		for i, l := range literals {
			wide[i] = widenBytes(l)
		}
		m.Variants = append(m.Variants, Variant{Kind: KindLiterals, Wide: true, Literals: wide})
	}
	return nil
}

// xorLiterals implements modifier step 4: for each literal and each key
// in [from,to], emit literal XOR key.
func xorLiterals(literals [][]byte, from, to int) [][]byte {
	out := make([][]byte, 0, len(literals)*(to-from+1))
	for _, lit := range literals {
		for key := from; key <= to; key++ {
			x := make([]byte, len(lit))
			for i, b := range lit {
				x[i] = b ^ byte(key)
			}
			out = append(out, x)
		}
	}
	return out
}

// base64Literals implements modifier step 5: for each of the three
// byte-alignments, base64-encode the literal (padded by that many leading
// zero bytes), trim the alignment-ambiguous edge characters.
//
// The exact trim boundary (which leading/trailing characters a given
// alignment leaves ambiguous) is an implementation choice the reference
// tunes empirically; this rewrite trims the minimal span of characters
// that depends on the padding bytes rather than the literal itself.
func base64Literals(literals [][]byte, alphabet string) [][]byte {
	alph := alphabet
	if alph == "" {
		alph = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	}
	enc := base64.NewEncoding(alph).WithPadding(base64.NoPadding)

	out := make([][]byte, 0, len(literals)*3)
	for _, lit := range literals {
		for o := 0; o < 3; o++ {
			padded := make([]byte, o+len(lit))
			copy(padded[o:], lit)
			full := enc.EncodeToString(padded)

			dropLeft := (o*8 + 5) / 6
			if dropLeft > len(full) {
				dropLeft = len(full)
			}
			trimmed := full[dropLeft:]

			if rem := (o + len(lit)) % 3; rem != 0 && len(trimmed) > 0 {
				trimmed = trimmed[:len(trimmed)-1]
			}
			if len(trimmed) > 0 {
				out = append(out, []byte(trimmed))
			}
		}
	}
	return out
}

// widenBytes interleaves a NUL after every byte, approximating UTF-16LE
// ASCII text (spec glossary "Wide").
func widenBytes(b []byte) []byte {
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, c, 0)
	}
	return out
}

func cloneAll(in [][]byte) [][]byte {
	out := make([][]byte, len(in))
	for i, l := range in {
		out[i] = append([]byte(nil), l...)
	}
	return out
}

// compileRegexVariable implements spec §4.3's regex path.
func compileRegexVariable(m *Matcher, pattern string, mods ast.RegexModifiers) error {
	if pattern == "" {
		return fmt.Errorf("variable %q: empty regex", m.Name)
	}
	built := rx.BuildPattern(pattern, mods)

	if m.Modifiers.Ascii {
		v, err := compileOneRegex(built, false)
		if err != nil {
			return fmt.Errorf("variable %q: %w", m.Name, err)
		}
		m.Variants = append(m.Variants, v)
	}
	if m.Modifiers.Wide {
		widePattern, err := rx.Widen(built)
		if err != nil {
			return fmt.Errorf("variable %q: widen: %w", m.Name, err)
		}
		if hasWordBoundary(pattern) {
			nonWide, err := rx.Compile(built)
			if err != nil {
				return fmt.Errorf("variable %q: %w", m.Name, err)
			}
			m.WordBoundaryRegex = nonWide
		}
		v, err := compileOneRegex(widePattern, true)
		if err != nil {
			return fmt.Errorf("variable %q: wide: %w", m.Name, err)
		}
		m.Variants = append(m.Variants, v)
	}
	return nil
}

func hasWordBoundary(pattern string) bool {
	for i := 0; i < len(pattern)-1; i++ {
		if pattern[i] == '\\' && (pattern[i+1] == 'b' || pattern[i+1] == 'B') {
			return true
		}
	}
	return false
}

// compileOneRegex runs atom extraction (spec §4.2) over one built regex
// pattern and produces its Variant: Atomized if a usable atom exists,
// Raw otherwise.
func compileOneRegex(pattern string, wide bool) (Variant, error) {
	re, err := atom.NewParser().Parse(pattern)
	if err != nil {
		return Variant{}, fmt.Errorf("parse regex for atom extraction: %w", err)
	}
	compiled, err := rx.Compile(pattern)
	if err != nil {
		return Variant{}, fmt.Errorf("compile regex: %w", err)
	}

	a, ok := atom.Extract(re)
	if !ok {
		return Variant{Kind: KindRaw, Wide: wide, RawRegex: compiled}, nil
	}

	leftSrc := pattern[:a.Start]
	rightSrc := pattern[a.End:]
	var left, right rx.Regexp
	if leftSrc != "" {
		left, err = rx.Compile(anchorEnd(leftSrc))
		if err != nil {
			return Variant{Kind: KindRaw, Wide: wide, RawRegex: compiled}, nil
		}
	}
	if rightSrc != "" {
		right, err = rx.Compile(anchorStart(rightSrc))
		if err != nil {
			return Variant{Kind: KindRaw, Wide: wide, RawRegex: compiled}, nil
		}
	}

	return Variant{
		Kind:            KindAtomized,
		Wide:            wide,
		Atom:            a.Bytes,
		AtomOffsetLeft:  a.Start,
		AtomOffsetRight: len(pattern) - a.End,
		LeftValidator:   left,
		RightValidator:  right,
	}, nil
}

func anchorEnd(pattern string) string   { return "(?:" + pattern + ")$" }
func anchorStart(pattern string) string { return "^(?:" + pattern + ")" }

// compileHexVariable implements spec §4.3's hex-string path: fullword and
// wide are stripped (not meaningful on a byte-pattern), and a plain byte
// sequence short-circuits straight to KindLiterals without going through
// the regex/atom machinery at all.
func compileHexVariable(m *Matcher, tokens []ast.HexToken) error {
	m.Modifiers.Fullword = false
	m.Modifiers.Wide = false
	m.Modifiers.Ascii = true

	if isPlainHex(tokens) {
		lit := make([]byte, len(tokens))
		for i, t := range tokens {
			lit[i] = t.(ast.HexByte).Value
		}
		m.Variants = append(m.Variants, Variant{Kind: KindLiterals, Literals: [][]byte{lit}})
		return nil
	}

	pattern := rx.HexPattern(tokens)
	compiled, err := rx.Compile(pattern)
	if err != nil {
		return fmt.Errorf("variable %q: compile hex-derived regex: %w", m.Name, err)
	}

	hexAtom, ok := atom.ExtractHex(tokens)
	if !ok {
		m.Variants = append(m.Variants, Variant{Kind: KindRaw, RawRegex: compiled})
		return nil
	}

	start, end := rx.TokenRangeOffsets(tokens, hexAtom.TokStart, hexAtom.TokEnd)
	leftSrc, rightSrc := pattern[:start], pattern[end:]
	var left, right rx.Regexp
	if leftSrc != "" {
		if left, err = rx.Compile(anchorEnd(leftSrc)); err != nil {
			m.Variants = append(m.Variants, Variant{Kind: KindRaw, RawRegex: compiled})
			return nil
		}
	}
	if rightSrc != "" {
		if right, err = rx.Compile(anchorStart(rightSrc)); err != nil {
			m.Variants = append(m.Variants, Variant{Kind: KindRaw, RawRegex: compiled})
			return nil
		}
	}
	m.Variants = append(m.Variants, Variant{
		Kind:            KindAtomized,
		Atom:            hexAtom.Atom.Bytes,
		AtomOffsetLeft:  start,
		AtomOffsetRight: len(pattern) - end,
		LeftValidator:   left,
		RightValidator:  right,
	})
	return nil
}

func isPlainHex(tokens []ast.HexToken) bool {
	for _, t := range tokens {
		if _, ok := t.(ast.HexByte); !ok {
			return false
		}
	}
	return len(tokens) > 0
}
