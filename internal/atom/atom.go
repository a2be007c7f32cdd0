// Package atom extracts short, high-rank literal byte runs ("atoms")
// from a regex AST, used to drive the Aho-Corasick multi-pattern scan.
// Candidates are ranked the way the teacher's scanner/atoms.go ranks
// them (rare bytes score higher than common ones, more unique bytes
// score higher, long monotone-common-byte runs are penalized), but atoms
// are found by walking a real regex AST (github.com/quasilyte/regex/syntax)
// instead of the teacher's raw-text literal-run scanner.
package atom

import (
	"strconv"

	"github.com/quasilyte/regex/syntax"
)

// maxAtomLen is the window size a long literal run is cropped to; the
// teacher's scanner/atoms.go uses the same constant for the same reason:
// a short, cheap-to-hash token performs as well as a long one in an
// Aho-Corasick automaton, while costing far less to store and traverse.
const maxAtomLen = 4

// minAtomLen is the shortest usable atom; shorter runs produce too many
// false-positive AC hits to be worth indexing (mirrors the teacher's
// scanner/compile.go minAtomLength).
const minAtomLen = 3

// Atom is a candidate literal byte run plus its source span, used by the
// caller to slice the left/right residual validator regex text.
type Atom struct {
	Bytes      []byte
	Start, End int // byte offsets into the original pattern source
	Quality    int
}

// Extract returns the best atom found in re, or ok=false if no literal
// run of at least minAtomLen bytes exists anywhere in the pattern (e.g.
// a pattern built entirely of character classes or wildcards), in which
// case the caller must fall back to a raw whole-pattern regex scan.
func Extract(re *syntax.Regexp) (Atom, bool) {
	runs := literalRuns(re, re.Expr)
	best := Atom{}
	found := false
	for _, run := range runs {
		if len(run.bytes) < minAtomLen {
			continue
		}
		cand := bestWindow(run)
		if !found || cand.Quality > best.Quality {
			best = cand
			found = true
		}
	}
	return best, found
}

type literalRun struct {
	bytes      []byte
	start, end int // source offsets of the run as a whole
	// byteStart/byteEnd give, per byte in bytes, the source span that
	// byte decoded from (an escape like \x41 spans more than one source
	// byte), so a cropped window's true source bounds can be recovered
	// without assuming a 1:1 byte-to-source mapping.
	byteStart, byteEnd []int
}

// literalRuns walks e depth-first, flattening concatenations and
// transparent grouping constructs, and returns every maximal run of
// consecutive literal bytes found anywhere in the tree. A run is broken
// by anything that isn't a fixed single byte: character classes,
// quantifiers, alternation, anchors, dots.
func literalRuns(re *syntax.Regexp, e syntax.Expr) []literalRun {
	var runs []literalRun
	var cur literalRun
	flush := func() {
		if len(cur.bytes) > 0 {
			runs = append(runs, cur)
		}
		cur = literalRun{}
	}

	var walk func(e syntax.Expr)
	walk = func(e syntax.Expr) {
		switch e.Op {
		case syntax.OpConcat:
			for _, a := range e.Args {
				walk(a)
			}
		case syntax.OpCapture:
			flush()
			if len(e.Args) > 0 {
				walk(e.Args[0])
			}
			flush()
		case syntax.OpGroup:
			flush()
			if len(e.Args) > 0 {
				walk(e.Args[0])
			}
			flush()
		case syntax.OpLiteral, syntax.OpEscape, syntax.OpEscapeHex, syntax.OpEscapeHexFull, syntax.OpEscapeOctal:
			b, ok := literalByte(re, e)
			if !ok {
				flush()
				return
			}
			bstart, bend := int(e.Begin()), int(e.End())
			if len(cur.bytes) == 0 {
				cur.start = bstart
			}
			cur.bytes = append(cur.bytes, b)
			cur.byteStart = append(cur.byteStart, bstart)
			cur.byteEnd = append(cur.byteEnd, bend)
			cur.end = bend
		default:
			// Quantifiers, alternation, char classes, anchors: the run
			// breaks here, but nested subexpressions (e.g. an
			// alternation's branches) may still contain their own runs.
			flush()
			for _, a := range e.Args {
				walk(a)
			}
			flush()
		}
	}
	walk(e)
	flush()
	return runs
}

// literalByte decodes a single-byte literal or hex/octal escape node into
// its concrete byte value.
func literalByte(re *syntax.Regexp, e syntax.Expr) (byte, bool) {
	text := re.ExprString(e)
	switch e.Op {
	case syntax.OpLiteral:
		if len(text) != 1 {
			return 0, false
		}
		return text[0], true
	case syntax.OpEscapeHex, syntax.OpEscapeHexFull:
		hex := trimEscapePrefix(text)
		n, err := strconv.ParseUint(hex, 16, 8)
		if err != nil {
			return 0, false
		}
		return byte(n), true
	case syntax.OpEscapeOctal:
		oct := trimEscapePrefix(text)
		n, err := strconv.ParseUint(oct, 8, 8)
		if err != nil {
			return 0, false
		}
		return byte(n), true
	default:
		return 0, false
	}
}

func trimEscapePrefix(s string) string {
	for i, c := range s {
		if c != '\\' && c != 'x' && c != '{' {
			return trimEscapeSuffix(s[i:])
		}
	}
	return s
}

func trimEscapeSuffix(s string) string {
	if len(s) > 0 && s[len(s)-1] == '}' {
		return s[:len(s)-1]
	}
	return s
}

// bestWindow picks the maxAtomLen-byte window of run with the highest
// atomQuality score, or the whole run if it's already short enough.
func bestWindow(run literalRun) Atom {
	if len(run.bytes) <= maxAtomLen {
		return Atom{Bytes: run.bytes, Start: run.start, End: run.end, Quality: atomQuality(run.bytes)}
	}
	best := Atom{}
	for i := 0; i+maxAtomLen <= len(run.bytes); i++ {
		window := run.bytes[i : i+maxAtomLen]
		q := atomQuality(window)
		if best.Bytes == nil || q > best.Quality {
			// The window's true source span is the chosen bytes' own
			// begin/end, not the full run's: a literal run longer than
			// maxAtomLen may have several source-offset windows, and the
			// caller slices left/right validator text at exactly these
			// bounds (compiler/variable.go's leftSrc/rightSrc), so they
			// must bound only the window actually registered as the atom.
			best = Atom{
				Bytes:   append([]byte(nil), window...),
				Start:   run.byteStart[i],
				End:     run.byteEnd[i+maxAtomLen-1],
				Quality: q,
			}
		}
	}
	return best
}

// atomQuality and byteQuality port the teacher's scanner/atoms.go rank
// heuristic: rare bytes score higher than common ones (so the AC
// automaton's candidate stream stays small), more distinct bytes in the
// atom score higher (reduces repeated-byte false positives), and an atom
// made entirely of one common byte is penalized per byte of length.
func atomQuality(b []byte) int {
	total := 0
	seen := map[byte]bool{}
	allSameCommon := len(b) > 0
	for _, c := range b {
		total += byteQuality(c)
		seen[c] = true
		if !(isCommonByte(c) && c == b[0]) {
			allSameCommon = false
		}
	}
	total += 2 * len(seen)
	if allSameCommon {
		total -= 10 * len(b)
	}
	return total
}

func byteQuality(c byte) int {
	switch {
	case isCommonByte(c):
		return 12
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return 18
	default:
		return 20
	}
}

func isCommonByte(c byte) bool {
	return c == 0x20 || c == 0x0A || c == 0x0D || c == 0x09 || c == 0x00
}

// NewParser returns a fresh quasilyte/regex/syntax parser. Exposed so
// callers that need to parse many patterns reuse a single constructor
// call site.
func NewParser() *syntax.Parser { return syntax.NewParser() }
