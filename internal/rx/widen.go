package rx

import (
	"fmt"

	"github.com/quasilyte/regex/syntax"
)

// Widen rewrites pattern into its "wide" (UTF-16LE-ish) form: a NUL byte
// interleaved after every single-byte unit, the same transform YARA's
// "wide" modifier applies to plain-text literals, generalized here to an
// arbitrary regex by walking its AST instead of its raw text. Quantified
// units are rewritten so the NUL rides inside the repetition (`a*` widens
// to `(?:a\x00)*`, not `a*\x00`), which a textual find-and-splice can't
// express correctly.
func Widen(pattern string) (string, error) {
	re, err := syntax.NewParser().Parse(pattern)
	if err != nil {
		return "", fmt.Errorf("rx: parse %q for widening: %w", pattern, err)
	}
	return widenExpr(re, re.Expr), nil
}

func widenExpr(re *syntax.Regexp, e syntax.Expr) string {
	switch e.Op {
	case syntax.OpConcat:
		out := ""
		for _, a := range e.Args {
			out += widenExpr(re, a)
		}
		return out
	case syntax.OpCapture, syntax.OpGroup, syntax.OpGroupWithFlags:
		if len(e.Args) == 0 {
			return re.ExprString(e)
		}
		return "(?:" + widenExpr(re, e.Args[0]) + ")"
	case syntax.OpAlt:
		out := ""
		for i, a := range e.Args {
			if i > 0 {
				out += "|"
			}
			out += widenExpr(re, a)
		}
		return "(?:" + out + ")"
	case syntax.OpStar:
		return "(?:" + widenExpr(re, e.Args[0]) + ")*"
	case syntax.OpPlus:
		return "(?:" + widenExpr(re, e.Args[0]) + ")+"
	case syntax.OpQuestion:
		return "(?:" + widenExpr(re, e.Args[0]) + ")?"
	case syntax.OpRepeat:
		count := re.ExprString(e.Args[1])
		return "(?:" + widenExpr(re, e.Args[0]) + "){" + count + "}"
	case syntax.OpCaret, syntax.OpDollar:
		return re.ExprString(e)
	case syntax.OpLiteral, syntax.OpEscape, syntax.OpEscapeMeta, syntax.OpEscapeOctal,
		syntax.OpEscapeHex, syntax.OpEscapeHexFull, syntax.OpDot, syntax.OpCharClass,
		syntax.OpNegCharClass, syntax.OpPosixClass, syntax.OpQuote:
		return re.ExprString(e) + `\x00`
	default:
		// Anything else (flag-only groups, escape sequences spanning
		// more than one byte) is left unwidened; rare enough in
		// practice that falling back to the unmodified source is an
		// acceptable degradation rather than a hard error.
		return re.ExprString(e)
	}
}
