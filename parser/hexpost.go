package parser

import (
	"strconv"
	"strings"

	"github.com/scanhive/scanhive/ast"
)

// convertHexTokens lowers the grammar's hex-token list into ast.HexToken,
// enforcing the boundary and size rules on jumps (spec §4.1): a jump may
// not be the first or last token of a token list or alternation branch,
// and a jump nested inside an alternation must have a bounded, ≤200-byte
// span. An exact single-byte jump ("[1]") is normalized to a wildcard.
func convertHexTokens(gs []*hexTokenG, inAlt bool) ([]ast.HexToken, error) {
	out := make([]ast.HexToken, 0, len(gs))
	for _, g := range gs {
		tok, err := convertHexToken(g, inAlt)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	if len(out) > 0 {
		if _, ok := out[0].(ast.HexJump); ok {
			return nil, newErr(ErrJumpAtBoundary, Span{}, "hex string cannot start with a jump")
		}
		if _, ok := out[len(out)-1].(ast.HexJump); ok {
			return nil, newErr(ErrJumpAtBoundary, Span{}, "hex string cannot end with a jump")
		}
	}
	return out, nil
}

func convertHexToken(g *hexTokenG, inAlt bool) (ast.HexToken, error) {
	switch {
	case g.Byte != nil:
		n, err := strconv.ParseUint(*g.Byte, 16, 8)
		if err != nil {
			return nil, newErr(ErrSyntax, Span{}, "invalid hex byte %q", *g.Byte)
		}
		return ast.HexByte{Value: byte(n)}, nil
	case g.MaskHigh != nil:
		n, _ := strconv.ParseUint((*g.MaskHigh)[1:], 16, 8)
		return ast.HexMaskedByte{Nibble: byte(n), HighMasked: true}, nil
	case g.MaskLow != nil:
		n, _ := strconv.ParseUint((*g.MaskLow)[:1], 16, 8)
		return ast.HexMaskedByte{Nibble: byte(n), HighMasked: false}, nil
	case g.Wildcard:
		return ast.HexWildcard{}, nil
	case g.Jump != nil:
		return convertHexJump(*g.Jump, inAlt)
	case g.Alt != nil:
		return convertHexAlt(g.Alt)
	default:
		return nil, newErr(ErrSyntax, Span{}, "empty hex token")
	}
}

func convertHexJump(raw string, inAlt bool) (ast.HexToken, error) {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]"))
	var min, max *int
	switch {
	case inner == "" || inner == "-":
		// unbounded jump: [-]
	case strings.Contains(inner, "-"):
		parts := strings.SplitN(inner, "-", 2)
		loStr, hiStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if loStr != "" {
			v, err := strconv.Atoi(loStr)
			if err != nil || v < 0 {
				return nil, newErr(ErrInvalidJump, Span{}, "invalid jump %q", raw)
			}
			min = &v
		} else {
			z := 0
			min = &z
		}
		if hiStr != "" {
			v, err := strconv.Atoi(hiStr)
			if err != nil || v < 0 {
				return nil, newErr(ErrInvalidJump, Span{}, "invalid jump %q", raw)
			}
			max = &v
		}
	default:
		v, err := strconv.Atoi(inner)
		if err != nil || v < 0 {
			return nil, newErr(ErrInvalidJump, Span{}, "invalid jump %q", raw)
		}
		if v == 1 {
			return ast.HexWildcard{}, nil
		}
		min, max = &v, &v
	}
	if min != nil && max != nil && *min > *max {
		return nil, newErr(ErrInvalidJump, Span{}, "invalid jump %q: min exceeds max", raw)
	}
	if inAlt {
		if max == nil {
			return nil, newErr(ErrUnboundedJumpInAlternation, Span{}, "unbounded jump %q inside alternation", raw)
		}
		if *max > maxAlternationJump {
			return nil, newErr(ErrOversizeJumpInAlternation, Span{}, "jump %q inside alternation exceeds %d bytes", raw, maxAlternationJump)
		}
	}
	return ast.HexJump{Min: min, Max: max}, nil
}

func convertHexAlt(g *hexAltG) (ast.HexToken, error) {
	branches := make([][]ast.HexToken, 0, len(g.Branches))
	for _, b := range g.Branches {
		toks, err := convertHexTokens(b.Tokens, true)
		if err != nil {
			return nil, err
		}
		branches = append(branches, toks)
	}
	return ast.HexAlt{Branches: branches}, nil
}
