package atom

import "github.com/scanhive/scanhive/ast"

// HexAtom is a candidate atom found directly in a hex-token list. TokStart/
// TokEnd are a half-open range of token *indices* (not byte offsets) into
// the original token list, letting the caller re-derive the matching span
// of its regex-lowered form (e.g. via rx.TokenRangeOffsets) without this
// package needing to know anything about regex lowering.
type HexAtom struct {
	Atom             Atom
	TokStart, TokEnd int
}

// ExtractHex finds the best atom directly in a hex-string token list,
// without lowering to a regex first: a hex string's fixed-byte runs are
// already explicit tokens, so walking ast.HexToken is more direct than
// round-tripping through rx.HexPattern and re-parsing it as regex text.
func ExtractHex(tokens []ast.HexToken) (HexAtom, bool) {
	runs := hexLiteralRuns(tokens)
	best := HexAtom{}
	found := false
	for _, run := range runs {
		if len(run.bytes) < minAtomLen {
			continue
		}
		cand := bestByteWindow(run)
		if !found || cand.Atom.Quality > best.Atom.Quality {
			best = cand
			found = true
		}
	}
	return best, found
}

type hexRun struct {
	bytes            []byte
	tokStart, tokEnd int
}

// hexLiteralRuns returns every maximal run of consecutive fully-specified
// bytes (ast.HexByte) in tokens; masked nibbles, wildcards, jumps, and
// alternations all break a run since none of them pin down a concrete
// byte value an Aho-Corasick literal can match on.
func hexLiteralRuns(tokens []ast.HexToken) []hexRun {
	var runs []hexRun
	var cur hexRun
	flush := func() {
		if len(cur.bytes) > 0 {
			runs = append(runs, cur)
		}
		cur = hexRun{}
	}
	for i, tok := range tokens {
		if b, ok := tok.(ast.HexByte); ok {
			if len(cur.bytes) == 0 {
				cur.tokStart = i
			}
			cur.bytes = append(cur.bytes, b.Value)
			cur.tokEnd = i + 1
			continue
		}
		flush()
	}
	flush()
	return runs
}

func bestByteWindow(run hexRun) HexAtom {
	if len(run.bytes) <= maxAtomLen {
		return HexAtom{Atom: Atom{Bytes: run.bytes, Quality: atomQuality(run.bytes)}, TokStart: run.tokStart, TokEnd: run.tokEnd}
	}
	best := HexAtom{}
	for i := 0; i+maxAtomLen <= len(run.bytes); i++ {
		window := run.bytes[i : i+maxAtomLen]
		q := atomQuality(window)
		if best.Atom.Bytes == nil || q > best.Atom.Quality {
			best = HexAtom{
				Atom:     Atom{Bytes: append([]byte(nil), window...), Quality: q},
				TokStart: run.tokStart + i,
				TokEnd:   run.tokStart + i + maxAtomLen,
			}
		}
	}
	return best
}
