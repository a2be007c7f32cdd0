package scanner

import (
	"fmt"

	"github.com/scanhive/scanhive/ahocorasick"
	"github.com/scanhive/scanhive/ast"
	"github.com/scanhive/scanhive/compiler"
	"github.com/scanhive/scanhive/internal/rx"
	"github.com/scanhive/scanhive/module"
)

// patternRef maps one Aho-Corasick pattern index back to the rule/
// variable it belongs to, and to the further validation it needs
// (direct literal match, or an atom candidate needing left/right
// validator confirmation), per spec §4.6.
type patternRef struct {
	ruleIndex    int
	stringName   string
	fullword     bool
	wide         bool
	wordBoundary rx.Regexp
	isAtom       bool
	atomIdx      int
}

// atomEntry is an atomized regex/hex Variant registered for AC candidate
// confirmation: its atom bytes are in Rules.patterns, and atomIdx in a
// matched patternRef indexes here for the surrounding-window re-scan.
type atomEntry struct {
	ruleIndex       int
	stringName      string
	atomOffsetLeft  int
	atomOffsetRight int
	leftValidator   rx.Regexp
	rightValidator  rx.Regexp
}

// rawEntry is a Variant with no usable atom: scanned unconditionally
// against the whole buffer once per scan.
type rawEntry struct {
	ruleIndex  int
	stringName string
	re         rx.Regexp
}

// compiledRule is the scan-time form of one compiler.CompiledRule: its
// condition kept as-is (the evaluator walks the same ast.Expr the
// compiler type-checked, see DESIGN.md's single-AST decision) plus the
// bookkeeping the evaluator needs that isn't in ast.Expr itself.
type compiledRule struct {
	name        string
	namespace   string
	tags        []string
	metas       []Meta
	private     bool
	global      bool
	condition   ast.Expr
	stringNames []string
}

// Rules holds compiled rules ready for scanning (spec §3 "CompiledRules").
type Rules struct {
	rules      []*compiledRule
	byNS       map[string]map[string]int // namespace -> rule name -> index into rules

	matcher    *ahocorasick.AhoCorasick
	patterns   [][]byte
	patternMap []patternRef

	atomEntries []*atomEntry
	// atomPatternIdx[i] / atomByteLen[i] cache, per atomEntries[i], the
	// patternMap index and byte length of its registered atom, so the
	// scan-time candidate-confirmation loop doesn't have to search
	// patternMap for them on every hit.
	atomPatternIdx []int
	atomByteLen    []int
	rawEntries     []*rawEntry

	modules map[string]module.Module
}

// Stats returns compilation statistics: AC-registered pattern count and
// unconditionally-scanned raw regex count.
func (r *Rules) Stats() (acPatterns, rawRegexes int) {
	return len(r.patterns), len(r.rawEntries)
}

// NumRules returns the number of compiled rules.
func (r *Rules) NumRules() int { return len(r.rules) }

// Build turns a compiler's accumulated CompiledRule's into a Rules ready
// to scan, registering every Matcher Variant's literals/atoms into one
// Aho-Corasick set and collecting raw-regex fallbacks separately, per
// spec §4.5's multi-pattern set construction.
func Build(rules []*compiler.CompiledRule, modules map[string]module.Module) (*Rules, error) {
	out := &Rules{
		byNS:    map[string]map[string]int{},
		modules: modules,
	}

	for ruleIdx, cr := range rules {
		crc := &compiledRule{
			name:      cr.Name,
			namespace: cr.Namespace,
			tags:      cr.Tags,
			private:   cr.Private,
			global:    cr.Global,
			condition: cr.Condition,
		}
		for _, m := range cr.Meta {
			crc.metas = append(crc.metas, Meta{Identifier: m.Key, Value: m.Value})
		}
		for _, v := range cr.Variables {
			crc.stringNames = append(crc.stringNames, v.Matcher.Name)
		}
		out.rules = append(out.rules, crc)

		if out.byNS[crc.namespace] == nil {
			out.byNS[crc.namespace] = map[string]int{}
		}
		out.byNS[crc.namespace][crc.name] = ruleIdx

		for _, cv := range cr.Variables {
			if err := out.registerMatcher(ruleIdx, cv.Matcher); err != nil {
				return nil, fmt.Errorf("rule %q, variable $%s: %w", cr.Name, cv.Matcher.Name, err)
			}
		}
	}

	if len(out.patterns) > 0 {
		builder := ahocorasick.NewAhoCorasickBuilder()
		ac := builder.BuildByte(out.patterns)
		out.matcher = &ac
	}
	return out, nil
}

func (r *Rules) registerMatcher(ruleIdx int, m *compiler.Matcher) error {
	for _, v := range m.Variants {
		switch v.Kind {
		case compiler.KindLiterals:
			r.registerLiterals(ruleIdx, m, v)
		case compiler.KindAtomized:
			idx := len(r.atomEntries)
			r.atomEntries = append(r.atomEntries, &atomEntry{
				ruleIndex:       ruleIdx,
				stringName:      m.Name,
				atomOffsetLeft:  v.AtomOffsetLeft,
				atomOffsetRight: v.AtomOffsetRight,
				leftValidator:   v.LeftValidator,
				rightValidator:  v.RightValidator,
			})
			r.patterns = append(r.patterns, v.Atom)
			r.patternMap = append(r.patternMap, patternRef{
				ruleIndex:    ruleIdx,
				stringName:   m.Name,
				fullword:     m.Modifiers.Fullword,
				wide:         v.Wide,
				wordBoundary: m.WordBoundaryRegex,
				isAtom:       true,
				atomIdx:      idx,
			})
			r.atomPatternIdx = append(r.atomPatternIdx, len(r.patternMap)-1)
			r.atomByteLen = append(r.atomByteLen, len(v.Atom))
		case compiler.KindRaw:
			r.rawEntries = append(r.rawEntries, &rawEntry{
				ruleIndex:  ruleIdx,
				stringName: m.Name,
				re:         v.RawRegex,
			})
		}
	}
	return nil
}

// registerLiterals registers a KindLiterals Variant's byte strings,
// expanding every one into its ASCII-case permutations first when the
// variable carries the nocase modifier (spec §8's idempotence law:
// nocase is observationally equivalent to enumerating every ASCII-case
// permutation of the literal). This keeps the vendored ahocorasick
// package itself untouched.
func (r *Rules) registerLiterals(ruleIdx int, m *compiler.Matcher, v compiler.Variant) {
	for _, lit := range v.Literals {
		variants := [][]byte{lit}
		if m.Modifiers.Nocase {
			variants = casePermutations(lit)
		}
		for _, lv := range variants {
			r.patterns = append(r.patterns, lv)
			r.patternMap = append(r.patternMap, patternRef{
				ruleIndex:  ruleIdx,
				stringName: m.Name,
				fullword:   m.Modifiers.Fullword,
				wide:       v.Wide,
			})
		}
	}
}

// casePermutations enumerates every ASCII-case variant of lit. The count
// is not capped: nocase literals are registered whole rather than
// atomized, so a literal with n ASCII letters yields 2^n variants.
func casePermutations(lit []byte) [][]byte {
	var alphaPos []int
	for i, c := range lit {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			alphaPos = append(alphaPos, i)
		}
	}
	n := len(alphaPos)
	out := make([][]byte, 0, 1<<uint(n))
	for mask := 0; mask < (1 << uint(n)); mask++ {
		v := append([]byte(nil), lit...)
		for bit, pos := range alphaPos {
			if mask&(1<<uint(bit)) != 0 {
				v[pos] = toggleCase(v[pos])
			}
		}
		out = append(out, v)
	}
	return out
}

func toggleCase(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		return c - ('a' - 'A')
	case c >= 'A' && c <= 'Z':
		return c + ('a' - 'A')
	default:
		return c
	}
}
