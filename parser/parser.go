// Package parser turns rule-file source text into an *ast.File: a
// participle/v2 grammar for the file/rule/meta/strings skeleton, and a
// hand-rolled recursive-descent expression parser (condexpr.go) for each
// rule's condition clause, which the lexer captures whole as raw text.
package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/scanhive/scanhive/ast"
)

// Parser parses rule-file source into an ast.File.
type Parser struct {
	inner *participle.Parser[fileG]
}

// New builds a Parser. Construction can fail only if the grammar itself
// is malformed, which a passing build of this package rules out; callers
// that embed parser construction behind their own fallible setup should
// still check the error.
func New() (*Parser, error) {
	p, err := participle.Build[fileG](
		participle.Lexer(newLexer()),
		participle.Unquote("Str"),
		participle.UseLookahead(participle.MaxLookahead),
	)
	if err != nil {
		return nil, err
	}
	return &Parser{inner: p}, nil
}

// ParseString parses a single rule file. namespace is attached to every
// rule produced (the default namespace is the caller's choice; the
// compiler may override it per spec §4.4 namespace handling).
func (p *Parser) ParseString(namespace, src string) (*ast.File, error) {
	g, err := p.inner.ParseString("", src)
	if err != nil {
		return nil, &ParseError{Kind: ErrSyntax, Msg: err.Error()}
	}
	return convertFile(namespace, g)
}

func convertFile(namespace string, g *fileG) (*ast.File, error) {
	f := &ast.File{Imports: g.Imports}
	seenNames := map[string]bool{}
	for _, ig := range g.Imports {
		if ig == "" {
			continue
		}
	}
	for _, rg := range g.Rules {
		r, err := convertRule(namespace, rg)
		if err != nil {
			return nil, err
		}
		if seenNames[r.Name] {
			return nil, newErr(ErrDuplicatedRuleName, Span{}, "duplicated rule name %q", r.Name)
		}
		seenNames[r.Name] = true
		f.Rules = append(f.Rules, r)
	}
	return f, nil
}

func convertRule(namespace string, rg *ruleG) (*ast.Rule, error) {
	r := &ast.Rule{
		Name:      rg.Name,
		Namespace: namespace,
		Tags:      dedupTags(rg.Tags),
		Private:   rg.Private,
		Global:    rg.Global,
	}
	if rg.Meta != nil {
		for _, mg := range rg.Meta.Entries {
			me, err := convertMeta(mg)
			if err != nil {
				return nil, err
			}
			r.Meta = append(r.Meta, me)
		}
	}
	seenVars := map[string]bool{}
	if rg.Strings != nil {
		for _, sg := range rg.Strings.Defs {
			sd, err := convertStringDef(sg)
			if err != nil {
				return nil, err
			}
			if seenVars[sd.Name] && sd.Name != "" {
				return nil, newErr(ErrDuplicatedVariableName, sd.Span, "duplicated variable name %q", sd.Name)
			}
			seenVars[sd.Name] = true
			r.Strings = append(r.Strings, sd)
		}
	}
	cond, err := ParseCondition(rg.CondRaw)
	if err != nil {
		return nil, err
	}
	r.Condition = cond
	return r, nil
}

func dedupTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func convertMeta(mg *metaEntryG) (*ast.MetaEntry, error) {
	switch {
	case mg.StrVal != nil:
		return &ast.MetaEntry{Key: mg.Key, Value: *mg.StrVal}, nil
	case mg.IntVal != nil:
		n, err := parseIntLiteral(*mg.IntVal)
		if err != nil {
			return nil, err
		}
		return &ast.MetaEntry{Key: mg.Key, Value: n}, nil
	case mg.BoolVal != nil:
		return &ast.MetaEntry{Key: mg.Key, Value: *mg.BoolVal == "true"}, nil
	default:
		return nil, newErr(ErrSyntax, Span{}, "meta entry %q has no value", mg.Key)
	}
}

func parseIntLiteral(s string) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	t := strings.TrimPrefix(s, "-")
	var n uint64
	var err error
	switch {
	case strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X"):
		n, err = strconv.ParseUint(t[2:], 16, 64)
	case strings.HasSuffix(t, "KB"):
		n, err = strconv.ParseUint(strings.TrimSuffix(t, "KB"), 10, 64)
		n *= 1024
	case strings.HasSuffix(t, "MB"):
		n, err = strconv.ParseUint(strings.TrimSuffix(t, "MB"), 10, 64)
		n *= 1024 * 1024
	default:
		n, err = strconv.ParseUint(t, 10, 64)
	}
	if err != nil {
		return 0, newErr(ErrInvalidInt, Span{}, "invalid integer literal %q: %v", s, err)
	}
	if n > 1<<63-1 {
		return 0, newErr(ErrIntOverflow, Span{}, "integer literal %q overflows int64", s)
	}
	v := int64(n)
	if neg {
		v = -v
	}
	return v, nil
}

func convertStringDef(sg *stringDefG) (*ast.StringDef, error) {
	sd := &ast.StringDef{Name: strings.TrimPrefix(sg.Name, "$")}
	switch {
	case sg.Str != nil:
		sd.Value = ast.TextString{Value: []byte(*sg.Str)}
	case sg.Regex != nil:
		pat, mods := splitRegexLiteral(*sg.Regex)
		if pat == "" {
			return nil, newErr(ErrEmptyRegex, sd.Span, "empty regex in string %q", sg.Name)
		}
		sd.Value = ast.RegexString{Pattern: pat, Modifiers: mods}
	case sg.Hex != nil:
		toks, err := convertHexTokens(sg.Hex.Tokens, false)
		if err != nil {
			return nil, err
		}
		sd.Value = ast.HexString{Tokens: toks}
	default:
		return nil, newErr(ErrSyntax, sd.Span, "string %q has no value", sg.Name)
	}
	mods, err := convertModifiers(sg.Modifiers)
	if err != nil {
		return nil, err
	}
	sd.Modifiers = mods
	return sd, nil
}

// splitRegexLiteral turns "/pat/is" into ("pat", {CaseInsensitive:true, DotMatchesAll:true}).
func splitRegexLiteral(lit string) (string, ast.RegexModifiers) {
	end := strings.LastIndex(lit, "/")
	pat := lit[1:end]
	flags := lit[end+1:]
	return pat, ast.RegexModifiers{
		CaseInsensitive: strings.Contains(flags, "i"),
		DotMatchesAll:   strings.Contains(flags, "s"),
	}
}

func convertModifiers(mgs []*modifierG) (ast.StringModifiers, error) {
	var m ast.StringModifiers
	seen := map[string]bool{}
	for _, mg := range mgs {
		if seen[mg.Name] {
			return m, newErr(ErrDuplicatedModifier, Span{}, "duplicated modifier %q", mg.Name)
		}
		seen[mg.Name] = true
		switch mg.Name {
		case "ascii":
			m.Ascii = true
		case "wide":
			m.Wide = true
		case "nocase":
			m.Nocase = true
		case "fullword":
			m.Fullword = true
		case "private":
			m.Private = true
		case "xor":
			m.Xor = true
			m.XorFrom, m.XorTo = 0, 255
			if mg.Args != nil {
				lo, hi, err := parseXorArgs(*mg.Args)
				if err != nil {
					return m, err
				}
				m.XorFrom, m.XorTo = lo, hi
			}
		case "base64":
			m.Base64 = true
			if mg.Args != nil {
				alph, err := parseBase64Args(*mg.Args)
				if err != nil {
					return m, err
				}
				m.Base64Alph = alph
			}
		case "base64wide":
			m.Base64Wide = true
			if mg.Args != nil {
				alph, err := parseBase64Args(*mg.Args)
				if err != nil {
					return m, err
				}
				m.Base64Alph = alph
			}
		}
	}
	if (m.Base64 || m.Base64Wide) && m.Nocase {
		return m, newErr(ErrIncompatibleModifiers, Span{}, "base64/base64wide cannot combine with nocase")
	}
	if (m.Base64 || m.Base64Wide) && m.Xor {
		return m, newErr(ErrIncompatibleModifiers, Span{}, "base64/base64wide cannot combine with xor")
	}
	if !m.Ascii && !m.Wide {
		m.Ascii = true
	}
	return m, nil
}

func parseXorArgs(raw string) (int, int, error) {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")"))
	if inner == "" {
		return 0, 255, nil
	}
	parts := strings.SplitN(inner, "-", 2)
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || lo < 0 || lo > 255 {
		return 0, 0, newErr(ErrInvalidXorRange, Span{}, "invalid xor range %q", raw)
	}
	if len(parts) == 1 {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || hi < lo || hi > 255 {
		return 0, 0, newErr(ErrInvalidXorRange, Span{}, "invalid xor range %q", raw)
	}
	return lo, hi, nil
}

func parseBase64Args(raw string) (string, error) {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")"))
	if inner == "" {
		return "", nil
	}
	if len(inner) < 2 || inner[0] != '"' || inner[len(inner)-1] != '"' {
		return "", newErr(ErrInvalidBase64Alphabet, Span{}, "invalid base64 alphabet %q", raw)
	}
	alph := inner[1 : len(inner)-1]
	if len(alph) != 64 && len(alph) != 65 {
		return "", newErr(ErrInvalidBase64Alphabet, Span{}, "base64 alphabet must be 64 or 65 characters, got %d", len(alph))
	}
	return alph, nil
}
