package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/scanhive/scanhive/ast"
)

// ParseCondition parses the raw text of a rule's condition clause. It is
// a small hand-rolled recursive-descent / precedence-climbing parser
// rather than a participle grammar: YARA's expression grammar mixes
// arithmetic, bitwise, comparison and module-access chains at a dozen
// precedence levels, and expressing that directly as struct tags is far
// more awkward than writing the climb by hand, the way the teacher's own
// (goyacc-backed, and here unusable) condition grammar effectively did
// with explicit precedence declarations.
func ParseCondition(src string) (ast.Expr, error) {
	toks, err := lexCondition(src)
	if err != nil {
		return nil, err
	}
	p := &condParser{toks: toks, src: src}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, newErr(ErrTrailingData, Span{Start: p.peek().start, End: len(src)}, "trailing data after condition expression")
	}
	return e, nil
}

// --- condition-clause lexer ---

type condTokKind int

const (
	ctEOF condTokKind = iota
	ctIdent
	ctInt
	ctFloat
	ctString
	ctRegex
	ctStringIdent  // $name, $name*, $
	ctStringCount  // #name
	ctStringOffset // @name
	ctStringLength // !name
	ctPunct
)

type condTok struct {
	kind       condTokKind
	text       string
	start, end int
}

func lexCondition(src string) ([]condTok, error) {
	var toks []condTok
	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			j := strings.Index(src[i+2:], "*/")
			if j < 0 {
				return nil, newErr(ErrSyntax, Span{i, n}, "unterminated block comment")
			}
			i = i + 2 + j + 2
		case c == '"':
			start := i
			i++
			for i < n && src[i] != '"' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= n {
				return nil, newErr(ErrSyntax, Span{start, n}, "unterminated string literal")
			}
			i++
			toks = append(toks, condTok{ctString, src[start:i], start, i})
		case c == '/' && lastSignificant(toks) != ctIdent && lastSignificant(toks) != ctInt && lastSignificant(toks) != ctString:
			start := i
			i++
			for i < n && src[i] != '/' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= n {
				return nil, newErr(ErrEmptyRegex, Span{start, n}, "unterminated regex literal")
			}
			i++
			for i < n && (src[i] == 'i' || src[i] == 's') {
				i++
			}
			if i == start+2 {
				return nil, newErr(ErrEmptyRegex, Span{start, i}, "empty regex literal")
			}
			toks = append(toks, condTok{ctRegex, src[start:i], start, i})
		case c == '$':
			start := i
			i++
			for i < n && (isIdentByte(src[i]) || src[i] == '*') {
				i++
			}
			toks = append(toks, condTok{ctStringIdent, src[start:i], start, i})
		case c == '#':
			start := i
			i++
			for i < n && isIdentByte(src[i]) {
				i++
			}
			toks = append(toks, condTok{ctStringCount, src[start:i], start, i})
		case c == '@':
			start := i
			i++
			for i < n && isIdentByte(src[i]) {
				i++
			}
			toks = append(toks, condTok{ctStringOffset, src[start:i], start, i})
		case c == '!' && i+1 < n && isIdentStart(src[i+1]):
			start := i
			i++
			for i < n && isIdentByte(src[i]) {
				i++
			}
			toks = append(toks, condTok{ctStringLength, src[start:i], start, i})
		case isIdentStart(c):
			start := i
			for i < n && isIdentByte(src[i]) {
				i++
			}
			toks = append(toks, condTok{ctIdent, src[start:i], start, i})
		case c >= '0' && c <= '9':
			start := i
			if c == '0' && i+1 < n && (src[i+1] == 'x' || src[i+1] == 'X') {
				i += 2
				for i < n && isHexByte(src[i]) {
					i++
				}
				toks = append(toks, condTok{ctInt, src[start:i], start, i})
				break
			}
			for i < n && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			isFloat := false
			if i+1 < n && src[i] == '.' && src[i+1] >= '0' && src[i+1] <= '9' {
				isFloat = true
				i++
				for i < n && src[i] >= '0' && src[i] <= '9' {
					i++
				}
			}
			if i < n && (src[i] == 'K' || src[i] == 'M') && i+1 < n && src[i+1] == 'B' {
				i += 2
			}
			kind := ctInt
			if isFloat {
				kind = ctFloat
			}
			toks = append(toks, condTok{kind, src[start:i], start, i})
		case c == '.' && i+1 < n && src[i+1] == '.':
			toks = append(toks, condTok{ctPunct, "..", i, i + 2})
			i += 2
		case strings.ContainsRune("!<>=", rune(c)) && i+1 < n && src[i+1] == '=':
			toks = append(toks, condTok{ctPunct, src[i : i+2], i, i + 2})
			i += 2
		case c == '<' && i+1 < n && src[i+1] == '<':
			toks = append(toks, condTok{ctPunct, "<<", i, i + 2})
			i += 2
		case c == '>' && i+1 < n && src[i+1] == '>':
			toks = append(toks, condTok{ctPunct, ">>", i, i + 2})
			i += 2
		case strings.ContainsRune("()[]{}.,:+-*\\%&|^~<>", rune(c)):
			toks = append(toks, condTok{ctPunct, string(c), i, i + 1})
			i++
		default:
			return nil, newErr(ErrSyntax, Span{i, i + 1}, "unexpected character %q", c)
		}
	}
	return toks, nil
}

func lastSignificant(toks []condTok) condTokKind {
	if len(toks) == 0 {
		return ctEOF
	}
	return toks[len(toks)-1].kind
}

func isIdentStart(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c))
}

func isIdentByte(c byte) bool {
	return c == '_' || unicode.IsLetter(rune(c)) || (c >= '0' && c <= '9')
}

func isHexByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// --- condition-clause parser ---

type condParser struct {
	toks []condTok
	pos  int
	src  string
}

func (p *condParser) peek() condTok {
	if p.pos >= len(p.toks) {
		return condTok{ctEOF, "", len(p.src), len(p.src)}
	}
	return p.toks[p.pos]
}

func (p *condParser) next() condTok {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *condParser) isKw(kw string) bool {
	t := p.peek()
	return t.kind == ctIdent && t.text == kw
}

func (p *condParser) eatKw(kw string) bool {
	if p.isKw(kw) {
		p.next()
		return true
	}
	return false
}

func (p *condParser) expectPunct(s string) error {
	t := p.peek()
	if t.kind != ctPunct || t.text != s {
		return newErr(ErrSyntax, Span{t.start, t.end}, "expected %q, got %q", s, t.text)
	}
	p.next()
	return nil
}

func mkSpan(a, b condTok) Span { return Span{a.start, b.end} }

func spanOf(t condTok) ast.Span { return ast.Span{Start: t.start, End: t.end} }

// parseOr ... parseUnary implement the precedence chain from
// SPEC_FULL.md §4.1: or > and > not > comparison > bitor > bitxor >
// bitand > shift > additive > multiplicative > unary > primary.
func (p *condParser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.eatKw("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.eatKw("and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseNot() (ast.Expr, error) {
	if p.eatKw("not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "not", Operand: operand}, nil
	}
	if p.eatKw("defined") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "defined", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *condParser) parseComparison() (ast.Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.peekPunctIn("==", "!=", "<", "<=", ">", ">="):
			op := p.next().text
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
		case p.eatKw("contains"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "contains", Left: left, Right: right}
		case p.eatKw("icontains"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "icontains", Left: left, Right: right}
		case p.eatKw("startswith"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "startswith", Left: left, Right: right}
		case p.eatKw("endswith"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "endswith", Left: left, Right: right}
		case p.eatKw("iequals"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Op: "iequals", Left: left, Right: right}
		case p.eatKw("matches"):
			right, err := p.parseBitOr()
			if err != nil {
				return nil, err
			}
			left = &ast.MatchesExpr{Target: left, Regex: right}
		default:
			return left, nil
		}
	}
}

func (p *condParser) peekPunctIn(ops ...string) bool {
	t := p.peek()
	if t.kind != ctPunct {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *condParser) parseBitOr() (ast.Expr, error) {
	left, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.peekPunctIn("|") {
		p.next()
		right, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "|", Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseBitXor() (ast.Expr, error) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.peekPunctIn("^") {
		p.next()
		right, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "^", Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseBitAnd() (ast.Expr, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for p.peekPunctIn("&") {
		p.next()
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "&", Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseShift() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peekPunctIn("<<", ">>") {
		op := p.next().text
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peekPunctIn("+", "-") {
		op := p.next().text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peekPunctIn("*", "\\", "%") {
		op := p.next().text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *condParser) parseUnary() (ast.Expr, error) {
	if p.peekPunctIn("-") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "-", Operand: operand}, nil
	}
	if p.peekPunctIn("~") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "~", Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles the chains that can follow a primary expression:
// field access, indexing, and calls, used by module identifiers.
func (p *condParser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.peekPunctIn("."):
			p.next()
			name := p.next()
			if name.kind != ctIdent {
				return nil, newErr(ErrSyntax, Span{name.start, name.end}, "expected field name after '.'")
			}
			e = &ast.FieldAccess{Target: e, Field: name.text}
		case p.peekPunctIn("("):
			p.next()
			var args []ast.Expr
			if !p.peekPunctIn(")") {
				for {
					a, err := p.parseOr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.peekPunctIn(",") {
						p.next()
						continue
					}
					break
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			e = &ast.Call{Target: e, Args: args}
		case p.peekPunctIn("["):
			p.next()
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			e = &ast.IndexAccess{Target: e, Index: idx}
		default:
			return e, nil
		}
	}
}

func (p *condParser) parsePrimary() (ast.Expr, error) {
	t := p.peek()
	switch t.kind {
	case ctInt:
		p.next()
		if p.isKw("of") {
			return p.parseOfWithCount(t.text)
		}
		n, err := parseIntLiteral(t.text)
		if err != nil {
			return nil, err
		}
		return &ast.IntLit{Value: n}, nil
	case ctFloat:
		p.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, newErr(ErrInvalidFloat, spanOf(t), "invalid float literal %q", t.text)
		}
		return &ast.FloatLit{Value: f}, nil
	case ctString:
		p.next()
		return &ast.BytesLit{Value: unquoteCond(t.text)}, nil
	case ctRegex:
		p.next()
		pat, mods := splitRegexLiteral(t.text)
		return &ast.RegexLit{Pattern: pat, Modifiers: mods}, nil
	case ctStringIdent:
		p.next()
		name := strings.TrimPrefix(t.text, "$")
		if p.eatKw("at") {
			pos, err := p.parsePrimaryChainForAt()
			if err != nil {
				return nil, err
			}
			return &ast.StringAt{Name: name, Pos: pos}, nil
		}
		if p.eatKw("in") {
			from, to, err := p.parseRangeParen()
			if err != nil {
				return nil, err
			}
			return &ast.StringIn{Name: name, From: from, To: to}, nil
		}
		return &ast.StringRef{Name: name}, nil
	case ctStringCount:
		p.next()
		name := strings.TrimPrefix(t.text, "#")
		if p.eatKw("in") {
			from, to, err := p.parseRangeParen()
			if err != nil {
				return nil, err
			}
			return &ast.StringCount{Name: name, InFrom: from, InTo: to}, nil
		}
		return &ast.StringCount{Name: name}, nil
	case ctStringOffset:
		p.next()
		name := strings.TrimPrefix(t.text, "@")
		idx, err := p.optionalIndex()
		if err != nil {
			return nil, err
		}
		return &ast.StringOffset{Name: name, Index: idx}, nil
	case ctStringLength:
		p.next()
		name := strings.TrimPrefix(t.text, "!")
		idx, err := p.optionalIndex()
		if err != nil {
			return nil, err
		}
		return &ast.StringLength{Name: name, Index: idx}, nil
	case ctPunct:
		if t.text == "(" {
			p.next()
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	case ctIdent:
		switch t.text {
		case "true":
			p.next()
			return &ast.BoolLit{Value: true}, nil
		case "false":
			p.next()
			return &ast.BoolLit{Value: false}, nil
		case "filesize":
			p.next()
			return &ast.Filesize{}, nil
		case "entrypoint":
			p.next()
			return &ast.Entrypoint{}, nil
		case "any", "all":
			return p.parseQuantified(t.text)
		case "for":
			return p.parseFor()
		default:
			p.next()
			return &ast.Ident{Name: t.text}, nil
		}
	}
	return nil, newErr(ErrSyntax, spanOf(t), "unexpected token %q", t.text)
}

// parseOfWithCount handles "N of (...)" where the integer N was already
// consumed by parsePrimary; this only triggers when followed by "of".
func (p *condParser) parseOfWithCount(numText string) (ast.Expr, error) {
	n, err := parseIntLiteral(numText)
	if err != nil {
		return nil, err
	}
	if !p.eatKw("of") {
		return &ast.IntLit{Value: n}, nil
	}
	items, err := p.parseStringSet()
	if err != nil {
		return nil, err
	}
	return &ast.OfExpr{Quantifier: &ast.IntLit{Value: n}, QuantKind: ast.QuantCount, Items: items}, nil
}

func (p *condParser) parseQuantified(kind string) (ast.Expr, error) {
	p.next() // any/all
	qk := ast.QuantAny
	if kind == "all" {
		qk = ast.QuantAll
	}
	if p.isKw("of") {
		p.next()
		items, err := p.parseStringSet()
		if err != nil {
			return nil, err
		}
		return &ast.OfExpr{QuantKind: qk, Items: items}, nil
	}
	// "for any ... in ..." / "for all ... in ..." handled by parseFor's caller.
	return nil, newErr(ErrSyntax, p.curSpan(), "expected 'of' after %q", kind)
}

func (p *condParser) parseFor() (ast.Expr, error) {
	p.next() // for
	var quant ast.Expr
	qk := ast.QuantCount
	switch {
	case p.eatKw("any"):
		qk = ast.QuantAny
	case p.eatKw("all"):
		qk = ast.QuantAll
	default:
		t := p.peek()
		if t.kind == ctInt {
			p.next()
			n, err := parseIntLiteral(t.text)
			if err != nil {
				return nil, err
			}
			quant = &ast.IntLit{Value: n}
		} else {
			e, err := p.parsePostfix()
			if err != nil {
				return nil, err
			}
			quant = e
		}
	}
	if p.eatKw("of") {
		items, err := p.parseStringSet()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		body, err := p.parseParenBody()
		if err != nil {
			return nil, err
		}
		return &ast.ForExpr{Quantifier: quant, QuantKind: qk, Set: items, Body: body}, nil
	}
	var idents []string
	for {
		t := p.peek()
		if t.kind != ctIdent {
			return nil, newErr(ErrSyntax, spanOf(t), "expected bound identifier in for-loop")
		}
		p.next()
		idents = append(idents, t.text)
		if p.peekPunctIn(",") {
			p.next()
			continue
		}
		break
	}
	if !p.eatKw("in") {
		return nil, newErr(ErrSyntax, p.curSpan(), "expected 'in' in for-loop")
	}
	iter, err := p.parseIterable()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	body, err := p.parseParenBody()
	if err != nil {
		return nil, err
	}
	return &ast.ForExpr{Quantifier: quant, QuantKind: qk, IdentList: idents, Iterable: iter, Body: body}, nil
}

func (p *condParser) parseIterable() (ast.Iterable, error) {
	if p.peekPunctIn("(") {
		p.next()
		first, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peekPunctIn("..") {
			p.next()
			to, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return ast.IntRange{From: first, To: to}, nil
		}
		items := []ast.Expr{first}
		for p.peekPunctIn(",") {
			p.next()
			it, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return ast.IntSet{Items: items}, nil
	}
	e, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	return ast.ModuleIterable{Expr: e}, nil
}

func (p *condParser) parseParenBody() (ast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *condParser) parseRangeParen() (ast.Expr, ast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, nil, err
	}
	from, err := p.parseOr()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectPunct(".."); err != nil {
		return nil, nil, err
	}
	to, err := p.parseOr()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func (p *condParser) optionalIndex() (ast.Expr, error) {
	if p.peekPunctIn("[") {
		p.next()
		idx, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return idx, nil
	}
	return &ast.IntLit{Value: 1}, nil
}

func (p *condParser) parsePrimaryChainForAt() (ast.Expr, error) {
	return p.parseBitOr()
}

func (p *condParser) curSpan() Span {
	t := p.peek()
	return Span{t.start, t.end}
}

func (p *condParser) parseSetItems() ([]ast.SetItem, error) {
	var items []ast.SetItem
	for {
		t := p.peek()
		switch {
		case t.kind == ctStringIdent:
			p.next()
			items = append(items, ast.SetItem{StringPattern: strings.TrimPrefix(t.text, "$")})
		case t.kind == ctIdent && t.text == "them":
			p.next()
			items = append(items, ast.SetItem{StringPattern: "them"})
		default:
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			items = append(items, ast.SetItem{Value: e})
		}
		if p.peekPunctIn(",") {
			p.next()
			continue
		}
		break
	}
	return items, nil
}

// parseStringSet parses the "(...)" or "them" following "any of"/"all
// of"/"N of"/"for ... of".
func (p *condParser) parseStringSet() ([]ast.SetItem, error) {
	if p.isKw("them") {
		p.next()
		return []ast.SetItem{{StringPattern: "them"}}, nil
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	items, err := p.parseSetItems()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return items, nil
}

func unquoteCond(s string) []byte {
	inner := s[1 : len(s)-1]
	var out []byte
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case 'x':
				if i+2 < len(inner) {
					n, err := strconv.ParseUint(inner[i+1:i+3], 16, 8)
					if err == nil {
						out = append(out, byte(n))
						i += 2
						continue
					}
				}
				out = append(out, inner[i])
			default:
				out = append(out, inner[i])
			}
			continue
		}
		out = append(out, inner[i])
	}
	return out
}
