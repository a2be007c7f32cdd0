package parser

import "github.com/alecthomas/participle/v2/lexer"

// newLexer builds the stateful token lexer for the rule-file skeleton
// (imports, rule headers, meta, string declarations, hex-string bodies).
// The condition clause is captured whole as a CondBody token and handed
// off to the hand-rolled expression parser in condexpr.go, mirroring the
// teacher's own modeCondition carve-out but without needing the missing
// goyacc grammar it used to drive.
//
// Three sub-states exist beyond the default "Main" state:
//   - "StringValue": entered right after a $ident token, so that a
//     following "{" is unambiguously a hex-string open rather than a rule
//     body's own brace.
//   - "Hex"/"HexAlt": byte-pair tokenization for hex-string bodies, which
//     would otherwise be swallowed whole by the generic integer/ident
//     patterns.
//   - "CondRaw": captures the condition clause's raw text as one token.
func newLexer() *lexer.StatefulDefinition {
	ws := lexer.Rule{Name: "whitespace", Pattern: `\s+`}
	lineComment := lexer.Rule{Name: "LineComment", Pattern: `//[^\n]*`}
	blockComment := lexer.Rule{Name: "BlockComment", Pattern: `(?s)/\*.*?\*/`}

	str := lexer.Rule{Name: "Str", Pattern: `"(?:\\.|[^"\\])*"`}
	regex := lexer.Rule{Name: "Regex", Pattern: `/(?:\\.|[^/\\\n])*/[is]*`}

	return lexer.MustStateful(lexer.Rules{
		"Main": {
			ws, lineComment, blockComment,
			str,
			{Name: "StringIdent", Pattern: `\$[A-Za-z_][A-Za-z0-9_]*|\$`, Action: lexer.Push("StringValue")},
			{Name: "CondKw", Pattern: `condition\b`, Action: lexer.Push("CondRaw")},
			{Name: "Punct", Pattern: `[{}():,=\-.]`},
			{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
			{Name: "Int", Pattern: `0[xX][0-9a-fA-F]+|[0-9]+(?:KB|MB)?`},
		},
		"StringValue": {
			ws, lineComment, blockComment,
			str, regex,
			{Name: "Equals", Pattern: `=`},
			{Name: "HexOpen", Pattern: `\{`, Action: lexer.Push("Hex")},
			{Name: "Modifier", Pattern: `\b(?:ascii|wide|nocase|fullword|xor|base64wide|base64|private)\b`},
			{Name: "ModArgs", Pattern: `\([^)]*\)`},
			{Name: "Exit", Pattern: `(?=\S)`, Action: lexer.Pop()},
		},
		"Hex": {
			ws,
			{Name: "HexWildcard", Pattern: `\?\?`},
			{Name: "HexMaskHigh", Pattern: `\?[0-9a-fA-F]`},
			{Name: "HexMaskLow", Pattern: `[0-9a-fA-F]\?`},
			{Name: "HexByte", Pattern: `[0-9a-fA-F]{2}`},
			{Name: "HexJump", Pattern: `\[[^\]]*\]`},
			{Name: "HexAltOpen", Pattern: `\(`, Action: lexer.Push("HexAlt")},
			{Name: "HexClose", Pattern: `\}`, Action: lexer.Pop()},
		},
		"HexAlt": {
			ws,
			{Name: "HexWildcard", Pattern: `\?\?`},
			{Name: "HexMaskHigh", Pattern: `\?[0-9a-fA-F]`},
			{Name: "HexMaskLow", Pattern: `[0-9a-fA-F]\?`},
			{Name: "HexByte", Pattern: `[0-9a-fA-F]{2}`},
			{Name: "HexJump", Pattern: `\[[^\]]*\]`},
			{Name: "HexAltOpen", Pattern: `\(`, Action: lexer.Push("HexAlt")},
			{Name: "Pipe", Pattern: `\|`},
			{Name: "HexAltClose", Pattern: `\)`, Action: lexer.Pop()},
		},
		"CondRaw": {
			{Name: "Colon", Pattern: `:`},
			{Name: "CondBody", Pattern: `(?:"(?:\\.|[^"\\])*"|/(?:\\.|[^/\\\n])*/[is]*|[^}])*`},
			{Name: "CloseBrace", Pattern: `\}`, Action: lexer.Pop()},
		},
	})
}
