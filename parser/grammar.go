package parser

// Grammar structs for the participle parser. These describe the rule-file
// skeleton only: imports, rule headers, meta, string declarations, and hex
// bodies. The condition clause is captured whole as raw text (CondBody,
// see lexer.go) and re-parsed by condexpr.go, so no expression precedence
// needs to be expressed here.

type fileG struct {
	Imports []string `parser:"('import' @Str)*"`
	Rules   []*ruleG `parser:"@@*"`
}

type ruleG struct {
	Private bool          `parser:"@'private'?"`
	Global  bool          `parser:"@'global'?"`
	Name    string        `parser:"'rule' @Ident"`
	Tags    []string      `parser:"(':' @Ident+)?"`
	Meta    *metaSectionG `parser:"'{' @@?"`
	Strings *stringsSectionG `parser:"@@?"`
	CondRaw string        `parser:"'condition' ':' @CondBody '}'"`
}

type metaSectionG struct {
	Entries []*metaEntryG `parser:"'meta' ':' @@+"`
}

type metaEntryG struct {
	Key     string  `parser:"@Ident '='"`
	StrVal  *string `parser:"(  @Str"`
	IntVal  *string `parser:"  | @Int"`
	BoolVal *string `parser:"  | @('true' | 'false') )"`
}

type stringsSectionG struct {
	Defs []*stringDefG `parser:"'strings' ':' @@+"`
}

type stringDefG struct {
	Name      string       `parser:"@StringIdent '='"`
	Str       *string      `parser:"(  @Str"`
	Hex       *hexG        `parser:"  | @@"`
	Regex     *string      `parser:"  | @Regex )"`
	Modifiers []*modifierG `parser:"@@*"`
}

type modifierG struct {
	Name string  `parser:"@Modifier"`
	Args *string `parser:"@ModArgs?"`
}

type hexG struct {
	Tokens []*hexTokenG `parser:"'{' @@* '}'"`
}

type hexTokenG struct {
	Byte     *string  `parser:"(  @HexByte"`
	MaskHigh *string  `parser:"  | @HexMaskHigh"`
	MaskLow  *string  `parser:"  | @HexMaskLow"`
	Wildcard bool     `parser:"  | @HexWildcard"`
	Jump     *string  `parser:"  | @HexJump"`
	Alt      *hexAltG `parser:"  | @@ )"`
}

type hexAltG struct {
	Branches []*hexBranchG `parser:"'(' @@ ('|' @@)* ')'"`
}

type hexBranchG struct {
	Tokens []*hexTokenG `parser:"@@*"`
}
