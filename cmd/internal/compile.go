package internal

import (
	"os"

	"github.com/scanhive/scanhive/compiler"
	"github.com/scanhive/scanhive/scanner"
)

// CompileRules parses and compiles a rule file's default namespace into a
// ready-to-scan Rules set, preloaded with the default module set.
func CompileRules(yaraFile string) (*scanner.Rules, error) {
	src, err := os.ReadFile(yaraFile)
	if err != nil {
		return nil, err
	}

	c := compiler.NewCompiler()
	if _, err := c.AddRulesStr(string(src)); err != nil {
		return nil, err
	}

	return scanner.Build(c.Rules(), c.Modules())
}
