//go:build yara

package internal

import (
	"os"

	yara "github.com/hillu/go-yara/v4"
)

// GoYaraRules compiles the same rule file through the real libyara
// bindings, for a cross-check corpus-diff style run that compares this
// engine's match output against the reference implementation's.
func GoYaraRules(yaraFile string) (*yara.Rules, error) {
	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(yaraFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if err := compiler.AddFile(f, ""); err != nil {
		return nil, err
	}

	return compiler.GetRules()
}
