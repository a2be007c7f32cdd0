package parser_test

import (
	"fmt"

	"github.com/scanhive/scanhive/parser"
)

func ExampleParser_ParseString() {
	p, err := parser.New()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	f, err := p.ParseString("default", `
rule example {
    strings:
        $text = "hello world"
    condition:
        any of them
}
`)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("Parsed %d rule(s)\n", len(f.Rules))
	fmt.Printf("Rule name: %s\n", f.Rules[0].Name)
	// Output:
	// Parsed 1 rule(s)
	// Rule name: example
}
