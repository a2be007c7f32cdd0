package scanner

import (
	"testing"
	"time"

	"github.com/scanhive/scanhive/compiler"
)

func mustBuild(t *testing.T, src string) *Rules {
	t.Helper()
	c := compiler.NewCompiler()
	if _, err := c.AddRulesStr(src); err != nil {
		t.Fatalf("AddRulesStr() error = %v", err)
	}
	rules, err := Build(c.Rules(), c.Modules())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return rules
}

func scan(t *testing.T, rules *Rules, data []byte) MatchRules {
	t.Helper()
	var matches MatchRules
	if err := rules.ScanMem(data, 0, time.Second, &matches); err != nil {
		t.Fatalf("ScanMem() error = %v", err)
	}
	return matches
}

func TestBasicStringMatch(t *testing.T) {
	rules := mustBuild(t, `
rule php_tag {
	strings:
		$php = "<?php"
	condition:
		any of them
}`)

	matches := scan(t, rules, []byte("hello <?php echo 'world'; ?>"))
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Rule != "php_tag" {
		t.Errorf("expected rule php_tag, got %q", matches[0].Rule)
	}
}

func TestNoMatch(t *testing.T) {
	rules := mustBuild(t, `
rule php_tag {
	strings:
		$php = "<?php"
	condition:
		any of them
}`)

	if matches := scan(t, rules, []byte("plain text, no php here")); len(matches) != 0 {
		t.Errorf("expected 0 matches, got %d", len(matches))
	}
}

func TestMultipleRulesAndThem(t *testing.T) {
	rules := mustBuild(t, `
rule web_shell {
	strings:
		$a = "eval"
		$b = "base64_decode"
	condition:
		any of them
}
rule eval_usage {
	strings:
		$eval = "eval("
	condition:
		all of them
}`)

	matches := scan(t, rules, []byte("<?php eval($_POST['cmd']); ?>"))
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	names := map[string]bool{}
	for _, m := range matches {
		names[m.Rule] = true
	}
	if !names["web_shell"] || !names["eval_usage"] {
		t.Errorf("expected both rules to match, got %v", names)
	}
}

func TestNocaseModifier(t *testing.T) {
	rules := mustBuild(t, `
rule ci {
	strings:
		$s = "secret" nocase
	condition:
		any of them
}`)

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"lower", []byte("a secret value"), true},
		{"upper", []byte("A SECRET VALUE"), true},
		{"mixed", []byte("a SeCrEt value"), true},
		{"absent", []byte("nothing here"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(scan(t, rules, tt.data)) > 0; got != tt.want {
				t.Errorf("match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFullwordModifier(t *testing.T) {
	rules := mustBuild(t, `
rule fw {
	strings:
		$s = "test" fullword
	condition:
		any of them
}`)

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"standalone", []byte("this is a test here"), true},
		{"embedded_prefix", []byte("testing should not match"), false},
		{"embedded_suffix", []byte("a pretest example"), false},
		{"whole_buffer", []byte("test"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(scan(t, rules, tt.data)) > 0; got != tt.want {
				t.Errorf("match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStringCountOffsetLength(t *testing.T) {
	rules := mustBuild(t, `
rule counted {
	strings:
		$s = "ab"
	condition:
		#s == 2 and @s[1] == 1 and !s[1] == 2
}`)

	matches := scan(t, rules, []byte("xabxabx"))
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
}

func TestWildcardStringSet(t *testing.T) {
	rules := mustBuild(t, `
rule wc {
	strings:
		$a1 = "alpha"
		$a2 = "alef"
		$b1 = "beta"
	condition:
		2 of ($a*)
}`)

	if matches := scan(t, rules, []byte("alpha and alef but no beta")); len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches := scan(t, rules, []byte("only alpha here")); len(matches) != 0 {
		t.Errorf("expected 0 matches, got %d", len(matches))
	}
}

func TestGlobalRuleGatesRuleset(t *testing.T) {
	rules := mustBuild(t, `
global rule too_small {
	condition:
		filesize > 100
}
rule always {
	condition:
		true
}`)

	if matches := scan(t, rules, []byte("short")); len(matches) != 0 {
		t.Errorf("expected global rule to suppress all matches, got %d", len(matches))
	}
}

func TestRuleReferencesAnotherRule(t *testing.T) {
	rules := mustBuild(t, `
rule has_php {
	strings:
		$php = "<?php"
	condition:
		any of them
}
rule suspicious {
	strings:
		$eval = "eval("
	condition:
		has_php and $eval
}`)

	matches := scan(t, rules, []byte("<?php eval($_GET['x']); ?>"))
	names := map[string]bool{}
	for _, m := range matches {
		names[m.Rule] = true
	}
	if !names["has_php"] || !names["suspicious"] {
		t.Errorf("expected both rules to match, got %v", names)
	}
}

func TestForLoopOverIntRange(t *testing.T) {
	rules := mustBuild(t, `
rule r {
	strings:
		$s = "a"
	condition:
		for all i in (1..3) : (i > 0)
}`)

	if matches := scan(t, rules, []byte("a")); len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}
}

func TestMetaExtraction(t *testing.T) {
	rules := mustBuild(t, `
rule meta_rule {
	meta:
		author = "tester"
		severity = 5
	strings:
		$s = "match"
	condition:
		any of them
}`)

	matches := scan(t, rules, []byte("this will match"))
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].MetaString("author", "") != "tester" {
		t.Errorf("expected author=tester, got %v", matches[0].Meta("author"))
	}
	if sev, _ := matches[0].Meta("severity").(int64); sev != 5 {
		t.Errorf("expected severity=5, got %v", matches[0].Meta("severity"))
	}
}

func TestScanCallbackAbort(t *testing.T) {
	rules := mustBuild(t, `
rule r1 { strings: $s = "test" condition: any of them }
rule r2 { strings: $s = "test" condition: any of them }`)

	callCount := 0
	cb := &abortCallback{fn: func(*MatchRule) (bool, error) {
		callCount++
		return true, nil
	}}
	if err := rules.ScanMem([]byte("test data"), 0, time.Second, cb); err != nil {
		t.Fatalf("ScanMem() error = %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected callback called once, got %d", callCount)
	}
}

type abortCallback struct {
	fn func(*MatchRule) (bool, error)
}

func (a *abortCallback) RuleMatching(r *MatchRule) (bool, error) { return a.fn(r) }

func TestEmptyRuleset(t *testing.T) {
	rules := mustBuild(t, "")
	if matches := scan(t, rules, []byte("any data")); len(matches) != 0 {
		t.Errorf("expected 0 matches for empty ruleset, got %d", len(matches))
	}
}
