package module

import (
	"testing"
	stdtime "time"
)

func TestTimeModule_Now(t *testing.T) {
	m := NewTimeModule()
	before := stdtime.Now().Unix()
	got := callFn(t, m, "now", nil).(VInteger)
	after := stdtime.Now().Unix()
	if got.V < before || got.V > after {
		t.Errorf("now() = %d, want between %d and %d", got.V, before, after)
	}
}

func TestTimeModule_Name(t *testing.T) {
	if NewTimeModule().Name() != "time" {
		t.Errorf("expected module name time")
	}
}
