package module

import "testing"

func TestFormatModules_NamesAndSchema(t *testing.T) {
	tests := []struct {
		m        Module
		wantName string
		field    string
	}{
		{NewPEModule(), "pe", "is_pe"},
		{NewELFModule(), "elf", "is_elf"},
		{NewMachOModule(), "macho", "is_macho"},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if got := tt.m.Name(); got != tt.wantName {
				t.Errorf("Name() = %q, want %q", got, tt.wantName)
			}
			dt, ok := tt.m.DynamicType().(TDictionary)
			if !ok {
				t.Fatalf("DynamicType() = %#v, want TDictionary", tt.m.DynamicType())
			}
			if _, ok := dt.Fields[tt.field]; !ok {
				t.Errorf("expected schema field %q, got fields %v", tt.field, dt.Fields)
			}
			dv, ok := tt.m.DynamicValue(&ScanContext{}).(VDictionary)
			if !ok {
				t.Fatalf("DynamicValue() = %#v, want VDictionary", tt.m.DynamicValue(&ScanContext{}))
			}
			flag, ok := dv.Fields[tt.field].(VBoolean)
			if !ok || flag.V {
				t.Errorf("expected %s=false without a real parser, got %#v", tt.field, dv.Fields[tt.field])
			}
		})
	}
}

func TestPEModule_StaticConstants(t *testing.T) {
	sv := NewPEModule().StaticValues()
	m, ok := sv["MACHINE_AMD64"].(VInteger)
	if !ok || m.V != 0x8664 {
		t.Errorf("MACHINE_AMD64 = %#v, want 0x8664", sv["MACHINE_AMD64"])
	}
}
