package module

// PEModule, ELFModule, and MachOModule declare only the schema and
// calling convention of the real file-format modules (spec §1 Non-goals:
// "Content of individual file-format modules ... their implementations
// are independent collaborators"). DynamicValue returns a dictionary
// holding only the module's is_* flag, set to false; every other schema
// field is absent and so evaluates as undefined.

type PEModule struct{}

func NewPEModule() *PEModule { return &PEModule{} }

func (*PEModule) Name() string { return "pe" }

func (*PEModule) StaticValues() map[string]Value {
	return map[string]Value{
		"MACHINE_I386":  VInteger{V: 0x014c},
		"MACHINE_AMD64": VInteger{V: 0x8664},
	}
}

func (*PEModule) DynamicType() ValueType {
	return TDictionary{Fields: map[string]ValueType{
		"machine":           TInteger{},
		"number_of_sections": TInteger{},
		"entry_point":       TInteger{},
		"is_pe":             TBoolean{},
		"sections": TArray{Elem: TDictionary{Fields: map[string]ValueType{
			"name":             TString{},
			"virtual_address":  TInteger{},
			"virtual_size":     TInteger{},
			"raw_data_size":    TInteger{},
		}}},
	}}
}

// DynamicValue has no backing PE parser in this core; callers that need
// real PE introspection wire in an independent collaborator that
// implements the same Module interface with this same schema.
func (*PEModule) DynamicValue(_ *ScanContext) Value {
	return VDictionary{Fields: map[string]Value{"is_pe": VBoolean{V: false}}}
}

type ELFModule struct{}

func NewELFModule() *ELFModule { return &ELFModule{} }

func (*ELFModule) Name() string { return "elf" }

func (*ELFModule) StaticValues() map[string]Value {
	return map[string]Value{
		"ET_EXEC": VInteger{V: 2},
		"ET_DYN":  VInteger{V: 3},
	}
}

func (*ELFModule) DynamicType() ValueType {
	return TDictionary{Fields: map[string]ValueType{
		"type":        TInteger{},
		"machine":     TInteger{},
		"entry_point": TInteger{},
		"is_elf":      TBoolean{},
	}}
}

func (*ELFModule) DynamicValue(_ *ScanContext) Value {
	return VDictionary{Fields: map[string]Value{"is_elf": VBoolean{V: false}}}
}

type MachOModule struct{}

func NewMachOModule() *MachOModule { return &MachOModule{} }

func (*MachOModule) Name() string { return "macho" }

func (*MachOModule) StaticValues() map[string]Value { return map[string]Value{} }

func (*MachOModule) DynamicType() ValueType {
	return TDictionary{Fields: map[string]ValueType{
		"is_macho": TBoolean{},
		"filetype": TInteger{},
	}}
}

func (*MachOModule) DynamicValue(_ *ScanContext) Value {
	return VDictionary{Fields: map[string]Value{"is_macho": VBoolean{V: false}}}
}
