package module

import stdtime "time"

// TimeModule implements the `time` built-in module (spec §6's default
// preload list): a single zero-argument function returning the current
// epoch time, matching the real YARA module's `time.now()`.
type TimeModule struct{}

func NewTimeModule() *TimeModule { return &TimeModule{} }

func (*TimeModule) Name() string { return "time" }

func (*TimeModule) StaticValues() map[string]Value {
	return map[string]Value{
		"now": VFunction{
			Signatures: [][]ValueType{{}},
			Return:     TInteger{},
			Call: func(_ *ScanContext, _ []Value) (Value, bool) {
				return VInteger{V: stdtime.Now().Unix()}, true
			},
		},
	}
}

func (*TimeModule) DynamicType() ValueType           { return TDictionary{} }
func (*TimeModule) DynamicValue(_ *ScanContext) Value { return VDictionary{} }
