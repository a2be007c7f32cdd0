package module

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash/crc32"
)

// HashModule implements the `hash` built-in module (spec §6's
// conditionally-preloaded module list): md5/sha1/sha256/crc32/checksum32
// over a byte region of the scanned input, matching the real YARA hash
// module's function set and hex-string return convention.
type HashModule struct{}

func NewHashModule() *HashModule { return &HashModule{} }

func (*HashModule) Name() string { return "hash" }

func (*HashModule) StaticValues() map[string]Value {
	intint := [][]ValueType{{TInteger{}, TInteger{}}}
	digest := func(sum func([]byte) string) func(*ScanContext, []Value) (Value, bool) {
		return func(ctx *ScanContext, args []Value) (Value, bool) {
			b, ok := region(ctx, args)
			if !ok {
				return nil, false
			}
			return VString{V: []byte(sum(b))}, true
		}
	}
	return map[string]Value{
		"md5": VFunction{Signatures: intint, Return: TString{}, Call: digest(func(b []byte) string {
			s := md5.Sum(b)
			return hex.EncodeToString(s[:])
		})},
		"sha1": VFunction{Signatures: intint, Return: TString{}, Call: digest(func(b []byte) string {
			s := sha1.Sum(b)
			return hex.EncodeToString(s[:])
		})},
		"sha256": VFunction{Signatures: intint, Return: TString{}, Call: digest(func(b []byte) string {
			s := sha256.Sum256(b)
			return hex.EncodeToString(s[:])
		})},
		"crc32": VFunction{Signatures: intint, Return: TInteger{}, Call: func(ctx *ScanContext, args []Value) (Value, bool) {
			b, ok := region(ctx, args)
			if !ok {
				return nil, false
			}
			return VInteger{V: int64(crc32.ChecksumIEEE(b))}, true
		}},
		"checksum32": VFunction{Signatures: intint, Return: TInteger{}, Call: func(ctx *ScanContext, args []Value) (Value, bool) {
			b, ok := region(ctx, args)
			if !ok {
				return nil, false
			}
			var sum int64
			for _, c := range b {
				sum += int64(c)
			}
			return VInteger{V: sum}, true
		}},
	}
}

func (*HashModule) DynamicType() ValueType           { return TDictionary{} }
func (*HashModule) DynamicValue(_ *ScanContext) Value { return VDictionary{} }
