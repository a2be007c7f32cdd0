package atom

import (
	"bytes"
	"testing"

	"github.com/scanhive/scanhive/ast"
)

func TestExtract_PlainLiteralRun(t *testing.T) {
	re, err := NewParser().Parse(`hello`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, ok := Extract(re)
	if !ok {
		t.Fatal("expected an atom to be found")
	}
	if len(got.Bytes) < minAtomLen {
		t.Errorf("expected atom of at least %d bytes, got %d (%q)", minAtomLen, len(got.Bytes), got.Bytes)
	}
	if !bytes.Contains([]byte("hello"), got.Bytes) {
		t.Errorf("expected atom bytes %q to be a substring of hello", got.Bytes)
	}
}

func TestExtract_NoLiteralRun(t *testing.T) {
	re, err := NewParser().Parse(`.*`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, ok := Extract(re); ok {
		t.Error("expected no atom for a pattern with no literal run")
	}
}

func TestExtract_BreaksAtCharClass(t *testing.T) {
	re, err := NewParser().Parse(`ab[0-9]cdef`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, ok := Extract(re)
	if !ok {
		t.Fatal("expected an atom to be found")
	}
	// the character class breaks "ab" from "cdef"; the longer run wins.
	if !bytes.Equal(got.Bytes, []byte("cdef")) {
		t.Errorf("expected atom cdef, got %q", got.Bytes)
	}
}

func TestExtract_WindowCroppedToMaxLen(t *testing.T) {
	re, err := NewParser().Parse(`abcdefgh`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, ok := Extract(re)
	if !ok {
		t.Fatal("expected an atom to be found")
	}
	if len(got.Bytes) > maxAtomLen {
		t.Errorf("expected atom cropped to %d bytes, got %d", maxAtomLen, len(got.Bytes))
	}
}

func TestAtomQuality_PrefersRareBytes(t *testing.T) {
	rare := atomQuality([]byte("xyzq"))
	common := atomQuality([]byte("    "))
	if rare <= common {
		t.Errorf("expected rare-byte atom to score higher than an all-spaces atom: rare=%d common=%d", rare, common)
	}
}

func TestAtomQuality_PenalizesRepeatedCommonByte(t *testing.T) {
	repeated := atomQuality([]byte{0x20, 0x20, 0x20, 0x20})
	mixed := atomQuality([]byte{0x20, 'a', 'b', 'c'})
	if repeated >= mixed {
		t.Errorf("expected a repeated-space run to score lower than a mixed run: repeated=%d mixed=%d", repeated, mixed)
	}
}

func TestExtractHex_PlainByteRun(t *testing.T) {
	toks := []ast.HexToken{
		ast.HexByte{Value: 0x01},
		ast.HexByte{Value: 0x02},
		ast.HexByte{Value: 0x03},
		ast.HexByte{Value: 0x04},
	}
	got, ok := ExtractHex(toks)
	if !ok {
		t.Fatal("expected a hex atom to be found")
	}
	if !bytes.Equal(got.Atom.Bytes, []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("expected bytes 01020304, got % x", got.Atom.Bytes)
	}
	if got.TokStart != 0 || got.TokEnd != 4 {
		t.Errorf("expected token range [0,4), got [%d,%d)", got.TokStart, got.TokEnd)
	}
}

func TestExtractHex_BreaksAtWildcard(t *testing.T) {
	toks := []ast.HexToken{
		ast.HexByte{Value: 0x01},
		ast.HexByte{Value: 0x02},
		ast.HexWildcard{},
		ast.HexByte{Value: 0x03},
		ast.HexByte{Value: 0x04},
		ast.HexByte{Value: 0x05},
	}
	got, ok := ExtractHex(toks)
	if !ok {
		t.Fatal("expected a hex atom to be found")
	}
	if !bytes.Equal(got.Atom.Bytes, []byte{0x03, 0x04, 0x05}) {
		t.Errorf("expected bytes 030405 (the longer run), got % x", got.Atom.Bytes)
	}
	if got.TokStart != 3 || got.TokEnd != 6 {
		t.Errorf("expected token range [3,6), got [%d,%d)", got.TokStart, got.TokEnd)
	}
}

func TestExtractHex_TooShort(t *testing.T) {
	toks := []ast.HexToken{
		ast.HexByte{Value: 0x01},
		ast.HexByte{Value: 0x02},
	}
	if _, ok := ExtractHex(toks); ok {
		t.Error("expected no atom for a run shorter than minAtomLen")
	}
}
