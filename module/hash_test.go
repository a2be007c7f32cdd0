package module

import "testing"

func TestHashModule_MD5(t *testing.T) {
	m := NewHashModule()
	ctx := &ScanContext{Input: []byte("abc")}
	got := callFn(t, m, "md5", ctx, VInteger{V: 0}, VInteger{V: 3}).(VString)
	want := "900150983cd24fb0d6963f7d28e17f72"
	if string(got.V) != want {
		t.Errorf("md5(\"abc\") = %s, want %s", got.V, want)
	}
}

func TestHashModule_SHA256(t *testing.T) {
	m := NewHashModule()
	ctx := &ScanContext{Input: []byte("abc")}
	got := callFn(t, m, "sha256", ctx, VInteger{V: 0}, VInteger{V: 3}).(VString)
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if string(got.V) != want {
		t.Errorf("sha256(\"abc\") = %s, want %s", got.V, want)
	}
}

func TestHashModule_CRC32(t *testing.T) {
	m := NewHashModule()
	ctx := &ScanContext{Input: []byte("abc")}
	got := callFn(t, m, "crc32", ctx, VInteger{V: 0}, VInteger{V: 3}).(VInteger)
	if got.V != 0x352441c2 {
		t.Errorf("crc32(\"abc\") = %x, want 352441c2", got.V)
	}
}

func TestHashModule_Checksum32(t *testing.T) {
	m := NewHashModule()
	ctx := &ScanContext{Input: []byte{1, 2, 3}}
	got := callFn(t, m, "checksum32", ctx, VInteger{V: 0}, VInteger{V: 3}).(VInteger)
	if got.V != 6 {
		t.Errorf("checksum32 = %v, want 6", got.V)
	}
}

func TestHashModule_Name(t *testing.T) {
	if NewHashModule().Name() != "hash" {
		t.Errorf("expected module name hash")
	}
}
