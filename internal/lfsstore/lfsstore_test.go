package lfsstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("assertEqual: expected %q, got %q", want, got)
	}
}

func TestSHA256Vector(t *testing.T) {
	dir := t.TempDir()
	pointer, err := Store(dir, []byte("Hello, World!"))
	if err != nil {
		t.Fatal(err)
	}
	wantHash := "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"
	if !strings.Contains(pointer, "oid sha256:"+wantHash) {
		t.Fatalf("pointer %q missing expected oid", pointer)
	}
	want := Pointer(wantHash, len("Hello, World!"))
	assertEqual(t, pointer, want)
}

func TestStoreIsIdempotentAndDeterministic(t *testing.T) {
	dir := t.TempDir()
	data := []byte("repeatable content")

	p1, err := Store(dir, data)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Store(dir, data)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, p1, p2)

	hash := strings.TrimPrefix(strings.Split(strings.Split(p1, "\n")[1], "oid sha256:")[1], "")
	path := filepath.Join(dir, "lfs", "objects", hash[0:2], hash[2:4], hash)
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, string(got), string(data))
}

func TestAttributesBody(t *testing.T) {
	assertEqual(t, AttributesBody(nil), "")
	got := AttributesBody([]string{"*.bin", "*.psd"})
	want := "*.bin filter=lfs diff=lfs merge=lfs -text\n*.psd filter=lfs diff=lfs merge=lfs -text\n"
	assertEqual(t, got, want)
}

func TestPointerSize(t *testing.T) {
	data := make([]byte, 128)
	dir := t.TempDir()
	pointer, err := Store(dir, data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pointer, "size 128\n") {
		t.Fatalf("pointer %q missing size", pointer)
	}
}
