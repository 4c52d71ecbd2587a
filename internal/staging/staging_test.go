package staging

import (
	"bytes"
	"testing"

	"github.com/ktiyab/coheara/internal/cryptoutil"
)

func testKey() [cryptoutil.KeySize]byte {
	var k [cryptoutil.KeySize]byte
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestStageReadDiscard(t *testing.T) {
	dir := t.TempDir()
	area := New(dir, testKey())

	want := []byte("patient intake form contents")
	if _, err := area.Stage("doc-1", want); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	got, err := area.Read("doc-1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if err := area.Discard("doc-1"); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := area.Read("doc-1"); err == nil {
		t.Fatal("expected error reading discarded staged file")
	}
}

func TestWriteReadMarkdown(t *testing.T) {
	dir := t.TempDir()
	key := testKey()

	want := []byte("# Visit note\n\nBlood pressure 120/80.")
	if _, err := WriteMarkdown(dir, "doc-2", want, key); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	got, err := ReadMarkdown(dir, "doc-2", key)
	if err != nil {
		t.Fatalf("ReadMarkdown: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteOriginal(t *testing.T) {
	dir := t.TempDir()
	key := testKey()
	path, err := WriteOriginal(dir, "doc-3", []byte("original bytes"), key)
	if err != nil {
		t.Fatalf("WriteOriginal: %v", err)
	}
	if path == "" {
		t.Fatal("expected non-empty path")
	}
}
