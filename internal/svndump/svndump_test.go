package svndump

import (
	"fmt"
	"io"
	"os"
	"testing"
)

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("assertEqual: expected %q, got %q", want, got)
	}
}

// writeDump assembles a minimal, well-formed svnadmin-dump-shaped file
// with one revision adding a single file, and returns its path.
func writeDump(t *testing.T) string {
	t.Helper()

	props := sizedBlock(map[string]string{
		"svn:log":    "initial import",
		"svn:author": "jsmith",
		"svn:date":   "2005-02-20T01:52:55.851101Z",
	})

	nodeText := "hello\n"
	nodeProps := sizedBlock(nil)
	nodeContent := nodeProps + nodeText

	var buf string
	buf += "SVN-fs-dump-format-version: 2\n\n"
	buf += "UUID: 00000000-0000-0000-0000-000000000000\n\n"
	buf += "Revision-number: 1\n"
	buf += fmt.Sprintf("Prop-content-length: %d\n", len(props))
	buf += fmt.Sprintf("Content-length: %d\n\n", len(props))
	buf += props
	buf += "\n"
	buf += "Node-path: trunk/foo.txt\n"
	buf += "Node-kind: file\n"
	buf += "Node-action: add\n"
	buf += fmt.Sprintf("Prop-content-length: %d\n", len(nodeProps))
	buf += fmt.Sprintf("Text-content-length: %d\n", len(nodeText))
	buf += fmt.Sprintf("Content-length: %d\n\n", len(nodeContent))
	buf += nodeContent
	buf += "\n\n"

	f, err := os.CreateTemp(t.TempDir(), "dump-*.svndump")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(buf); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func sizedBlock(props map[string]string) string {
	var b string
	for k, v := range props {
		b += fmt.Sprintf("K %d\n%s\n", len(k), k)
		b += fmt.Sprintf("V %d\n%s\n", len(v), v)
	}
	b += "PROPS-END\n"
	return b
}

func TestParsesOneRevisionOneFile(t *testing.T) {
	path := writeDump(t)
	src, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	rev, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, fmt.Sprint(rev.Number), "1")
	assertEqual(t, rev.Author, "jsmith")
	assertEqual(t, rev.Log, "initial import")
	if len(rev.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(rev.Files))
	}
	f := rev.Files[0]
	assertEqual(t, f.Path, "trunk/foo.txt")

	r, err := f.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, string(data), "hello\n")

	if _, err := src.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF after last revision, got %v", err)
	}
}

func TestRejectsNonDumpFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "notadump-*.txt")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("hello\n")
	f.Close()

	if _, err := Open(f.Name()); err == nil {
		t.Fatal("expected error opening a non-dump file")
	}
}
