package runlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.log")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("line one\n")); err != nil {
		t.Fatal(err)
	}
	w.Close()

	// Reopening continues appending rather than truncating.
	w, err = NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("line two\n")); err != nil {
		t.Fatal(err)
	}
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "line one\nline two\n" {
		t.Fatalf("unexpected log contents: %q", data)
	}
}

func TestWriterRotatesPastThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.log")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	record := append(bytes.Repeat([]byte("x"), 64*1024-1), '\n')
	total := 0
	for total <= maxLogSize {
		n, err := w.Write(record)
		if err != nil {
			t.Fatal(err)
		}
		total += n
	}

	// One more write must land in a fresh file with the old one at <path>.1.
	if _, err := w.Write([]byte("after rotation\n")); err != nil {
		t.Fatal(err)
	}

	rotated, err := os.Stat(path + ".1")
	if err != nil {
		t.Fatalf("rotated generation missing: %v", err)
	}
	if rotated.Size() == 0 {
		t.Fatal("rotated file must hold the prior contents")
	}

	current, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if current.Size() >= maxLogSize {
		t.Fatalf("active file was not reset: %d bytes", current.Size())
	}

	data, _ := os.ReadFile(path)
	if !bytes.Contains(data, []byte("after rotation\n")) {
		t.Fatal("post-rotation writes must go to the new file")
	}
}
