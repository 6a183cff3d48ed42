package trackz

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestGZFileWriter_Write(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tracks.ndjson.gz")

	w, err := NewGZFileWriter(target, DefaultGZFileWriterConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if _, err := w.Write([]byte(fmt.Sprintf("line %d\n", i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// Stdlib reader first; it fails if the compression is off.
	f, err := os.Open(target)
	if err != nil {
		t.Fatal(err)
	}
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadAll(gr); err != nil {
		t.Fatal(err)
	}
	_ = gr.Close()
	_ = f.Close()

	r, err := NewGZFileReader(target)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	n, err := r.LineCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("expected 10 lines, got %d", n)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.ndjson")
	if err := os.WriteFile(plain, []byte("a\nb\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// Gzipped content without a .gz suffix is detected by its magic bytes.
	sniffed := filepath.Join(dir, "sniffed.ndjson")
	w, err := NewGZFileWriter(sniffed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("a\nb\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, sniffed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			rc, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			scanner := bufio.NewScanner(rc)
			var lines []string
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				t.Fatal(err)
			}
			if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
				t.Errorf("unexpected lines: %q", lines)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "sub", "out.ndjson.gz")
	wc, err := Create(target)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wc.Write([]byte("x\n")); err != nil {
		t.Fatal(err)
	}
	if err := wc.Close(); err != nil {
		t.Fatal(err)
	}
	gz, err := IsGzipped(target)
	if err != nil {
		t.Fatal(err)
	}
	if !gz {
		t.Error("expected gzipped output")
	}
}

func TestIsGzipped_Empty(t *testing.T) {
	target := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(target, nil, 0644); err != nil {
		t.Fatal(err)
	}
	gz, err := IsGzipped(target)
	if err != nil {
		t.Fatal(err)
	}
	if gz {
		t.Error("empty file reported as gzipped")
	}
}
