package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout replaces os.Stdout with a pipe, calls f, then returns the
// captured output and restores os.Stdout. It is NOT safe for parallel use
// because os.Stdout is a package-level variable.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		io.Copy(&buf, r) //nolint:errcheck // test helper
		close(done)
	}()

	f()

	w.Close()
	<-done
	os.Stdout = orig
	r.Close()
	return buf.String()
}

func setFormat(t *testing.T, f string) {
	t.Helper()
	orig := flagFmt
	flagFmt = f
	t.Cleanup(func() { flagFmt = orig })
}

func TestOutput_JSON(t *testing.T) {
	setFormat(t, "json")

	got := captureStdout(t, func() {
		output(map[string]int{"hops": 2}, []string{"HOPS"}, [][]string{{"2"}})
	})

	var m map[string]int
	if err := json.Unmarshal([]byte(got), &m); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, got)
	}
	if m["hops"] != 2 {
		t.Errorf("hops = %d", m["hops"])
	}
	if !strings.Contains(got, "\n  ") {
		t.Errorf("expected indented JSON, got %q", got)
	}
}

func TestOutput_Table(t *testing.T) {
	setFormat(t, "table")

	got := captureStdout(t, func() {
		output(nil, []string{"SIZE", "SAMPLE"}, [][]string{{"12", "P1"}, {"3", "parcel-long"}})
	})

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	want := []string{
		"SIZE  SAMPLE",
		"----  -----------",
		"12    P1",
		"3     parcel-long",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
