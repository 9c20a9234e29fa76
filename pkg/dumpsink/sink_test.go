package dumpsink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNoOpDiscardsRecords(t *testing.T) {
	s := NoOp()
	s.Record("resp_1", "request", map[string]string{"a": "b"})
	s.Close()
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Record("resp_abc", "request", map[string]string{"model": "m"})
	s.Record("resp_abc", "chunk", map[string]string{"raw": "data: {}"})
	s.Close()

	path := filepath.Join(dir, "resp_abc.jsonl")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open dump file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var decoded struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded.Kind != "request" {
		t.Errorf("kind = %q, want request", decoded.Kind)
	}
}

func TestFileSinkDropsOnFullChannel(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer s.Close()

	for i := 0; i < 1000; i++ {
		s.Record("resp_flood", "chunk", i)
	}
	time.Sleep(10 * time.Millisecond)
}
