package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestPrintJSON_Compact(t *testing.T) {
	out := capture(t, func() error { return PrintJSON(sampleResult{Phase: "attached"}, false) })

	if strings.Count(out, "\n") != 1 {
		t.Errorf("compact JSON should be a single line, got:\n%s", out)
	}
	var decoded sampleResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Phase != "attached" {
		t.Errorf("phase: got %q, want %q", decoded.Phase, "attached")
	}
}

func TestPrintJSON_Pretty(t *testing.T) {
	out := capture(t, func() error { return PrintJSON(sampleResult{Phase: "attached"}, true) })
	if strings.Count(out, "\n") <= 1 {
		t.Errorf("pretty JSON should be multi-line, got:\n%s", out)
	}
	if !strings.Contains(out, "  \"phase\"") {
		t.Errorf("pretty JSON should be indented, got:\n%s", out)
	}
}

func TestLineWriter_Notify(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)
	lw.now = func() time.Time { return time.UnixMilli(1700000000123) }

	if err := lw.Notify("attach", map[string]int{"width": 800}); err != nil {
		t.Fatal(err)
	}
	if err := lw.Notify("focus", nil); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if lines[0] != `{"ts":1700000000123,"event":"attach","data":{"width":800}}` {
		t.Errorf("line 0 = %s", lines[0])
	}
	if lines[1] != `{"ts":1700000000123,"event":"focus"}` {
		t.Errorf("line 1 = %s", lines[1])
	}
}

func TestLineWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = lw.Write(map[string]int{"n": i})
		}(i)
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]int
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Errorf("interleaved line %q: %v", line, err)
		}
	}
}
