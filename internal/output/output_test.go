package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/mj1618/overlaywin/internal/model"
	"gopkg.in/yaml.v3"
)

type sampleResult struct {
	Session string     `yaml:"session,omitempty" json:"session,omitempty"`
	Phase   string     `yaml:"phase"             json:"phase"`
	Bounds  model.Rect `yaml:"bounds"            json:"bounds"`
}

func capture(t *testing.T, fn func() error) string {
	t.Helper()
	var buf bytes.Buffer
	old := Stdout
	Stdout = &buf
	defer func() { Stdout = old }()
	if err := fn(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestPrintYAML(t *testing.T) {
	result := sampleResult{
		Session: "abc",
		Phase:   "attached",
		Bounds:  model.Rect{X: 1, Y: 2, Width: 800, Height: 600},
	}
	out := capture(t, func() error { return PrintYAML(result) })

	// YAML output should be multi-line
	if bytes.Count([]byte(out), []byte("\n")) <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}

	var decoded sampleResult
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded != result {
		t.Errorf("got %+v, want %+v", decoded, result)
	}
}

func TestPrintYAML_OmitEmpty(t *testing.T) {
	out := capture(t, func() error { return PrintYAML(sampleResult{Phase: "idle"}) })
	var m map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["session"]; ok {
		t.Error("empty session should be omitted")
	}
	if _, ok := m["phase"]; !ok {
		t.Error("phase should always be present")
	}
}

func TestPrint_UsesFormat(t *testing.T) {
	defer func() { OutputFormat = FormatYAML }()

	OutputFormat = FormatJSON
	out := capture(t, func() error { return Print(sampleResult{Phase: "idle"}) })
	if out[0] != '{' {
		t.Errorf("expected JSON, got %q", out)
	}

	OutputFormat = FormatYAML
	out = capture(t, func() error { return Print(sampleResult{Phase: "idle"}) })
	if out[0] == '{' {
		t.Errorf("expected YAML, got %q", out)
	}

	OutputFormat = "xml"
	if err := Print(sampleResult{}); err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "json"} {
		if f, err := ParseFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseFormat("agent"); err == nil {
		t.Error("ParseFormat(\"agent\") should fail")
	}
}

func TestIsOutputPiped_UnderTest(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	piped := IsOutputPiped()
	w.Close()
	r.Close()
	os.Stdout = old

	if !piped {
		t.Error("a pipe should be reported as piped")
	}
}
