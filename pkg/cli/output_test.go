package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"label": "yes", "frames": 24}

	if err := Output(data, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if result["label"] != "yes" {
		t.Errorf("label = %v, want %q", result["label"], "yes")
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Errorf("JSON should be indented, got: %s", buf.String())
	}
}

func TestOutput_JSONL(t *testing.T) {
	var buf bytes.Buffer
	for _, label := range []string{"yes", "no"} {
		if err := Write(&buf, FormatJSONL, map[string]string{"label": label}); err != nil {
			t.Fatal(err)
		}
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[1] != `{"label":"no"}` {
		t.Errorf("lines = %q", lines)
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(map[string]any{"label": "yes", "frames": 24}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	var result struct {
		Label  string `yaml:"label"`
		Frames int    `yaml:"frames"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("default format should be YAML, got: %s (%v)", buf.String(), err)
	}
	if result.Label != "yes" || result.Frames != 24 {
		t.Errorf("decoded %+v from %s", result, buf.String())
	}
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("default format should not be JSON, got: %s", buf.String())
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	if err := Output("data", OutputOptions{Format: "table", Writer: &bytes.Buffer{}}); err == nil {
		t.Error("Output should fail for unsupported format")
	}
}

func TestOutput_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(map[string]string{"key": "value"}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]string
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Invalid JSON in file: %v", err)
	}
	if result["key"] != "value" {
		t.Errorf("key = %q", result["key"])
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"jsonl", FormatJSONL, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
