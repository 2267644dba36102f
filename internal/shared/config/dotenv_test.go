package config

import "testing"

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line   string
		key    string
		val    string
		wantOK bool
	}{
		{line: "FIRECRAWL_API_KEY=fc-123", key: "FIRECRAWL_API_KEY", val: "fc-123", wantOK: true},
		{line: `export NATS_URL="nats://localhost:4222"`, key: "NATS_URL", val: "nats://localhost:4222", wantOK: true},
		{line: "# comment", wantOK: false},
		{line: "", wantOK: false},
		{line: "NOVALUE", wantOK: false},
		{line: "=orphan", wantOK: false},
	}
	for _, tt := range tests {
		key, val, ok := parseEnvLine(tt.line)
		if ok != tt.wantOK {
			t.Fatalf("parseEnvLine(%q) ok=%v, want %v", tt.line, ok, tt.wantOK)
		}
		if !ok {
			continue
		}
		if key != tt.key || val != tt.val {
			t.Fatalf("parseEnvLine(%q) = %q,%q want %q,%q", tt.line, key, val, tt.key, tt.val)
		}
	}
}
