package util

import (
	"mime"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	got, err := SanitizeFileName(" a/b\\c.md ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a_b_c.md" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestReportFileName(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{name: "Acme Co", ext: "docx", want: "Acme_Co_Diagnostic.docx"},
		{name: "  Sauce   & Sons ", ext: ".md", want: "Sauce_Sons_Diagnostic.md"},
		{name: "", ext: "docx", want: "MarketSauce_Diagnostic.docx"},
		{name: "../../x", ext: "md", want: "x_Diagnostic.md"},
	}
	for _, tt := range tests {
		if got := ReportFileName(tt.name, tt.ext); got != tt.want {
			t.Fatalf("ReportFileName(%q,%q) = %q, want %q", tt.name, tt.ext, got, tt.want)
		}
	}
}

func TestExportFileNameSystemPrompt(t *testing.T) {
	if got := ExportFileName("Acme Co", "System_Prompt", "md"); got != "Acme_Co_System_Prompt.md" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestContentDispositionRoundTrips(t *testing.T) {
	for _, name := range []string{"Acme_Diagnostic.docx", "Café Co Diagnostic.md", `quote"name.md`} {
		_, params, err := mime.ParseMediaType(ContentDisposition(name))
		if err != nil {
			t.Fatalf("%q: parse: %v", name, err)
		}
		if params["filename"] != name {
			t.Fatalf("expected %q, got %q", name, params["filename"])
		}
	}
	if got := ContentDisposition(""); got != "attachment" {
		t.Fatalf("unexpected empty disposition %q", got)
	}
}
