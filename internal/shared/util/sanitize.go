package util

import (
	"errors"
	"mime"
	"strings"
	"unicode"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// ReportFileName builds "<Business_Name>_Diagnostic.<ext>".
func ReportFileName(businessName, ext string) string {
	return ExportFileName(businessName, "Diagnostic", ext)
}

// ExportFileName builds "<Business_Name>_<kind>.<ext>". Whitespace runs
// become a single underscore and characters outside letters, digits, '-' and
// '_' are dropped. An empty name falls back to "MarketSauce".
func ExportFileName(businessName, kind, ext string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(businessName) {
		switch {
		case unicode.IsSpace(r):
			pendingSep = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "MarketSauce"
	}
	return base + "_" + kind + "." + strings.TrimPrefix(ext, ".")
}

// ContentDisposition builds an attachment header value. Non-ASCII names
// are encoded with RFC 2231 so clients can still read them back.
func ContentDisposition(fileName string) string {
	if fileName == "" {
		return "attachment"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
}
