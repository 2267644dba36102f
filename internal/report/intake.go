package report

import (
	"net/url"
	"strings"
)

// IntakeData is the business profile collected by the intake form.
// It is passed by value so a submitted intake cannot be mutated.
type IntakeData struct {
	BusinessName string
	WebsiteURL   string
	TargetMarket string
	WhatTheySell string
	Competitors  string
	Challenges   string
	Goals        string
	Context      string
}

// FieldError describes one invalid intake field.
type FieldError struct {
	Field string
	Issue string
}

// ValidationError lists every failing field of an intake.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Issue)
	}
	return "invalid intake: " + strings.Join(parts, "; ")
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validate checks required fields and the website URL. It returns nil or
// a *ValidationError.
func (d IntakeData) Validate() error {
	var errs []FieldError
	required := []struct {
		name  string
		value string
	}{
		{"business_name", d.BusinessName},
		{"website_url", d.WebsiteURL},
		{"target_market", d.TargetMarket},
		{"what_they_sell", d.WhatTheySell},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.name, Issue: "is required"})
		}
	}
	if strings.TrimSpace(d.WebsiteURL) != "" && !IsWebURL(d.WebsiteURL) {
		errs = append(errs, FieldError{Field: "website_url", Issue: "must be an absolute http(s) URL"})
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Normalized returns a copy with surrounding whitespace trimmed.
func (d IntakeData) Normalized() IntakeData {
	return IntakeData{
		BusinessName: strings.TrimSpace(d.BusinessName),
		WebsiteURL:   strings.TrimSpace(d.WebsiteURL),
		TargetMarket: strings.TrimSpace(d.TargetMarket),
		WhatTheySell: strings.TrimSpace(d.WhatTheySell),
		Competitors:  strings.TrimSpace(d.Competitors),
		Challenges:   strings.TrimSpace(d.Challenges),
		Goals:        strings.TrimSpace(d.Goals),
		Context:      strings.TrimSpace(d.Context),
	}
}

// IsWebURL reports whether raw parses as an absolute http or https URL with a host.
func IsWebURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
