package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"marketsauce-agent/internal/research"
	"marketsauce-agent/internal/shared/util"
)

// DefaultSystemPrompt is used when no methodology prompt is configured.
const DefaultSystemPrompt = "You are MarketSauce Agent, an AI market intelligence assistant."

const (
	websiteContentLimit = 5000
	competitorLimit     = 3000
	trendsLimit         = 2000
	notProvided         = "Not provided"
)

// BuildPrompt renders the synthesis prompt for in and its research data.
func BuildPrompt(in Input, data research.Data) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(in.Mode.Instruction())
	b.WriteString("\n\n## Business Information\n")
	field := func(label, value string) {
		fmt.Fprintf(&b, "- **%s:** %s\n", label, orNotProvided(value))
	}
	field("Business Name", in.BusinessName)
	field("Website URL", in.WebsiteURL)
	field("Target Market", in.TargetMarket)
	field("What They Sell", in.WhatTheySell)
	field("Known Competitors", in.Competitors)
	field("Marketing Challenges", in.Challenges)
	field("12-Month Goals", in.Goals)
	field("Additional Context", in.Context)

	b.WriteString("\n## Research Data\n\n### Website Content\n")
	website := ""
	if data.Website != nil {
		website = data.Website.Markdown
	}
	b.WriteString(util.Truncate(website, websiteContentLimit))
	b.WriteString("\n\n### Competitor Intelligence\n")
	b.WriteString(util.Truncate(indentJSON(data.Competitors), competitorLimit))
	b.WriteString("\n\n### Market Trends\n")
	b.WriteString(util.Truncate(indentJSON(data.Trends), trendsLimit))
	b.WriteString("\n\n---\n\n")
	b.WriteString("Generate the complete MarketSauce diagnostic based on this information. ")
	b.WriteString("Follow the methodology precisely. Include all required sections for the selected mode. ")
	b.WriteString("Use visceral emotional language for persona sections. Cite sources with links where applicable.\n")
	return b.String()
}

func orNotProvided(v string) string {
	if strings.TrimSpace(v) == "" {
		return notProvided
	}
	return v
}

func indentJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	if string(raw) == "null" {
		return "[]"
	}
	return string(raw)
}
