package research

import (
	"context"
	"fmt"
	"strings"

	"marketsauce-agent/internal/shared/telemetry"
	"marketsauce-agent/internal/shared/util"
)

// Input is the subset of intake fields research needs.
type Input struct {
	BusinessName string `json:"business_name"`
	WebsiteURL   string `json:"website_url"`
	TargetMarket string `json:"target_market"`
	Competitors  string `json:"competitors,omitempty"`
}

// CompetitorData holds search hits for one named competitor.
type CompetitorData struct {
	Name    string   `json:"name"`
	Results []Result `json:"data"`
}

// Data is everything gathered for one business.
type Data struct {
	Website     *Page            `json:"website,omitempty"`
	Competitors []CompetitorData `json:"competitor_data"`
	Trends      []Result         `json:"market_trends"`
}

// Plan tunes how much research is gathered.
type Plan struct {
	MaxCompetitors    int
	CompetitorResults int
	CompetitorQuery   func(name string) string
	TrendResults      int
	TrendQuery        func(target string) string
}

// DiagnosticPlan is used by the full diagnostic pipeline.
func DiagnosticPlan() Plan {
	return Plan{
		MaxCompetitors:    5,
		CompetitorResults: 3,
		CompetitorQuery:   func(name string) string { return name + " company reviews pricing" },
		TrendResults:      5,
		TrendQuery:        func(target string) string { return target + " industry trends 2025 2026" },
	}
}

// QuickPlan is used by the synchronous research endpoint.
func QuickPlan() Plan {
	return Plan{
		MaxCompetitors:    3,
		CompetitorResults: 5,
		CompetitorQuery:   func(name string) string { return name },
		TrendResults:      5,
		TrendQuery:        func(target string) string { return target + " trends 2025" },
	}
}

// Researcher gathers research data. Client satisfies it.
type Researcher interface {
	Scrape(ctx context.Context, url string) (Page, error)
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// SplitCompetitors splits a comma-separated list, dropping blanks.
func SplitCompetitors(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// ResearchCompetitors searches for each of the first plan.MaxCompetitors names.
// Failed searches yield an entry with no results.
func ResearchCompetitors(ctx context.Context, r Researcher, raw string, plan Plan) ([]CompetitorData, error) {
	names := SplitCompetitors(raw)
	if plan.MaxCompetitors > 0 && len(names) > plan.MaxCompetitors {
		names = names[:plan.MaxCompetitors]
	}
	out := make([]CompetitorData, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		results, err := r.Search(ctx, plan.CompetitorQuery(name), plan.CompetitorResults)
		if err != nil {
			telemetry.Warn("research.competitor.failed", map[string]any{"competitor": name, "error": err})
		}
		out = append(out, CompetitorData{Name: name, Results: results})
	}
	return out, nil
}

// ResearchTrends searches for market trends; a failed search yields no trends.
func ResearchTrends(ctx context.Context, r Researcher, target string, plan Plan) []Result {
	results, err := r.Search(ctx, plan.TrendQuery(target), plan.TrendResults)
	if err != nil {
		telemetry.Warn("research.trends.failed", map[string]any{"target_market": target, "error": err})
		return nil
	}
	return results
}

// Gather runs the scrape and both searches in order.
func Gather(ctx context.Context, r Researcher, in Input, plan Plan) (Data, error) {
	var data Data
	page, err := r.Scrape(ctx, in.WebsiteURL)
	if err != nil {
		telemetry.Warn("research.scrape.failed", map[string]any{"url": in.WebsiteURL, "error": err})
	} else {
		data.Website = &page
	}
	if err := ctx.Err(); err != nil {
		return data, err
	}
	data.Competitors, err = ResearchCompetitors(ctx, r, in.Competitors, plan)
	if err != nil {
		return data, err
	}
	data.Trends = ResearchTrends(ctx, r, in.TargetMarket, plan)
	return data, ctx.Err()
}

// BuildReport renders the research-only markdown report. Every listed
// competitor gets a section; those without gathered results read "No data".
func BuildReport(in Input, data Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Market Research\n\n", in.BusinessName)

	b.WriteString("## Your Website\n")
	website := ""
	if data.Website != nil {
		website = util.Truncate(data.Website.Markdown, 2000)
	}
	if website == "" {
		website = "Could not scrape"
	}
	b.WriteString(website)
	b.WriteString("\n\n")

	b.WriteString("## Competitors\n")
	byName := make(map[string][]Result, len(data.Competitors))
	for _, c := range data.Competitors {
		byName[c.Name] = c.Results
	}
	names := SplitCompetitors(in.Competitors)
	if len(names) == 0 {
		b.WriteString("None specified")
	}
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\n", name)
		results := byName[name]
		if len(results) == 0 {
			b.WriteString("No data")
			continue
		}
		for j, r := range results {
			if j > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "- [%s](%s)", r.Title, r.URL)
		}
	}
	b.WriteString("\n\n")

	b.WriteString("## Market Trends\n")
	if len(data.Trends) == 0 {
		b.WriteString("No trends found")
	}
	for i, t := range data.Trends {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- **%s**: %s", t.Title, t.Description)
	}
	b.WriteString("\n\n---\n*Pure Firecrawl research - no AI*")
	return b.String()
}

// ExecutiveSummary is the one-line summary of a research-only report.
func ExecutiveSummary(businessName string) string {
	return "Research for " + businessName
}
