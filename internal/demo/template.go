package demo

import (
	"strings"

	"marketsauce-agent/internal/report"
)

const (
	nameToken   = "{{business}}"
	marketToken = "{{market}}"
)

const reportTemplate = `# {{business}} Market Diagnostic

## Executive Summary

{{business}} operates in a market hungry for clarity and implementation support. Your target audience of {{market}} is drowning in information but starving for direction.

The competitive landscape shows most players offering either high-theory consulting or low-touch digital products. The gap is clear: hands-on implementation with systematic methodology. Your biggest opportunity lies in positioning as the "implementation partner" rather than another information source.

## Primary Persona Analysis

**Who They Are:** {{market}}

**Core Struggle:** They have consumed countless courses, books, and podcasts but still feel stuck. The problem isn't lack of information. It's lack of clarity on what to do NEXT.

**Primary Complaint:** Overwhelm from too many options without clear direction

**Ultimate Fear:** Wasting months (or years) on strategies that never produce results

**Dream Outcome:** A clear, personalized roadmap that actually works for their specific situation

## Competitive Landscape

Your market contains three main competitor types:

1. **High-Ticket Consultants** - Offer personalized guidance but at premium prices ($5K-$25K+)
2. **Digital Course Creators** - Scalable but generic, one-size-fits-all approaches
3. **Free Content Creators** - Build audiences but monetize through volume, not depth

**The Gap:** No one is offering personalized implementation support at an accessible price point with systematic methodology.

## Top 3 Golden Opportunities

1. **Workshop-Led Community Building**
   Create intimate group experiences where participants implement alongside peers. This provides the accountability and personalization of consulting at a fraction of the cost.

2. **Productized Service Packages**
   Develop clear, outcome-focused service tiers with defined deliverables. "In 30 days, you'll have X, Y, Z" beats vague promises every time.

3. **Buyer Psychology Content Strategy**
   Lead with the pain points and fears identified above. Your content should mirror back their exact thoughts before offering solutions.

## 30-Day Quick Wins

- Create a "diagnostic" lead magnet that helps prospects self-identify their biggest gap
- Develop 3 case studies showcasing transformation (even beta clients count)
- Build a simple nurture sequence addressing the top 5 objections
- Launch a pilot workshop with 10 founding members

## 90-Day Strategic Priorities

- Establish signature methodology with memorable framework name
- Create testimonial generation system
- Build referral program with existing clients
- Develop content calendar around buyer psychology insights

---

*This diagnostic was generated using the MarketSauce PRIME methodology. For AI-powered analysis with live web research, configure your API keys and backend server.*`

const summaryTemplate = `{{business}} operates in a market hungry for clarity and implementation support. Your target audience of {{market}} is drowning in information but starving for direction. The biggest opportunity lies in positioning as the "implementation partner" rather than another information source.`

var followUps = []string{
	"Write three headline options that speak to the primary complaint.",
	"Outline the pilot workshop agenda for the first 10 founding members.",
	"Draft the first email of the nurture sequence addressing the top objection.",
}

// Result builds the demo report for intake. It is a pure function: the
// same intake always yields the same result.
func Result(intake report.IntakeData) report.DiagnosticResult {
	in := intake.Normalized()
	r := strings.NewReplacer(nameToken, in.BusinessName, marketToken, in.TargetMarket)
	return report.DiagnosticResult{
		BusinessName:     in.BusinessName,
		TargetMarket:     in.TargetMarket,
		DiagnosticText:   r.Replace(reportTemplate),
		ExecutiveSummary: r.Replace(summaryTemplate),
		FollowUpPrompts:  append([]string(nil), followUps...),
		Demo:             true,
	}
}
