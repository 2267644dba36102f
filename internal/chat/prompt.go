package chat

import (
	"fmt"

	"marketsauce-agent/internal/shared/util"
)

const contextLimit = 8000

const basePrompt = `You are MarketSauce Agent in conversation mode. You have deep context on the user's market, persona, and competitive landscape from their diagnostic.

Your role is to:
- Help refine strategy based on specific questions
- Develop campaigns in detail
- Generate content aligned with persona insights
- Research new competitors or trends
- Build implementation plans
- Create sales materials and messaging

Be direct and actionable. Reference the diagnostic context when providing recommendations. Make connections between persona needs and strategic opportunities.

Voice guidelines:
- Clear, simple language
- Short, impactful sentences
- Active voice
- Practical, actionable insights
- Avoid fluff, clichés, and filler words`

// SystemPrompt builds the conversation prompt with the diagnostic appended.
func SystemPrompt(diagnosticContext string) string {
	if diagnosticContext == "" {
		return basePrompt
	}
	return basePrompt + "\n\n## Diagnostic Context\n\n" + util.Truncate(diagnosticContext, contextLimit)
}

// PlaceholderReply answers when no model is configured.
func PlaceholderReply(message string) string {
	return fmt.Sprintf("Based on your diagnostic context, here's my recommendation for: '%s...'\n\n"+
		"This is a placeholder response. Configure your ANTHROPIC_API_KEY to get real AI responses.",
		util.Truncate(message, 50))
}
