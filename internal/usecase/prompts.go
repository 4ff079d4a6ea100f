package usecase

import (
	"fmt"
	"strings"
)

// BriefingPrompt builds the instruction for the primary generative service.
func BriefingPrompt(focus string) string {
	focusLine := ""
	if focus = strings.TrimSpace(focus); focus != "" {
		focusLine = fmt.Sprintf("Focus on %s. ", focus)
	}

	return fmt.Sprintf(`You are the Kid Reporter + Scout AI desk covering sports cards.
%sUse search to surface the 3 most timely storylines from the last 7-10 days across NBA/NFL/MLB cards, fan culture, and Fanatics/Topps marketplace moves. Include at least one note on Fanatics or partner platforms when credible.
Return ONLY valid JSON:
{
  "headline": string hyped weekly headline,
  "summary": string 2-3 sentences for newsletter intro,
  "insights": [
    {
      "title": string,
      "summary": string,
      "howToAvoid": string practical guidance for collectors,
      "threatLevel": "High" | "Medium" | "Low"
    }
  ],
  "sources": [
    { "uri": string, "title": string }
  ]
}`, focusLine)
}
