// Package prompt renders the instruction texts sent to the text-generation service.
package prompt

import (
	"fmt"
	"strconv"
)

const schema = `{
  "summary": "string",
  "sentiment": 0.0,
  "consensus": 0.0,
  "claims": ["string"],
  "highlights": [
    {
      "videoId": "string",
      "timestamp": "string",
      "explanation": "string",
      "shortSummary": "string"
    }
  ]
}`

const systemTemplate = `You are a professional News and Content Analyst.
Analyze the provided video data and return a structured JSON report.
RULES:
1. Return ONLY a single raw JSON object.
2. Do not include markdown formatting, code fences or backticks.
3. Do not add any prose before or after the JSON object.
4. Use this exact JSON structure:
%s`

const stage1Template = `SYSTEM INSTRUCTIONS:
You are a Video Content Analyst. Your task is to extract the top 2 key insights from the provided transcript.

STRICT RULES FOR DATA EXTRACTION:
1. TIMESTAMP: This MUST be the time offset in the video (e.g., '02:15').
2. NO DATES: Never use calendar dates (like '2022-06-20') in the timestamp field.
3. FORMAT: If you cannot find a specific second, default to '00:00'.
4. JSON ONLY: Return one raw JSON object matching the schema below, with no surrounding prose and no code fences.

OUTPUT SCHEMA:
%s

TRANSCRIPT TO ANALYZE:
%s
`

const stage2Template = `SYSTEM INSTRUCTIONS:
You are a Lead Intelligence Editor. You have been provided with summaries from %s independent video sources.

YOUR TASK:
1. Analyze the points of agreement and contradiction across all %s sources.
2. Write a professional Executive Summary of the findings.
3. CONSENSUS SCORE: Provide a percentage (0-100) representing how much the sources agree with each other.
4. SENTIMENT: Provide a score (0.0 to 1.0) where 1.0 is extremely positive.
5. COMMON CLAIMS: List only the factual statements corroborated by more than one source.

INPUT SUMMARIES:
%s

STRICT OUTPUT JSON FORMAT (No markdown, no backticks):
{
  "summary": "The executive summary of all research findings...",
  "sentiment": 0.5,
  "consensus": 85.0,
  "claims": ["Fact A found in sources", "Fact B confirmed by multiple agents"],
  "highlights": []
}
`

// System returns the fixed system message paired with both stages.
func System() string {
	return fmt.Sprintf(systemTemplate, schema)
}

// Stage1 builds the per-item analysis instruction around a bounded transcript.
func Stage1(transcript string) string {
	return fmt.Sprintf(stage1Template, schema, transcript)
}

// Stage2 builds the cross-source synthesis instruction over the combined
// partial context. sources is the number of partials being compared.
func Stage2(combined string, sources int) string {
	n := strconv.Itoa(sources)
	return fmt.Sprintf(stage2Template, n, n, combined)
}
