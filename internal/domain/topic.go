package domain

import "github.com/google/uuid"

// FallbackClaims replaces an empty common-claims list in final reports.
const FallbackClaims = "Diverse perspectives found"

// Highlight is a single timestamped insight the model extracted from one source.
type Highlight struct {
	VideoID      string `json:"videoId"`
	Timestamp    string `json:"timestamp"`
	Explanation  string `json:"explanation"`
	ShortSummary string `json:"shortSummary"`
}

// AnalysisResult is the structured model output shared by both analysis stages.
type AnalysisResult struct {
	Summary    string      `json:"summary"`
	Sentiment  float64     `json:"sentiment"`
	Consensus  float64     `json:"consensus"`
	Claims     []string    `json:"claims"`
	Highlights []Highlight `json:"highlights"`
}

// EvidenceSegment ties a highlight back to the source item it came from.
type EvidenceSegment struct {
	VideoID         string `json:"videoId"`
	VideoTitle      string `json:"videoTitle"`
	VideoURL        string `json:"videoUrl"`
	Timestamp       string `json:"timestamp"`
	BestExplanation string `json:"bestExplanation"`
	SegmentSummary  string `json:"segmentSummary"`
}

// FinalReport is the cross-source synthesis published once per topic.
type FinalReport struct {
	TopicID             uuid.UUID         `json:"topicId"`
	FinalSummary        string            `json:"finalSummary"`
	SentimentScore      float64           `json:"sentimentScore"`
	ConsensusPercentage float64           `json:"consensusPercentage"`
	CommonClaims        string            `json:"commonClaims"`
	Segments            []EvidenceSegment `json:"segments"`
}
