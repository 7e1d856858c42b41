package completion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ConsensusAnalyzer/internal/domain"
)

var (
	// ErrEmptyResponse marks a blank model reply.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrNoJSONObject marks a reply without a {...} pair.
	ErrNoJSONObject = errors.New("no json object in model response")
	// ErrSchemaMismatch marks a reply that does not fit the analysis schema.
	ErrSchemaMismatch = errors.New("model response does not match schema")
)

// ExtractJSON returns the text between the first '{' and the last '}' so that
// code fences and surrounding commentary are tolerated.
func ExtractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSONObject
	}
	return raw[start : end+1], nil
}

// wireResult mirrors domain.AnalysisResult with pointers so absent required
// fields can be told apart from zero values.
type wireResult struct {
	Summary    *string            `json:"summary"`
	Sentiment  *float64           `json:"sentiment"`
	Consensus  *float64           `json:"consensus"`
	Claims     []string           `json:"claims"`
	Highlights []domain.Highlight `json:"highlights"`
}

// Decode strictly parses a JSON object into an AnalysisResult.
func Decode(object string) (domain.AnalysisResult, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(object)))
	dec.DisallowUnknownFields()

	var wire wireResult
	if err := dec.Decode(&wire); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.AnalysisResult{}, fmt.Errorf("%w: trailing data after object", ErrSchemaMismatch)
	}

	if wire.Summary == nil || strings.TrimSpace(*wire.Summary) == "" {
		return domain.AnalysisResult{}, fmt.Errorf("%w: summary is required", ErrSchemaMismatch)
	}
	if wire.Sentiment == nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: sentiment is required", ErrSchemaMismatch)
	}
	if *wire.Sentiment < 0 || *wire.Sentiment > 1 {
		return domain.AnalysisResult{}, fmt.Errorf("%w: sentiment %.3f outside [0,1]", ErrSchemaMismatch, *wire.Sentiment)
	}

	result := domain.AnalysisResult{
		Summary:    *wire.Summary,
		Sentiment:  *wire.Sentiment,
		Claims:     wire.Claims,
		Highlights: wire.Highlights,
	}
	if wire.Consensus != nil {
		if *wire.Consensus < 0 || *wire.Consensus > 100 {
			return domain.AnalysisResult{}, fmt.Errorf("%w: consensus %.1f outside [0,100]", ErrSchemaMismatch, *wire.Consensus)
		}
		result.Consensus = *wire.Consensus
	}
	for i, h := range result.Highlights {
		if strings.TrimSpace(h.Timestamp) == "" {
			result.Highlights[i].Timestamp = "00:00"
		}
	}
	return result, nil
}
