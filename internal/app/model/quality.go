package model

import (
	"fmt"
	"strings"
)

// AccuracyCategory buckets the overall confidence score.
type AccuracyCategory string

const (
	AccuracyExcellent AccuracyCategory = "excellent"
	AccuracyGood      AccuracyCategory = "good"
	AccuracyFair      AccuracyCategory = "fair"
	AccuracyPoor      AccuracyCategory = "poor"
)

// QualityMetrics describes transcription quality. ConfidenceScore is a
// deterministic function of the transcription result it was computed from.
type QualityMetrics struct {
	ConfidenceScore       float64          `json:"confidence_score"`
	AvgSegmentConfidence  float64          `json:"avg_segment_confidence"`
	LowConfidenceSegments int              `json:"low_confidence_segments"`
	TextCompleteness      float64          `json:"text_completeness"`
	AccuracyCategory      AccuracyCategory `json:"accuracy_category"`
}

const (
	lowConfidenceThreshold = 0.7
	avgCharsPerWord        = 5.0
)

// ComputeQuality calculates quality metrics for a transcription result.
// Segment confidence maps avg_logprob into [0,1] via clamp(logprob+1);
// completeness is a word-length heuristic. The overall score weights segment
// confidence 0.7 and completeness 0.3.
func ComputeQuality(r *TranscriptionResult) QualityMetrics {
	var m QualityMetrics

	var confidences []float64
	for _, seg := range r.Segments {
		if !seg.HasLogprob {
			continue
		}
		c := seg.AvgLogprob + 1.0
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		confidences = append(confidences, c)
		if c < lowConfidenceThreshold {
			m.LowConfidenceSegments++
		}
	}
	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		m.AvgSegmentConfidence = sum / float64(len(confidences))
	}

	words := splitWords(r.Text)
	if len(words) > 0 {
		avgWordLen := float64(len(strings.TrimSpace(r.Text))) / float64(len(words))
		m.TextCompleteness = avgWordLen / avgCharsPerWord
		if m.TextCompleteness > 1 {
			m.TextCompleteness = 1
		}
	}

	m.ConfidenceScore = m.AvgSegmentConfidence*0.7 + m.TextCompleteness*0.3
	m.AccuracyCategory = categorize(m.ConfidenceScore)
	return m
}

func categorize(score float64) AccuracyCategory {
	switch {
	case score >= 0.9:
		return AccuracyExcellent
	case score >= 0.8:
		return AccuracyGood
	case score >= 0.7:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}

// ValidationOptions bounds the quality checks applied after transcription.
type ValidationOptions struct {
	MinLength     int
	MinConfidence float64
	Language      string
}

// Validate checks a transcription result against the configured thresholds.
// Issues are warnings attached to result metadata, never fatal.
func Validate(r *TranscriptionResult, opts ValidationOptions) []string {
	var issues []string

	text := strings.TrimSpace(r.Text)
	if opts.MinLength > 0 && len(text) < opts.MinLength {
		issues = append(issues, fmt.Sprintf("transcription too short: %d chars (minimum: %d)", len(text), opts.MinLength))
	}
	if opts.MinConfidence > 0 && r.Quality.ConfidenceScore < opts.MinConfidence {
		issues = append(issues, fmt.Sprintf("low confidence score: %.2f (minimum: %.2f)", r.Quality.ConfidenceScore, opts.MinConfidence))
	}
	if text == "" {
		issues = append(issues, "transcription is empty")
	} else if r.WordCount() < 10 {
		issues = append(issues, "transcription contains very few words")
	}
	if opts.Language != "" && opts.Language != "auto" {
		if r.Language != "" && r.Language != "unknown" && r.Language != opts.Language {
			issues = append(issues, fmt.Sprintf("language mismatch: expected %s, detected %s", opts.Language, r.Language))
		}
	}
	return issues
}

func splitWords(s string) []string {
	return strings.Fields(s)
}
