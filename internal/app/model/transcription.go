package model

// Segment is a time-bounded slice of a transcription. AvgLogprob is only
// populated by backends that expose per-segment decoding probabilities.
type Segment struct {
	ID         int     `json:"id"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	AvgLogprob float64 `json:"avg_logprob,omitempty"`
	HasLogprob bool    `json:"-"`
}

// TranscriptionResult is the unified result produced by every transcription
// backend, chunked or not.
type TranscriptionResult struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language,omitempty"`
	Duration float64                `json:"duration,omitempty"`
	Segments []Segment              `json:"segments,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Quality  QualityMetrics         `json:"quality"`
}

// SetMeta records a metadata entry, allocating the map on first use.
func (r *TranscriptionResult) SetMeta(key string, value interface{}) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]interface{})
	}
	r.Metadata[key] = value
}

// WordCount returns the number of whitespace-separated words in the text.
func (r *TranscriptionResult) WordCount() int {
	return len(splitWords(r.Text))
}

// EstimatedDuration derives the audio duration from the last segment end when
// the backend did not report one.
func (r *TranscriptionResult) EstimatedDuration() float64 {
	if r.Duration > 0 {
		return r.Duration
	}
	var max float64
	for _, s := range r.Segments {
		if s.End > max {
			max = s.End
		}
	}
	return max
}
