package logging

// ProgressSampler rate-limits fetch progress lines to bucket boundaries so a
// long recording does not emit a line per segment.
type ProgressSampler struct {
	bucketSize int
	lastStage  string
	lastBucket int
}

// NewProgressSampler returns a sampler emitting every bucketSize percent.
// Non-positive sizes fall back to 5.
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress line at percent for stage should be
// emitted. Stage changes always log; within a stage only bucket crossings do.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent) / s.bucketSize
	if percent >= 100 {
		bucket = 100 / s.bucketSize
	}
	if stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = bucket
		return true
	}
	if bucket == s.lastBucket {
		return false
	}
	s.lastBucket = bucket
	return true
}

// Reset clears sampler state, typically between jobs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStage = ""
	s.lastBucket = -1
}
