package logging

import "testing"

func TestProgressSamplerBucketsWithinStage(t *testing.T) {
	sampler := NewProgressSampler(5)

	if !sampler.ShouldLog(0, "fetching") {
		t.Fatal("first report should log")
	}
	if sampler.ShouldLog(2, "fetching") {
		t.Fatal("same bucket should be suppressed")
	}
	if sampler.ShouldLog(4.9, "fetching") {
		t.Fatal("still inside the first bucket")
	}
	if !sampler.ShouldLog(5, "fetching") {
		t.Fatal("bucket crossing should log")
	}
	if !sampler.ShouldLog(100, "fetching") {
		t.Fatal("completion should log")
	}
}

func TestProgressSamplerStageChangeAlwaysLogs(t *testing.T) {
	sampler := NewProgressSampler(10)

	if !sampler.ShouldLog(50, "fetching") {
		t.Fatal("first report should log")
	}
	if !sampler.ShouldLog(50, "finalizing") {
		t.Fatal("stage change should log even at the same percent")
	}
	if sampler.ShouldLog(51, "finalizing") {
		t.Fatal("same bucket after stage change should be suppressed")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	sampler := NewProgressSampler(5)
	sampler.ShouldLog(50, "fetching")
	sampler.Reset()
	if !sampler.ShouldLog(50, "fetching") {
		t.Fatal("reset should clear suppression state")
	}
}

func TestProgressSamplerNilSafe(t *testing.T) {
	var sampler *ProgressSampler
	if !sampler.ShouldLog(10, "fetching") {
		t.Fatal("nil sampler should never suppress")
	}
}

func TestProgressSamplerClampsRange(t *testing.T) {
	sampler := NewProgressSampler(5)
	if !sampler.ShouldLog(-3, "fetching") {
		t.Fatal("negative percent clamps to zero and logs first")
	}
	if !sampler.ShouldLog(240, "fetching") {
		t.Fatal("overflow clamps to 100 and crosses the bucket")
	}
}
