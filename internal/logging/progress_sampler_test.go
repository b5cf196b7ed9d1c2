package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "track 1") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_PercentBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "") {
		t.Error("0% should log")
	}
	if s.ShouldLog(3, "") {
		t.Error("3% should not log (same bucket)")
	}
	if !s.ShouldLog(5, "") {
		t.Error("5% should log (new bucket)")
	}
	if s.ShouldLog(7.5, "") {
		t.Error("7.5% should not log (same bucket)")
	}
	if !s.ShouldLog(100, "") {
		t.Error("100% should log")
	}
	if s.ShouldLog(105, "") {
		t.Error("105% should share the 100% bucket")
	}
}

func TestProgressSampler_PhaseChangeKeepsBucket(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "track 1")

	if !s.ShouldLog(51, "track 2") {
		t.Error("phase change should log")
	}
	if s.lastPhase != "track 2" {
		t.Errorf("lastPhase = %q, want track 2", s.lastPhase)
	}
	if s.ShouldLog(52, "track 2") {
		t.Error("same phase and bucket should not log")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "  track 3 ")
	if s.lastPhase != "track 3" {
		t.Errorf("lastPhase = %q, want trimmed value", s.lastPhase)
	}

	s.Reset()

	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Errorf("unexpected state after reset: %q %d", s.lastPhase, s.lastBucket)
	}
	if !s.ShouldLog(50, "") {
		t.Error("should log after reset")
	}
}
