package sysmon

import "testing"

func TestEvaluate(t *testing.T) {
	thresholds := Thresholds{CPUPercent: 90, MemoryPercent: 90, DiskFreeGB: 5}

	tests := []struct {
		name    string
		metrics Metrics
		want    bool
	}{
		{
			name:    "cpu breach alone suffices",
			metrics: Metrics{CPUPercent: 95, MemoryPercent: 40, DiskFreeGB: 50},
			want:    true,
		},
		{
			name:    "memory breach alone suffices",
			metrics: Metrics{CPUPercent: 10, MemoryPercent: 91, DiskFreeGB: 50},
			want:    true,
		},
		{
			name:    "low disk alone suffices",
			metrics: Metrics{CPUPercent: 10, MemoryPercent: 40, DiskFreeGB: 4.5},
			want:    true,
		},
		{
			name:    "no breach",
			metrics: Metrics{CPUPercent: 10, MemoryPercent: 40, DiskFreeGB: 50},
			want:    false,
		},
		{
			name:    "cpu exactly at threshold breaches",
			metrics: Metrics{CPUPercent: 90, MemoryPercent: 40, DiskFreeGB: 50},
			want:    true,
		},
		{
			name:    "disk exactly at floor breaches",
			metrics: Metrics{CPUPercent: 10, MemoryPercent: 40, DiskFreeGB: 5},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.metrics, thresholds); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSystemDrivePath(t *testing.T) {
	if SystemDrivePath() == "" {
		t.Error("SystemDrivePath() must not be empty")
	}
}
