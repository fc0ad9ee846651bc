package sysmon

// Thresholds are the configured breach levels. CPU and memory breach at or
// above their threshold; disk breaches at or below its free-space floor.
type Thresholds struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskFreeGB    float64
}

// Evaluate reports whether any threshold is breached. OR semantics: a single
// breach is sufficient to trigger reclamation and trimming.
func Evaluate(m Metrics, t Thresholds) bool {
	return m.CPUPercent >= t.CPUPercent ||
		m.MemoryPercent >= t.MemoryPercent ||
		m.DiskFreeGB <= t.DiskFreeGB
}
