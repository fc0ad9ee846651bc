package constants

import "testing"

func TestDefaults(t *testing.T) {
	if DefaultConfigPath == "" {
		t.Error("DefaultConfigPath should not be empty")
	}

	if MetricsNamespace != "hostkeeper" {
		t.Errorf("MetricsNamespace = %s, want 'hostkeeper'", MetricsNamespace)
	}
}
