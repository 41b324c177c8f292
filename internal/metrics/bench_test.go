package metrics

import "testing"

// BenchmarkCollector_SessionAdmitted measures the overhead of recording
// an admission (one atomic add).
func BenchmarkCollector_SessionAdmitted(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.SessionAdmitted()
	}
}

// BenchmarkCollector_BytesReceived measures byte-counter overhead.
func BenchmarkCollector_BytesReceived(b *testing.B) {
	c := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.BytesReceived(1024)
	}
}

// BenchmarkCollector_JSON measures the cost of the shutdown summary.
func BenchmarkCollector_JSON(b *testing.B) {
	c := New()
	c.SessionAdmitted()
	c.BytesReceived(1024)
	c.RecordError("test")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.JSON()
	}
}
