package domain

import "time"

// MetricsRecorder receives operational events from the import pipeline and
// the expiry sweeper. The prometheus implementation lives in
// internal/metrics; tests substitute fakes.
type MetricsRecorder interface {
	RecordImport(result string, d time.Duration)
	RecordTemplateExpansion(templateID string)
	RecordSweep(removed int)
}
