package distance

import "fmt"

// ErrMetricUnavailable is a configuration error: the metric cannot run at all
// because a credential or backend is missing. It is returned before any
// network call is attempted, so retrying without reconfiguring is pointless.
type ErrMetricUnavailable struct {
	Metric string
	Reason string
}

func (e *ErrMetricUnavailable) Error() string {
	return fmt.Sprintf("%s metric unavailable: %s", e.Metric, e.Reason)
}

// ErrMatrixRequestFailed is a transport error: one chunk request failed and
// the whole matrix computation was aborted. No partial matrix accompanies it.
type ErrMatrixRequestFailed struct {
	Metric   string
	SrcChunk int
	DstChunk int
	Reason   string
}

func (e *ErrMatrixRequestFailed) Error() string {
	return fmt.Sprintf("%s matrix request failed (chunk %d/%d): %s",
		e.Metric, e.SrcChunk, e.DstChunk, e.Reason)
}
