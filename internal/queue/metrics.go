package queue

import "time"

// Recorder receives processor metrics. The metrics package provides a
// Prometheus implementation.
type Recorder interface {
	BatchClaimed(queue string, size int)
	PollFailed(queue string)
	MessageHandled(queue, msgType string, elapsed time.Duration, err error)
	MessageRetried(queue string)
	MessageArchived(queue, reason string)
}

type nopRecorder struct{}

func (nopRecorder) BatchClaimed(string, int)                            {}
func (nopRecorder) PollFailed(string)                                   {}
func (nopRecorder) MessageHandled(string, string, time.Duration, error) {}
func (nopRecorder) MessageRetried(string)                               {}
func (nopRecorder) MessageArchived(string, string)                      {}
