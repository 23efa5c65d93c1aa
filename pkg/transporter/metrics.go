package transporter

import "time"

// Command result labels passed to Metrics.ObserveCommand.
const (
	ResultOK          = "ok"
	ResultServerError = "server_error"
	ResultTimeout     = "timeout"
	ResultError       = "error"
)

// Command path labels passed to Metrics.ObserveCommand.
const (
	PathCommand = "command"
	PathChannel = "channel"
)

// Metrics receives transporter measurements. Implementations must be safe
// for concurrent use.
type Metrics interface {
	ObserveCommand(path, result string, d time.Duration)
	AddBytesWritten(n int)
	AddBytesRead(n int)
	IncPushMessage(kind string)
	IncPushDecodeError()
	IncConnect(result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveCommand(string, string, time.Duration) {}
func (nopMetrics) AddBytesWritten(int)                          {}
func (nopMetrics) AddBytesRead(int)                             {}
func (nopMetrics) IncPushMessage(string)                        {}
func (nopMetrics) IncPushDecodeError()                          {}
func (nopMetrics) IncConnect(string)                            {}
