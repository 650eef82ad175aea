// Package session wires a bind tracing session together: the event hub,
// the activity tracker, the tracer and the listeners selected by the
// configuration.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sarchlab/bindtrace/activity"
	"github.com/sarchlab/bindtrace/config"
	"github.com/sarchlab/bindtrace/datarecording"
	"github.com/sarchlab/bindtrace/monitoring"
	"github.com/sarchlab/bindtrace/tracing"
)

// A Session owns the tracer of a process and everything that listens to it.
type Session struct {
	id     string
	config config.Config
	logger *slog.Logger

	sink       *tracing.HookSink
	tracker    *activity.Tracker
	tracer     *tracing.Tracer
	recorder   *tracing.BindRecorder
	timeTracer *tracing.BindTimeTracer

	dataRecorder datarecording.DataRecorder
	dbPath       string
	execRecorder *datarecording.ExecRecorder
	dbTracer     *tracing.DBTracer
	jsonTracer   *tracing.JSONTracer
	monitor      *monitoring.Monitor
	monitorURL   string

	terminateOnce sync.Once
	terminateErr  error
}

// ID returns the unique ID of the session.
func (s *Session) ID() string {
	return s.id
}

// Config returns the configuration the session was built with.
func (s *Session) Config() config.Config {
	return s.config
}

// Tracer returns the tracer of the session.
func (s *Session) Tracer() *tracing.Tracer {
	return s.tracer
}

// Tracker returns the activity tracker of the session.
func (s *Session) Tracker() *activity.Tracker {
	return s.tracker
}

// Sink returns the hub that delivers events to listeners. More tracers can
// be attached with tracing.CollectTrace.
func (s *Session) Sink() *tracing.HookSink {
	return s.sink
}

// Recorder returns the in-memory recorder, or nil if tracing is disabled.
func (s *Session) Recorder() *tracing.BindRecorder {
	return s.recorder
}

// TimeTracer returns the latency tracer, or nil if tracing is disabled.
func (s *Session) TimeTracer() *tracing.BindTimeTracer {
	return s.timeTracer
}

// DataRecorder returns the SQLite recorder, or nil if binds are not
// recorded into a database.
func (s *Session) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// DBFile returns the SQLite file binds are recorded into, or "".
func (s *Session) DBFile() string {
	if s.dataRecorder == nil {
		return ""
	}

	return s.dbPath + ".sqlite3"
}

// Monitor returns the live monitor, or nil.
func (s *Session) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the live monitor, or "".
func (s *Session) MonitorURL() string {
	return s.monitorURL
}

// NewThread creates a thread whose binds are traced by the session.
func (s *Session) NewThread() *tracing.Thread {
	return s.tracer.NewThread()
}

// Terminate writes the binds still in flight, closes the recording files
// and stops the monitor. Only the first call has an effect.
func (s *Session) Terminate() error {
	s.terminateOnce.Do(func() {
		s.terminateErr = s.terminate()
	})

	return s.terminateErr
}

func (s *Session) terminate() error {
	var errs []error

	if s.monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		errs = append(errs, s.monitor.Shutdown(ctx))
		cancel()
	}

	if s.jsonTracer != nil {
		errs = append(errs, s.jsonTracer.Close())
	}

	if s.dbTracer != nil {
		s.dbTracer.Terminate()
	}

	if s.execRecorder != nil {
		s.execRecorder.End()
	}

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	stats := s.tracer.Stats()
	s.logger.Debug("bind tracing session terminated",
		"session", s.id,
		"started", stats.Started,
		"stopped", stats.Stopped,
		"faults", stats.Faults)

	return errors.Join(errs...)
}
