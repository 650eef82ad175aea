package session

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/xid"
	"github.com/sarchlab/bindtrace/activity"
	"github.com/sarchlab/bindtrace/config"
	"github.com/sarchlab/bindtrace/datarecording"
	"github.com/sarchlab/bindtrace/monitoring"
	"github.com/sarchlab/bindtrace/tracing"
	"github.com/tebeka/atexit"
)

// Builder can be used to build a session.
type Builder struct {
	config    config.Config
	logger    *slog.Logger
	generator activity.Generator
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: config.Default(),
	}
}

// WithConfig sets the configuration.
func (b Builder) WithConfig(c config.Config) Builder {
	b.config = c
	return b
}

// WithLogger sets the logger. By default, the session logs text to stderr
// at the configured level.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithGenerator sets how activity IDs are minted. By default, IDs are
// random.
func (b Builder) WithGenerator(g activity.Generator) Builder {
	b.generator = g
	return b
}

// Build builds the session.
func (b Builder) Build() (*Session, error) {
	s := &Session{
		id:     xid.New().String(),
		config: b.config,
		logger: b.logger,
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: b.config.LogLevel}))
	}

	s.sink = tracing.NewHookSink("bindtrace")
	s.tracker = activity.NewTracker(b.generator)
	s.tracer = tracing.MakeBuilder().
		WithSink(s.sink).
		WithTracker(s.tracker).
		WithLogger(s.logger).
		WithProviderName(b.config.Provider).
		Build()

	if b.config.Enabled {
		err := b.attachListeners(s)
		if err != nil {
			s.Terminate()
			return nil, err
		}
	}

	atexit.Register(func() {
		s.Terminate()
	})

	return s, nil
}

func (b Builder) attachListeners(s *Session) error {
	s.recorder = tracing.NewBindRecorder(nil)
	tracing.CollectTrace(s.sink, s.recorder)

	s.timeTracer = tracing.NewBindTimeTracer(nil, nil)
	tracing.CollectTrace(s.sink, s.timeTracer)

	if b.config.RecordDB {
		err := b.attachDB(s)
		if err != nil {
			return err
		}
	}

	if b.config.JSONPath != "" {
		t, err := tracing.NewJSONFileTracer(b.config.JSONPath)
		if err != nil {
			return err
		}

		s.jsonTracer = t
		tracing.CollectTrace(s.sink, t)
	}

	if b.config.LogEvents {
		tracing.CollectTrace(s.sink,
			tracing.NewSlogTracer(s.logger, slog.LevelInfo))
	}

	if b.config.BackTrace {
		tracing.CollectTrace(s.sink, tracing.NewBackTraceTracer(nil))
	}

	if b.config.MonitorPort != 0 {
		return b.startMonitor(s)
	}

	return nil
}

func (b Builder) attachDB(s *Session) error {
	s.dbPath = b.config.DBPath
	if s.dbPath == "" {
		s.dbPath = "bindtrace_" + s.id
	}

	recorder, err := datarecording.New(s.dbPath)
	if err != nil {
		return fmt.Errorf("recording binds: %w", err)
	}

	s.dataRecorder = recorder

	s.execRecorder = datarecording.NewExecRecorder(recorder)
	s.execRecorder.Start()
	s.execRecorder.Add("Session", s.id)

	s.dbTracer = tracing.NewDBTracer(nil, recorder)
	tracing.CollectTrace(s.sink, s.dbTracer)

	return nil
}

func (b Builder) startMonitor(s *Session) error {
	port := b.config.MonitorPort
	if port < 0 {
		port = 0
	}

	s.monitor = monitoring.NewMonitor().
		WithPortNumber(port).
		WithBrowser(b.config.OpenBrowser)
	s.monitor.RegisterBindSource(s.recorder)
	s.monitor.RegisterTracer(s.tracer)
	s.monitor.RegisterTimeTracer(s.timeTracer)

	url, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	s.monitorURL = url

	return nil
}
