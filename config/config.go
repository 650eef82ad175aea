// Package config reads the bindtrace settings from dotenv files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/bindtrace/tracing"
)

// Environment variables.
const (
	EnvEnabled     = "BINDTRACE_ENABLED"
	EnvDB          = "BINDTRACE_DB"
	EnvRecordDB    = "BINDTRACE_RECORD_DB"
	EnvJSON        = "BINDTRACE_JSON"
	EnvMonitorPort = "BINDTRACE_MONITOR_PORT"
	EnvOpenBrowser = "BINDTRACE_OPEN_BROWSER"
	EnvLogEvents   = "BINDTRACE_LOG_EVENTS"
	EnvLogLevel    = "BINDTRACE_LOG_LEVEL"
	EnvBackTrace   = "BINDTRACE_BACKTRACE"
	EnvProvider    = "BINDTRACE_PROVIDER"
)

// Config holds the settings of a tracing session.
type Config struct {
	// Enabled turns bind tracing on.
	Enabled bool

	// RecordDB records binds into a SQLite file named DBPath + ".sqlite3".
	// An empty DBPath selects a unique name.
	RecordDB bool
	DBPath   string

	// JSONPath, if set, streams completed binds into a JSON file.
	JSONPath string

	// MonitorPort is the port of the live monitor. 0 disables the monitor,
	// a negative value picks a free port.
	MonitorPort int
	OpenBrowser bool

	// LogEvents mirrors every bind event into the log.
	LogEvents bool
	LogLevel  slog.Level

	// BackTrace prints the pending chain of every failed bind.
	BackTrace bool

	// Provider is the provider label handed to the activity tracker.
	Provider string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Enabled:  true,
		LogLevel: slog.LevelInfo,
		Provider: tracing.DefaultProviderName,
	}
}

// Load reads the dotenv files that exist, then the environment. Variables
// already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", f, err)
		}
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a variable lookup function such as
// os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.boolean(EnvEnabled, &c.Enabled)
	p.boolean(EnvRecordDB, &c.RecordDB)
	p.str(EnvDB, &c.DBPath)
	p.str(EnvJSON, &c.JSONPath)
	p.integer(EnvMonitorPort, &c.MonitorPort)
	p.boolean(EnvOpenBrowser, &c.OpenBrowser)
	p.boolean(EnvLogEvents, &c.LogEvents)
	p.level(EnvLogLevel, &c.LogLevel)
	p.boolean(EnvBackTrace, &c.BackTrace)
	p.str(EnvProvider, &c.Provider)

	if c.DBPath != "" {
		c.RecordDB = true
	}

	if c.Provider == "" {
		c.Provider = tracing.DefaultProviderName
	}

	return c, errors.Join(p.errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) str(name string, dst *string) {
	if v, ok := p.lookup(name); ok {
		*dst = v
	}
}

func (p *parser) boolean(name string, dst *bool) {
	v, ok := p.lookup(name)
	if !ok || v == "" {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", name, v))
		return
	}

	*dst = b
}

func (p *parser) integer(name string, dst *int) {
	v, ok := p.lookup(name)
	if !ok || v == "" {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", name, v))
		return
	}

	*dst = n
}

func (p *parser) level(name string, dst *slog.Level) {
	v, ok := p.lookup(name)
	if !ok || v == "" {
		return
	}

	var l slog.Level

	err := l.UnmarshalText([]byte(v))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a log level", name, v))
		return
	}

	*dst = l
}
