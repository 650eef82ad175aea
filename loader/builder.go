package loader

import (
	"log/slog"

	"github.com/sarchlab/bindtrace/tracing"
)

// Builder can build Loaders.
type Builder struct {
	catalog     *Catalog
	tracer      *tracing.Tracer
	searchPaths []string
	logger      *slog.Logger
}

// MakeBuilder returns a Builder with default parameters.
func MakeBuilder() Builder {
	return Builder{}
}

// WithCatalog sets the components the loader knows about.
func (b Builder) WithCatalog(catalog *Catalog) Builder {
	b.catalog = catalog
	return b
}

// WithTracer sets the tracer that observes the binds. Without one, binds
// are not traced.
func (b Builder) WithTracer(tracer *tracing.Tracer) Builder {
	b.tracer = tracer
	return b
}

// WithSearchPaths sets the directories probed for component files, in
// order.
func (b Builder) WithSearchPaths(paths ...string) Builder {
	b.searchPaths = paths
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a new Loader.
func (b Builder) Build() *Loader {
	if b.catalog == nil {
		panic("loader requires a catalog")
	}

	l := &Loader{
		catalog:     b.catalog,
		tracer:      b.tracer,
		searchPaths: b.searchPaths,
		logger:      b.logger,
		defaultContext: &Context{
			name:      "Default",
			isDefault: true,
		},
	}

	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l
}
