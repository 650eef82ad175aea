package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/sarchlab/bindtrace/tracing"
)

// Errors returned by Load.
var (
	ErrNotFound = errors.New("component not found")
	ErrCycle    = errors.New("dependency cycle")
)

// A Loader resolves components from a Catalog to files in its search
// paths.
type Loader struct {
	catalog     *Catalog
	tracer      *tracing.Tracer
	searchPaths []string
	logger      *slog.Logger

	defaultContext *Context
	nextContext    atomic.Uint64
}

// DefaultContext returns the context that exists for the lifetime of the
// loader.
func (l *Loader) DefaultContext() *Context {
	return l.defaultContext
}

// NewContext creates an isolated loading context.
func (l *Loader) NewContext(name string) *Context {
	return &Context{
		name: name,
		id:   l.nextContext.Add(1),
	}
}

// SearchPaths returns the directories probed for component files.
func (l *Loader) SearchPaths() []string {
	return slices.Clone(l.searchPaths)
}

// Load binds the named component and its dependencies within ctx. The
// entry point classifies the whole chain of binds it triggers. It returns
// the path of the component file.
func (l *Loader) Load(
	thread *tracing.Thread,
	ctx *Context,
	name string,
	entry tracing.EntryPoint,
) (string, error) {
	if ctx == nil {
		ctx = l.defaultContext
	}

	ep := thread.EnterEntryPoint(entry)
	defer ep.Exit()

	return l.bind(thread, ctx, name, nil)
}

func (l *Loader) bind(
	thread *tracing.Thread,
	ctx *Context,
	name string,
	chain []string,
) (string, error) {
	comp, found := l.catalog.Lookup(name)

	displayName := name
	if found && l.tracer.IsEnabled() {
		displayName = comp.DisplayName()
	}

	scope := l.tracer.StartBind(thread, displayName, ctx)
	defer scope.End()

	if !found {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if slices.Contains(chain, comp.Name) {
		return "", fmt.Errorf("%w: %s -> %s", ErrCycle, strings.Join(chain, " -> "), comp.Name)
	}

	chain = append(chain, comp.Name)

	for _, dep := range comp.Dependencies {
		_, err := l.bind(thread, ctx, dep, chain)
		if err != nil {
			return "", fmt.Errorf("loading %s: %w", comp.Name, err)
		}
	}

	path, err := l.probe(comp)
	if err != nil {
		return "", err
	}

	l.logger.Debug("component bound",
		"component", comp.DisplayName(),
		"context", ctx.DisplayName(),
		"path", path)

	scope.SetResult(tracing.Succeeded(path))

	return path, nil
}

func (l *Loader) probe(comp Component) (string, error) {
	file := comp.FileName()

	for _, dir := range l.searchPaths {
		candidate := filepath.Join(dir, file)

		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			return candidate, nil
		}

		return abs, nil
	}

	return "", fmt.Errorf("%w: no file %s for %s in search paths",
		ErrNotFound, file, comp.DisplayName())
}

