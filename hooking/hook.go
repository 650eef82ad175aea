// Package hooking provides the listener registry that bind events are
// delivered through.
//
// Producers ask a Hookable whether anybody listens at a position before
// they do any work, then invoke the hooks with a HookCtx. Reading the hook
// list never takes a lock, so the "is anybody listening" question stays
// cheap when asked at high frequency.
package hooking

import (
	"sync"
	"sync/atomic"
)

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	// Domain is the hookable object that is raising this hook.
	Domain Hookable

	// Pos identifies the event the hook is firing for.
	Pos *HookPos

	// Item carries the payload of the event.
	Item any

	// Detail holds optional auxiliary data; hook sites may leave it nil.
	Detail any
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// RemoveHook unregisters a hook. Removing a hook that is not registered
	// does nothing.
	RemoveHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// NumHooksAt returns the number of hooks that would be invoked at the
	// given position.
	NumHooksAt(pos *HookPos) int

	// Hooks returns all the hooks registered.
	Hooks() []Hook

	// InvokeHook triggers the registered Hooks.
	InvokeHook(ctx HookCtx)
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// PositionedHook is a Hook that only wants to be invoked at some positions.
// Hooks that do not implement PositionedHook are invoked at every position.
type PositionedHook interface {
	Hook

	// Positions returns the positions the hook listens to.
	Positions() []*HookPos
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
//
// Hooks can be attached and removed while other goroutines invoke them. A
// hook removed during an invocation may still receive that invocation.
type HookableBase struct {
	writeLock sync.Mutex
	hookList  atomic.Pointer[[]Hook]
}

// NewHookableBase creates a HookableBase object.
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.hookList.Store(&[]Hook{})

	return h
}

func (h *HookableBase) load() []Hook {
	p := h.hookList.Load()
	if p == nil {
		return nil
	}

	return *p
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.load())
}

// NumHooksAt returns the number of hooks that listen to the given position.
func (h *HookableBase) NumHooksAt(pos *HookPos) int {
	n := 0

	for _, hook := range h.load() {
		if listensAt(hook, pos) {
			n++
		}
	}

	return n
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	hooks := h.load()
	out := make([]Hook, len(hooks))
	copy(out, hooks)

	return out
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.writeLock.Lock()
	defer h.writeLock.Unlock()

	hooks := h.load()
	mustNotHaveDuplicatedHook(hooks, hook)

	newList := make([]Hook, 0, len(hooks)+1)
	newList = append(newList, hooks...)
	newList = append(newList, hook)
	h.hookList.Store(&newList)
}

// RemoveHook unregisters a hook.
func (h *HookableBase) RemoveHook(hook Hook) {
	h.writeLock.Lock()
	defer h.writeLock.Unlock()

	hooks := h.load()
	newList := make([]Hook, 0, len(hooks))

	for _, existing := range hooks {
		if existing != hook {
			newList = append(newList, existing)
		}
	}

	h.hookList.Store(&newList)
}

func mustNotHaveDuplicatedHook(hooks []Hook, hook Hook) {
	for _, h := range hooks {
		if h == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.load() {
		if listensAt(hook, ctx.Pos) {
			hook.Func(ctx)
		}
	}
}

// InvokeHookRecovering triggers the registered Hooks like InvokeHook. A hook
// that panics does not prevent the hooks after it from running; the panic
// is passed to onPanic instead.
func (h *HookableBase) InvokeHookRecovering(
	ctx HookCtx,
	onPanic func(hook Hook, recovered any),
) {
	for _, hook := range h.load() {
		if listensAt(hook, ctx.Pos) {
			invokeOne(hook, ctx, onPanic)
		}
	}
}

func invokeOne(hook Hook, ctx HookCtx, onPanic func(hook Hook, recovered any)) {
	defer func() {
		if r := recover(); r != nil {
			onPanic(hook, r)
		}
	}()

	hook.Func(ctx)
}

func listensAt(hook Hook, pos *HookPos) bool {
	positioned, ok := hook.(PositionedHook)
	if !ok {
		return true
	}

	for _, p := range positioned.Positions() {
		if p == pos {
			return true
		}
	}

	return false
}

var _ Hookable = (*HookableBase)(nil)
