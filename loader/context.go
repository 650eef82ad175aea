package loader

import "fmt"

// A Context is an isolated loading domain. Every bind names the context
// that requested it.
type Context struct {
	name      string
	id        uint64
	isDefault bool
}

// Name returns the name the context was created with.
func (c *Context) Name() string {
	return c.name
}

// IsDefault returns true for the default context of a Loader.
func (c *Context) IsDefault() bool {
	return c.isDefault
}

// DisplayName renders the context for bind events. It is only called when
// a bind is actually traced.
func (c *Context) DisplayName() string {
	if c.isDefault {
		return "Default"
	}

	return fmt.Sprintf("%q loader.Context #%d", c.name, c.id)
}

func (c *Context) String() string {
	return c.DisplayName()
}
