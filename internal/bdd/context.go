package bdd

// Layer names used on the runner context stack
const (
	LayerTestRun  = "testrun"
	LayerFeature  = "feature"
	LayerScenario = "scenario"
)

// Layer is one scope on the runner context stack together with the cleanup
// functions registered against it
type Layer struct {
	Name     string
	Cleanups []string
}

// Context is the runner state passed along with every lifecycle event
type Context struct {
	// ActiveOutline is the example row currently being executed, if any
	ActiveOutline *Row
	// UserData holds key=value pairs given on the runner command line
	UserData map[string]string

	stack []Layer
}

// NewContext creates a runner context with the given user data
func NewContext(userData map[string]string) *Context {
	if userData == nil {
		userData = make(map[string]string)
	}
	return &Context{UserData: userData}
}

// PushLayer opens a new scope on the stack
func (c *Context) PushLayer(name string) {
	c.stack = append(c.stack, Layer{Name: name})
}

// PopLayer closes the innermost scope
func (c *Context) PopLayer() {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// AddCleanup registers a named cleanup function against the innermost scope
func (c *Context) AddCleanup(name string) {
	if len(c.stack) == 0 {
		c.PushLayer(LayerTestRun)
	}
	top := &c.stack[len(c.stack)-1]
	top.Cleanups = append(top.Cleanups, name)
}

// Cleanups returns the cleanup names registered for the first scope with the
// given layer name, or nil when no such scope is open
func (c *Context) Cleanups(layer string) []string {
	if c == nil {
		return nil
	}
	for _, l := range c.stack {
		if l.Name == layer {
			return l.Cleanups
		}
	}
	return nil
}
