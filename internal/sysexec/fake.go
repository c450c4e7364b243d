package sysexec

import (
	"context"
	"strings"
	"sync"
)

// Call is one invocation recorded by Fake.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string { return CommandLine(c.Name, c.Args...) }

// Fake is a scripted Runner for tests. Handler decides the result of every
// call; a nil Handler succeeds with no output.
type Fake struct {
	Handler func(c Call) ([]byte, error)

	mu    sync.Mutex
	calls []Call
}

// Run implements Runner.
func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := Call{Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.Handler == nil {
		return nil, nil
	}
	return f.Handler(c)
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded invocations as command lines.
func (f *Fake) Lines() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.String())
	}
	return out
}

// Count returns how many calls had the given tool and first argument,
// for example Count("reg", "import").
func (f *Fake) Count(name, verb string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.EqualFold(c.Name, name) && len(c.Args) > 0 && strings.EqualFold(c.Args[0], verb) {
			n++
		}
	}
	return n
}
