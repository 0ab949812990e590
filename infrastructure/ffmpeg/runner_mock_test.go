package ffmpeg

import (
	"context"
	"sync"
)

type runCall struct {
	name string
	args []string
}

// mockRunner implements CommandRunner for testing
type mockRunner struct {
	mu      sync.Mutex
	calls   []runCall
	output  []byte
	err     error
	blockOn bool // wait for ctx to be done before returning
}

func (m *mockRunner) record(name string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, runCall{name: name, args: append([]string(nil), args...)})
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) error {
	m.record(name, args)
	if m.blockOn {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func (m *mockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record(name, args)
	if m.blockOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func containsArgs(args []string, want ...string) bool {
	for i := 0; i+len(want) <= len(args); i++ {
		match := true
		for j := range want {
			if args[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
