// Package llmtest provides a scripted Completer for tests.
package llmtest

import (
	"context"
	"sync"

	"roamfree/internal/llm"
)

// MockCompleter returns queued responses in order and records every request.
//
//	mock := &MockCompleter{
//	    Responses: []*llm.Response{{Content: `{"summary": "ok"}`}},
//	}
type MockCompleter struct {
	mu        sync.Mutex
	Responses []*llm.Response
	Errs      []error // Errs[i], if non-nil, is returned for call i instead of Responses[i]
	Err       error   // returned for every call when set
	// Gates[i], if non-nil, is waited on before call i answers (or until ctx is done).
	Gates    []chan struct{}
	requests []llm.Request
	index    int
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	i := m.index
	m.index++
	var gate chan struct{}
	if i < len(m.Gates) {
		gate = m.Gates[i]
	}
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if i < len(m.Errs) && m.Errs[i] != nil {
		return nil, m.Errs[i]
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// Requests returns a copy of all requests received so far.
func (m *MockCompleter) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

var _ llm.Completer = (*MockCompleter)(nil)
