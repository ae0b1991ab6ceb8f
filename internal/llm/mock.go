package llm

import "context"

// MockClient is a test double for Client. Scripts holds one fragment
// sequence per round; successive Stream calls consume them in order.
type MockClient struct {
	ProviderName string
	Scripts      [][]Fragment
	StreamFunc   func(ctx context.Context, req ChatRequest) (<-chan Fragment, error)
	CompleteFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Requests records every request passed to Stream or Complete.
	Requests []ChatRequest

	next int
}

func (m *MockClient) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &ChatResponse{Content: "mock response"}, nil
}

func (m *MockClient) Stream(ctx context.Context, req ChatRequest) (<-chan Fragment, error) {
	m.Requests = append(m.Requests, req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}

	var script []Fragment
	if m.next < len(m.Scripts) {
		script = m.Scripts[m.next]
		m.next++
	} else {
		script = []Fragment{
			{Type: FragmentDelta, Text: "mock "},
			{Type: FragmentDone, Response: &ChatResponse{Content: "mock stream response"}},
		}
	}

	ch := make(chan Fragment, len(script))
	go func() {
		defer close(ch)
		for _, f := range script {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
