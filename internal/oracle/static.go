package oracle

import (
	"context"
	"sync"

	"rockstar-pass-monolith/internal/core"
)

// Static answers every prompt the same way, for local demos and tests
type Static struct {
	Answer string
	Err    error

	mu      sync.Mutex
	prompts []string
}

// Ask returns the fixed answer and records the prompt
func (s *Static) Ask(ctx context.Context, prompt string, _ ...core.Media) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Answer, s.Err
}

// Prompts returns the prompts received so far
func (s *Static) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

var (
	_ core.Oracle           = (*Gemini)(nil)
	_ core.Oracle           = (*Static)(nil)
	_ core.ReferenceFetcher = (*HTTPReferences)(nil)
)
