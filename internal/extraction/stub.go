package extraction

import "context"

// StubExtractor is used when no LLM is configured; uploads still succeed but
// every field comes back null.
type StubExtractor struct{}

func (StubExtractor) ExtractLease(_ context.Context, _ string) (*LeaseFields, error) {
	return NullFields("llm extraction is not configured"), nil
}
