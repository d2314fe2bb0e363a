// Package mock provides test doubles for the ai service interfaces.
//
// The mocks let tests run without a model server and keep results
// deterministic:
//
//   - MockEmbedder returns unit vectors derived from a hash of the text
//   - MockGenerator returns a canned reply and records every prompt
//   - MockProvider aggregates the two
//
// Custom behavior is injected through the Func fields:
//
//	gen := mock.NewMockGenerator()
//	gen.GenerateFunc = func(ctx context.Context, p ai.Prompt) (string, error) {
//	    return "", errors.New("offline")
//	}
package mock
