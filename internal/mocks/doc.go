// Package mocks provides centralized test doubles for the worker's
// collaborators: the language model provider, the bookmark, category and
// image stores, the image fetcher and the progress publisher.
//
// Each mock has function fields for customizable behavior and a default
// in-memory implementation, and records its calls for verification:
//
//	provider := &mocks.MockProvider{
//	    StreamText: []string{"Rust ", "async"},
//	    GenerateStructuredFn: func(ctx context.Context, req generation.Request, out any) error {
//	        return mocks.Respond(out, map[string]any{"tags": []string{"rust"}})
//	    },
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Guard recorded calls with a mutex; the workflow calls collaborators concurrently
package mocks
