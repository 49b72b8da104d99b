// Package gemini provides an implementation of the generation.Provider
// interface backed by Google's Gemini API.
//
// This package is an infrastructure adapter: it translates generation
// requests into genai calls and maps the API's responses and failures back
// onto the generation package's parts and sentinel errors, so the workflow
// never sees genai types.
//
// Key components:
//
// 1. Provider:
//   - Streams completions as text, tool and usage parts (PromptStream)
//   - Requests JSON output, optionally schema-constrained, and decodes it
//     into a caller-supplied value (GenerateStructured)
//
// 2. Error Handling:
//   - Rate limits and server errors map to generation.ErrTransientFailure
//     and are retried with exponential backoff
//   - Safety blocks map to generation.ErrContentBlocked and are never retried
//   - Missing candidates or empty content map to generation.ErrInvalidResponse
//
// A stream is only retried before its first part has been emitted; once a
// consumer has seen output, a failure is reported as an error part.
package gemini
