// Package workflow runs the bookmark enrichment pipeline.
//
// A Processor takes one bookmark through four sequential stages, each
// reported as a progress task of the run's session:
//
// 1. Summarize:
//   - Streams a markdown summary of the scraped text, publishing the
//     growing summary as bookmark.updated after every delta
//   - Requests a short brief summary as structured output
//
// 2. Generate metadata:
//   - Requests 1-10 short tags as structured output
//
// 3. Process images:
//   - Asks the model which scraped images are relevant to the content
//   - Fetches the selected images, at most MaxConcurrentFetches at a time
//     across every run, and persists their bytes through the image store
//
// 4. Categorize:
//   - Delegates to categorize.Categorizer
//
// Results are written back to the bookmark as each stage finishes. A failed
// stage aborts the run and leaves the bookmark marked failed with a redacted
// error; re-running the workflow overwrites every enrichment field.
package workflow
