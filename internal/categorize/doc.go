// Package categorize places an enriched bookmark into its owner's category
// forest. It renders the forest as indented text for the model, asks for a
// placement decision, and then reuses an existing node, creates a new path,
// or falls back to the root-level Uncategorized node.
package categorize
