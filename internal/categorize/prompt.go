package categorize

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const promptText = `You are a bookmark categorization assistant. Analyze the bookmark below and pick the best category from the user's existing category tree, or suggest a new category path if none fits well.

## Existing Category Tree

{{.Tree}}

## Bookmark Information

**Title:** {{.Title}}
**URL:** {{.URL}}
**Summary:** {{.Summary}}
**Tags:** {{.Tags}}

## Instructions

1. Work out the bookmark's topic from its title, URL domain, summary and tags.
2. Compare it against the existing category tree.
3. If an existing category matches with confidence of at least {{.Threshold}}, return its id and your confidence (0.0 to 1.0).
4. Otherwise suggest a new category path from root to leaf, for example ["Technology", "Programming", "Python"]. Keep paths 1-3 levels deep and use short, clear names.

## Response Format

Respond with a single JSON object:
{
  "existingCategoryId": string | null,
  "newCategoryPath": string[] | null,
  "confidence": number,
  "reasoning": string
}

## Examples

{"existingCategoryId": "3f2c1a9e-5b1d-4c0e-9a77-2f8d6b0c1e42", "newCategoryPath": null, "confidence": 0.92, "reasoning": "Python web frameworks fit the existing Programming > Python category."}

{"existingCategoryId": null, "newCategoryPath": ["Technology", "AI", "Machine Learning"], "confidence": 0.85, "reasoning": "No AI category exists yet, so a new path under Technology is needed."}

{"existingCategoryId": null, "newCategoryPath": ["Development", "Web Development"], "confidence": 0.88, "reasoning": "There are no categories yet; this web development tutorial starts a new tree."}
`

var promptTemplate = template.Must(template.New("categorize").Parse(promptText))

// PromptInput is the bookmark data embedded in the categorization prompt.
type PromptInput struct {
	Tree      string
	Title     string
	URL       string
	Summary   string
	Tags      []string
	Threshold float64
}

// BuildPrompt renders the categorization prompt, substituting placeholders
// for missing fields.
func BuildPrompt(in PromptInput) (string, error) {
	data := struct {
		Tree, Title, URL, Summary, Tags string
		Threshold                       string
	}{
		Tree:      in.Tree,
		Title:     in.Title,
		URL:       in.URL,
		Summary:   in.Summary,
		Tags:      strings.Join(in.Tags, ", "),
		Threshold: fmt.Sprintf("%.1f", in.Threshold),
	}
	if strings.TrimSpace(data.Title) == "" {
		data.Title = "Untitled"
	}
	if strings.TrimSpace(data.Summary) == "" {
		data.Summary = "No summary available"
	}
	if len(in.Tags) == 0 {
		data.Tags = "No tags"
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute categorization prompt template: %w", err)
	}
	return buf.String(), nil
}
