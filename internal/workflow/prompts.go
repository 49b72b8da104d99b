package workflow

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/phrazzld/bookmark-enricher/internal/domain"
)

const summarizeText = `You will be creating a comprehensive summary of provided content. Follow these instructions carefully:

<content>
{{.Content}}
</content>

Create a structured summary of the content above:

1. Read the entire content to understand its main themes, key concepts and overall message.
2. Identify the elements central to the content. If it is about "5 Design Patterns", capture all 5; if it describes a process, capture every step.
3. Write these sections:
   - Title: a concise, descriptive title
   - Summary: 2-3 sentences giving an overview of the main ideas
   - Key Points: 3-5 bullet points with the most important information
   - Takeaways: 2-3 main lessons or insights
   - Practical Applications: 3 numbered ways to apply this knowledge
   - Follow-up Links: up to 3 links from the content that are highly relevant, each with a brief explanation
4. Add sections specific to the content where they help, using tables or lists when they present the information more clearly.

Format requirements:
- Output ONLY markdown, with no text before or after it
- Do NOT wrap the output in a code block
- Use ## for section headers
- Use - bullets for Key Points and Takeaways
- Use numbered lists for Practical Applications and Follow-up Links

Begin your response immediately with the markdown content.
`

const briefSummaryText = `Write a brief summary that helps a reader decide whether to read the full content below.

<content>
{{.Content}}
</content>

Guidelines:
- 2-4 sentences, roughly 50-100 words
- Name the main topic or problem, the key insight it offers and why it matters to the reader
- Avoid openers such as "This article discusses" or "In this post"
- Avoid jargon unless it is essential, and leave some details to discover

Respond with a JSON object: {"summary": string}
`

const tagsText = `Generate tags for the content below.

<content>
{{.Content}}
</content>

Return 3-5 relevant keywords or short phrases, each no longer than 50 characters.

Respond with a JSON object: {"tags": [string]}
`

const imagesText = `Select the images that are relevant to the content below.

<content>
{{.Content}}
</content>

<images>
{{range .Images}}- {{.URL}}{{if .Alt}} (alt: {{.Alt}}){{end}}
{{end}}</images>

Rules:
- Only choose URLs from the image list above
- Ignore hero and banner images
- Ignore ads
- Ignore author avatar images
- Ignore any image not relevant to the content

For each selected image give a short title and a 1-2 sentence description of what it shows and how it relates to the content.

Respond with a JSON object: {"images": [{"url": string, "title": string, "description": string}]}
`

var (
	summarizeTemplate    = template.Must(template.New("summarize").Parse(summarizeText))
	briefSummaryTemplate = template.Must(template.New("brief_summary").Parse(briefSummaryText))
	tagsTemplate         = template.Must(template.New("tags").Parse(tagsText))
	imagesTemplate       = template.Must(template.New("images").Parse(imagesText))
)

type promptData struct {
	Content string
	Images  []domain.ScrapedImage
}

func render(tmpl *template.Template, content *domain.ScrapedContent) (string, error) {
	var buf bytes.Buffer
	data := promptData{Content: content.Content, Images: content.Images}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s prompt template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
