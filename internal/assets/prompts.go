// Prompt templates are stored as text files under prompts/ and embedded at compile time.

package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

// --- Edit operation templates ---

//go:embed prompts/edit-localized.txt
var editLocalizedTemplate string

//go:embed prompts/edit-filter.txt
var editFilterTemplate string

//go:embed prompts/edit-adjustment.txt
var editAdjustmentTemplate string

//go:embed prompts/edit-remove-background.txt
var editRemoveBackgroundTemplate string

//go:embed prompts/edit-enhance.txt
var editEnhanceTemplate string

// --- Copywriting templates ---

//go:embed prompts/copy-writeup.txt
var copyWriteupTemplate string

//go:embed prompts/copy-analyze.txt
var copyAnalyzeTemplate string

//go:embed prompts/copy-suggestions.txt
var copySuggestionsTemplate string

//go:embed prompts/copy-backgrounds.txt
var copyBackgroundsTemplate string

// Pre-parsed templates. template.Must panics on malformed templates,
// catching errors at program startup rather than at call time.
var (
	editTemplates = map[string]*template.Template{
		"localized-edit":    template.Must(template.New("localized-edit").Parse(editLocalizedTemplate)),
		"filter":            template.Must(template.New("filter").Parse(editFilterTemplate)),
		"adjustment":        template.Must(template.New("adjustment").Parse(editAdjustmentTemplate)),
		"remove-background": template.Must(template.New("remove-background").Parse(editRemoveBackgroundTemplate)),
		"enhance":           template.Must(template.New("enhance").Parse(editEnhanceTemplate)),
	}

	writeupTmpl     = template.Must(template.New("writeup").Parse(copyWriteupTemplate))
	analyzeTmpl     = template.Must(template.New("analyze").Parse(copyAnalyzeTemplate))
	suggestionsTmpl = template.Must(template.New("suggestions").Parse(copySuggestionsTemplate))
	backgroundsTmpl = template.Must(template.New("backgrounds").Parse(copyBackgroundsTemplate))
)

// EditPromptData holds the dynamic data injected into an edit template.
type EditPromptData struct {
	// Instruction is the user's trimmed free text. Empty for tools that take none.
	Instruction string
	// X and Y are the hotspot in natural pixel coordinates (localized edits only).
	X, Y int
}

// WriteupPromptData holds the inputs of a social media write-up.
type WriteupPromptData struct {
	Platform  string
	WordLimit int
	Tone      string
	Brief     string
}

type subjectData struct {
	Subject string
}

// RenderEditPrompt renders the template for the named edit operation.
func RenderEditPrompt(operation string, data EditPromptData) (string, error) {
	tmpl, ok := editTemplates[operation]
	if !ok {
		return "", fmt.Errorf("no prompt template for operation %q", operation)
	}
	return render(tmpl, data), nil
}

// RenderWriteupPrompt renders the social media write-up prompt.
func RenderWriteupPrompt(data WriteupPromptData) string {
	return render(writeupTmpl, data)
}

// RenderAnalyzePrompt renders the product analysis prompt.
func RenderAnalyzePrompt(description string) string {
	return render(analyzeTmpl, subjectData{Subject: description})
}

// RenderSuggestionsPrompt renders the photography suggestions prompt.
func RenderSuggestionsPrompt(productType string) string {
	return render(suggestionsTmpl, subjectData{Subject: productType})
}

// RenderBackgroundsPrompt renders the background suggestions prompt.
func RenderBackgroundsPrompt(productType string) string {
	return render(backgroundsTmpl, subjectData{Subject: productType})
}

// render executes a pre-parsed template.
func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Execution errors are not expected with these templates; whatever was
	// rendered is returned.
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}
