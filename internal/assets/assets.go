// Package assets provides embedded static assets for the application.
package assets

import (
	_ "embed"
)

// EditSystemPrompt frames every image edit as product photography work.
//
//go:embed prompts/edit-system.txt
var EditSystemPrompt string
