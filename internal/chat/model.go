package chat

import "os"

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|-----------------------------|-------------------------------|
// | Gemini 2.5 Flash            | gemini-2.5-flash            | Stable, balanced performance  |
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview      | Best for speed + intelligence |
// | Gemini 2.5 Flash Image      | gemini-2.5-flash-image      | Fast image editing            |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Advanced image generation     |
const (
	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini3FlashPreview is best for speed + intelligence.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"

	// ModelGemini25FlashImage is the fast image editing model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"
)

// DefaultImageModel edits product photos.
const DefaultImageModel = ModelGemini25FlashImage

// DefaultTextModel writes copy and product analysis.
const DefaultTextModel = ModelGemini3FlashPreview

// GetImageModelName returns GEMINI_IMAGE_MODEL if set, else DefaultImageModel.
func GetImageModelName() string {
	if env := os.Getenv("GEMINI_IMAGE_MODEL"); env != "" {
		return env
	}
	return DefaultImageModel
}

// GetTextModelName returns GEMINI_TEXT_MODEL if set, else DefaultTextModel.
func GetTextModelName() string {
	if env := os.Getenv("GEMINI_TEXT_MODEL"); env != "" {
		return env
	}
	return DefaultTextModel
}
