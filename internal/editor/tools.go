package editor

import "strings"

// Operation is the kind of work sent to the edit backend.
type Operation string

// Remote edit operations.
const (
	OpLocalizedEdit    Operation = "localized-edit"
	OpFilter           Operation = "filter"
	OpAdjustment       Operation = "adjustment"
	OpRemoveBackground Operation = "remove-background"
	OpEnhance          Operation = "enhance"
)

// OpSave tags status and errors produced by Session.Save.
const OpSave Operation = "save"

// IsRemote reports whether op is dispatched to the edit backend.
func (op Operation) IsRemote() bool {
	switch op {
	case OpLocalizedEdit, OpFilter, OpAdjustment, OpRemoveBackground, OpEnhance:
		return true
	}
	return false
}

// Capability is the set of inputs a tool needs before it can be submitted.
type Capability uint8

const (
	// CapabilityNone needs no input.
	CapabilityNone Capability = 0
	// CapabilityPoint needs a hotspot.
	CapabilityPoint Capability = 1 << 0
	// CapabilityFreeText accepts an optional instruction.
	CapabilityFreeText Capability = 1 << 1
	// CapabilityFreeTextRequired needs a non-blank instruction.
	CapabilityFreeTextRequired Capability = 1 << 2
)

// RequiresPoint reports whether a hotspot must be set.
func (c Capability) RequiresPoint() bool { return c&CapabilityPoint != 0 }

// RequiresText reports whether a non-blank instruction must be set.
func (c Capability) RequiresText() bool { return c&CapabilityFreeTextRequired != 0 }

// AcceptsText reports whether an instruction is forwarded to the backend.
func (c Capability) AcceptsText() bool {
	return c&(CapabilityFreeText|CapabilityFreeTextRequired) != 0
}

func (c Capability) String() string {
	if c == CapabilityNone {
		return "none"
	}
	var parts []string
	if c.RequiresPoint() {
		parts = append(parts, "point")
	}
	if c.RequiresText() {
		parts = append(parts, "freeTextRequired")
	} else if c.AcceptsText() {
		parts = append(parts, "freeText")
	}
	return strings.Join(parts, "+")
}

// MarshalText renders the capability by name in JSON.
func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ToolID identifies a tool in the catalog.
type ToolID string

// Tool is an entry of the fixed tool catalog.
type Tool struct {
	ID          ToolID     `json:"id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Capability  Capability `json:"capability"`
	// Operation is empty for local tools that never call the backend.
	Operation Operation `json:"operation,omitempty"`
}

// Remote reports whether submitting this tool calls the edit backend.
func (t Tool) Remote() bool {
	return t.Operation.IsRemote()
}

// Tool ids.
const (
	ToolMove             ToolID = "move"
	ToolCrop             ToolID = "crop"
	ToolBackground       ToolID = "background"
	ToolLocalizedEdit    ToolID = "localized-edit"
	ToolFilter           ToolID = "filter"
	ToolAdjustment       ToolID = "adjustment"
	ToolRemoveBackground ToolID = "remove-background"
	ToolEnhance          ToolID = "enhance"
)

var catalog = []Tool{
	{ID: ToolMove, Label: "Move", Description: "Move and resize elements", Capability: CapabilityNone},
	{ID: ToolCrop, Label: "Smart Crop", Description: "Intelligent product cropping", Capability: CapabilityNone},
	{ID: ToolBackground, Label: "Smart Backgrounds", Description: "Professional product backgrounds", Capability: CapabilityNone},
	{ID: ToolLocalizedEdit, Label: "Retouch", Description: "Edit one spot of the product photo", Capability: CapabilityPoint | CapabilityFreeTextRequired, Operation: OpLocalizedEdit},
	{ID: ToolFilter, Label: "Filter", Description: "Apply a stylistic filter to the whole photo", Capability: CapabilityFreeTextRequired, Operation: OpFilter},
	{ID: ToolAdjustment, Label: "AI Lighting", Description: "Global lighting and color adjustment", Capability: CapabilityFreeTextRequired, Operation: OpAdjustment},
	{ID: ToolRemoveBackground, Label: "Remove Background", Description: "Cut the product out onto a transparent background", Capability: CapabilityNone, Operation: OpRemoveBackground},
	{ID: ToolEnhance, Label: "Product Enhance", Description: "AI-powered product enhancement", Capability: CapabilityFreeText, Operation: OpEnhance},
}

// Tools returns the tool catalog in display order.
func Tools() []Tool {
	out := make([]Tool, len(catalog))
	copy(out, catalog)
	return out
}

// LookupTool finds a tool by id.
func LookupTool(id ToolID) (Tool, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return Tool{}, false
}

// ToolSelector holds the active tool. The zero value has no tool selected.
type ToolSelector struct {
	active   Tool
	selected bool
}

// Select makes id the active tool. Unknown ids leave the selection unchanged.
func (s *ToolSelector) Select(id ToolID) (Tool, error) {
	t, ok := LookupTool(id)
	if !ok {
		return Tool{}, NewError(KindUnknownTool, "", "unknown tool "+string(id), nil)
	}
	s.active = t
	s.selected = true
	return t, nil
}

// Active returns the active tool. ok is false when none has been selected.
func (s *ToolSelector) Active() (Tool, bool) {
	return s.active, s.selected
}

// ActiveCapability returns the input requirements of the active tool.
func (s *ToolSelector) ActiveCapability() Capability {
	if !s.selected {
		return CapabilityNone
	}
	return s.active.Capability
}

// Background is a static background preset for the background-swap tool.
type Background struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Preview  string `json:"preview"`
	Category string `json:"category"`
}

var backgrounds = []Background{
	{ID: "clean-white", Name: "Clean White", Preview: "#ffffff", Category: "minimal"},
	{ID: "soft-gray", Name: "Soft Gray", Preview: "#f8f9fa", Category: "minimal"},
	{ID: "luxury-black", Name: "Luxury Black", Preview: "#1a1a1a", Category: "premium"},
	{ID: "warm-beige", Name: "Warm Beige", Preview: "#f5f5dc", Category: "natural"},
	{ID: "gradient-blue", Name: "Ocean Gradient", Preview: "linear-gradient(135deg, #667eea 0%, #764ba2 100%)", Category: "gradient"},
	{ID: "gradient-sunset", Name: "Sunset Gradient", Preview: "linear-gradient(135deg, #f093fb 0%, #f5576c 100%)", Category: "gradient"},
	{ID: "marble-white", Name: "Marble Texture", Preview: "#f8f8f8", Category: "texture"},
	{ID: "wood-natural", Name: "Natural Wood", Preview: "#deb887", Category: "texture"},
}

// DefaultBackground is the preset selected in a new session.
const DefaultBackground = "clean-white"

// Backgrounds returns the background presets.
func Backgrounds() []Background {
	out := make([]Background, len(backgrounds))
	copy(out, backgrounds)
	return out
}

func lookupBackground(id string) (Background, bool) {
	for _, b := range backgrounds {
		if b.ID == id {
			return b, true
		}
	}
	return Background{}, false
}
