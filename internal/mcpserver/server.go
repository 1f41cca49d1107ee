// Package mcpserver exposes one in-process editing session as Model Context
// Protocol tools, so an assistant can drive the editor step by step.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/bundle"
	"github.com/fpang/product-craft/internal/editor"
)

// Name is the implementation name announced to clients.
const Name = "productcraft"

// Handlers holds the session the tools act on.
type Handlers struct {
	session *editor.Session
}

// New builds an MCP server whose tools act on session.
func New(session *editor.Session, version string) *mcp.Server {
	h := &Handlers{session: session}
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	h.register(server)
	return server
}

func (h *Handlers) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tools",
		Description: "List the editing tools and background presets.",
	}, h.listTools)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_image",
		Description: "Load a product photo from disk. Starts a new history and clears the hotspot.",
	}, h.loadImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_tool",
		Description: "Make a tool active. Clears the hotspot.",
	}, h.selectTool)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_hotspot",
		Description: "Mark the point a localized edit applies to. Without a display size, x and y are source pixels.",
	}, h.setHotspot)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_instruction",
		Description: "Set the free-text instruction for the next edit.",
	}, h.setInstruction)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_background",
		Description: "Pick a background preset while the background tool is active.",
	}, h.selectBackground)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_edit",
		Description: "Run the active tool's AI edit on the current image and return the result.",
	}, h.submitEdit)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "undo",
		Description: "Step back one version. A no-op at the oldest version.",
	}, h.undo)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "redo",
		Description: "Step forward one version. A no-op at the newest version.",
	}, h.redo)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "status",
		Description: "Report the session state, active tool, hotspot and history position.",
	}, h.status)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "current_image",
		Description: "Return the current version of the image.",
	}, h.currentImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "save",
		Description: "Save the current version to the project archive.",
	}, h.save)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_history",
		Description: "Write every version in the history to a zip file.",
	}, h.exportHistory)
}

type toolInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Capability  string `json:"capability"`
	Remote      bool   `json:"remote"`
}

type catalogOutput struct {
	Tools       []toolInfo          `json:"tools"`
	Backgrounds []editor.Background `json:"backgrounds"`
}

// StatusOutput is the session summary most tools answer with.
type StatusOutput struct {
	Session      string          `json:"session"`
	State        string          `json:"state"`
	Status       string          `json:"status"`
	Tool         string          `json:"tool,omitempty"`
	Hotspot      *editor.Hotspot `json:"hotspot,omitempty"`
	Instruction  string          `json:"instruction,omitempty"`
	Background   string          `json:"background"`
	Width        int             `json:"width,omitempty"`
	Height       int             `json:"height,omitempty"`
	VersionCount int             `json:"versionCount"`
	Cursor       int             `json:"cursor"`
	CanUndo      bool            `json:"canUndo"`
	CanRedo      bool            `json:"canRedo"`
}

func (h *Handlers) statusOutput() StatusOutput {
	snap := h.session.Snapshot()
	out := StatusOutput{
		Session:      snap.ID,
		State:        snap.State.String(),
		Status:       string(snap.Status),
		Hotspot:      snap.Hotspot,
		Instruction:  snap.Instruction,
		Background:   snap.Background,
		VersionCount: snap.VersionCount,
		Cursor:       snap.Cursor,
		CanUndo:      snap.CanUndo,
		CanRedo:      snap.CanRedo,
	}
	if snap.Tool != nil {
		out.Tool = string(snap.Tool.ID)
	}
	if cur, ok := h.session.CurrentImage(); ok {
		res := cur.Resolution()
		out.Width, out.Height = res.Width, res.Height
	}
	return out
}

func (h *Handlers) listTools(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, catalogOutput, error) {
	out := catalogOutput{Backgrounds: editor.Backgrounds()}
	for _, t := range editor.Tools() {
		out.Tools = append(out.Tools, toolInfo{
			ID:          string(t.ID),
			Label:       t.Label,
			Description: t.Description,
			Capability:  t.Capability.String(),
			Remote:      t.Remote(),
		})
	}
	return nil, out, nil
}

type loadImageInput struct {
	Path string `json:"path" jsonschema:"path of a JPEG, PNG, GIF or WebP file"`
}

func (h *Handlers) loadImage(ctx context.Context, req *mcp.CallToolRequest, in loadImageInput) (*mcp.CallToolResult, StatusOutput, error) {
	path, err := filepath.Abs(in.Path)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("read %s: %w", in.Path, err)
	}
	if _, err := h.session.LoadImage(data, ""); err != nil {
		return nil, StatusOutput{}, err
	}
	log.Info().Str("path", path).Int("image_bytes", len(data)).Msg("Image loaded")
	return nil, h.statusOutput(), nil
}

type selectToolInput struct {
	Tool string `json:"tool" jsonschema:"tool id from list_tools"`
}

func (h *Handlers) selectTool(ctx context.Context, req *mcp.CallToolRequest, in selectToolInput) (*mcp.CallToolResult, StatusOutput, error) {
	if _, err := h.session.SelectTool(editor.ToolID(in.Tool)); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, h.statusOutput(), nil
}

type setHotspotInput struct {
	X             float64 `json:"x" jsonschema:"horizontal position of the click"`
	Y             float64 `json:"y" jsonschema:"vertical position of the click"`
	DisplayWidth  float64 `json:"displayWidth,omitempty" jsonschema:"width the image was shown at; omit when x and y are source pixels"`
	DisplayHeight float64 `json:"displayHeight,omitempty" jsonschema:"height the image was shown at; omit when x and y are source pixels"`
}

func (h *Handlers) setHotspot(ctx context.Context, req *mcp.CallToolRequest, in setHotspotInput) (*mcp.CallToolResult, StatusOutput, error) {
	displayed := editor.Size{Width: in.DisplayWidth, Height: in.DisplayHeight}
	if in.DisplayWidth == 0 && in.DisplayHeight == 0 {
		if cur, ok := h.session.CurrentImage(); ok {
			res := cur.Resolution()
			displayed = editor.Size{Width: float64(res.Width), Height: float64(res.Height)}
		}
	}
	_, ok, err := h.session.RegisterClick(editor.Point{X: in.X, Y: in.Y}, displayed, editor.Resolution{})
	if err != nil {
		return nil, StatusOutput{}, err
	}
	if !ok {
		return nil, StatusOutput{}, fmt.Errorf("the active tool does not take a point; select %s first", editor.ToolLocalizedEdit)
	}
	return nil, h.statusOutput(), nil
}

type setInstructionInput struct {
	Text string `json:"text" jsonschema:"what the edit should do"`
}

func (h *Handlers) setInstruction(ctx context.Context, req *mcp.CallToolRequest, in setInstructionInput) (*mcp.CallToolResult, StatusOutput, error) {
	if err := h.session.SetInstruction(in.Text); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, h.statusOutput(), nil
}

type selectBackgroundInput struct {
	Background string `json:"background" jsonschema:"background preset id from list_tools"`
}

func (h *Handlers) selectBackground(ctx context.Context, req *mcp.CallToolRequest, in selectBackgroundInput) (*mcp.CallToolResult, StatusOutput, error) {
	_, ok, err := h.session.SelectBackground(in.Background)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	if !ok {
		return nil, StatusOutput{}, fmt.Errorf("select the %s tool before choosing a background", editor.ToolBackground)
	}
	return nil, h.statusOutput(), nil
}

func (h *Handlers) submitEdit(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, StatusOutput, error) {
	v, err := h.session.SubmitEdit(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return imageResult(v), h.statusOutput(), nil
}

func (h *Handlers) undo(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, StatusOutput, error) {
	if _, err := h.session.Undo(); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, h.statusOutput(), nil
}

func (h *Handlers) redo(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, StatusOutput, error) {
	if _, err := h.session.Redo(); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, h.statusOutput(), nil
}

func (h *Handlers) status(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, StatusOutput, error) {
	return nil, h.statusOutput(), nil
}

func (h *Handlers) currentImage(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, StatusOutput, error) {
	v, ok := h.session.CurrentImage()
	if !ok {
		return nil, StatusOutput{}, editor.NewError(editor.KindNoImageLoaded, "", "load an image first", nil)
	}
	return imageResult(v), h.statusOutput(), nil
}

type saveOutput struct {
	ProjectID string `json:"projectId"`
	Location  string `json:"location"`
	SavedAt   string `json:"savedAt"`
}

func (h *Handlers) save(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, saveOutput, error) {
	receipt, err := h.session.Save(ctx)
	if err != nil {
		return nil, saveOutput{}, err
	}
	return nil, saveOutput{
		ProjectID: receipt.ProjectID,
		Location:  receipt.Location,
		SavedAt:   receipt.SavedAt.Format(time.RFC3339),
	}, nil
}

type exportInput struct {
	Path string `json:"path" jsonschema:"where to write the zip file"`
}

type exportOutput struct {
	Path     string `json:"path"`
	Versions int    `json:"versions"`
	Bytes    int    `json:"bytes"`
}

func (h *Handlers) exportHistory(ctx context.Context, req *mcp.CallToolRequest, in exportInput) (*mcp.CallToolResult, exportOutput, error) {
	versions, cursor := h.session.History()
	var buf bytes.Buffer
	manifest, err := bundle.WriteHistory(&buf, h.session.Snapshot(), versions, cursor)
	if err != nil {
		return nil, exportOutput{}, err
	}
	if err := os.WriteFile(in.Path, buf.Bytes(), 0o644); err != nil {
		return nil, exportOutput{}, fmt.Errorf("write %s: %w", in.Path, err)
	}
	return nil, exportOutput{Path: in.Path, Versions: len(manifest.Versions), Bytes: buf.Len()}, nil
}

// imageResult returns v as image content; the status travels as structured output.
func imageResult(v editor.ImageVersion) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: v.Bytes(), MIMEType: v.MIMEType()},
		},
	}
}
