package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/bundle"
	"github.com/fpang/product-craft/internal/editor"
)

// imageResponse carries a version as a data URL with the session state.
type imageResponse struct {
	Image      string            `json:"image"`
	Resolution editor.Resolution `json:"resolution"`
	Session    editor.Snapshot   `json:"session"`
}

func newImageResponse(v editor.ImageVersion, session *editor.Session) imageResponse {
	return imageResponse{
		Image:      v.DataURL(),
		Resolution: v.Resolution(),
		Session:    session.Snapshot(),
	}
}

// POST /api/sessions
// Body (optional): {"projectName": "Ceramic mug"}
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ProjectName string `json:"projectName"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	session := s.NewSession(req.ProjectName)
	log.Info().Str("session", session.ID()).Msg("Session created")
	respondJSON(w, http.StatusCreated, session.Snapshot())
}

// GET /api/sessions/{id} returns the snapshot; DELETE closes the session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, session.Snapshot())
	case http.MethodDelete:
		s.sessions.Delete(session.ID())
		w.WriteHeader(http.StatusNoContent)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/sessions/{id}/image uploads a new image, either as raw image
// bytes (Content-Type image/*) or as JSON {"dataUrl": "data:image/png;base64,..."}.
// GET returns the current version's bytes.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	switch r.Method {
	case http.MethodGet:
		v, ok := session.CurrentImage()
		if !ok {
			writeError(w, editor.NewError(editor.KindNoImageLoaded, "", "no image has been uploaded", nil))
			return
		}
		w.Header().Set("Content-Type", v.MIMEType())
		w.Header().Set("Cache-Control", "no-store")
		w.Write(v.Bytes())
		return
	case http.MethodPost:
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		v   editor.ImageVersion
		err error
	)
	if mediaType == "application/json" {
		var req struct {
			DataURL string `json:"dataUrl"`
		}
		// Base64 inflates by a third.
		if !decodeJSON(w, r, s.cfg.MaxUpload*4/3+maxJSONBody, &req) {
			return
		}
		parsed, perr := editor.ParseDataURL(req.DataURL)
		if perr != nil {
			writeError(w, perr)
			return
		}
		v, err = session.LoadImage(parsed.Bytes(), parsed.MIMEType())
	} else {
		data, rerr := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUpload))
		if rerr != nil {
			httpError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		v, err = session.LoadImage(data, mediaType)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newImageResponse(v, session))
}

// POST /api/sessions/{id}/tool
// Body: {"tool": "localized-edit"}
func (s *Server) handleSelectTool(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Tool editor.ToolID `json:"tool"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	tool, err := session.SelectTool(req.Tool)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tool":    tool,
		"session": session.Snapshot(),
	})
}

// POST /api/sessions/{id}/click
// Body: {"x": 260, "y": 120, "displayWidth": 400, "displayHeight": 300}
// The natural size defaults to the current image's resolution.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		X             float64 `json:"x"`
		Y             float64 `json:"y"`
		DisplayWidth  float64 `json:"displayWidth"`
		DisplayHeight float64 `json:"displayHeight"`
		NaturalWidth  int     `json:"naturalWidth,omitempty"`
		NaturalHeight int     `json:"naturalHeight,omitempty"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	hotspot, accepted, err := session.RegisterClick(
		editor.Point{X: req.X, Y: req.Y},
		editor.Size{Width: req.DisplayWidth, Height: req.DisplayHeight},
		editor.Resolution{Width: req.NaturalWidth, Height: req.NaturalHeight},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]interface{}{
		"accepted": accepted,
		"session":  session.Snapshot(),
	}
	if accepted {
		resp["hotspot"] = hotspot
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/sessions/{id}/instruction
// Body: {"text": "make the label glossy"}
func (s *Server) handleInstruction(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	if err := session.SetInstruction(req.Text); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// POST /api/sessions/{id}/background
// Body: {"background": "marble-white"}
func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Background string `json:"background"`
	}
	if !decodeJSON(w, r, maxJSONBody, &req) {
		return
	}
	bg, accepted, err := session.SelectBackground(req.Background)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]interface{}{
		"accepted": accepted,
		"session":  session.Snapshot(),
	}
	if accepted {
		resp["background"] = bg
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/sessions/{id}/edit submits the active tool's edit and waits for the result.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	v, err := session.SubmitEdit(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newImageResponse(v, session))
}

// POST /api/sessions/{id}/undo and /redo
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, session *editor.Session, step func() (editor.ImageVersion, error)) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	v, err := step()
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newImageResponse(v, session))
}

// POST /api/sessions/{id}/save
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	receipt, err := session.Save(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"receipt": receipt,
		"session": session.Snapshot(),
	})
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// GET /api/sessions/{id}/export downloads the whole history as a ZIP.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, session *editor.Session) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	versions, cursor := session.History()
	snap := session.Snapshot()

	var buf bytes.Buffer
	if _, err := bundle.WriteHistory(&buf, snap, versions, cursor); err != nil {
		writeError(w, err)
		return
	}

	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(snap.ProjectName), "-"), "-")
	if name == "" {
		name = "product"
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-history.zip"`, name))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.Write(buf.Bytes())
}
