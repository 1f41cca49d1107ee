package editor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State is the session's control state.
type State int

const (
	StateNoImage State = iota
	StateIdle
	StateAwaitingEdit
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateNoImage:
		return "no-image"
	case StateIdle:
		return "idle"
	case StateAwaitingEdit:
		return "awaiting-edit"
	case StateProcessing:
		return "processing"
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a human-observable label. It never drives control flow.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusAwaitingInput Status = "awaiting-input"
	StatusProcessing    Status = "processing"
)

// ToolSelectedStatus is the label after a tool switch.
func ToolSelectedStatus(id ToolID) Status { return Status("tool-selected:" + string(id)) }

// SuccessStatus is the label after a successful operation.
func SuccessStatus(op Operation) Status { return Status("success:" + string(op)) }

// ErrorStatus is the label after a failed operation.
func ErrorStatus(op Operation) Status { return Status("error:" + string(op)) }

// Archive persists a saved version. Implementations live in internal/store.
type Archive interface {
	Save(ctx context.Context, req SaveRequest) (SaveReceipt, error)
}

// SaveRequest is what the session hands to its Archive.
type SaveRequest struct {
	SessionID    string
	ProjectID    string
	ProjectName  string
	Version      ImageVersion
	VersionIndex int
	VersionCount int
	Background   string
	SavedAt      time.Time
}

// SaveReceipt describes where a version was stored.
type SaveReceipt struct {
	ProjectID string    `json:"projectId"`
	Location  string    `json:"location"`
	SavedAt   time.Time `json:"savedAt"`
}

// Snapshot is a read-only view of a session for the UI.
type Snapshot struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	ProjectName  string    `json:"projectName"`
	State        State     `json:"state"`
	Status       Status    `json:"status"`
	Tool         *Tool     `json:"tool,omitempty"`
	Hotspot      *Hotspot  `json:"hotspot,omitempty"`
	Instruction  string    `json:"instruction,omitempty"`
	Background   string    `json:"background"`
	VersionCount int       `json:"versionCount"`
	Cursor       int       `json:"cursor"`
	CanUndo      bool      `json:"canUndo"`
	CanRedo      bool      `json:"canRedo"`
	InFlight     bool      `json:"inFlight"`
	LastError    string    `json:"lastError,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is the controller for one editing session. It owns the version
// history, the tool selection and the hotspot. All methods are safe for
// concurrent use; intents are serialized, and the lock is released while a
// backend call is outstanding.
type Session struct {
	mu sync.Mutex

	id          string
	projectID   string
	projectName string

	history     VersionHistory
	tools       ToolSelector
	hotspot     *Hotspot
	instruction string
	background  string

	processing bool
	status     Status
	lastErr    error
	updatedAt  time.Time

	orch    *Orchestrator
	archive Archive
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	archive     Archive
	projectName string
	orchOpts    []OrchestratorOption
}

// WithArchive enables Save.
func WithArchive(a Archive) SessionOption {
	return func(c *sessionConfig) { c.archive = a }
}

// WithProjectName names the project records written by Save.
func WithProjectName(name string) SessionOption {
	return func(c *sessionConfig) { c.projectName = name }
}

// WithOrchestratorOptions forwards options to the session's orchestrator.
func WithOrchestratorOptions(opts ...OrchestratorOption) SessionOption {
	return func(c *sessionConfig) { c.orchOpts = append(c.orchOpts, opts...) }
}

// NewSession creates an empty session that edits through backend.
func NewSession(backend Backend, opts ...SessionOption) *Session {
	cfg := sessionConfig{projectName: "Untitled product"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		id:          uuid.NewString(),
		projectID:   uuid.NewString(),
		projectName: cfg.projectName,
		background:  DefaultBackground,
		status:      StatusIdle,
		updatedAt:   time.Now(),
		orch:        NewOrchestrator(backend, cfg.orchOpts...),
		archive:     cfg.archive,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// busy must be called with mu held.
func (s *Session) busy() bool {
	return s.processing || s.orch.InFlight()
}

// stateLocked derives the control state. Caller holds mu.
func (s *Session) stateLocked() State {
	switch {
	case s.busy():
		return StateProcessing
	case s.history.Len() == 0:
		return StateNoImage
	case !s.inputsSatisfiedLocked():
		return StateAwaitingEdit
	}
	return StateIdle
}

func (s *Session) inputsSatisfiedLocked() bool {
	capability := s.tools.ActiveCapability()
	if capability.RequiresPoint() && s.hotspot == nil {
		return false
	}
	if capability.RequiresText() && strings.TrimSpace(s.instruction) == "" {
		return false
	}
	return true
}

func (s *Session) touchLocked(status Status, err error) {
	s.status = status
	s.lastErr = err
	s.updatedAt = time.Now()
}

func (s *Session) busyError(op Operation) error {
	return NewError(KindOrchestratorBusy, op, "wait for the current edit to finish", nil)
}

// LoadImage starts a new history from an uploaded image.
func (s *Session) LoadImage(data []byte, mimeType string) (ImageVersion, error) {
	v, err := NewImageVersion(data, mimeType)
	if err != nil {
		return ImageVersion{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return ImageVersion{}, s.busyError("")
	}
	if err := s.history.Reset(v); err != nil {
		return ImageVersion{}, err
	}
	s.hotspot = nil
	s.touchLocked(StatusIdle, nil)

	log.Debug().
		Str("session", s.id).
		Int("image_bytes", v.Size()).
		Str("image_mime", v.MIMEType()).
		Msg("Image loaded")
	return v, nil
}

// SelectTool switches the active tool and clears any captured hotspot.
func (s *Session) SelectTool(id ToolID) (Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return Tool{}, s.busyError("")
	}
	t, err := s.tools.Select(id)
	if err != nil {
		return Tool{}, err
	}
	s.hotspot = nil
	s.touchLocked(ToolSelectedStatus(t.ID), nil)
	return t, nil
}

// RegisterClick maps a display-space click to a hotspot. Clicks while the
// active tool does not take a point are ignored: ok is false and err is nil.
func (s *Session) RegisterClick(click Point, displayed Size, natural Resolution) (hotspot Hotspot, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return Hotspot{}, false, s.busyError(OpLocalizedEdit)
	}
	if !s.tools.ActiveCapability().RequiresPoint() {
		return Hotspot{}, false, nil
	}
	if s.history.Len() == 0 {
		return Hotspot{}, false, NewError(KindNoImageLoaded, OpLocalizedEdit, "upload an image before choosing a point", nil)
	}
	if natural.Width <= 0 && natural.Height <= 0 {
		cur, _ := s.history.Current()
		natural = cur.Resolution()
	}
	h, err := MapClick(click, displayed, natural)
	if err != nil {
		return Hotspot{}, false, err
	}
	s.hotspot = &h
	s.touchLocked(s.readinessStatusLocked(), nil)
	return h, true, nil
}

// SetInstruction stores the free-text instruction for the next submit.
func (s *Session) SetInstruction(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return s.busyError("")
	}
	s.instruction = text
	s.touchLocked(s.readinessStatusLocked(), nil)
	return nil
}

func (s *Session) readinessStatusLocked() Status {
	if !s.inputsSatisfiedLocked() {
		return StatusAwaitingInput
	}
	if t, ok := s.tools.Active(); ok {
		return ToolSelectedStatus(t.ID)
	}
	return StatusIdle
}

// SelectBackground picks a background preset while the background tool is
// active. Under any other tool it is ignored and ok is false.
func (s *Session) SelectBackground(id string) (bg Background, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return Background{}, false, s.busyError("")
	}
	if t, active := s.tools.Active(); !active || t.ID != ToolBackground {
		return Background{}, false, nil
	}
	b, found := lookupBackground(id)
	if !found {
		return Background{}, false, NewError(KindUnknownBackground, "", "unknown background "+id, nil)
	}
	s.background = b.ID
	s.touchLocked(ToolSelectedStatus(ToolBackground), nil)
	return b, true, nil
}

// SubmitEdit sends the active tool's edit to the backend. The session is in
// Processing until the call settles; afterwards it is back to Idle whether
// the edit succeeded or not.
func (s *Session) SubmitEdit(ctx context.Context) (ImageVersion, error) {
	s.mu.Lock()
	tool, selected := s.tools.Active()
	op := tool.Operation
	if s.busy() {
		s.mu.Unlock()
		return ImageVersion{}, s.busyError(op)
	}
	if !selected {
		s.mu.Unlock()
		return ImageVersion{}, NewError(KindUnsupportedOperation, "", "select a tool first", nil)
	}
	source, _ := s.history.Current()
	req := EditRequest{
		Tool:        tool,
		Source:      source,
		Instruction: s.instruction,
	}
	if s.hotspot != nil {
		h := *s.hotspot
		req.Hotspot = &h
	}
	if err := req.Validate(); err != nil {
		s.touchLocked(ErrorStatus(op), err)
		s.mu.Unlock()
		return ImageVersion{}, err
	}
	s.processing = true
	s.touchLocked(StatusProcessing, nil)
	s.mu.Unlock()

	v, err := s.orch.Submit(ctx, req, sessionSink{s})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	if err != nil {
		s.touchLocked(ErrorStatus(op), err)
		return ImageVersion{}, err
	}
	s.touchLocked(SuccessStatus(op), nil)
	return v, nil
}

// sessionSink pushes accepted versions under the session lock.
type sessionSink struct{ s *Session }

func (k sessionSink) Push(v ImageVersion) error {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	if err := k.s.history.Push(v); err != nil {
		return err
	}
	k.s.hotspot = nil
	return nil
}

// Undo steps back one version. At the oldest version it is a no-op.
func (s *Session) Undo() (ImageVersion, error) {
	return s.step((*VersionHistory).Undo)
}

// Redo steps forward one version. At the newest version it is a no-op.
func (s *Session) Redo() (ImageVersion, error) {
	return s.step((*VersionHistory).Redo)
}

func (s *Session) step(move func(*VersionHistory) (ImageVersion, bool)) (ImageVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return ImageVersion{}, s.busyError("")
	}
	v, ok := move(&s.history)
	if !ok {
		return ImageVersion{}, NewError(KindNoImageLoaded, "", "nothing to undo or redo", nil)
	}
	s.touchLocked(StatusIdle, nil)
	return v, nil
}

// CurrentImage returns the version at the history cursor.
func (s *Session) CurrentImage() (ImageVersion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// History returns every version in order and the cursor index.
func (s *Session) History() ([]ImageVersion, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Versions(), s.history.Cursor()
}

// State returns the control state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Status returns the observability label.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the error of the most recent failed intent, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns a consistent view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.id,
		ProjectID:    s.projectID,
		ProjectName:  s.projectName,
		State:        s.stateLocked(),
		Status:       s.status,
		Instruction:  s.instruction,
		Background:   s.background,
		VersionCount: s.history.Len(),
		Cursor:       s.history.Cursor(),
		CanUndo:      s.history.CanUndo(),
		CanRedo:      s.history.CanRedo(),
		InFlight:     s.orch.InFlight(),
		UpdatedAt:    s.updatedAt,
	}
	if t, ok := s.tools.Active(); ok {
		snap.Tool = &t
	}
	if s.hotspot != nil {
		h := *s.hotspot
		snap.Hotspot = &h
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// Save persists the current version through the configured Archive.
func (s *Session) Save(ctx context.Context) (SaveReceipt, error) {
	s.mu.Lock()
	if s.busy() {
		s.mu.Unlock()
		return SaveReceipt{}, s.busyError(OpSave)
	}
	if s.archive == nil {
		s.mu.Unlock()
		return SaveReceipt{}, NewError(KindUnsupportedOperation, OpSave, "saving is not configured", nil)
	}
	current, ok := s.history.Current()
	if !ok {
		s.mu.Unlock()
		return SaveReceipt{}, NewError(KindNoImageLoaded, OpSave, "upload an image before saving", nil)
	}
	req := SaveRequest{
		SessionID:    s.id,
		ProjectID:    s.projectID,
		ProjectName:  s.projectName,
		Version:      current,
		VersionIndex: s.history.Cursor(),
		VersionCount: s.history.Len(),
		Background:   s.background,
		SavedAt:      time.Now().UTC(),
	}
	s.mu.Unlock()

	receipt, err := s.archive.Save(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		wrapped := NewError(KindTransportFailure, OpSave, "could not save the project", err)
		s.touchLocked(ErrorStatus(OpSave), wrapped)
		log.Warn().Err(err).Str("session", s.id).Msg("Save failed")
		return SaveReceipt{}, wrapped
	}
	s.touchLocked(SuccessStatus(OpSave), nil)
	log.Info().
		Str("session", s.id).
		Str("project", receipt.ProjectID).
		Str("location", receipt.Location).
		Msg("Project saved")
	return receipt, nil
}
