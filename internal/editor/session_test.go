package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func loadedSession(t *testing.T, backend Backend, opts ...SessionOption) (*Session, ImageVersion) {
	t.Helper()
	s := NewSession(backend, opts...)
	v, err := s.LoadImage(pngBytes(t, 4, 3, 1), "image/png")
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	return s, v
}

func TestSessionInitialState(t *testing.T) {
	s := NewSession(succeedWith(t, 1))

	if s.State() != StateNoImage {
		t.Errorf("State() = %v, want no-image", s.State())
	}
	if _, ok := s.CurrentImage(); ok {
		t.Error("CurrentImage() should be empty")
	}
	if _, err := s.Undo(); !errors.Is(err, ErrNoImageLoaded) {
		t.Errorf("Undo() error = %v, want NoImageLoaded", err)
	}
	snap := s.Snapshot()
	if snap.Cursor != -1 || snap.Background != DefaultBackground || snap.ID == "" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestSessionLoadImageRejectsInvalid(t *testing.T) {
	s := NewSession(succeedWith(t, 1))
	if _, err := s.LoadImage([]byte("junk"), "image/png"); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("LoadImage error = %v, want InvalidVersion", err)
	}
	if s.State() != StateNoImage {
		t.Errorf("State() = %v, want no-image", s.State())
	}
}

func TestSessionFilterSuccess(t *testing.T) {
	backend := succeedWith(t, 77)
	s, v0 := loadedSession(t, backend)

	if _, err := s.SelectTool(ToolFilter); err != nil {
		t.Fatalf("SelectTool: %v", err)
	}
	if s.State() != StateAwaitingEdit {
		t.Errorf("State() = %v, want awaiting-edit before an instruction", s.State())
	}
	if err := s.SetInstruction("sepia"); err != nil {
		t.Fatalf("SetInstruction: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}

	v1, err := s.SubmitEdit(context.Background())
	if err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}

	versions, cursor := s.History()
	if len(versions) != 2 || cursor != 1 {
		t.Fatalf("History() len=%d cursor=%d, want 2 and 1", len(versions), cursor)
	}
	if !versions[0].Equal(v0) || !versions[1].Equal(v1) {
		t.Error("history should be [V0, V1]")
	}
	if s.Status() != SuccessStatus(OpFilter) {
		t.Errorf("Status() = %q, want success:filter", s.Status())
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
	if backend.lastRequest(t).Instruction != "sepia" {
		t.Errorf("backend instruction = %q", backend.lastRequest(t).Instruction)
	}
}

func TestSessionUndoRedo(t *testing.T) {
	s, v0 := loadedSession(t, succeedWith(t, 50))
	s.SelectTool(ToolEnhance)
	v1, err := s.SubmitEdit(context.Background())
	if err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}

	got, err := s.Undo()
	if err != nil || !got.Equal(v0) {
		t.Fatalf("Undo() = %v, %v; want V0", got.Size(), err)
	}
	got, _ = s.Undo()
	if !got.Equal(v0) {
		t.Error("second Undo() should stay at V0")
	}
	got, _ = s.Redo()
	if !got.Equal(v1) {
		t.Error("Redo() should return V1")
	}
	snap := s.Snapshot()
	if !snap.CanUndo || snap.CanRedo {
		t.Errorf("CanUndo=%v CanRedo=%v, want true and false", snap.CanUndo, snap.CanRedo)
	}
}

func TestSessionEditAfterUndoDropsRedoBranch(t *testing.T) {
	s, v0 := loadedSession(t, succeedWith(t, 60))
	s.SelectTool(ToolEnhance)
	s.SubmitEdit(context.Background())
	s.Undo()

	if _, err := s.SubmitEdit(context.Background()); err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}
	versions, cursor := s.History()
	if len(versions) != 2 || cursor != 1 || !versions[0].Equal(v0) {
		t.Errorf("History() len=%d cursor=%d, want [V0, V2] at 1", len(versions), cursor)
	}
}

func TestSessionLocalizedEditNeedsHotspot(t *testing.T) {
	backend := succeedWith(t, 10)
	s, _ := loadedSession(t, backend)
	s.SelectTool(ToolLocalizedEdit)
	s.SetInstruction("remove the scratch")

	_, err := s.SubmitEdit(context.Background())
	if !errors.Is(err, ErrMissingHotspot) {
		t.Fatalf("SubmitEdit error = %v, want MissingHotspot", err)
	}
	if backend.calls.Load() != 0 {
		t.Errorf("backend calls = %d, want 0", backend.calls.Load())
	}
	if _, cursor := s.History(); cursor != 0 {
		t.Errorf("cursor = %d, want 0", cursor)
	}
	if s.Status() != ErrorStatus(OpLocalizedEdit) {
		t.Errorf("Status() = %q", s.Status())
	}
}

func TestSessionLocalizedEditWithClick(t *testing.T) {
	backend := succeedWith(t, 10)
	s, _ := loadedSession(t, backend)
	s.SelectTool(ToolLocalizedEdit)
	s.SetInstruction("remove the scratch")

	// 4x3 image shown at 400x300; natural size comes from the current version.
	h, ok, err := s.RegisterClick(Point{X: 260, Y: 120}, Size{Width: 400, Height: 300}, Resolution{})
	if err != nil || !ok {
		t.Fatalf("RegisterClick() = %v, %v, %v", h, ok, err)
	}
	if h != (Hotspot{X: 3, Y: 1}) {
		t.Errorf("hotspot = %v, want (3, 1)", h)
	}

	if _, err := s.SubmitEdit(context.Background()); err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}
	if got := backend.lastRequest(t).Hotspot; got == nil || *got != h {
		t.Errorf("backend hotspot = %v, want %v", got, h)
	}
	if s.Snapshot().Hotspot != nil {
		t.Error("hotspot should be cleared after an accepted edit")
	}
}

func TestSessionClickIgnoredForNonPointTool(t *testing.T) {
	s, _ := loadedSession(t, succeedWith(t, 1))
	s.SelectTool(ToolFilter)

	_, ok, err := s.RegisterClick(Point{X: 1, Y: 1}, Size{Width: 4, Height: 3}, Resolution{})
	if ok || err != nil {
		t.Errorf("RegisterClick() ok=%v err=%v, want ignored", ok, err)
	}
	if s.Snapshot().Hotspot != nil {
		t.Error("hotspot should stay unset")
	}
}

func TestSessionToolSwitchClearsHotspot(t *testing.T) {
	s, _ := loadedSession(t, succeedWith(t, 1))
	s.SelectTool(ToolLocalizedEdit)
	if _, _, err := s.RegisterClick(Point{X: 1, Y: 1}, Size{Width: 4, Height: 3}, Resolution{}); err != nil {
		t.Fatalf("RegisterClick: %v", err)
	}

	s.SelectTool(ToolFilter)
	s.SelectTool(ToolLocalizedEdit)
	if s.Snapshot().Hotspot != nil {
		t.Error("hotspot survived a tool switch")
	}
}

func TestSessionSelectUnknownTool(t *testing.T) {
	s, _ := loadedSession(t, succeedWith(t, 1))
	s.SelectTool(ToolCrop)

	if _, err := s.SelectTool("lasso"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("SelectTool error = %v, want UnknownTool", err)
	}
	if snap := s.Snapshot(); snap.Tool == nil || snap.Tool.ID != ToolCrop {
		t.Error("unknown tool changed the selection")
	}
}

func TestSessionLocalToolIsUnsupported(t *testing.T) {
	backend := succeedWith(t, 1)
	s, _ := loadedSession(t, backend)
	s.SelectTool(ToolMove)

	if _, err := s.SubmitEdit(context.Background()); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("SubmitEdit error = %v, want UnsupportedOperation", err)
	}
	if backend.calls.Load() != 0 {
		t.Error("local tool reached the backend")
	}
}

func TestSessionRemoveBackgroundRefused(t *testing.T) {
	backend := &fakeBackend{err: NewError(KindRefused, "", "blocked: SAFETY", nil)}
	s, v0 := loadedSession(t, backend)
	s.SelectTool(ToolRemoveBackground)

	_, err := s.SubmitEdit(context.Background())
	if !errors.Is(err, ErrRefused) {
		t.Fatalf("SubmitEdit error = %v, want Refused", err)
	}

	versions, cursor := s.History()
	if len(versions) != 1 || cursor != 0 || !versions[0].Equal(v0) {
		t.Error("history changed after a refused edit")
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
	if s.Status() != ErrorStatus(OpRemoveBackground) {
		t.Errorf("Status() = %q, want error:remove-background", s.Status())
	}
	if !errors.Is(s.LastError(), ErrRefused) {
		t.Errorf("LastError() = %v", s.LastError())
	}
}

func TestSessionBusyRejectsIntents(t *testing.T) {
	backend := succeedWith(t, 3)
	backend.started = make(chan struct{}, 1)
	backend.release = make(chan struct{})
	s, _ := loadedSession(t, backend)
	s.SelectTool(ToolEnhance)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.SubmitEdit(context.Background())
	}()
	<-backend.started

	if s.State() != StateProcessing {
		t.Errorf("State() = %v, want processing", s.State())
	}
	if _, err := s.SubmitEdit(context.Background()); !errors.Is(err, ErrOrchestratorBusy) {
		t.Errorf("SubmitEdit error = %v, want OrchestratorBusy", err)
	}
	if _, err := s.Undo(); !errors.Is(err, ErrOrchestratorBusy) {
		t.Errorf("Undo error = %v, want OrchestratorBusy", err)
	}
	if _, err := s.SelectTool(ToolFilter); !errors.Is(err, ErrOrchestratorBusy) {
		t.Errorf("SelectTool error = %v, want OrchestratorBusy", err)
	}
	if _, err := s.LoadImage(pngBytes(t, 2, 2, 0), "image/png"); !errors.Is(err, ErrOrchestratorBusy) {
		t.Errorf("LoadImage error = %v, want OrchestratorBusy", err)
	}

	close(backend.release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first SubmitEdit: %v", firstErr)
	}
	if backend.calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls.Load())
	}
	if s.State() != StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
}

func TestSessionSelectBackground(t *testing.T) {
	s, _ := loadedSession(t, succeedWith(t, 1))

	s.SelectTool(ToolFilter)
	if _, ok, err := s.SelectBackground("luxury-black"); ok || err != nil {
		t.Errorf("SelectBackground under filter = ok %v err %v, want ignored", ok, err)
	}

	s.SelectTool(ToolBackground)
	bg, ok, err := s.SelectBackground("luxury-black")
	if err != nil || !ok || bg.Name != "Luxury Black" {
		t.Fatalf("SelectBackground() = %+v, %v, %v", bg, ok, err)
	}
	if s.Snapshot().Background != "luxury-black" {
		t.Error("background not recorded")
	}

	if _, _, err := s.SelectBackground("neon"); !errors.Is(err, ErrUnknownBackground) {
		t.Errorf("SelectBackground error = %v, want UnknownBackground", err)
	}
}

type recordingArchive struct {
	got []SaveRequest
	err error
}

func (a *recordingArchive) Save(_ context.Context, req SaveRequest) (SaveReceipt, error) {
	a.got = append(a.got, req)
	if a.err != nil {
		return SaveReceipt{}, a.err
	}
	return SaveReceipt{ProjectID: req.ProjectID, Location: "mem://" + req.ProjectID, SavedAt: req.SavedAt}, nil
}

func TestSessionSave(t *testing.T) {
	archive := &recordingArchive{}
	s, v0 := loadedSession(t, succeedWith(t, 1), WithArchive(archive), WithProjectName("Ceramic mug"))

	receipt, err := s.Save(context.Background())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(archive.got) != 1 {
		t.Fatalf("archive calls = %d, want 1", len(archive.got))
	}
	req := archive.got[0]
	if req.ProjectName != "Ceramic mug" || !req.Version.Equal(v0) || req.VersionCount != 1 || req.VersionIndex != 0 {
		t.Errorf("unexpected save request %+v", req)
	}
	if receipt.ProjectID != s.Snapshot().ProjectID {
		t.Errorf("receipt project = %q", receipt.ProjectID)
	}
	if s.Status() != SuccessStatus(OpSave) {
		t.Errorf("Status() = %q", s.Status())
	}
}

func TestSessionSaveFailures(t *testing.T) {
	if _, err := NewSession(succeedWith(t, 1)).Save(context.Background()); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("Save without archive = %v, want UnsupportedOperation", err)
	}

	empty := NewSession(succeedWith(t, 1), WithArchive(&recordingArchive{}))
	if _, err := empty.Save(context.Background()); !errors.Is(err, ErrNoImageLoaded) {
		t.Errorf("Save without image = %v, want NoImageLoaded", err)
	}

	s, _ := loadedSession(t, succeedWith(t, 1), WithArchive(&recordingArchive{err: errors.New("bucket missing")}))
	if _, err := s.Save(context.Background()); !errors.Is(err, ErrTransportFailure) {
		t.Errorf("Save with failing archive = %v, want TransportFailure", err)
	}
	if s.Status() != ErrorStatus(OpSave) {
		t.Errorf("Status() = %q", s.Status())
	}
}
