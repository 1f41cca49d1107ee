package editor

// VersionHistory is a linear undo/redo history of image versions.
//
// The cursor always points at a valid index, or the history is empty.
// VersionHistory is not safe for concurrent use; the Session serializes access.
type VersionHistory struct {
	versions []ImageVersion
	cursor   int
}

// Reset discards all history and seeds it with initial.
func (h *VersionHistory) Reset(initial ImageVersion) error {
	if initial.IsZero() {
		return NewError(KindInvalidVersion, "", "cannot reset history with an empty version", nil)
	}
	h.versions = []ImageVersion{initial}
	h.cursor = 0
	return nil
}

// Push discards every version after the cursor, appends v and moves the cursor to it.
func (h *VersionHistory) Push(v ImageVersion) error {
	if v.IsZero() {
		return NewError(KindInvalidVersion, "", "cannot push an empty version", nil)
	}
	if len(h.versions) == 0 {
		return h.Reset(v)
	}
	// Clip capacity so a later append never writes into the abandoned redo branch.
	h.versions = append(h.versions[:h.cursor+1:h.cursor+1], v)
	h.cursor = len(h.versions) - 1
	return nil
}

// Current returns the version at the cursor. ok is false when the history is empty.
func (h *VersionHistory) Current() (ImageVersion, bool) {
	if len(h.versions) == 0 {
		return ImageVersion{}, false
	}
	return h.versions[h.cursor], true
}

// Undo moves the cursor back one step. At the oldest version it is a no-op.
func (h *VersionHistory) Undo() (ImageVersion, bool) {
	if h.CanUndo() {
		h.cursor--
	}
	return h.Current()
}

// Redo moves the cursor forward one step. At the newest version it is a no-op.
func (h *VersionHistory) Redo() (ImageVersion, bool) {
	if h.CanRedo() {
		h.cursor++
	}
	return h.Current()
}

// CanUndo reports whether Undo would move the cursor.
func (h *VersionHistory) CanUndo() bool {
	return len(h.versions) > 0 && h.cursor > 0
}

// CanRedo reports whether Redo would move the cursor.
func (h *VersionHistory) CanRedo() bool {
	return len(h.versions) > 0 && h.cursor < len(h.versions)-1
}

// Len returns the number of versions.
func (h *VersionHistory) Len() int {
	return len(h.versions)
}

// Cursor returns the current index, or -1 when the history is empty.
func (h *VersionHistory) Cursor() int {
	if len(h.versions) == 0 {
		return -1
	}
	return h.cursor
}

// Versions returns the versions in order. The slice is a copy; the versions
// themselves are immutable.
func (h *VersionHistory) Versions() []ImageVersion {
	out := make([]ImageVersion, len(h.versions))
	copy(out, h.versions)
	return out
}
