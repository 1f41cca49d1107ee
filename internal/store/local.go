package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/editor"
)

// DirArchive stores saved images and project records under a local directory:
//
//	<root>/projects/<projectId>/<timestamp>-v<index>.<ext>
//	<root>/projects/<projectId>/project.json
type DirArchive struct {
	root string
	mu   sync.Mutex
}

var (
	_ editor.Archive = (*DirArchive)(nil)
	_ ProjectStore   = (*DirArchive)(nil)
)

// NewDirArchive creates an archive rooted at dir, creating it if needed.
func NewDirArchive(dir string) (*DirArchive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &DirArchive{root: dir}, nil
}

// Root returns the archive directory.
func (a *DirArchive) Root() string {
	return a.root
}

// projectFile is the on-disk form of one project.
type projectFile struct {
	Project *Project        `json:"project"`
	Saves   []*SavedVersion `json:"saves"`
}

// Save writes the version to disk and records it in project.json.
func (a *DirArchive) Save(ctx context.Context, req editor.SaveRequest) (editor.SaveReceipt, error) {
	if err := ctx.Err(); err != nil {
		return editor.SaveReceipt{}, err
	}
	req.SavedAt = savedAtOrNow(req.SavedAt)
	key := objectKey(req)
	path := filepath.Join(a.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return editor.SaveReceipt{}, fmt.Errorf("create project dir: %w", err)
	}
	if err := os.WriteFile(path, req.Version.Bytes(), 0o644); err != nil {
		return editor.SaveReceipt{}, fmt.Errorf("write %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("bytes", req.Version.Size()).Msg("Saved image written")

	if err := recordSave(ctx, a, req, key); err != nil {
		return editor.SaveReceipt{}, fmt.Errorf("record save: %w", err)
	}
	return editor.SaveReceipt{
		ProjectID: req.ProjectID,
		Location:  path,
		SavedAt:   req.SavedAt,
	}, nil
}

func (a *DirArchive) projectPath(projectID string) string {
	return filepath.Join(a.root, "projects", projectID, "project.json")
}

func (a *DirArchive) readProjectFile(projectID string) (*projectFile, error) {
	data, err := os.ReadFile(a.projectPath(projectID))
	if errors.Is(err, fs.ErrNotExist) {
		return &projectFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project %s: %w", projectID, err)
	}
	var pf projectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", projectID, err)
	}
	return &pf, nil
}

func (a *DirArchive) writeProjectFile(projectID string, pf *projectFile) error {
	path := a.projectPath(projectID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project %s: %w", projectID, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project %s: %w", projectID, err)
	}
	return os.Rename(tmp, path)
}

func (a *DirArchive) PutProject(_ context.Context, project *Project) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	pf, err := a.readProjectFile(project.ID)
	if err != nil {
		return err
	}
	stored := *project
	pf.Project = &stored
	return a.writeProjectFile(project.ID, pf)
}

func (a *DirArchive) GetProject(_ context.Context, projectID string) (*Project, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pf, err := a.readProjectFile(projectID)
	if err != nil || pf.Project == nil {
		return nil, err
	}
	pf.Project.ID = projectID
	return pf.Project, nil
}

func (a *DirArchive) PutSave(_ context.Context, projectID string, save *SavedVersion) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	pf, err := a.readProjectFile(projectID)
	if err != nil {
		return err
	}
	stored := *save
	pf.Saves = append(pf.Saves, &stored)
	return a.writeProjectFile(projectID, pf)
}

func (a *DirArchive) ListSaves(_ context.Context, projectID string) ([]*SavedVersion, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pf, err := a.readProjectFile(projectID)
	if err != nil {
		return nil, err
	}
	for _, s := range pf.Saves {
		s.ProjectID = projectID
	}
	sort.SliceStable(pf.Saves, func(i, j int) bool { return pf.Saves[i].SavedAt < pf.Saves[j].SavedAt })
	return pf.Saves, nil
}
