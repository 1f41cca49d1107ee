// Package store persists saved product photos. A saved version is written as
// an image object plus a project record that lists every save of the project.
//
// Two archives implement editor.Archive: S3Archive (image in S3, records in a
// single DynamoDB table) for the hosted service, and DirArchive (files in a
// local directory) for the desktop server and CLI.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/product-craft/internal/editor"
)

// ProjectStore reads and writes project records.
//
// Get methods return (nil, nil) when the record does not exist.
type ProjectStore interface {
	// PutProject creates or replaces the project metadata record.
	PutProject(ctx context.Context, project *Project) error

	// GetProject retrieves project metadata by ID.
	GetProject(ctx context.Context, projectID string) (*Project, error)

	// PutSave records one saved version of a project.
	PutSave(ctx context.Context, projectID string, save *SavedVersion) error

	// ListSaves returns every saved version of a project, oldest first.
	ListSaves(ctx context.Context, projectID string) ([]*SavedVersion, error)
}

// Project is the metadata record of a project (SK = META).
type Project struct {
	ID         string `json:"id" dynamodbav:"-"`
	Name       string `json:"name" dynamodbav:"name"`
	SessionID  string `json:"sessionId" dynamodbav:"sessionId"`
	Background string `json:"background" dynamodbav:"background"`
	LatestKey  string `json:"latestKey" dynamodbav:"latestKey"`
	SaveCount  int    `json:"saveCount" dynamodbav:"saveCount"`
	CreatedAt  int64  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt" dynamodbav:"updatedAt"`
}

// SavedVersion is one save of a project (SK = SAVE#{savedAt}).
type SavedVersion struct {
	ProjectID    string `json:"-" dynamodbav:"-"`
	Key          string `json:"key" dynamodbav:"key"`
	MIMEType     string `json:"mimeType" dynamodbav:"mimeType"`
	Bytes        int    `json:"bytes" dynamodbav:"bytes"`
	Width        int    `json:"width" dynamodbav:"width"`
	Height       int    `json:"height" dynamodbav:"height"`
	VersionIndex int    `json:"versionIndex" dynamodbav:"versionIndex"`
	VersionCount int    `json:"versionCount" dynamodbav:"versionCount"`
	Background   string `json:"background" dynamodbav:"background"`
	SavedAt      int64  `json:"savedAt" dynamodbav:"savedAt"`
}

// objectKey is the storage key of a saved image, relative to the archive root.
func objectKey(req editor.SaveRequest) string {
	return fmt.Sprintf("projects/%s/%s-v%d%s",
		req.ProjectID, req.SavedAt.UTC().Format("20060102T150405.000Z"), req.VersionIndex, req.Version.Extension())
}

// newSavedVersion builds the record for req stored under key.
func newSavedVersion(req editor.SaveRequest, key string) *SavedVersion {
	res := req.Version.Resolution()
	return &SavedVersion{
		ProjectID:    req.ProjectID,
		Key:          key,
		MIMEType:     req.Version.MIMEType(),
		Bytes:        req.Version.Size(),
		Width:        res.Width,
		Height:       res.Height,
		VersionIndex: req.VersionIndex,
		VersionCount: req.VersionCount,
		Background:   req.Background,
		SavedAt:      req.SavedAt.UnixMilli(),
	}
}

// recordSave updates (or creates) the project record and appends the save.
func recordSave(ctx context.Context, projects ProjectStore, req editor.SaveRequest, key string) error {
	project, err := projects.GetProject(ctx, req.ProjectID)
	if err != nil {
		return err
	}
	now := req.SavedAt.Unix()
	if project == nil {
		project = &Project{ID: req.ProjectID, CreatedAt: now}
	}
	project.Name = req.ProjectName
	project.SessionID = req.SessionID
	project.Background = req.Background
	project.LatestKey = key
	project.SaveCount++
	project.UpdatedAt = now

	if err := projects.PutSave(ctx, req.ProjectID, newSavedVersion(req, key)); err != nil {
		return err
	}
	return projects.PutProject(ctx, project)
}

func savedAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
