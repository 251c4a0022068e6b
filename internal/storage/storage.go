package storage

import (
	"context"
	"time"

	"github.com/dshills/symindex/pkg/types"
)

// Storage persists the descriptions of projects the server has opened,
// so they can be reopened on the next start. Indexes are never stored.
type Storage interface {
	// SaveProject inserts or replaces the description keyed by RootPath
	SaveProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	// SetAutoOpen toggles whether the project is reopened on start
	SetAutoOpen(ctx context.Context, rootPath string, autoOpen bool) error
	DeleteProject(ctx context.Context, rootPath string) error

	Close() error
}

// Project is a stored project description
type Project struct {
	ID           int64
	RootPath     string
	ExtraDirs    []string // In configured order
	AutoOpen     bool
	LastOpenedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToTypesProject converts a stored Project to types.Project
func (p *Project) ToTypesProject() types.Project {
	extra := make([]string, len(p.ExtraDirs))
	copy(extra, p.ExtraDirs)
	return types.Project{Root: p.RootPath, ExtraDirs: extra}
}

// FromTypesProject converts types.Project to a stored Project that is
// reopened on start
func FromTypesProject(p types.Project) *Project {
	extra := make([]string, len(p.ExtraDirs))
	copy(extra, p.ExtraDirs)
	return &Project{RootPath: p.Root, ExtraDirs: extra, AutoOpen: true}
}
