// Package storage provides SQLite-based persistence for project descriptions.
//
// The index itself always lives in memory and is rebuilt by scanning. What
// is stored is the list of projects the server has opened, with their extra
// directories, so they can be reopened when the server starts again.
//
// # Database Schema
//
// Tables:
//   - projects: Root path, auto-open flag, last open time
//   - extra_dirs: Extra directories per project, in configured order
//   - schema_version: Applied migrations
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.symindex/projects.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.SaveProject(ctx, storage.FromTypesProject(types.Project{
//	    Root:      "/path/to/project",
//	    ExtraDirs: []string{"../shared"},
//	}))
//
//	projects, err := db.ListProjects(ctx)
//
// # Build Modes
//
// The driver is selected at compile time:
//
//	go build ./...                                 # modernc.org/sqlite, pure Go
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./...  # github.com/mattn/go-sqlite3
//
// DriverName and BuildMode report which one was compiled in.
//
// # Migrations
//
// Schema versions are semantic versions. ApplyMigrations runs every
// migration newer than the highest recorded version; RollbackMigration
// undoes the latest one.
package storage
