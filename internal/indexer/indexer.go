package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/symindex/internal/index"
	"github.com/dshills/symindex/internal/logging"
	"github.com/dshills/symindex/internal/scanner"
	"github.com/dshills/symindex/pkg/types"
)

const logTopic = "indexer"

var (
	// ErrStopped is returned by calls made after Run has returned
	ErrStopped = errors.New("coordinator stopped")
	// ErrAlreadyRunning is returned by a second call to Run
	ErrAlreadyRunning = errors.New("coordinator already running")
	// ErrNotOpen is returned by queries about a project that is not open
	ErrNotOpen = errors.New("project not open")
)

// State is the scan state of an open project
type State int

const (
	Idle State = iota
	Scanning
	Queued
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Queued:
		return "queued"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Scanner produces a new snapshot for a project
type Scanner interface {
	Scan(ctx context.Context, req scanner.Request) (*scanner.Result, error)
}

// EventType identifies a coordinator event
type EventType int

const (
	ScanStarted EventType = iota
	ScanPublished
	ScanDiscarded
)

func (e EventType) String() string {
	switch e {
	case ScanStarted:
		return "scan_started"
	case ScanPublished:
		return "scan_published"
	case ScanDiscarded:
		return "scan_discarded"
	default:
		return fmt.Sprintf("EventType(%d)", int(e))
	}
}

// Event is delivered to the observer on the foreground loop
type Event struct {
	Type    EventType
	Root    string
	Session string
	State   State // state after the event; meaningless for a closed project
	Stats   scanner.Statistics
	Err     error
}

// Status summarizes an open project
type Status struct {
	Project      types.Project
	Session      string
	State        State
	Files        int
	Items        int
	Declarations int // distinct declared names
	Definitions  int // distinct defined names
	Fingerprint  uint64
	Scans        int
	LastScan     time.Time
	LastStats    scanner.Statistics
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the log sink
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers fn to receive every Event. fn runs on the
// foreground loop and must not call back into the Coordinator.
func WithObserver(fn func(Event)) Option {
	return func(c *Coordinator) {
		c.observer = fn
	}
}

// project is the coordinator's view of one open project
type project struct {
	desc      types.Project
	state     State
	session   string
	scans     int
	lastScan  time.Time
	lastStats scanner.Statistics
}

// completion is what a background scan hands back to the foreground
type completion struct {
	root    string
	session string
	result  *scanner.Result
	decls   types.NameIndex
	defs    types.NameIndex
	err     error
}

// Coordinator owns the scan state of every open project
type Coordinator struct {
	scanner  Scanner
	store    *index.Store
	logger   *logging.Logger
	observer func(Event)

	// foreground-owned
	projects map[string]*project
	scanCtx  context.Context

	requests chan func()
	results  chan completion
	stopped  chan struct{}
	running  runLock
	scans    sync.WaitGroup
}

// New creates a Coordinator. Nothing happens until Run is called.
func New(sc Scanner, store *index.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		scanner:  sc,
		store:    store,
		logger:   logging.Discard(),
		projects: make(map[string]*project),
		requests: make(chan func()),
		results:  make(chan completion),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is the foreground loop. It returns when ctx is done, after
// cancelling and waiting for every scan still in flight. Run may only be
// called once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.TryAcquire() {
		return ErrAlreadyRunning
	}

	scanCtx, cancel := context.WithCancel(ctx)
	c.scanCtx = scanCtx
	defer func() {
		cancel()
		c.scans.Wait()
		close(c.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debugf(logTopic, "Stopping with %d open projects", len(c.projects))
			return ctx.Err()
		case fn := <-c.requests:
			fn()
		case res := <-c.results:
			c.complete(res)
		}
	}
}

// do runs fn on the foreground loop and waits for it
func (c *Coordinator) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case c.requests <- func() { fn(); close(done) }:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Opened starts tracking p and launches its first scan. Opening a project
// that is already open behaves like Changed, adopting p's extra directories.
func (c *Coordinator) Opened(ctx context.Context, p types.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Root = filepath.Clean(p.Root)

	return c.do(ctx, func() {
		if existing, ok := c.projects[p.Root]; ok {
			existing.desc = p
			c.changed(existing)
			return
		}

		proj := &project{desc: p, state: Idle, session: uuid.NewString()}
		c.projects[p.Root] = proj
		c.store.Open(p.Root)
		c.logger.Logf(logTopic, "Opened %s (session %s)", p.Root, proj.session)
		c.startScan(proj)
	})
}

// Closing drops root and its index. A scan in flight for it keeps running
// and its result is discarded.
func (c *Coordinator) Closing(ctx context.Context, root string) error {
	root = filepath.Clean(root)
	return c.do(ctx, func() {
		proj, ok := c.projects[root]
		if !ok {
			c.logger.Warnf(logTopic, "Ignoring close of %s: not open", root)
			return
		}
		delete(c.projects, root)
		c.store.Close(root)
		c.logger.Logf(logTopic, "Closed %s (was %s)", root, proj.state)
	})
}

// Changed signals that something under root may have changed
func (c *Coordinator) Changed(ctx context.Context, root string) error {
	root = filepath.Clean(root)
	return c.do(ctx, func() {
		proj, ok := c.projects[root]
		if !ok {
			c.logger.Warnf(logTopic, "Ignoring change in %s: not open", root)
			return
		}
		c.changed(proj)
	})
}

func (c *Coordinator) changed(proj *project) {
	switch proj.state {
	case Idle:
		c.startScan(proj)
	case Scanning:
		proj.state = Queued
		c.logger.Debugf(logTopic, "Queued rescan of %s", proj.desc.Root)
	case Queued:
		// already coalesced into the pending rescan
	}
}

// startScan moves proj to Scanning and launches a scan against the
// currently published snapshot.
func (c *Coordinator) startScan(proj *project) {
	proj.state = Scanning
	proj.scans++

	root, session := proj.desc.Root, proj.session
	req := scanner.Request{Project: proj.desc, Prior: c.store.Snapshot(root)}
	ctx := c.scanCtx

	c.scans.Add(1)
	go func() {
		defer c.scans.Done()

		res := completion{root: root, session: session}
		res.result, res.err = c.scanner.Scan(ctx, req)
		if res.err == nil {
			res.decls, res.defs = index.Build(res.result.Snapshot)
		}

		select {
		case c.results <- res:
		case <-ctx.Done():
		}
	}()

	c.emit(Event{Type: ScanStarted, Root: root, Session: session, State: proj.state})
}

// complete applies a finished scan on the foreground
func (c *Coordinator) complete(res completion) {
	proj, ok := c.projects[res.root]
	if !ok || proj.session != res.session {
		c.logger.Debugf(logTopic, "Discarding scan of %s: project closed", res.root)
		c.emit(Event{Type: ScanDiscarded, Root: res.root, Session: res.session, Err: res.err})
		return
	}

	if proj.state == Idle {
		panic(fmt.Sprintf("invariant violation: scan of %s completed while idle", res.root))
	}

	if res.err != nil {
		c.logger.Warnf(logTopic, "Scan of %s failed: %v", res.root, res.err)
		c.emit(Event{Type: ScanDiscarded, Root: res.root, Session: res.session, Err: res.err})
	} else {
		c.store.Publish(res.root, res.result.Snapshot, res.decls, res.defs)
		proj.lastScan = time.Now()
		proj.lastStats = res.result.Stats
		c.logger.Logf(logTopic, "Indexed %s: %d files (%d parsed, %d reused, %d failed), %d items in %v",
			res.root, res.result.Stats.FilesSeen, res.result.Stats.FilesParsed, res.result.Stats.FilesReused,
			res.result.Stats.FilesFailed, res.result.Stats.ItemsFound, res.result.Stats.Duration)
	}

	requeue := proj.state == Queued
	proj.state = Idle
	if res.err == nil {
		c.emit(Event{Type: ScanPublished, Root: res.root, Session: res.session, State: proj.state, Stats: res.result.Stats})
	}
	if requeue {
		c.startScan(proj)
	}
}

func (c *Coordinator) emit(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}

// Declarations returns the declaration occurrences of name in root.
// An unknown project or name yields an empty result.
func (c *Coordinator) Declarations(ctx context.Context, root, name string) ([]types.Occurrence, error) {
	var occs []types.Occurrence
	err := c.do(ctx, func() {
		occs = slices.Clone(c.store.Declarations(filepath.Clean(root), name))
	})
	return occs, err
}

// Definitions returns the definition occurrences of name in root.
// An unknown project or name yields an empty result.
func (c *Coordinator) Definitions(ctx context.Context, root, name string) ([]types.Occurrence, error) {
	var occs []types.Occurrence
	err := c.do(ctx, func() {
		occs = slices.Clone(c.store.Definitions(filepath.Clean(root), name))
	})
	return occs, err
}

// State returns the scan state of root and whether it is open
func (c *Coordinator) State(ctx context.Context, root string) (State, bool, error) {
	var (
		state State
		open  bool
	)
	err := c.do(ctx, func() {
		if proj, ok := c.projects[filepath.Clean(root)]; ok {
			state, open = proj.state, true
		}
	})
	return state, open, err
}

// Status summarizes root
func (c *Coordinator) Status(ctx context.Context, root string) (*Status, error) {
	var status *Status
	err := c.do(ctx, func() {
		root := filepath.Clean(root)
		proj, ok := c.projects[root]
		if !ok {
			return
		}
		snap := c.store.Snapshot(root)
		decls, defs, _ := c.store.Indexes(root)
		status = &Status{
			Project:      proj.desc,
			Session:      proj.session,
			State:        proj.state,
			Files:        snap.Len(),
			Items:        snap.ItemCount(),
			Declarations: len(decls),
			Definitions:  len(defs),
			Fingerprint:  snap.Fingerprint(),
			Scans:        proj.scans,
			LastScan:     proj.lastScan,
			LastStats:    proj.lastStats,
		}
	})
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, ErrNotOpen
	}
	return status, nil
}

// Dump logs the current indexes of root and returns the logged lines
func (c *Coordinator) Dump(ctx context.Context, root string) ([]string, error) {
	var (
		lines []string
		open  bool
	)
	err := c.do(ctx, func() {
		decls, defs, ok := c.store.Indexes(filepath.Clean(root))
		if !ok {
			return
		}
		open = true
		lines = append(index.DumpLines("Declarations", decls), index.DumpLines("Definitions", defs)...)
	})
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrNotOpen
	}

	for _, line := range lines {
		c.logger.Logf(logTopic, "%s", line)
	}
	return lines, nil
}

// Projects returns every open project sorted by root
func (c *Coordinator) Projects(ctx context.Context) ([]types.Project, error) {
	var out []types.Project
	err := c.do(ctx, func() {
		for _, proj := range c.projects {
			out = append(out, proj.desc)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out, err
}
