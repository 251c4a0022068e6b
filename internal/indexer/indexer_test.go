package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/symindex/internal/index"
	"github.com/dshills/symindex/internal/parser"
	"github.com/dshills/symindex/internal/scanner"
	"github.com/dshills/symindex/pkg/types"
)

const waitTimeout = 5 * time.Second

// pendingScan is a scan held by gatedScanner until the test completes it
type pendingScan struct {
	req  scanner.Request
	done chan *scanner.Result
}

func (p *pendingScan) finish(files ...types.FileSnapshot) {
	snap := types.NewProjectSnapshot(files)
	p.done <- &scanner.Result{Snapshot: snap, Stats: scanner.Statistics{FilesSeen: snap.Len(), ItemsFound: snap.ItemCount()}}
}

// gatedScanner blocks every scan until the test releases it
type gatedScanner struct {
	started chan *pendingScan
}

func newGatedScanner() *gatedScanner {
	return &gatedScanner{started: make(chan *pendingScan, 16)}
}

func (g *gatedScanner) Scan(ctx context.Context, req scanner.Request) (*scanner.Result, error) {
	p := &pendingScan{req: req, done: make(chan *scanner.Result, 1)}
	g.started <- p
	select {
	case res := <-p.done:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedScanner) next(t *testing.T) *pendingScan {
	t.Helper()
	select {
	case p := <-g.started:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a scan to start")
		return nil
	}
}

func (g *gatedScanner) assertNoScan(t *testing.T) {
	t.Helper()
	select {
	case p := <-g.started:
		t.Fatalf("unexpected scan of %s", p.req.Project.Root)
	case <-time.After(50 * time.Millisecond):
	}
}

// harness runs a Coordinator and records its events
type harness struct {
	c      *Coordinator
	events chan Event
	cancel context.CancelFunc
	done   chan error
}

func startCoordinator(t *testing.T, sc Scanner) *harness {
	t.Helper()

	h := &harness{events: make(chan Event, 64), done: make(chan error, 1)}
	h.c = New(sc, index.NewStore(), WithObserver(func(ev Event) { h.events <- ev }))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.c.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) waitFor(t *testing.T, typ EventType) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev := <-h.events:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
			return Event{}
		}
	}
}

func (h *harness) state(t *testing.T, root string) State {
	t.Helper()
	state, open, err := h.c.State(context.Background(), root)
	require.NoError(t, err)
	require.True(t, open, "%s should be open", root)
	return state
}

func fileWith(path string, items ...types.Item) types.FileSnapshot {
	return types.FileSnapshot{Path: path, ModTime: time.Unix(1700000000, 0), Items: items}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "scanning", Scanning.String())
	assert.Equal(t, "queued", Queued.String())
	assert.Equal(t, "scan_published", ScanPublished.String())
}

func TestOpened_ScansAndPublishes(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))

	p := sc.next(t)
	assert.Equal(t, "/p", p.req.Project.Root)
	assert.Equal(t, 0, p.req.Prior.Len(), "first scan starts from an empty snapshot")
	assert.Equal(t, Scanning, h.state(t, "/p"))

	p.finish(
		fileWith("/p/a.src", types.Item{Kind: types.Declaration, Name: "Foo", Location: 10}),
		fileWith("/p/b.src",
			types.Item{Kind: types.Definition, Name: "Foo", Location: 5},
			types.Item{Kind: types.Definition, Name: "Bar", Location: 40}),
	)
	h.waitFor(t, ScanPublished)

	assert.Equal(t, Idle, h.state(t, "/p"))

	decls, err := h.c.Declarations(ctx, "/p", "Foo")
	require.NoError(t, err)
	assert.Equal(t, []types.Occurrence{{Path: "/p/a.src", Location: 10}}, decls)

	defs, err := h.c.Definitions(ctx, "/p", "Foo")
	require.NoError(t, err)
	assert.Equal(t, []types.Occurrence{{Path: "/p/b.src", Location: 5}}, defs)

	defs, err = h.c.Definitions(ctx, "/p", "Bar")
	require.NoError(t, err)
	assert.Equal(t, []types.Occurrence{{Path: "/p/b.src", Location: 40}}, defs)

	decls, err = h.c.Declarations(ctx, "/p", "Bar")
	require.NoError(t, err)
	assert.Empty(t, decls)
}

func TestChanged_WhileIdleStartsScanWithPriorSnapshot(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))
	sc.next(t).finish(fileWith("/p/a.src"))
	h.waitFor(t, ScanPublished)

	require.NoError(t, h.c.Changed(ctx, "/p"))
	p := sc.next(t)

	_, ok := p.req.Prior.Lookup("/p/a.src")
	assert.True(t, ok, "rescan must receive the published snapshot")
	assert.Equal(t, Scanning, h.state(t, "/p"))
}

func TestChanged_CoalescesDuringScan(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))
	first := sc.next(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.c.Changed(ctx, "/p"))
	}
	assert.Equal(t, Queued, h.state(t, "/p"))
	sc.assertNoScan(t)

	first.finish(fileWith("/p/a.src", types.Item{Kind: types.Definition, Name: "Old", Location: 1}))
	h.waitFor(t, ScanPublished)

	// exactly one follow-up scan, started from the just-published snapshot
	second := sc.next(t)
	_, ok := second.req.Prior.Lookup("/p/a.src")
	assert.True(t, ok)
	assert.Equal(t, Scanning, h.state(t, "/p"))

	defs, err := h.c.Definitions(ctx, "/p", "Old")
	require.NoError(t, err)
	assert.Len(t, defs, 1, "first result is published before the rescan")

	second.finish(fileWith("/p/a.src", types.Item{Kind: types.Definition, Name: "New", Location: 1}))
	h.waitFor(t, ScanPublished)

	assert.Equal(t, Idle, h.state(t, "/p"))
	sc.assertNoScan(t)

	defs, err = h.c.Definitions(ctx, "/p", "New")
	require.NoError(t, err)
	assert.Len(t, defs, 1)
	defs, err = h.c.Definitions(ctx, "/p", "Old")
	require.NoError(t, err)
	assert.Empty(t, defs)

	status, err := h.c.Status(ctx, "/p")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Scans)
}

func TestClosing_DuringScanDiscardsResult(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))
	p := sc.next(t)

	require.NoError(t, h.c.Closing(ctx, "/p"))
	_, open, err := h.c.State(ctx, "/p")
	require.NoError(t, err)
	assert.False(t, open)

	p.finish(fileWith("/p/a.src", types.Item{Kind: types.Definition, Name: "Foo", Location: 1}))
	h.waitFor(t, ScanDiscarded)

	defs, err := h.c.Definitions(ctx, "/p", "Foo")
	require.NoError(t, err)
	assert.Empty(t, defs)

	projects, err := h.c.Projects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestReopen_StaleScanIsNotPublished(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))
	stale := sc.next(t)
	require.NoError(t, h.c.Closing(ctx, "/p"))
	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))
	fresh := sc.next(t)

	stale.finish(fileWith("/p/a.src", types.Item{Kind: types.Definition, Name: "Stale", Location: 1}))
	h.waitFor(t, ScanDiscarded)
	assert.Equal(t, Scanning, h.state(t, "/p"), "the reopened project keeps scanning")

	fresh.finish(fileWith("/p/a.src", types.Item{Kind: types.Definition, Name: "Fresh", Location: 1}))
	h.waitFor(t, ScanPublished)
	assert.Equal(t, Idle, h.state(t, "/p"))

	defs, err := h.c.Definitions(ctx, "/p", "Stale")
	require.NoError(t, err)
	assert.Empty(t, defs)
	defs, err = h.c.Definitions(ctx, "/p", "Fresh")
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestOpened_AlreadyOpenActsAsChanged(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))
	first := sc.next(t)
	session := h.waitFor(t, ScanStarted).Session

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p/", ExtraDirs: []string{"/shared"}}))
	assert.Equal(t, Queued, h.state(t, "/p"))

	first.finish()
	h.waitFor(t, ScanPublished)
	second := sc.next(t)
	assert.Equal(t, []string{"/shared"}, second.req.Project.ExtraDirs)

	status, err := h.c.Status(ctx, "/p")
	require.NoError(t, err)
	assert.Equal(t, session, status.Session)
}

func TestUnknownProjectNotificationsIgnored(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	assert.NoError(t, h.c.Changed(ctx, "/nowhere"))
	assert.NoError(t, h.c.Closing(ctx, "/nowhere"))
	sc.assertNoScan(t)

	_, open, err := h.c.State(ctx, "/nowhere")
	require.NoError(t, err)
	assert.False(t, open)

	_, err = h.c.Status(ctx, "/nowhere")
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = h.c.Dump(ctx, "/nowhere")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestOpened_RequiresRoot(t *testing.T) {
	h := startCoordinator(t, newGatedScanner())

	err := h.c.Opened(context.Background(), types.Project{})
	assert.ErrorIs(t, err, types.ErrRootRequired)
}

func TestDump(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/p"}))
	lines, err := h.c.Dump(ctx, "/p")
	require.NoError(t, err)
	assert.Empty(t, lines, "nothing published yet")

	sc.next(t).finish(
		fileWith("/p/a.src", types.Item{Kind: types.Declaration, Name: "Foo", Location: 10}),
		fileWith("/p/b.src", types.Item{Kind: types.Definition, Name: "Foo", Location: 5}),
	)
	h.waitFor(t, ScanPublished)

	lines, err = h.c.Dump(ctx, "/p")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Declarations:",
		"   Foo  a.src:10",
		"Definitions:",
		"   Foo  b.src:5",
	}, lines)
}

func TestProjects_SortedByRoot(t *testing.T) {
	sc := newGatedScanner()
	h := startCoordinator(t, sc)
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/b"}))
	require.NoError(t, h.c.Opened(ctx, types.Project{Root: "/a"}))

	projects, err := h.c.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "/a", projects[0].Root)
	assert.Equal(t, "/b", projects[1].Root)
}

func TestRun_ShutdownCancelsScans(t *testing.T) {
	sc := newGatedScanner()
	c := New(sc, index.NewStore())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.NoError(t, c.Opened(context.Background(), types.Project{Root: "/p"}))
	sc.next(t)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return after cancel")
	}

	assert.ErrorIs(t, c.Changed(context.Background(), "/p"), ErrStopped)
	assert.ErrorIs(t, c.Run(context.Background()), ErrAlreadyRunning)
}

func TestCall_BeforeRunHonorsContext(t *testing.T) {
	c := New(newGatedScanner(), index.NewStore())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Projects(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestComplete_WhileIdlePanics(t *testing.T) {
	c := New(newGatedScanner(), index.NewStore())
	c.projects["/p"] = &project{desc: types.Project{Root: "/p"}, state: Idle, session: "s1"}
	c.store.Open("/p")

	res := completion{root: "/p", session: "s1", result: &scanner.Result{Snapshot: types.NewProjectSnapshot(nil)}}
	assert.PanicsWithValue(t, "invariant violation: scan of /p completed while idle", func() {
		c.complete(res)
	})
}

// End to end with the real scanner and a regex strategy over .src files.
func TestCoordinator_WithFileScanner(t *testing.T) {
	root := t.TempDir()
	aPath := filepath.Join(root, "a.src")
	bPath := filepath.Join(root, "b.src")
	aContent := "decl Foo\n"
	bContent := "def Foo\ndef Bar\n"
	require.NoError(t, os.WriteFile(aPath, []byte(aContent), 0644))
	require.NoError(t, os.WriteFile(bPath, []byte(bContent), 0644))

	strategy, err := parser.NewRegexStrategy([]parser.RegexRule{
		{Extensions: []string{".src"}, Pattern: `(?m)^decl\s+(\w+)`, Kind: types.Declaration},
		{Extensions: []string{".src"}, Pattern: `(?m)^def\s+(\w+)`, Kind: types.Definition},
	})
	require.NoError(t, err)
	reg := parser.NewRegistry()
	reg.MustRegister(strategy)

	h := startCoordinator(t, scanner.New(reg.Freeze(), nil, nil))
	ctx := context.Background()

	require.NoError(t, h.c.Opened(ctx, types.Project{Root: root}))
	ev := h.waitFor(t, ScanPublished)
	assert.Equal(t, 2, ev.Stats.FilesParsed)
	assert.Equal(t, Idle, h.state(t, root))

	decls, err := h.c.Declarations(ctx, root, "Foo")
	require.NoError(t, err)
	assert.Equal(t, []types.Occurrence{{Path: aPath, Location: types.Location(strings.Index(aContent, "Foo"))}}, decls)
	defs, err := h.c.Definitions(ctx, root, "Bar")
	require.NoError(t, err)
	assert.Equal(t, []types.Occurrence{{Path: bPath, Location: types.Location(strings.Index(bContent, "Bar"))}}, defs)

	before, err := h.c.Status(ctx, root)
	require.NoError(t, err)

	// unchanged tree: nothing re-parsed, same fingerprint
	require.NoError(t, h.c.Changed(ctx, root))
	ev = h.waitFor(t, ScanPublished)
	assert.Equal(t, 0, ev.Stats.FilesParsed)
	assert.Equal(t, 2, ev.Stats.FilesReused)

	after, err := h.c.Status(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, before.Fingerprint, after.Fingerprint)

	// touching a.src re-parses only a.src
	aContent = "decl Foo\ndecl Baz\n"
	require.NoError(t, os.WriteFile(aPath, []byte(aContent), 0644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(aPath, future, future))

	require.NoError(t, h.c.Changed(ctx, root))
	ev = h.waitFor(t, ScanPublished)
	assert.Equal(t, 1, ev.Stats.FilesParsed)
	assert.Equal(t, 1, ev.Stats.FilesReused)

	decls, err = h.c.Declarations(ctx, root, "Baz")
	require.NoError(t, err)
	assert.Len(t, decls, 1)
}
