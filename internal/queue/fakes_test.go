package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/logger"
	"github.com/cesargomez89/tidarr/internal/outputlog"
)

var (
	errInterrupted = errors.New("interrupted")
	errKilled      = errors.New("killed")
)

type fakeProcess struct {
	done  chan struct{}
	once  sync.Once
	honor bool

	mu     sync.Mutex
	result domain.Result

	interrupts atomic.Int32
	kills      atomic.Int32
}

func newFakeProcess(honorInterrupt bool) *fakeProcess {
	return &fakeProcess{done: make(chan struct{}), honor: honorInterrupt}
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Result() domain.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

func (p *fakeProcess) finish(res domain.Result) {
	p.once.Do(func() {
		p.mu.Lock()
		p.result = res
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *fakeProcess) succeed() { p.finish(domain.Result{}) }

func (p *fakeProcess) fail(err error) { p.finish(domain.Result{Err: err}) }

func (p *fakeProcess) Interrupt() error {
	p.interrupts.Add(1)
	if p.honor {
		p.fail(errInterrupted)
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.kills.Add(1)
	p.fail(errKilled)
	return nil
}

type fakeStep struct {
	mu       sync.Mutex
	honor    bool
	startErr error
	started  []domain.Item
	procs    []*fakeProcess
}

func (s *fakeStep) Start(_ context.Context, item domain.Item) (domain.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, item)
	if s.startErr != nil {
		return nil, s.startErr
	}
	p := newFakeProcess(s.honor)
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeStep) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started)
}

func (s *fakeStep) proc(i int) *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[i]
}

func (s *fakeStep) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1]
}

func (s *fakeStep) item(i int) domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started[i]
}

type memStore struct {
	mu        sync.Mutex
	order     []string
	items     map[string]domain.Item
	paused    bool
	deleteErr map[string]error
}

func newMemStore(seed ...domain.Item) *memStore {
	s := &memStore{items: make(map[string]domain.Item), deleteErr: make(map[string]error)}
	for _, it := range seed {
		s.order = append(s.order, it.ID)
		s.items[it.ID] = it
	}
	return s
}

func (s *memStore) LoadItems(context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, nil
}

func (s *memStore) UpsertItem(_ context.Context, item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		s.order = append(s.order, item.ID)
	}
	item.Process = nil
	s.items[item.ID] = item
	return nil
}

func (s *memStore) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[id]; err != nil {
		return err
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) Paused(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused, nil
}

func (s *memStore) SetPaused(_ context.Context, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	return nil
}

func (s *memStore) get(id string) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	return it, ok
}

// recordingNotifier keeps every published list so tests can check slot
// invariants across the whole run.
type recordingNotifier struct {
	mu      sync.Mutex
	lists   [][]domain.Item
	outputs map[string]string
}

func (n *recordingNotifier) PublishList(items []domain.Item) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lists = append(n.lists, items)
}

func (n *recordingNotifier) PublishOutput(id, output string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.outputs == nil {
		n.outputs = make(map[string]string)
	}
	n.outputs[id] = output
}

func (n *recordingNotifier) snapshots() [][]domain.Item {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]domain.Item(nil), n.lists...)
}

type recordingSet struct {
	mu  sync.Mutex
	ids []string
}

func (s *recordingSet) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
}

func (s *recordingSet) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

type fakeWorkDirs struct{ recordingSet }

func (w *fakeWorkDirs) Clean(id string) error { w.add(id); return nil }

type fakeHistory struct{ recordingSet }

func (h *fakeHistory) Record(_ context.Context, id string) error { h.add(id); return nil }

// fakePlaylists records deletions. When block is set, DeletePlaylist waits
// for it to close or for ctx to end.
type fakePlaylists struct {
	recordingSet
	block chan struct{}
}

func (p *fakePlaylists) DeletePlaylist(ctx context.Context, id string) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.add(id)
	return nil
}

func (h *harness) waitPlaylists(t *testing.T, want ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, h.playlists.list())
	}, 2*time.Second, 5*time.Millisecond, "playlists deleted: %v", h.playlists.list())
}

type harness struct {
	reg       *Registry
	store     *memStore
	download  *fakeStep
	post      *fakeStep
	lidarr    *fakeStep
	out       *outputlog.Store
	notifier  *recordingNotifier
	workdirs  *fakeWorkDirs
	history   *fakeHistory
	playlists *fakePlaylists
}

const testGrace = 50 * time.Millisecond

func newHarness(t *testing.T, cfg Config, seed ...domain.Item) *harness {
	t.Helper()
	if cfg.KillGrace == 0 {
		cfg.KillGrace = testGrace
	}
	h := &harness{
		store:     newMemStore(seed...),
		download:  &fakeStep{honor: true},
		post:      &fakeStep{honor: true},
		lidarr:    &fakeStep{honor: true},
		notifier:  &recordingNotifier{},
		workdirs:  &fakeWorkDirs{},
		history:   &fakeHistory{},
		playlists: &fakePlaylists{},
	}
	h.out = outputlog.New(h.notifier)
	h.reg = New(Deps{
		Store:    h.store,
		Output:   h.out,
		Notifier: h.notifier,
		Steps: Steps{
			Download:          h.download,
			PostProcess:       h.post,
			LidarrPostProcess: h.lidarr,
		},
		WorkDirs:  h.workdirs,
		History:   h.history,
		Playlists: h.playlists,
		Logger:    logger.Nop(),
	}, cfg)
	t.Cleanup(h.reg.Close)
	return h
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	require.NoError(t, h.reg.Load(context.Background()))
}

func (h *harness) add(t *testing.T, id string, source string) {
	t.Helper()
	require.NoError(t, h.reg.AddItem(context.Background(), domain.Item{
		ID:     id,
		Type:   domain.ItemTypeAlbum,
		URL:    "https://tidal.com/browse/album/" + id,
		Source: source,
	}))
}

func (h *harness) status(id string) domain.Status {
	it, ok := h.reg.GetItem(id)
	if !ok {
		return ""
	}
	return it.Status
}

func (h *harness) waitStatus(t *testing.T, id string, want domain.Status) {
	t.Helper()
	require.Eventually(t, func() bool { return h.status(id) == want },
		2*time.Second, 5*time.Millisecond, "item %s never reached %s (last %s)", id, want, h.status(id))
}

func waitCount(t *testing.T, s *fakeStep, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.count() == n },
		2*time.Second, 5*time.Millisecond, "expected %d step starts, got %d", n, s.count())
}
