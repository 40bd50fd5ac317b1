package httpapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/history"
	"github.com/cesargomez89/tidarr/internal/http/dto"
	"github.com/cesargomez89/tidarr/internal/logger"
	"github.com/cesargomez89/tidarr/internal/queue"
	"github.com/cesargomez89/tidarr/internal/store"
)

type fakeQueue struct {
	mu      sync.Mutex
	order   []string
	items   map[string]domain.Item
	outputs map[string]string
	running map[string]bool
	paused  bool
	failAdd error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		items:   map[string]domain.Item{},
		outputs: map[string]string{},
		running: map[string]bool{},
	}
}

func (q *fakeQueue) AddItem(_ context.Context, item domain.Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failAdd != nil {
		return q.failAdd
	}
	item.Normalize()
	if _, ok := q.items[item.ID]; !ok {
		q.order = append(q.order, item.ID)
	}
	q.items[item.ID] = item
	q.outputs[item.ID] = ""
	return nil
}

func (q *fakeQueue) RemoveItem(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(id)
	return nil
}

func (q *fakeQueue) removeLocked(id string) {
	delete(q.items, id)
	delete(q.outputs, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *fakeQueue) RemoveAllItems(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range append([]string(nil), q.order...) {
		q.removeLocked(id)
	}
	return nil
}

func (q *fakeQueue) RemoveFinishedItems(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range append([]string(nil), q.order...) {
		if q.items[id].Status == domain.StatusFinished {
			q.removeLocked(id)
		}
	}
	return nil
}

func (q *fakeQueue) RetryItem(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", queue.ErrItemNotFound, id)
	}
	if it.Status != domain.StatusError {
		return fmt.Errorf("%w: %s is %s", queue.ErrNotRetryable, id, it.Status)
	}
	it.Status = domain.StatusQueueDownload
	it.RetryCount = 0
	it.SyncFlags()
	q.items[id] = it
	return nil
}

func (q *fakeQueue) GetItem(id string) (domain.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it, ok := q.items[id]
	return it, ok
}

func (q *fakeQueue) Running(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running[id]
}

func (q *fakeQueue) Items() []domain.Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Item, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.items[id])
	}
	return out
}

func (q *fakeQueue) Output(id string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out, ok := q.outputs[id]
	return out, ok
}

func (q *fakeQueue) Pause(context.Context) error {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	return nil
}

func (q *fakeQueue) Resume(context.Context) error {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	return nil
}

func (q *fakeQueue) Paused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

func (q *fakeQueue) set(it domain.Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	it.SyncFlags()
	if _, ok := q.items[it.ID]; !ok {
		q.order = append(q.order, it.ID)
		q.outputs[it.ID] = ""
	}
	q.items[it.ID] = it
}

type fakeLive struct {
	initial []byte
	itemID  string
}

func (l *fakeLive) ServeList(w http.ResponseWriter, _ *http.Request, initial []byte) error {
	l.initial = initial
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func (l *fakeLive) ServeItem(w http.ResponseWriter, _ *http.Request, itemID string, initial []byte) error {
	l.itemID = itemID
	l.initial = initial
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func (l *fakeLive) Counts() (int, int) { return 2, 3 }

type fakeDB struct {
	err    error
	counts map[domain.Status]int
	items  map[string]domain.Item
}

func (d *fakeDB) Check(context.Context) error { return d.err }

func (d *fakeDB) CountByStatus(context.Context) (map[domain.Status]int, error) {
	return d.counts, d.err
}

func (d *fakeDB) GetItem(_ context.Context, id string) (*domain.Item, error) {
	if d.err != nil {
		return nil, d.err
	}
	it, ok := d.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

type testServer struct {
	queue  *fakeQueue
	live   *fakeLive
	db     *fakeDB
	router chi.Router
}

func newTestServer(t *testing.T, hist History) *testServer {
	t.Helper()
	ts := &testServer{
		queue: newFakeQueue(),
		live:  &fakeLive{},
		db:    &fakeDB{counts: map[domain.Status]int{}, items: map[string]domain.Item{}},
	}
	h := NewHandler(ts.queue, ts.live, ts.db, hist, logger.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestAddAndListItems(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/queue", dto.ItemRequest{
		ID: "42", Type: "album", URL: "https://tidal.com/browse/album/42", Title: "Blue",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created dto.ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "42", created.ID)
	assert.Equal(t, domain.StatusQueueDownload, created.Status)
	assert.False(t, created.Downloaded)

	rec = ts.do(t, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Blue", list[0].Title)
	assert.True(t, list[0].Loading)
}

func TestAddItemValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/queue", dto.ItemRequest{Type: "podcast"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "id")
	assert.Contains(t, resp.Fields, "type")

	rec = ts.do(t, http.MethodPost, "/api/queue", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, ts.queue.Items())
}

func TestAddItemQueueErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.queue.failAdd = fmt.Errorf("%w: bad", queue.ErrInvalidItem)
	rec := ts.do(t, http.MethodPost, "/api/queue", dto.ItemRequest{ID: "1", Type: "track"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.queue.failAdd = errors.New("disk full")
	rec = ts.do(t, http.MethodPost, "/api/queue", dto.ItemRequest{ID: "1", Type: "track"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetItemAndOutput(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.queue.set(domain.Item{ID: "a", Type: domain.ItemTypeTrack, Status: domain.StatusDownload})
	ts.queue.outputs["a"] = "line 1\nline 2"

	rec := ts.do(t, http.MethodGet, "/api/queue/a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Running)
	assert.Empty(t, got.Persisted)

	rec = ts.do(t, http.MethodGet, "/api/queue/a/output", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out dto.OutputResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "line 1\nline 2", out.Output)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/queue/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/queue/missing/output", nil).Code)
}

func TestGetItem_ReportsProcessAndPersistedStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.queue.set(domain.Item{ID: "a", Type: domain.ItemTypeTrack, Status: domain.StatusDownload})
	ts.queue.set(domain.Item{ID: "b", Type: domain.ItemTypeTrack, Status: domain.StatusQueueDownload})
	ts.queue.running["a"] = true
	ts.db.items["a"] = domain.Item{ID: "a", Status: domain.StatusQueueDownload}

	rec := ts.do(t, http.MethodGet, "/api/queue/a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Equal(t, domain.StatusDownload, got.Status)
	assert.Equal(t, domain.StatusQueueDownload, got.Persisted)

	rec = ts.do(t, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.True(t, list[0].Running)
	assert.False(t, list[1].Running)
	assert.Empty(t, list[0].Persisted, "the list endpoint does not read the database")

	// a failing database does not hide the live item
	ts.db.err = errors.New("locked")
	rec = ts.do(t, http.MethodGet, "/api/queue/a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRemoveEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.queue.set(domain.Item{ID: "a", Type: domain.ItemTypeTrack, Status: domain.StatusFinished})
	ts.queue.set(domain.Item{ID: "b", Type: domain.ItemTypeTrack, Status: domain.StatusQueueDownload})
	ts.queue.set(domain.Item{ID: "c", Type: domain.ItemTypeTrack, Status: domain.StatusError})

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/queue/finished", nil).Code)
	assert.Len(t, ts.queue.Items(), 2)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/queue/b", nil).Code)
	assert.Len(t, ts.queue.Items(), 1)

	// unknown ids are a no-op
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/queue/zzz", nil).Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/queue", nil).Code)
	assert.Empty(t, ts.queue.Items())
}

func TestRetryItem(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.queue.set(domain.Item{ID: "e", Type: domain.ItemTypeAlbum, Status: domain.StatusError, RetryCount: 5})
	ts.queue.set(domain.Item{ID: "f", Type: domain.ItemTypeAlbum, Status: domain.StatusFinished})

	rec := ts.do(t, http.MethodPost, "/api/queue/e/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var it dto.ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))
	assert.Equal(t, domain.StatusQueueDownload, it.Status)
	assert.Equal(t, 0, it.RetryCount)

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/queue/f/retry", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/queue/nope/retry", nil).Code)
}

func TestPauseResumeStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.db.counts = map[domain.Status]int{domain.StatusQueueDownload: 2, domain.StatusFinished: 1}

	rec := ts.do(t, http.MethodPost, "/api/queue/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st dto.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Paused)
	assert.Equal(t, 3, st.Items)
	assert.Equal(t, 2, st.Counts["queue_download"])
	assert.Equal(t, 2, st.ListClients)
	assert.Equal(t, 3, st.ItemClients)

	rec = ts.do(t, http.MethodPost, "/api/queue/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Paused)

	rec = ts.do(t, http.MethodGet, "/api/queue/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/health", nil).Code)

	ts.db.err = errors.New("closed")
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/api/health", nil).Code)
}

func TestHistoryEndpoints(t *testing.T) {
	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	ts := newTestServer(t, hist)
	for i := 0; i < 3; i++ {
		require.NoError(t, hist.Record(context.Background(), fmt.Sprintf("id-%d", i)))
	}
	ts.queue.set(domain.Item{ID: "id-1", Type: domain.ItemTypeAlbum, Status: domain.StatusFinished})

	rec := ts.do(t, http.MethodGet, "/api/history?page=2&pageSize=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Pagination.TotalItems)
	assert.Len(t, resp.Entries, 1)

	rec = ts.do(t, http.MethodGet, "/api/queue/id-1", nil)
	var it dto.ItemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))
	assert.True(t, it.Downloaded)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/history", nil).Code)
	assert.False(t, hist.Has("id-1"))
}

func TestHistoryDisabled(t *testing.T) {
	var hist *history.Store
	ts := newTestServer(t, hist)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/history", nil).Code)

	ts.queue.set(domain.Item{ID: "x", Type: domain.ItemTypeAlbum})
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/queue", nil).Code)
}

func TestSockets(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.queue.set(domain.Item{ID: "a", Type: domain.ItemTypeTrack, Status: domain.StatusDownload})
	ts.queue.outputs["a"] = "progress"

	rec := ts.do(t, http.MethodGet, "/api/ws/queue", nil)
	assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
	assert.True(t, strings.HasPrefix(string(ts.live.initial), "[{"))

	rec = ts.do(t, http.MethodGet, "/api/ws/queue/a", nil)
	assert.Equal(t, http.StatusSwitchingProtocols, rec.Code)
	assert.Equal(t, "a", ts.live.itemID)
	assert.JSONEq(t, `{"id":"a","output":"progress"}`, string(ts.live.initial))

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/ws/queue/missing", nil).Code)
}
