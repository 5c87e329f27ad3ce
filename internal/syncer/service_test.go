package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/planner"
	"github.com/lachiem1/payplan/internal/remote"
	"github.com/lachiem1/payplan/internal/storage"
)

const testUser = "user-1"

type memoryRemote struct {
	mu    sync.Mutex
	doc   *remote.Document
	saves []remote.Document
	push  chan remote.Document
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{push: make(chan remote.Document, 4)}
}

func (m *memoryRemote) Load(context.Context, string) (*remote.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, remote.ErrNotFound
	}
	doc := *m.doc
	return &doc, nil
}

func (m *memoryRemote) Save(_ context.Context, _ string, doc remote.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = &doc
	m.saves = append(m.saves, doc)
	return nil
}

func (m *memoryRemote) Watch(ctx context.Context, _ string, fn func(remote.Document)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc := <-m.push:
			fn(doc)
		}
	}
}

func (m *memoryRemote) Saves() []remote.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]remote.Document(nil), m.saves...)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	t.Setenv("PAYPLAN_DB_PATH", "")

	db, _, err := storage.Open(context.Background(), storage.Config{
		Mode: storage.ModePlain,
		Path: filepath.Join(t.TempDir(), "payplan.db"),
	})
	if err != nil {
		t.Fatalf("storage.Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T, db *sql.DB, rs remote.Store) *Service {
	t.Helper()
	svc, err := NewSnapshotService(Deps{
		DB:       db,
		Store:    planner.NewStore(budget.DefaultSnapshot()),
		Remote:   rs,
		UserID:   testUser,
		DeviceID: "device-a",
		Config:   Config{PollInterval: time.Hour, Debounce: time.Hour},
	})
	if err != nil {
		t.Fatalf("NewSnapshotService() unexpected error: %v", err)
	}
	return svc
}

func toggle(t *testing.T, store *planner.Store) planner.Change {
	t.Helper()
	c, err := store.Apply(func(s budget.Snapshot) (budget.Snapshot, error) {
		return budget.TogglePaid(s, "2026-01-09", "bill-phone-004"), nil
	})
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	return c
}

func TestLocalEditIsCachedAndSaved(t *testing.T) {
	db := openTestDB(t)
	rs := newMemoryRemote()
	svc := newTestService(t, db, rs)
	svc.Attach()

	c := toggle(t, svc.Store())

	stored, ok, err := storage.NewSnapshotsRepo(db).Get(context.Background(), testUser)
	if err != nil || !ok {
		t.Fatalf("cached snapshot = %v, %v", ok, err)
	}
	if stored.Generation != c.Generation || stored.Origin != string(planner.OriginLocal) {
		t.Fatalf("cached = gen %d origin %q", stored.Generation, stored.Origin)
	}

	if len(rs.Saves()) != 0 {
		t.Fatal("saved before debounce elapsed")
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() unexpected error: %v", err)
	}
	saves := rs.Saves()
	if len(saves) != 1 || saves[0].Origin != "device-a" || saves[0].Generation != c.Generation {
		t.Fatalf("saves = %+v", saves)
	}

	state, ok, err := storage.NewSyncStateRepo(db).Get(context.Background(), CollectionFor(testUser))
	if err != nil || !ok {
		t.Fatalf("sync state = %v, %v", ok, err)
	}
	if state.LastSuccess == nil || state.LastGeneration != c.Generation {
		t.Fatalf("sync state = %+v", state)
	}
}

func TestRemoteChangesAreNotSavedBack(t *testing.T) {
	db := openTestDB(t)
	rs := newMemoryRemote()
	svc := newTestService(t, db, rs)
	svc.Attach()

	other := budget.DefaultSnapshot()
	other.Settings.FirstPayDate = "2026-01-02"
	if !svc.syncer.Accept(remote.Document{Generation: 10, Origin: "device-b", Snapshot: other}) {
		t.Fatal("Accept() = false for a newer document from another device")
	}
	if err := svc.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() unexpected error: %v", err)
	}
	if n := len(rs.Saves()); n != 0 {
		t.Fatalf("remote saves = %d, want 0", n)
	}
	if got := svc.Store().Snapshot().Settings.FirstPayDate; got != "2026-01-02" {
		t.Fatalf("FirstPayDate = %q after remote apply", got)
	}

	// Repeats and own writes are dropped.
	drops := []remote.Document{
		{Generation: 10, Origin: "device-b", Snapshot: budget.DefaultSnapshot()},
		{Generation: 20, Origin: "device-a", Snapshot: budget.DefaultSnapshot()},
	}
	for _, doc := range drops {
		if svc.syncer.Accept(doc) {
			t.Fatalf("Accept(%s gen %d) = true, want false", doc.Origin, doc.Generation)
		}
	}

	// The next local edit sorts after the remote generation.
	if c := toggle(t, svc.Store()); c.Generation != 11 {
		t.Fatalf("local generation = %d, want 11", c.Generation)
	}
}

func TestPullAppliesOtherDeviceWriteAtSameGeneration(t *testing.T) {
	db := openTestDB(t)
	rs := newMemoryRemote()
	svc := newTestService(t, db, rs)
	svc.Attach()
	ctx := context.Background()

	c := toggle(t, svc.Store())
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() unexpected error: %v", err)
	}

	// device-b edited the same base and saved last.
	other := budget.DefaultSnapshot()
	other.Settings.FirstPayDate = "2026-01-02"
	written := remote.Document{Generation: c.Generation, Origin: "device-b", SavedAt: time.Now().UTC(), Snapshot: other}
	if err := rs.Save(ctx, testUser, written); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	if err := svc.Pull(ctx); err != nil {
		t.Fatalf("Pull() unexpected error: %v", err)
	}
	if got := svc.Store().Snapshot().Settings.FirstPayDate; got != "2026-01-02" {
		t.Fatalf("FirstPayDate = %q, want the remote's 2026-01-02", got)
	}

	state, _, err := storage.NewSyncStateRepo(db).Get(ctx, CollectionFor(testUser))
	if err != nil {
		t.Fatalf("sync state: %v", err)
	}
	if state.LastOrigin != "device-b" || state.LastGeneration != c.Generation {
		t.Fatalf("sync state mark = %+v", state.Mark())
	}

	// A restarted device remembers the document and keeps later local edits.
	restarted := newTestService(t, db, rs)
	restarted.Store().Load(svc.Store().Snapshot(), svc.Store().Current().Generation)
	if _, err := restarted.Store().Apply(func(s budget.Snapshot) (budget.Snapshot, error) {
		s.Settings.FirstPayDate = "2026-01-16"
		return s, nil
	}); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if err := restarted.Pull(ctx); err != nil {
		t.Fatalf("Pull() unexpected error: %v", err)
	}
	if got := restarted.Store().Snapshot().Settings.FirstPayDate; got != "2026-01-16" {
		t.Fatalf("FirstPayDate = %q after pulling a seen document", got)
	}
}

func TestPullKeepsPendingLocalEdit(t *testing.T) {
	db := openTestDB(t)
	rs := newMemoryRemote()
	other := budget.DefaultSnapshot()
	other.Settings.FirstPayDate = "2026-01-02"
	rs.doc = &remote.Document{Generation: 3, Origin: "device-b", SavedAt: time.Now().UTC(), Snapshot: other}

	svc := newTestService(t, db, rs)
	svc.Attach()
	ctx := context.Background()

	c := toggle(t, svc.Store())
	if err := svc.Pull(ctx); err != nil {
		t.Fatalf("Pull() unexpected error: %v", err)
	}
	if got := svc.Store().Snapshot().Settings.FirstPayDate; got == "2026-01-02" {
		t.Fatal("remote snapshot replaced an edit waiting to be saved")
	}

	// The local save lands after device-b's and becomes the remote copy.
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop() unexpected error: %v", err)
	}
	saves := rs.Saves()
	if len(saves) != 1 || saves[0].Origin != "device-a" || saves[0].Generation != c.Generation {
		t.Fatalf("saves = %+v", saves)
	}
}

func TestPullSeedsMissingRemote(t *testing.T) {
	db := openTestDB(t)
	rs := newMemoryRemote()
	svc := newTestService(t, db, rs)

	if err := svc.Pull(context.Background()); err != nil {
		t.Fatalf("Pull() unexpected error: %v", err)
	}
	saves := rs.Saves()
	if len(saves) != 1 || saves[0].Origin != "device-a" || len(saves[0].Snapshot.Bills) != 6 {
		t.Fatalf("seed saves = %+v", saves)
	}

	// A second pull sees its own document and leaves the store alone.
	gen := svc.Store().Current().Generation
	if err := svc.Pull(context.Background()); err != nil {
		t.Fatalf("Pull() unexpected error: %v", err)
	}
	if svc.Store().Current().Generation != gen || svc.Store().Current().Origin != planner.OriginLoad {
		t.Fatalf("store changed by own document: %+v", svc.Store().Current().Origin)
	}
}

func TestRestoreFromCache(t *testing.T) {
	db := openTestDB(t)
	snap := budget.DefaultSnapshot()
	snap.Bills = snap.Bills[:1]
	if err := storage.NewSnapshotsRepo(db).Put(context.Background(), storage.StoredSnapshot{
		UserID: testUser, Snapshot: snap, Generation: 12, Origin: "local",
	}); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	svc := newTestService(t, db, nil)
	ok, err := svc.Restore(context.Background())
	if err != nil || !ok {
		t.Fatalf("Restore() = %v, %v", ok, err)
	}
	c := svc.Store().Current()
	if c.Generation != 12 || len(c.Snapshot.Bills) != 1 {
		t.Fatalf("restored = gen %d, %d bills", c.Generation, len(c.Snapshot.Bills))
	}
	if svc.Remote() {
		t.Fatal("Remote() = true without a remote store")
	}
}

func TestRestoreIgnoresCorruptCache(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(
		`INSERT INTO snapshots (user_id, payload, generation, origin, updated_at) VALUES (?, '{broken', 3, 'local', ?)`,
		testUser, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}

	svc := newTestService(t, db, nil)
	ok, err := svc.Restore(context.Background())
	if err != nil || ok {
		t.Fatalf("Restore() = %v, %v; want false, nil", ok, err)
	}
	if len(svc.Store().Snapshot().Bills) != 6 {
		t.Fatal("store replaced by corrupt cache")
	}
}

func TestWatchAppliesPushedDocuments(t *testing.T) {
	db := openTestDB(t)
	rs := newMemoryRemote()
	rs.doc = &remote.Document{Generation: 1, Origin: "device-b", Snapshot: budget.DefaultSnapshot()}
	svc := newTestService(t, db, rs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	defer svc.Stop(context.Background())

	pushed := budget.DefaultSnapshot()
	pushed.Goals = pushed.Goals[:1]
	doc := remote.Document{Generation: 30, Origin: "device-b", SavedAt: time.Now().UTC(), Snapshot: pushed}
	if err := rs.Save(ctx, testUser, doc); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	rs.push <- doc

	waitForCondition(t, 2*time.Second, func() bool {
		return svc.Store().Current().Generation == 30
	})
	if n := len(svc.Store().Snapshot().Goals); n != 1 {
		t.Fatalf("goals = %d after push, want 1", n)
	}
}

func TestSyncAgainstDocumentAPI(t *testing.T) {
	var mu sync.Mutex
	var stored []byte
	puts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/users/"+testUser+"/snapshot", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if stored == nil {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(stored)
		case http.MethodPut:
			var doc remote.Document
			if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			stored, _ = json.Marshal(doc)
			puts++
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := openTestDB(t)
	svc := newTestService(t, db, remote.New(server.URL, "test-token"))
	svc.Attach()

	if err := svc.Pull(context.Background()); err != nil {
		t.Fatalf("Pull() unexpected error: %v", err)
	}
	toggle(t, svc.Store())
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if puts != 2 {
		t.Fatalf("PUT count = %d, want 2 (seed + edit)", puts)
	}
	var doc remote.Document
	if err := json.Unmarshal(stored, &doc); err != nil {
		t.Fatalf("decode stored document: %v", err)
	}
	a, ok := doc.Snapshot.Period("2026-01-09").Allocation("bill-phone-004")
	if !ok || !a.Paid {
		t.Fatalf("remote allocation = %+v, %v; want paid", a, ok)
	}
}
