package app

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"moodboard/internal/board"
	"moodboard/internal/config"
	"moodboard/internal/domain"
	"moodboard/internal/focus"
	"moodboard/internal/metrics"
	"moodboard/internal/notify"
	"moodboard/internal/persist"
	"moodboard/internal/storage"
	"moodboard/internal/vector"
)

// flakyStore wraps a FileStore and fails writes while broken is set.
type flakyStore struct {
	*storage.FileStore
	mu     sync.Mutex
	broken bool
}

func (s *flakyStore) Write(ctx context.Context, id string, data []byte) error {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	if broken {
		return errors.New("device not ready")
	}
	return s.FileStore.Write(ctx, id, data)
}

func (s *flakyStore) setBroken(v bool) {
	s.mu.Lock()
	s.broken = v
	s.mu.Unlock()
}

type testApp struct {
	*App
	store *flakyStore
	index *storage.Index
	rec   *notify.Recorder
	m     *metrics.Metrics
}

func newTestApp(t *testing.T, mutate ...func(*config.AppConfig)) *testApp {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFileStore(filepath.Join(dir, "boards"))
	if err != nil {
		t.Fatal(err)
	}
	ix, err := storage.OpenIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })

	cfg := config.Defaults()
	for _, fn := range mutate {
		fn(&cfg)
	}
	ta := &testApp{store: &flakyStore{FileStore: fs}, index: ix, rec: &notify.Recorder{}}
	reg := prometheus.NewRegistry()
	ta.m = metrics.New(reg, reg)
	a, err := New(context.Background(), Options{
		Config:   cfg,
		Store:    ta.store,
		Index:    ix,
		Notifier: ta.rec,
		Metrics:  ta.m,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, s := range a.Sessions() {
			s.Saver.Stop()
		}
	})
	ta.App = a
	return ta
}

func shape() domain.Shape {
	return domain.Shape{Type: domain.ShapeRectangle, Fill: "#336699", Border: "#000000", BorderWidth: 1}
}

func TestCreateEditCloseReopen(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)

	s, err := ta.Create(ctx, "Mood")
	if err != nil {
		t.Fatal(err)
	}
	id := s.ID()
	if _, ok := ta.Session(id); !ok {
		t.Fatalf("created board not open")
	}
	if _, err := s.AddContent(shape(), vector.Pt{X: 10, Y: 20}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddURL("https://youtu.be/dQw4w9WgXcQ", vector.Pt{X: 300}); err != nil {
		t.Fatal(err)
	}
	if !s.Board.Dirty() {
		t.Fatalf("board should be dirty after edits")
	}
	if got := testutil.ToFloat64(ta.m.OpenBoards); got != 1 {
		t.Fatalf("open boards gauge = %v", got)
	}

	if err := ta.Close(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, ok := ta.Session(id); ok {
		t.Fatalf("session still open after Close")
	}

	s2, err := ta.Open(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	items := s2.Board.Items()
	if len(items) != 2 || items[1].Content.Kind() != domain.KindYouTube {
		t.Fatalf("reopened items: %+v", items)
	}
	if s2.Board.Dirty() || s2.Board.CanUndo() {
		t.Fatalf("reopened board should be clean with fresh history")
	}
	if it := s2.Board.NewItem(shape(), vector.Pt{}); it.ID <= items[1].ID {
		t.Fatalf("id %d reused after reopen", it.ID)
	}
	meta, _ := ta.index.Get(ctx, id)
	if meta.Name != "Mood" {
		t.Fatalf("meta %+v", meta)
	}
}

func TestOpenReturnsExistingSession(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "a")
	again, err := ta.Open(ctx, s.ID())
	if err != nil || again != s {
		t.Fatalf("Open should return the open session, got %p %v", again, err)
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	if _, err := ta.Open(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	s, _ := ta.Create(ctx, "old")
	id := s.ID()
	if err := ta.Close(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := ta.index.Trash(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := ta.Open(ctx, id); !errors.Is(err, ErrTrashed) {
		t.Fatalf("want ErrTrashed, got %v", err)
	}
}

func TestOpenWithoutDocumentStartsEmpty(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	meta, err := ta.index.Create(ctx, "bare")
	if err != nil {
		t.Fatal(err)
	}
	s, err := ta.Open(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.Board.Snapshot().Len() != 0 || s.Board.Dirty() {
		t.Fatalf("expected a clean empty board")
	}
}

func TestCloseKeepsBoardOpenWhenFlushFails(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "b")
	_, _ = s.AddContent(shape(), vector.Pt{})

	ta.store.setBroken(true)
	err := ta.Close(ctx, s.ID())
	if !errors.Is(err, ErrUnsaved) || !errors.Is(err, persist.ErrIO) {
		t.Fatalf("want ErrUnsaved wrapping an IO error, got %v", err)
	}
	if _, ok := ta.Session(s.ID()); !ok || !s.Board.Dirty() {
		t.Fatalf("failed close must keep the dirty session")
	}

	ta.store.setBroken(false)
	if err := ta.CloseAll(ctx); err != nil {
		t.Fatal(err)
	}
	if len(ta.Sessions()) != 0 {
		t.Fatalf("sessions left after CloseAll")
	}
}

func TestCloseCommitsOpenGesture(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "drag")
	id, _ := s.AddContent(shape(), vector.Pt{})
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}

	_ = s.Board.BeginGesture()
	if err := s.UpdateGesture(board.MoveItem{ID: id, To: vector.Pt{X: 42}}); err != nil {
		t.Fatal(err)
	}
	if err := ta.Close(ctx, s.ID()); err != nil {
		t.Fatal(err)
	}
	b, err := ta.Load(ctx, s.ID())
	if err != nil {
		t.Fatal(err)
	}
	if it, _ := b.Item(id); it.Position.X != 42 {
		t.Fatalf("dragged item stored at x=%v", it.Position.X)
	}
}

func TestFlushAll(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	var sessions []*Session
	for _, name := range []string{"one", "two", "three"} {
		s, err := ta.Create(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = s.AddContent(shape(), vector.Pt{X: 5})
		sessions = append(sessions, s)
	}
	// An open gesture is committed so the visible state is what gets written.
	g := sessions[0]
	_ = g.Board.BeginGesture()
	_ = g.UpdateGesture(board.MoveItem{ID: 1, To: vector.Pt{X: 99}})

	if err := ta.FlushAll(ctx); err != nil {
		t.Fatal(err)
	}
	for _, s := range sessions {
		if s.Board.Dirty() {
			t.Fatalf("%s still dirty", s.Meta.Name)
		}
	}
	if g.Board.InGesture() {
		t.Fatalf("gesture should be committed by FlushAll")
	}
	b, err := ta.Load(ctx, g.ID())
	if err != nil {
		t.Fatal(err)
	}
	if it, _ := b.Item(1); it.Position.X != 99 {
		t.Fatalf("stored x=%v", it.Position.X)
	}

	_ = sessions[1].Board.Apply(board.MoveItem{ID: 1, To: vector.Pt{X: 1}})
	ta.store.setBroken(true)
	if err := ta.FlushAll(ctx); !errors.Is(err, persist.ErrIO) {
		t.Fatalf("want IO error, got %v", err)
	}
	if !sessions[1].Board.Dirty() {
		t.Fatalf("failed flush cleared dirty")
	}
}

func TestValidationFailureIsReported(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "v")
	err := s.Apply(board.MoveItem{ID: 42, To: vector.Pt{}})
	if !errors.Is(err, board.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if ta.rec.Count(notify.ValidationFailure) != 1 {
		t.Fatalf("validation failure not notified: %+v", ta.rec.Events())
	}
	if got := testutil.ToFloat64(ta.m.ValidationFailures.WithLabelValues("move_item")); got != 1 {
		t.Fatalf("validation counter = %v", got)
	}
	if s.Board.Dirty() {
		t.Fatalf("rejected command changed the board")
	}
}

func TestHandleKeyRespectsFocus(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "keys")
	id, _ := s.AddContent(shape(), vector.Pt{})

	// Typing into a text box must not delete the selected item.
	if err := s.Focus.Focus(focus.TextboxEditing); err != nil {
		t.Fatal(err)
	}
	if handled, _ := s.HandleKey(ctx, ParseKey("backspace")); handled {
		t.Fatalf("backspace handled while editing text")
	}
	if handled, _ := s.HandleKey(ctx, ParseKey("ctrl+z")); handled {
		t.Fatalf("undo reached the board while editing text")
	}
	if _, ok := s.Board.Item(id); !ok {
		t.Fatalf("item deleted while editing text")
	}

	// Escape hands focus back to the canvas.
	if handled, _ := s.HandleKey(ctx, ParseKey("escape")); !handled || s.Focus.Active() != focus.Canvas {
		t.Fatalf("escape did not release: %v", s.Focus.Active())
	}

	if handled, err := s.HandleKey(ctx, ParseKey("right")); !handled || err != nil {
		t.Fatalf("nudge: %v %v", handled, err)
	}
	if it, _ := s.Board.Item(id); it.Position.X != nudgeStep {
		t.Fatalf("nudged x=%v", it.Position.X)
	}
	if _, err := s.HandleKey(ctx, ParseKey("cmd-z")); err != nil {
		t.Fatal(err)
	}
	if it, _ := s.Board.Item(id); it.Position.X != 0 {
		t.Fatalf("undo left x=%v", it.Position.X)
	}
	if _, err := s.HandleKey(ctx, ParseKey("ctrl+shift+z")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.HandleKey(ctx, ParseKey("delete")); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Board.Item(id); ok || len(s.Selection()) != 0 {
		t.Fatalf("delete did not remove the selection")
	}

	// Redo at the newest entry is not an error for key handling.
	if handled, err := s.HandleKey(ctx, ParseKey("ctrl+y")); !handled || err != nil {
		t.Fatalf("redo at boundary: %v %v", handled, err)
	}
}

func TestCommandPaletteToggleAndModal(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "palette")

	if _, err := s.HandleKey(ctx, ParseKey("ctrl+k")); err != nil || s.Focus.Active() != focus.CommandPalette {
		t.Fatalf("palette not opened: %v %v", s.Focus.Active(), err)
	}
	if _, err := s.HandleKey(ctx, ParseKey("ctrl+k")); err != nil || s.Focus.Active() != focus.Canvas {
		t.Fatalf("palette not closed: %v %v", s.Focus.Active(), err)
	}

	_ = s.Focus.Focus(focus.Modal)
	if handled, err := s.HandleKey(ctx, ParseKey("ctrl+k")); !handled || err != nil {
		t.Fatalf("palette under modal should be absorbed: %v %v", handled, err)
	}
	if s.Focus.Active() != focus.Modal {
		t.Fatalf("modal lost focus")
	}
	if got := testutil.ToFloat64(ta.m.FocusSuppressed.WithLabelValues("CommandPalette")); got != 1 {
		t.Fatalf("suppressed counter = %v", got)
	}
}

func TestZoomKeys(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "zoom")
	if _, err := s.HandleKey(ctx, ParseKey("ctrl++")); err != nil {
		t.Fatal(err)
	}
	if z := s.Board.Viewport().Zoom; z <= 1 {
		t.Fatalf("zoom in left zoom at %v", z)
	}
	if _, err := s.HandleKey(ctx, ParseKey("ctrl+0")); err != nil {
		t.Fatal(err)
	}
	if z := s.Board.Viewport().Zoom; z != domain.DefaultZoom {
		t.Fatalf("zoom reset left zoom at %v", z)
	}
}

func TestDuplicateSelected(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "dup")
	a, _ := s.AddContent(shape(), vector.Pt{X: 1, Y: 1})
	b, _ := s.AddContent(shape(), vector.Pt{X: 100, Y: 1})
	s.Select(a, b, 999)
	if len(s.Selection()) != 2 {
		t.Fatalf("unknown ids must not be selected")
	}
	before := s.Board.HistoryLen()
	if _, err := s.HandleKey(ctx, ParseKey("ctrl+d")); err != nil {
		t.Fatal(err)
	}
	if s.Board.HistoryLen() != before+1 {
		t.Fatalf("duplicate should be one history entry")
	}
	sel := s.Selection()
	if len(sel) != 2 || sel[0] == a || sel[1] == b {
		t.Fatalf("copies not selected: %v", sel)
	}
	cp, _ := s.Board.Item(sel[0])
	if cp.Position != (vector.Pt{X: 21, Y: 21}) {
		t.Fatalf("copy at %v", cp.Position)
	}
	// Undoing the duplicate drops the copies from the selection.
	_ = s.Undo()
	if len(s.Selection()) != 0 {
		t.Fatalf("selection kept removed items: %v", s.Selection())
	}
}

func TestAddFileProbesImage(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "files")

	p := filepath.Join(t.TempDir(), "tall.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 100, 400))); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	id, ok, err := s.AddFile(p, vector.Pt{})
	if !ok || err != nil {
		t.Fatalf("AddFile: %v %v", ok, err)
	}
	it, _ := s.Board.Item(id)
	if it.Size != (vector.Size{W: 100, H: 400}) {
		t.Fatalf("size %v", it.Size)
	}
	if _, ok, _ := s.AddFile("archive.zip", vector.Pt{}); ok {
		t.Fatalf("zip accepted")
	}
}

func TestApplyConfig(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	s, _ := ta.Create(ctx, "cfg")

	cfg := ta.Config()
	cfg.History.Capacity = 3
	cfg.Persistence.DebounceMs = 50
	cfg.Storage.Backend = config.BackendSQLite
	if err := ta.ApplyConfig(cfg); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		_, _ = s.AddContent(shape(), vector.Pt{X: float32(i)})
	}
	if s.Board.HistoryLen() != 3 {
		t.Fatalf("history len %d, want 3", s.Board.HistoryLen())
	}
	if s.Saver.Debounce() != 50*time.Millisecond {
		t.Fatalf("debounce %v", s.Saver.Debounce())
	}
	if ta.Config().Storage.Backend != config.BackendFile {
		t.Fatalf("storage backend must not change at runtime")
	}

	bad := ta.Config()
	bad.History.Capacity = 1
	if err := ta.ApplyConfig(bad); err == nil {
		t.Fatalf("invalid config accepted")
	}
}

func TestPurgeTrash(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, func(c *config.AppConfig) { c.Index.TrashRetentionDays = -1 })
	s, _ := ta.Create(ctx, "gone")
	id := s.ID()
	_ = ta.Close(ctx, id)
	_ = ta.index.Trash(ctx, id)

	ids, err := ta.PurgeTrash(ctx)
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("purge: %v %v", ids, err)
	}
	if _, err := ta.store.Read(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("document survived purge: %v", err)
	}
}

func TestParseKey(t *testing.T) {
	cases := map[string]Key{
		"ctrl+shift+z": {Name: "z", Ctrl: true, Shift: true},
		"cmd-k":        {Name: "k", Ctrl: true},
		"ctrl++":       {Name: "+", Ctrl: true},
		"cmd--":        {Name: "-", Ctrl: true},
		"Delete":       {Name: "delete"},
		"alt+left":     {Name: "left", Alt: true},
	}
	for in, want := range cases {
		if got := ParseKey(in); got != want {
			t.Errorf("ParseKey(%q) = %+v, want %+v", in, got, want)
		}
	}
	if s := (Key{Name: "z", Ctrl: true, Shift: true}).String(); s != "ctrl+shift+z" {
		t.Errorf("String() = %q", s)
	}
}
