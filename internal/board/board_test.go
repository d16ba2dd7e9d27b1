package board

import (
	"errors"
	"testing"
	"time"

	"moodboard/internal/domain"
	"moodboard/internal/vector"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBoard(t *testing.T, capacity int) (*Board, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New("b1", Options{HistoryCapacity: capacity, Now: clk.Now}), clk
}

func textItem(id domain.ItemID, x, y float32) domain.CanvasItem {
	return domain.NewItem(id, domain.TextBox{Text: "note", FontSize: 16, Color: "#ffffff"}, vector.Pt{X: x, Y: y})
}

func mustApply(t *testing.T, b *Board, cmd Command) {
	t.Helper()
	if err := b.Apply(cmd); err != nil {
		t.Fatalf("apply %s: %v", cmd.Name(), err)
	}
}

func TestAddMoveUndoRedoScenario(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: 10, Y: 10}})

	if err := b.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	it, ok := b.Item(1)
	if !ok || it.Position != (vector.Pt{}) {
		t.Fatalf("after undo got %+v (ok=%v), want item 1 at (0,0)", it.Position, ok)
	}
	if err := b.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	it, _ = b.Item(1)
	if it.Position != (vector.Pt{X: 10, Y: 10}) {
		t.Fatalf("after redo got %+v, want (10,10)", it.Position)
	}
}

func TestUndoRedoRoundTripIsIdentical(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	const n = 20
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	for i := 1; i < n; i++ {
		var cmd Command = MoveItem{ID: 1, To: vector.Pt{X: float32(i), Y: float32(-i)}}
		if i%4 == 0 {
			cmd = AddItem{Item: textItem(b.NewItem(domain.Shape{}, vector.Pt{}).ID, float32(i), 0)}
		}
		if i%7 == 0 {
			cmd = SetViewport{Viewport: domain.Viewport{Offset: vector.Pt{X: float32(i)}, Zoom: 2}}
		}
		mustApply(t, b, cmd)
	}
	want := b.Snapshot()

	for i := 0; i < n; i++ {
		if err := b.Undo(); err != nil {
			t.Fatalf("undo %d: %v", i, err)
		}
	}
	if b.Snapshot().Len() != 0 {
		t.Fatalf("expected empty board after undoing everything, got %d items", b.Snapshot().Len())
	}
	if err := b.Undo(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("extra undo: got %v, want ErrNoHistory", err)
	}
	for i := 0; i < n; i++ {
		if err := b.Redo(); err != nil {
			t.Fatalf("redo %d: %v", i, err)
		}
	}
	if !b.Snapshot().Equal(want) {
		t.Fatalf("state after undo/redo differs from original")
	}
	if err := b.Redo(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("extra redo: got %v, want ErrNoHistory", err)
	}
}

func TestHistoryNeverExceedsCapacity(t *testing.T) {
	b, _ := newTestBoard(t, 5)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	for i := 0; i < 20; i++ {
		mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: float32(i)}})
		if b.HistoryLen() > 5 {
			t.Fatalf("history length %d exceeds capacity", b.HistoryLen())
		}
	}
	if b.HistoryLen() != 5 {
		t.Fatalf("history length = %d, want 5", b.HistoryLen())
	}
}

func TestCapacityEvictsOldestSnapshot(t *testing.T) {
	const c = 500
	b, _ := newTestBoard(t, c)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)}) // mutation #0
	for i := 1; i <= c; i++ {
		mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: float32(i)}})
	}

	undone := 0
	for i := 0; i < c; i++ {
		err := b.Undo()
		if errors.Is(err, ErrNoHistory) {
			break
		}
		if err != nil {
			t.Fatalf("undo: %v", err)
		}
		undone++
	}
	if undone != c-1 {
		t.Fatalf("undone %d steps, want %d", undone, c-1)
	}
	it, ok := b.Item(1)
	if !ok {
		t.Fatalf("board rolled back to the empty initial state")
	}
	if it.Position.X != 1 {
		t.Fatalf("got x=%v, want state after mutation #1 (x=1)", it.Position.X)
	}
}

func TestApplyCommitTruncatesRedo(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: 5}})
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if !b.CanRedo() {
		t.Fatalf("expected redo to be available")
	}
	mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: 7}})
	if b.CanRedo() {
		t.Fatalf("new commit should drop the redo branch")
	}
	if err := b.Redo(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("redo: got %v, want ErrNoHistory", err)
	}
}

func TestDirtyTracking(t *testing.T) {
	b, clk := newTestBoard(t, 0)
	if b.Dirty() {
		t.Fatalf("fresh board should be clean")
	}
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	if !b.Dirty() {
		t.Fatalf("expected dirty after apply")
	}
	if !b.LastChange().Equal(clk.Now()) {
		t.Fatalf("last change = %v, want %v", b.LastChange(), clk.Now())
	}

	rev := b.Revision()
	clk.Advance(time.Second)
	mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: 3}})
	if b.MarkSaved(rev) {
		t.Fatalf("MarkSaved with a stale revision must not clear dirty")
	}
	if !b.Dirty() {
		t.Fatalf("dirty cleared despite an intervening mutation")
	}
	if !b.MarkSaved(b.Revision()) || b.Dirty() {
		t.Fatalf("MarkSaved with the current revision should clear dirty")
	}

	clk.Advance(time.Second)
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if !b.Dirty() || !b.LastChange().Equal(clk.Now()) {
		t.Fatalf("undo should mark the board dirty at the current time")
	}
}

func TestRejectedCommandLeavesBoardUntouched(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	b.MarkSaved(b.Revision())
	before, hist, rev := b.Snapshot(), b.HistoryLen(), b.Revision()

	nan := float32(0)
	nan = nan / nan
	bad := []Command{
		MoveItem{ID: 1, To: vector.Pt{X: nan}},
		MoveItem{ID: 99, To: vector.Pt{}},
		ResizeItem{ID: 1, Size: vector.Size{W: 0, H: 10}},
		ResizeItem{ID: 1, Size: vector.Size{W: 20000, H: 10}},
		AddItem{Item: textItem(1, 0, 0)},
		AddItem{Item: domain.NewItem(50, domain.TextBox{Text: "x", FontSize: 2, Color: "#fff"}, vector.Pt{})},
		UpdateContent{ID: 1, Content: domain.Shape{Type: "hexagon", Fill: "#000", Border: "#fff"}},
		DeleteItems{IDs: []domain.ItemID{1, 2}},
		SetViewport{Viewport: domain.Viewport{Zoom: 50}},
		Batch{Commands: []Command{MoveItem{ID: 1, To: vector.Pt{X: 4}}, BringToFront{ID: 42}}},
		Batch{},
		nil,
	}
	for _, cmd := range bad {
		err := b.Apply(cmd)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%T: got %v, want validation failure", cmd, err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%T: error %v is not a *ValidationError", cmd, err)
		}
	}
	if !b.Snapshot().Equal(before) || b.HistoryLen() != hist || b.Revision() != rev || b.Dirty() {
		t.Fatalf("rejected commands changed the board")
	}
}

func TestItemIDsAreNotReusedAfterUndo(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	first := b.NewItem(domain.Link{URL: "https://example.com"}, vector.Pt{})
	mustApply(t, b, AddItem{Item: first})
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	second := b.NewItem(domain.Link{URL: "https://example.org"}, vector.Pt{})
	if second.ID == first.ID {
		t.Fatalf("id %d handed out twice", first.ID)
	}
	if err := b.Apply(AddItem{Item: first}); !errors.Is(err, ErrValidation) {
		t.Fatalf("re-adding a used id: got %v, want validation failure", err)
	}
}

func TestNewItemCanBeAdded(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	first := b.NewItem(domain.Link{URL: "https://example.com"}, vector.Pt{})
	second := b.NewItem(domain.Link{URL: "https://example.org"}, vector.Pt{X: 400})
	if first.ID == second.ID {
		t.Fatalf("NewItem returned id %d twice", first.ID)
	}
	// Reserved ids may be committed in any order.
	mustApply(t, b, AddItem{Item: second})
	mustApply(t, b, AddItem{Item: first})
	if b.Snapshot().Len() != 2 {
		t.Fatalf("want 2 items, got %d", b.Snapshot().Len())
	}
	if err := b.Apply(AddItem{Item: first}); !errors.Is(err, ErrValidation) {
		t.Fatalf("adding id %d twice: got %v, want validation failure", first.ID, err)
	}

	mustApply(t, b, AddItem{Item: textItem(40, 0, 0)})
	if next := b.NewItem(domain.Shape{}, vector.Pt{}); next.ID <= 40 {
		t.Fatalf("NewItem after explicit id 40 returned %d", next.ID)
	}
}

func TestBatchIsOneStep(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, Batch{Commands: []Command{
		AddItem{Item: textItem(1, 0, 0)},
		AddItem{Item: textItem(2, 50, 50)},
		BringToFront{ID: 1},
	}})
	items := b.Items()
	if len(items) != 2 || items[1].ID != 1 {
		t.Fatalf("unexpected z-order after batch: %+v", items)
	}
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if b.Snapshot().Len() != 0 {
		t.Fatalf("one undo should revert the whole batch")
	}
}

func TestDeleteAndUpdateContent(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	mustApply(t, b, AddItem{Item: textItem(2, 0, 0)})
	mustApply(t, b, UpdateContent{ID: 2, Content: domain.TextBox{Text: "hello", FontSize: 24, Color: "#ff0000"}})
	if it, _ := b.Item(2); it.DisplayName() != "hello" {
		t.Fatalf("content not updated: %q", it.DisplayName())
	}
	mustApply(t, b, DeleteItems{IDs: []domain.ItemID{1}})
	if _, ok := b.Item(1); ok {
		t.Fatalf("item 1 should be gone")
	}
	mustApply(t, b, TransformItem{ID: 2, Position: vector.Pt{X: 5, Y: 5}, Size: vector.Size{W: 300, H: 120}})
	it, _ := b.Item(2)
	if it.Position != (vector.Pt{X: 5, Y: 5}) || it.Size != (vector.Size{W: 300, H: 120}) {
		t.Fatalf("transform not applied: %+v", it)
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	snap := b.Snapshot()
	items := snap.Items()
	items[0].Position = vector.Pt{X: 999}
	mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: 1}})
	if it, _ := snap.Item(1); it.Position != (vector.Pt{}) {
		t.Fatalf("snapshot changed after later mutation: %+v", it.Position)
	}
}
