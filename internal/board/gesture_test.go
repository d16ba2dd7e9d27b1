package board

import (
	"errors"
	"testing"

	"moodboard/internal/vector"
)

func TestGestureCommitsOneSnapshot(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	b.MarkSaved(b.Revision())
	hist := b.HistoryLen()

	if err := b.BeginGesture(); err != nil {
		t.Fatal(err)
	}
	for x := 1; x <= 50; x++ {
		if err := b.UpdateGesture(MoveItem{ID: 1, To: vector.Pt{X: float32(x), Y: float32(x)}}); err != nil {
			t.Fatalf("update %d: %v", x, err)
		}
	}
	if b.HistoryLen() != hist || b.Dirty() {
		t.Fatalf("provisional updates must not touch history or dirty")
	}
	if it, _ := b.Item(1); it.Position.X != 50 {
		t.Fatalf("live state should follow the gesture, got x=%v", it.Position.X)
	}
	committed, err := b.CommitGesture()
	if err != nil || !committed {
		t.Fatalf("commit: committed=%v err=%v", committed, err)
	}
	if b.HistoryLen() != hist+1 || !b.Dirty() {
		t.Fatalf("commit should push exactly one snapshot and mark dirty (len %d)", b.HistoryLen())
	}
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if it, _ := b.Item(1); it.Position != (vector.Pt{}) {
		t.Fatalf("one undo should revert the whole drag, got %+v", it.Position)
	}
}

func TestGestureWithoutNetChangeRecordsNothing(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	b.MarkSaved(b.Revision())
	hist := b.HistoryLen()

	_ = b.BeginGesture()
	_ = b.UpdateGesture(MoveItem{ID: 1, To: vector.Pt{X: 30}})
	_ = b.UpdateGesture(MoveItem{ID: 1, To: vector.Pt{}})
	committed, err := b.CommitGesture()
	if err != nil || committed {
		t.Fatalf("commit: committed=%v err=%v, want no-op", committed, err)
	}
	if b.HistoryLen() != hist || b.Dirty() {
		t.Fatalf("no-op gesture changed history or dirty")
	}
}

func TestCancelGestureRestoresState(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	before := b.Snapshot()

	_ = b.BeginGesture()
	_ = b.UpdateGesture(ResizeItem{ID: 1, Size: vector.Size{W: 400, H: 400}})
	b.CancelGesture()
	if !b.Snapshot().Equal(before) || b.InGesture() {
		t.Fatalf("cancel did not restore the pre-gesture state")
	}
}

func TestApplyRejectedDuringGesture(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	_ = b.BeginGesture()
	if err := b.Apply(MoveItem{ID: 1, To: vector.Pt{X: 1}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("apply during gesture: got %v, want validation failure", err)
	}
	if err := b.BeginGesture(); !errors.Is(err, ErrValidation) {
		t.Fatalf("nested gesture: got %v, want validation failure", err)
	}
	if err := b.UpdateGesture(MoveItem{ID: 7, To: vector.Pt{}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad update: got %v", err)
	}
	if !b.InGesture() {
		t.Fatalf("a rejected update must keep the gesture open")
	}
}

func TestUndoCancelsOpenGesture(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	mustApply(t, b, AddItem{Item: textItem(1, 0, 0)})
	mustApply(t, b, MoveItem{ID: 1, To: vector.Pt{X: 10}})

	_ = b.BeginGesture()
	_ = b.UpdateGesture(MoveItem{ID: 1, To: vector.Pt{X: 99}})
	if err := b.Undo(); err != nil {
		t.Fatal(err)
	}
	if b.InGesture() {
		t.Fatalf("undo should close the gesture")
	}
	if it, _ := b.Item(1); it.Position.X != 0 {
		t.Fatalf("undo should step back from the committed state, got x=%v", it.Position.X)
	}
}

func TestGestureCallsWithoutBegin(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	if err := b.UpdateGesture(SetViewport{}); !errors.Is(err, ErrNoGesture) {
		t.Fatalf("update: got %v, want ErrNoGesture", err)
	}
	if _, err := b.CommitGesture(); !errors.Is(err, ErrNoGesture) {
		t.Fatalf("commit: got %v, want ErrNoGesture", err)
	}
	b.CancelGesture()
}

func TestPanGestureWithZoom(t *testing.T) {
	b, _ := newTestBoard(t, 0)
	_ = b.BeginGesture()
	for i := 0; i < 5; i++ {
		if err := b.UpdateGesture(b.ZoomAround(1.5, vector.Pt{X: 100, Y: 100})); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.CommitGesture(); err != nil {
		t.Fatal(err)
	}
	if z := b.Viewport().Zoom; z <= 7 || z > 10 {
		t.Fatalf("zoom = %v, want 1.5^5 clamped to <= 10", z)
	}
	if b.HistoryLen() != 2 {
		t.Fatalf("history length = %d, want 2", b.HistoryLen())
	}
}
