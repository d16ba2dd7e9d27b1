//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"moodboard/internal/app"
	"moodboard/internal/board"
	"moodboard/internal/config"
	"moodboard/internal/crash"
	"moodboard/internal/domain"
	"moodboard/internal/focus"
	applog "moodboard/internal/log"
	"moodboard/internal/metrics"
	"moodboard/internal/notify"
	"moodboard/internal/storage"
	"moodboard/internal/vector"
	"moodboard/internal/version"
)

// Run starts the Fyne desktop shell on boardID, or on the most recent board when
// boardID is empty. Board state lives on the application event loop; the widgets
// only ever see immutable snapshots handed over with fyne.Do.
func Run(cfg config.AppConfig, sec config.Secrets, boardID string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status := widget.NewLabel("Ready")
	toast := notify.Func(func(e notify.Event) {
		msg := fmt.Sprintf("%s: %v", e.Kind, e.Err)
		fyne.Do(func() { status.SetText(msg) })
	})
	a, err := app.New(ctx, app.Options{
		Config:   cfg,
		Secrets:  sec,
		Notifier: notify.Multi{notify.LogNotifier{}, toast},
		Metrics:  metrics.Default(),
	})
	if err != nil {
		return err
	}
	loop := a.Loop()
	// Sessions belong to the loop goroutine; a panic anywhere else saves through it.
	defer crash.Recover(crash.OnLoop(loop, a), cfg.Storage.DataDir)

	if _, err := a.PurgeTrash(ctx); err != nil {
		l.Warn("purge trash failed", slog.Any("err", err))
	}
	go func() {
		defer crash.Recover(a, cfg.Storage.DataDir)
		_ = loop.Run(ctx)
	}()
	if cfg.Metrics.Enabled {
		go func() {
			if err := a.Metrics().Serve(ctx, cfg.Metrics.Addr); err != nil {
				l.Warn("metrics endpoint stopped", slog.Any("err", err))
			}
		}()
	}
	if path, err := config.ConfigPath(); err == nil {
		err := config.Watch(ctx, path, func(c config.AppConfig) {
			loop.Post(func() {
				if err := a.ApplyConfig(c); err != nil {
					l.Warn("apply config failed", slog.Any("err", err))
				}
			})
		})
		if err != nil {
			l.Warn("config watch unavailable", slog.Any("err", err))
		}
	}

	var s *app.Session
	var openErr error
	if err := loop.Call(ctx, func() { s, openErr = openOrCreate(ctx, a, boardID) }); err != nil {
		return err
	}
	if openErr != nil {
		return openErr
	}

	fa := fyneapp.NewWithID("moodboard")
	w := fa.NewWindow("Moodboard")
	prefs := fa.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1280), 800)),
		float32(max(prefs.IntWithFallback("window.height", 800), 600)),
	))

	bc := NewBoardCanvas()
	c := &controller{a: a, s: s, bc: bc, w: w, status: status, log: l}
	c.wire()

	toolbar := container.NewHBox(
		widget.NewButton("Text", func() { c.post(func() { c.addAtCenter(domain.TextBox{Text: "Text", FontSize: domain.DefaultFontSize, Color: "#ffffff"}) }) }),
		widget.NewButton("Shape", func() {
			c.post(func() {
				c.addAtCenter(domain.Shape{Type: domain.ShapeRoundedRect, Fill: "#3a4a5c", Border: "#8899aa", BorderWidth: 2})
			})
		}),
		widget.NewButton("Link…", c.promptURL),
		widget.NewButton("Undo", func() { c.post(func() { _ = c.s.Undo() }) }),
		widget.NewButton("Redo", func() { c.post(func() { _ = c.s.Redo() }) }),
		widget.NewButton("Save", func() { c.post(func() { _ = c.s.Save(ctx) }) }),
	)
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, bc))

	w.SetOnDropped(func(pos fyne.Position, uris []fyne.URI) {
		at := vector.Pt{X: pos.X, Y: pos.Y}
		c.post(func() {
			p := c.s.Board.Viewport().ToCanvas(at)
			for i, u := range uris {
				if _, ok, err := c.s.AddFile(u.Path(), p.Add(vector.Pt{X: float32(i) * 24, Y: float32(i) * 24})); !ok {
					c.setStatus(fmt.Sprintf("Unsupported file: %s", u.Name()))
				} else if err != nil {
					c.setStatus(err.Error())
				}
			}
		})
	})

	w.SetCloseIntercept(func() {
		prefs.SetInt("window.width", int(w.Canvas().Size().Width))
		prefs.SetInt("window.height", int(w.Canvas().Size().Height))
		var closeErr error
		if err := loop.Call(ctx, func() { closeErr = a.Shutdown(ctx) }); err != nil {
			closeErr = err
		}
		if errors.Is(closeErr, app.ErrUnsaved) {
			dialog.ShowConfirm("Unsaved changes", "The board could not be saved. Quit anyway?", func(ok bool) {
				if ok {
					w.Close()
				}
			}, w)
			w.SetCloseIntercept(nil)
			return
		}
		w.Close()
	})

	c.publish()
	w.ShowAndRun()
	return nil
}

func openOrCreate(ctx context.Context, a *app.App, id string) (*app.Session, error) {
	if id != "" {
		return a.Open(ctx, id)
	}
	boards, err := a.Index().List(ctx, storage.ListOptions{})
	if err != nil {
		return nil, err
	}
	if len(boards) > 0 {
		return a.Open(ctx, boards[0].ID)
	}
	return a.Create(ctx, "")
}

// controller translates widget events into session calls on the event loop.
// Fields other than the drag state are set once before the window shows.
type controller struct {
	a      *app.App
	s      *app.Session
	bc     *BoardCanvas
	w      fyne.Window
	status *widget.Label
	log    *slog.Logger

	// loop-owned drag state
	dragStarts map[domain.ItemID]vector.Pt
	dragVP     domain.Viewport
	lastTitle  string
}

// post runs fn on the event loop and republishes the board afterwards.
func (c *controller) post(fn func()) {
	c.a.Loop().Post(func() {
		fn()
		c.publish()
	})
}

// publish hands the current snapshot to the widgets. Must run on the loop.
func (c *controller) publish() {
	snap, sel, vp := c.s.Board.Snapshot(), c.s.Selection(), c.s.Board.Viewport()
	title := c.title()
	c.lastTitle = title
	fyne.Do(func() {
		c.bc.SetView(snap, vp, sel)
		c.w.SetTitle(title)
	})
}

func (c *controller) title() string {
	t := c.s.Meta.Name + " - Moodboard " + version.String()
	if c.s.Board.Dirty() {
		t = "• " + t
	}
	return t
}

func (c *controller) setStatus(msg string) { fyne.Do(func() { c.status.SetText(msg) }) }

func (c *controller) addAtCenter(content domain.Content) {
	sz := content.DefaultSize()
	vp := c.s.Board.Viewport()
	sc := c.s.ScreenSize()
	centre := vp.ToCanvas(vector.Pt{X: sc.W / 2, Y: sc.H / 2})
	if _, err := c.s.AddContent(content, centre.Sub(vector.Pt{X: sz.W / 2, Y: sz.H / 2})); err != nil {
		c.setStatus(err.Error())
	}
}

func (c *controller) wire() {
	loop := c.a.Loop()
	// The dirty marker changes when a background flush lands; poll it cheaply.
	loop.Every(250*time.Millisecond, func() {
		if c.title() != c.lastTitle {
			c.publish()
		}
	})

	c.bc.OnResize = func(sz fyne.Size) {
		c.post(func() { c.s.Screen = vector.Size{W: sz.Width, H: sz.Height} })
	}
	c.bc.OnTap = func(p vector.Pt) {
		c.post(func() {
			hits := c.s.Board.ItemsAt(c.s.Board.Viewport().ToCanvas(p))
			if len(hits) == 0 {
				c.s.Select()
				return
			}
			c.s.Select(hits[0])
		})
	}
	c.bc.OnDoubleTap = func(p vector.Pt) {
		c.post(func() {
			hits := c.s.Board.ItemsAt(c.s.Board.Viewport().ToCanvas(p))
			if len(hits) == 0 {
				return
			}
			if it, ok := c.s.Board.Item(hits[0]); ok {
				if tb, isText := it.Content.(domain.TextBox); isText {
					c.editText(it.ID, tb)
				}
			}
		})
	}
	c.bc.OnDragStart = func(p vector.Pt) {
		c.post(func() { c.beginDrag(p) })
	}
	c.bc.OnDrag = func(total vector.Pt) {
		c.post(func() { c.updateDrag(total) })
	}
	c.bc.OnDragEnd = func() {
		c.post(func() {
			if _, err := c.s.Board.CommitGesture(); err != nil && !errors.Is(err, board.ErrNoGesture) {
				c.setStatus(err.Error())
			}
		})
	}
	c.bc.OnZoom = func(factor float32, anchor vector.Pt) {
		c.post(func() { _ = c.s.Apply(c.s.Board.ZoomAround(factor, anchor)) })
	}

	cv := c.w.Canvas()
	cv.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if name, ok := plainKeys[ev.Name]; ok {
			c.key(app.Key{Name: name})
		}
	})
	for _, sc := range chords {
		k := sc.key
		cv.AddShortcut(&desktop.CustomShortcut{KeyName: sc.name, Modifier: sc.mod}, func(fyne.Shortcut) { c.key(k) })
	}
}

var plainKeys = map[fyne.KeyName]string{
	fyne.KeyDelete:    "delete",
	fyne.KeyBackspace: "backspace",
	fyne.KeyEscape:    "escape",
	fyne.KeyUp:        "up",
	fyne.KeyDown:      "down",
	fyne.KeyLeft:      "left",
	fyne.KeyRight:     "right",
}

type chord struct {
	name fyne.KeyName
	mod  fyne.KeyModifier
	key  app.Key
}

var chords = []chord{
	{fyne.KeyZ, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+z")},
	{fyne.KeyZ, fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift, app.ParseKey("ctrl+shift+z")},
	{fyne.KeyY, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+y")},
	{fyne.KeyK, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+k")},
	{fyne.KeyS, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+s")},
	{fyne.KeyD, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+d")},
	{fyne.KeyA, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+a")},
	{fyne.KeyEqual, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+=")},
	{fyne.KeyMinus, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+-")},
	{fyne.Key0, fyne.KeyModifierShortcutDefault, app.ParseKey("ctrl+0")},
}

func (c *controller) key(k app.Key) {
	c.post(func() {
		handled, err := c.s.HandleKey(context.Background(), k)
		if err != nil && !errors.Is(err, focus.ErrSuppressed) {
			c.setStatus(err.Error())
		}
		if handled && k.Name == "k" && c.s.Focus.Active() == focus.CommandPalette {
			fyne.Do(c.showPalette)
		}
	})
}

func (c *controller) beginDrag(screen vector.Pt) {
	b := c.s.Board
	if err := b.BeginGesture(); err != nil {
		return
	}
	c.dragVP = b.Viewport()
	c.dragStarts = nil
	hits := b.ItemsAt(c.dragVP.ToCanvas(screen))
	if len(hits) == 0 {
		return
	}
	sel := c.s.Selection()
	if !containsID(sel, hits[0]) {
		c.s.Select(hits[0])
		sel = c.s.Selection()
	}
	c.dragStarts = make(map[domain.ItemID]vector.Pt, len(sel))
	for _, id := range sel {
		if it, ok := b.Item(id); ok {
			c.dragStarts[id] = it.Position
		}
	}
}

// updateDrag moves the dragged items, or pans when the drag started on empty canvas.
func (c *controller) updateDrag(total vector.Pt) {
	if !c.s.Board.InGesture() {
		return
	}
	if c.dragStarts == nil {
		vp := c.dragVP
		vp.Offset = vp.Offset.Add(total)
		_ = c.s.UpdateGesture(board.SetViewport{Viewport: vp})
		return
	}
	d := vector.Pt{X: total.X / c.dragVP.Zoom, Y: total.Y / c.dragVP.Zoom}
	cmds := make([]board.Command, 0, len(c.dragStarts))
	for id, start := range c.dragStarts {
		cmds = append(cmds, board.MoveItem{ID: id, To: start.Add(d)})
	}
	_ = c.s.UpdateGesture(board.Batch{Commands: cmds})
}

// editText opens the text editor dialog. Runs on the loop; the dialog itself is
// shown on the UI goroutine.
func (c *controller) editText(id domain.ItemID, tb domain.TextBox) {
	if err := c.s.Focus.Focus(focus.TextboxEditing); err != nil {
		return
	}
	fyne.Do(func() {
		entry := widget.NewMultiLineEntry()
		entry.SetText(tb.Text)
		dialog.ShowForm("Edit text", "Apply", "Cancel", []*widget.FormItem{widget.NewFormItem("Text", entry)}, func(ok bool) {
			text := entry.Text
			c.post(func() {
				c.s.Focus.Release(focus.TextboxEditing)
				if !ok {
					return
				}
				tb.Text = text
				if err := c.s.Apply(board.UpdateContent{ID: id, Content: tb}); err != nil {
					c.setStatus(err.Error())
				}
			})
		}, c.w)
	})
}

func (c *controller) promptURL() {
	c.post(func() {
		if err := c.s.Focus.Focus(focus.Modal); err != nil {
			return
		}
		fyne.Do(func() {
			entry := widget.NewEntry()
			entry.SetPlaceHolder("https://")
			dialog.ShowForm("Add link", "Add", "Cancel", []*widget.FormItem{widget.NewFormItem("URL", entry)}, func(ok bool) {
				raw := entry.Text
				c.post(func() {
					c.s.Focus.Release(focus.Modal)
					if ok {
						c.addAtCenter(domain.ContentForURL(raw))
					}
				})
			}, c.w)
		})
	})
}

// showPalette lists the board's items; picking one centres the view on it.
func (c *controller) showPalette() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("Find on board…")
	var results []domain.CanvasItem
	list := widget.NewList(
		func() int { return len(results) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			it := results[i]
			o.(*widget.Label).SetText(it.Content.TypeLabel() + " · " + it.DisplayName())
		},
	)
	var d dialog.Dialog
	search := func(q string) {
		c.a.Loop().Post(func() {
			found := c.s.Board.FindItems(q)
			fyne.Do(func() {
				results = found
				list.Refresh()
			})
		})
	}
	entry.OnChanged = search
	list.OnSelected = func(i widget.ListItemID) {
		id := results[i].ID
		d.Hide()
		c.post(func() {
			if cmd, err := c.s.Board.CenterOn(id, c.s.ScreenSize()); err == nil {
				_ = c.s.Apply(cmd)
				c.s.Select(id)
			}
		})
	}
	content := container.NewBorder(entry, nil, nil, nil, list)
	d = dialog.NewCustom("Command palette", "Close", content, c.w)
	d.SetOnClosed(func() {
		c.a.Loop().Post(func() { c.s.Focus.Release(focus.CommandPalette) })
	})
	d.Resize(fyne.NewSize(480, 360))
	d.Show()
	c.w.Canvas().Focus(entry)
	search("")
}

func containsID(ids []domain.ItemID, id domain.ItemID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// BoardCanvas draws a board snapshot and reports pointer input in screen
// coordinates. It holds no board state beyond the last snapshot it was given.
type BoardCanvas struct {
	widget.BaseWidget

	snap     *board.Snapshot
	vp       domain.Viewport
	selected map[domain.ItemID]bool

	dragging  bool
	dragTotal vector.Pt

	OnResize    func(fyne.Size)
	OnTap       func(screen vector.Pt)
	OnDoubleTap func(screen vector.Pt)
	OnDragStart func(screen vector.Pt)
	OnDrag      func(total vector.Pt)
	OnDragEnd   func()
	OnZoom      func(factor float32, anchor vector.Pt)
}

func NewBoardCanvas() *BoardCanvas {
	bc := &BoardCanvas{vp: domain.DefaultViewport(), selected: map[domain.ItemID]bool{}}
	bc.ExtendBaseWidget(bc)
	return bc
}

// SetView replaces the displayed snapshot. Must be called on the UI goroutine.
func (bc *BoardCanvas) SetView(s *board.Snapshot, vp domain.Viewport, selection []domain.ItemID) {
	bc.snap, bc.vp = s, vp
	clear(bc.selected)
	for _, id := range selection {
		bc.selected[id] = true
	}
	bc.Refresh()
}

func (bc *BoardCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

func (bc *BoardCanvas) Resize(sz fyne.Size) {
	bc.BaseWidget.Resize(sz)
	if bc.OnResize != nil {
		bc.OnResize(sz)
	}
}

func pt(p fyne.Position) vector.Pt { return vector.Pt{X: p.X, Y: p.Y} }

func (bc *BoardCanvas) Tapped(e *fyne.PointEvent) {
	if bc.OnTap != nil {
		bc.OnTap(pt(e.Position))
	}
}

func (bc *BoardCanvas) DoubleTapped(e *fyne.PointEvent) {
	if bc.OnDoubleTap != nil {
		bc.OnDoubleTap(pt(e.Position))
	}
}

func (bc *BoardCanvas) Dragged(e *fyne.DragEvent) {
	if !bc.dragging {
		bc.dragging = true
		bc.dragTotal = vector.Pt{}
		start := vector.Pt{X: e.Position.X - e.Dragged.DX, Y: e.Position.Y - e.Dragged.DY}
		if bc.OnDragStart != nil {
			bc.OnDragStart(start)
		}
	}
	bc.dragTotal = bc.dragTotal.Add(vector.Pt{X: e.Dragged.DX, Y: e.Dragged.DY})
	if bc.OnDrag != nil {
		bc.OnDrag(bc.dragTotal)
	}
}

func (bc *BoardCanvas) DragEnd() {
	bc.dragging = false
	if bc.OnDragEnd != nil {
		bc.OnDragEnd()
	}
}

// Scrolled zooms around the pointer.
func (bc *BoardCanvas) Scrolled(e *fyne.ScrollEvent) {
	if bc.OnZoom == nil || e.Scrolled.DY == 0 {
		return
	}
	factor := float32(1.1)
	if e.Scrolled.DY < 0 {
		factor = 1 / factor
	}
	bc.OnZoom(factor, pt(e.Position))
}

func (bc *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(canvasBackground)
	return &boardCanvasRenderer{bc: bc, bg: bg}
}

// itemVisual is the set of canvas objects drawing one item.
type itemVisual struct {
	card  *canvas.Rectangle
	label *canvas.Text
	line  *canvas.Line
}

type boardCanvasRenderer struct {
	bc      *BoardCanvas
	bg      *canvas.Rectangle
	visuals []itemVisual
	objects []fyne.CanvasObject
}

func (r *boardCanvasRenderer) Destroy()                     {}
func (r *boardCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardCanvasRenderer) MinSize() fyne.Size           { return r.bc.MinSize() }
func (r *boardCanvasRenderer) Refresh()                     { r.Layout(r.bc.Size()); canvas.Refresh(r.bc) }

// ensure grows the visual pool to n items and rebuilds the object list.
func (r *boardCanvasRenderer) ensure(n int) {
	for len(r.visuals) < n {
		v := itemVisual{
			card:  canvas.NewRectangle(cardStroke),
			label: canvas.NewText("", canvasBackground),
			line:  canvas.NewLine(cardStroke),
		}
		v.card.CornerRadius = 4
		r.visuals = append(r.visuals, v)
	}
	r.objects = append(r.objects[:0], r.bg)
	for _, v := range r.visuals {
		r.objects = append(r.objects, v.card, v.line, v.label)
	}
}

func (r *boardCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	var items []domain.CanvasItem
	if r.bc.snap != nil {
		items = r.bc.snap.Items()
	}
	r.ensure(len(items))
	vp := r.bc.vp
	for i, v := range r.visuals {
		if i >= len(items) {
			v.card.Hide()
			v.line.Hide()
			v.label.Hide()
			continue
		}
		it := items[i]
		fill, stroke, text := itemStyle(it)
		box := it.BoundingBox()
		lo, hi := vp.ToScreen(box.Min()), vp.ToScreen(box.Max())

		if arrow, ok := it.Content.(domain.Arrow); ok {
			v.card.Hide()
			a, b := vp.ToScreen(it.Position.Add(arrow.Start)), vp.ToScreen(it.Position.Add(arrow.End))
			v.line.Position1, v.line.Position2 = fyne.NewPos(a.X, a.Y), fyne.NewPos(b.X, b.Y)
			v.line.StrokeColor = stroke
			v.line.StrokeWidth = arrow.Thickness * vp.Zoom
			v.line.Show()
			v.label.Hide()
			continue
		}
		v.line.Hide()
		v.card.FillColor = fill
		v.card.StrokeColor = stroke
		v.card.StrokeWidth = 1
		if r.bc.selected[it.ID] {
			v.card.StrokeColor = selectionStroke
			v.card.StrokeWidth = 2
		}
		v.card.Move(fyne.NewPos(lo.X, lo.Y))
		v.card.Resize(fyne.NewSize(hi.X-lo.X, hi.Y-lo.Y))
		v.card.Show()

		v.label.Text = it.DisplayName()
		v.label.Color = text
		v.label.TextSize = labelSize * vp.Zoom
		if tb, ok := it.Content.(domain.TextBox); ok {
			v.label.TextSize = tb.FontSize * vp.Zoom
		}
		v.label.Move(fyne.NewPos(lo.X+6*vp.Zoom, lo.Y+4*vp.Zoom))
		v.label.Show()
	}
}

const labelSize = 14
