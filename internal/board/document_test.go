package board

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"moodboard/internal/domain"
	"moodboard/internal/vector"
)

func TestEncodeConformsToSchema(t *testing.T) {
	b := queryBoard(t)
	mustApply(t, b, SetViewport{Viewport: domain.Viewport{Offset: vector.Pt{X: -20, Y: 5}, Zoom: 1.5}})
	data, err := Encode(b.Document())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(SchemaJSON()), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("encoded board does not conform to schema")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	vp := raw["viewport"].(map[string]any)
	if vp["offset_x"] != -20.0 || vp["zoom"] != 1.5 {
		t.Fatalf("unexpected viewport layout: %v", vp)
	}
	items := raw["items"].([]any)
	if typ := items[0].(map[string]any)["content"].(map[string]any)["type"]; typ != "image" {
		t.Fatalf("content type tag = %v", typ)
	}
}

func TestDecodeOpenRoundTrip(t *testing.T) {
	b := queryBoard(t)
	data, err := Encode(b.Document())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, repaired := Open(doc, Options{})
	if repaired {
		t.Fatalf("a clean document should not need repair")
	}
	if !got.Snapshot().Equal(b.Snapshot()) {
		t.Fatalf("reopened board differs:\n got %+v\nwant %+v", got.Items(), b.Items())
	}
	if got.NextItemID() != b.NextItemID() {
		t.Fatalf("next id = %d, want %d", got.NextItemID(), b.NextItemID())
	}
	if got.Dirty() || got.CanUndo() {
		t.Fatalf("opened board should be clean with nothing to undo")
	}
}

func TestDecodeRejectsNonDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"id":`,
		"missing items":   `{"id":"x","viewport":{"offset_x":0,"offset_y":0,"zoom":1}}`,
		"untyped content": `{"id":"x","viewport":{"offset_x":0,"offset_y":0},"items":[{"id":1,"position":{"x":0,"y":0},"size":{"w":1,"h":1},"content":{}}]}`,
		"string zoom":     `{"id":"x","viewport":{"offset_x":0,"offset_y":0,"zoom":"big"},"items":[]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(in)); !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("got %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestOpenRepairsOutOfRangeValues(t *testing.T) {
	in := `{
	  "id": "old",
	  "viewport": {"offset_x": 0, "offset_y": 0, "zoom": 80},
	  "items": [
	    {"id": 4, "position": {"x": 1, "y": 2}, "size": {"w": 5, "h": 5},
	     "content": {"type": "textbox", "text": "hi", "font_size": 900, "color": "blue"}},
	    {"id": 4, "position": {"x": 0, "y": 0}, "size": {"w": 50, "h": 50},
	     "content": {"type": "pdf", "path": "dup.pdf"}}
	  ]
	}`
	doc, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, repaired := Open(doc, Options{})
	if !repaired || !b.Dirty() {
		t.Fatalf("expected a repaired, dirty board")
	}
	if z := b.Viewport().Zoom; z != domain.MaxZoom {
		t.Fatalf("zoom = %v, want clamped to %v", z, domain.MaxZoom)
	}
	items := b.Items()
	if len(items) != 1 {
		t.Fatalf("duplicate id should be dropped, got %d items", len(items))
	}
	tb := items[0].Content.(domain.TextBox)
	if tb.FontSize != domain.MaxFontSize || tb.Color != domain.DefaultTextColor {
		t.Fatalf("textbox not sanitized: %+v", tb)
	}
	if items[0].Size.W < domain.MinTextBoxWidth || items[0].Size.H < domain.MinTextBoxHeight {
		t.Fatalf("textbox size not raised to minimum: %+v", items[0].Size)
	}
	if err := items[0].Validate(); err != nil {
		t.Fatalf("sanitized item still invalid: %v", err)
	}
	if b.NextItemID() != 5 {
		t.Fatalf("next id = %d, want 5", b.NextItemID())
	}
}

func TestOpenDropsUnknownContent(t *testing.T) {
	in := `{
	  "id": "newer",
	  "viewport": {"offset_x": 0, "offset_y": 0, "zoom": 1},
	  "next_item_id": 3,
	  "items": [
	    {"id": 1, "position": {"x": 0, "y": 0}, "size": {"w": 300, "h": 150},
	     "content": {"type": "link", "url": "https://example.com"}},
	    {"id": 7, "position": {"x": 10, "y": 10}, "size": {"w": 50, "h": 50},
	     "content": {"type": "hologram", "depth": 3}}
	  ]
	}`
	doc, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, repaired := Open(doc, Options{})
	if !repaired || !b.Dirty() {
		t.Fatalf("dropping an item should count as a repair")
	}
	if items := b.Items(); len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("unexpected items %+v", items)
	}
	if b.NextItemID() != 8 {
		t.Fatalf("next id = %d, want 8", b.NextItemID())
	}
}

func TestValidateReportsSchemaErrors(t *testing.T) {
	err := Validate([]byte(`{"id":""}`))
	if !errors.Is(err, ErrInvalidDocument) || !strings.Contains(err.Error(), "viewport") {
		t.Fatalf("got %v", err)
	}
}
