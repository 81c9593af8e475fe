// seehuhn.de/go/pdfmark - highlights, notes and deep links for PDF viewers
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package region

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/viewer"
)

// fakeNode is one text node of a fakeText layer.  Characters divide
// the node's box evenly.
type fakeNode struct {
	box   viewer.Box
	chars int
}

type fakeText struct {
	nodes map[int]fakeNode
	num   int
}

func (f *fakeText) NumNodes() int { return f.num }

func (f *fakeText) NodeBox(node int) (viewer.Box, bool) {
	n, ok := f.nodes[node]
	return n.box, ok
}

func (f *fakeText) RangeBox(node, startChar, endChar int) (viewer.Box, bool) {
	n, ok := f.nodes[node]
	if !ok {
		return viewer.Box{}, false
	}
	if startChar < 0 {
		startChar = 0
	}
	if endChar < 0 || endChar > n.chars {
		endChar = n.chars
	}
	w := n.box.W / float64(n.chars)
	return viewer.Box{
		X: n.box.X + w*float64(startChar),
		Y: n.box.Y,
		W: w * float64(endChar-startChar),
		H: n.box.H,
	}, true
}

// testView returns a page view at zoom 2 of a page which is 800
// document units high.  The transform flips the y axis, the way
// viewers map PDF coordinates onto the screen.
func testView(text viewer.TextLayer) *viewer.PageView {
	return &viewer.PageView{
		Page:      3,
		Transform: matrix.Matrix{2, 0, 0, -2, 0, 1600},
		PageBox:   &pdf.Rectangle{LLx: 0, LLy: 0, URx: 600, URy: 800},
		Text:      text,
	}
}

// TestMergeSameLine checks that a selection crossing several text
// nodes on one visual line resolves to a single rectangle.
func TestMergeSameLine(t *testing.T) {
	text := &fakeText{
		nodes: map[int]fakeNode{
			0: {viewer.Box{X: 10, Y: 100, W: 100, H: 20}, 10},
			1: {viewer.Box{X: 110, Y: 100, W: 80, H: 20}, 8},
			2: {viewer.Box{X: 190, Y: 102, W: 60, H: 18}, 6},
		},
		num: 3,
	}
	sel := pdfmark.Selection{Begin: pdfmark.Anchor{0, 2}, End: pdfmark.Anchor{2, 4}}

	got := FromSelection(testView(text), sel)
	want := []pdf.Rectangle{
		{LLx: 15, LLy: 740, URx: 115, URy: 750},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rects mismatch (-want +got):\n%s", diff)
	}
}

// TestSeparateLines checks that rectangles on different visual lines
// are not merged, and that rectangles whose vertical centers differ by
// exactly half the larger height count as different lines.
func TestSeparateLines(t *testing.T) {
	text := &fakeText{
		nodes: map[int]fakeNode{
			0: {viewer.Box{X: 10, Y: 100, W: 100, H: 20}, 10},
			1: {viewer.Box{X: 10, Y: 140, W: 100, H: 20}, 10},
		},
		num: 2,
	}
	sel := pdfmark.Selection{Begin: pdfmark.Anchor{0, 0}, End: pdfmark.Anchor{1, 5}}

	got := FromSelection(testView(text), sel)
	want := []pdf.Rectangle{
		{LLx: 5, LLy: 740, URx: 55, URy: 750},
		{LLx: 5, LLy: 720, URx: 30, URy: 730},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rects mismatch (-want +got):\n%s", diff)
	}

	// Exactly half the height apart: still two lines.
	boundary := []pdf.Rectangle{
		{LLx: 0, LLy: 740, URx: 50, URy: 750},
		{LLx: 0, LLy: 735, URx: 50, URy: 745},
	}
	if got := mergeLines(boundary); len(got) != 2 {
		t.Errorf("rects at the merge threshold: got %d rects, want 2", len(got))
	}

	// Just inside the threshold: one line.
	near := []pdf.Rectangle{
		{LLx: 0, LLy: 740, URx: 50, URy: 750},
		{LLx: 0, LLy: 736, URx: 50, URy: 746},
	}
	if got := mergeLines(near); len(got) != 1 {
		t.Errorf("rects inside the merge threshold: got %d rects, want 1", len(got))
	}
}

// TestMissingNodes checks that a missing boundary node invalidates the
// whole selection, while missing interior nodes are skipped.
func TestMissingNodes(t *testing.T) {
	sel := pdfmark.Selection{Begin: pdfmark.Anchor{5, 2}, End: pdfmark.Anchor{7, 9}}

	full := map[int]fakeNode{
		5: {viewer.Box{X: 10, Y: 100, W: 100, H: 20}, 10},
		6: {viewer.Box{X: 10, Y: 140, W: 100, H: 20}, 10},
		7: {viewer.Box{X: 10, Y: 180, W: 100, H: 20}, 10},
	}

	text := &fakeText{nodes: full, num: 8}
	if got := FromSelection(testView(text), sel); len(got) == 0 {
		t.Error("complete text layer: got no rects")
	}

	noEnd := map[int]fakeNode{5: full[5], 6: full[6]}
	text = &fakeText{nodes: noEnd, num: 7}
	if got := FromSelection(testView(text), sel); got != nil {
		t.Errorf("missing end node: got %d rects, want none", len(got))
	}

	noBegin := map[int]fakeNode{6: full[6], 7: full[7]}
	text = &fakeText{nodes: noBegin, num: 8}
	if got := FromSelection(testView(text), sel); got != nil {
		t.Errorf("missing begin node: got %d rects, want none", len(got))
	}

	noInterior := map[int]fakeNode{5: full[5], 7: full[7]}
	text = &fakeText{nodes: noInterior, num: 8}
	if got := FromSelection(testView(text), sel); len(got) != 2 {
		t.Errorf("missing interior node: got %d rects, want 2", len(got))
	}
}

func TestFromSelectionInvalid(t *testing.T) {
	text := &fakeText{
		nodes: map[int]fakeNode{0: {viewer.Box{X: 10, Y: 100, W: 100, H: 20}, 10}},
		num:   1,
	}
	sel := pdfmark.Selection{Begin: pdfmark.Anchor{0, 0}, End: pdfmark.Anchor{0, 5}}

	// no text layer
	if got := FromSelection(testView(nil), sel); got != nil {
		t.Error("nil text layer: got rects")
	}

	// reversed selection
	rev := pdfmark.Selection{Begin: pdfmark.Anchor{0, 5}, End: pdfmark.Anchor{0, 0}}
	if got := FromSelection(testView(text), rev); got != nil {
		t.Error("reversed selection: got rects")
	}

	// degenerate transform
	pv := testView(text)
	pv.Transform = matrix.Matrix{}
	if got := FromSelection(pv, sel); got != nil {
		t.Error("singular transform: got rects")
	}
}

func TestFromCorners(t *testing.T) {
	pv := testView(nil)

	got := FromCorners(pv, vec.Vec2{X: 30, Y: 100}, vec.Vec2{X: 110, Y: 140})
	want := &pdf.Rectangle{LLx: 15, LLy: 730, URx: 55, URy: 750}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}

	// corner order must not matter
	swapped := FromCorners(pv, vec.Vec2{X: 110, Y: 140}, vec.Vec2{X: 30, Y: 100})
	if diff := cmp.Diff(want, swapped); diff != "" {
		t.Errorf("swapped corners mismatch (-want +got):\n%s", diff)
	}

	// a zero-area marquee resolves to nothing
	if got := FromCorners(pv, vec.Vec2{X: 30, Y: 100}, vec.Vec2{X: 30, Y: 140}); got != nil {
		t.Error("empty marquee: got a rect")
	}
}

// TestBoundingBox checks that the bounding box contains every input
// rectangle.
func TestBoundingBox(t *testing.T) {
	rects := []pdf.Rectangle{
		{LLx: 10, LLy: 740, URx: 300, URy: 752},
		{LLx: 5, LLy: 726, URx: 310, URy: 738},
		{LLx: 10, LLy: 712, URx: 150, URy: 724},
	}
	bbox := BoundingBox(rects)
	for i, r := range rects {
		if r.LLx < bbox.LLx || r.LLy < bbox.LLy || r.URx > bbox.URx || r.URy > bbox.URy {
			t.Errorf("rect %d not contained in %v", i, bbox)
		}
	}
	want := pdf.Rectangle{LLx: 5, LLy: 712, URx: 310, URy: 752}
	if bbox != want {
		t.Errorf("got %v, want %v", bbox, want)
	}

	if got := BoundingBox(nil); !got.IsZero() {
		t.Errorf("empty input: got %v", got)
	}
}

func TestQuadPoints(t *testing.T) {
	rects := []pdf.Rectangle{
		{LLx: 1, LLy: 2, URx: 3, URy: 4},
		{LLx: 5, LLy: 6, URx: 7, URy: 8},
	}
	got := QuadPoints(rects)
	want := []vec.Vec2{
		{X: 1, Y: 4}, {X: 3, Y: 4}, {X: 1, Y: 2}, {X: 3, Y: 2},
		{X: 5, Y: 8}, {X: 7, Y: 8}, {X: 5, Y: 6}, {X: 7, Y: 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("quad points mismatch (-want +got):\n%s", diff)
	}
}
