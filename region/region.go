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

// Package region converts viewer geometry into document coordinates.
//
// Screen positions depend on the current scroll offset and zoom
// factor.  To make a marked region durable, its screen boxes are
// mapped through the inverse of the viewport transform into page
// coordinates; the resulting rectangles stay valid across rendering
// changes and are the form in which regions are cached, persisted and
// linked to.
//
// The functions in this package are pure: they do no I/O and report
// unresolvable geometry by returning nil, which callers must treat as
// "nothing to mark".
package region

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/viewer"
)

// FromSelection resolves a text selection on a rendered page into
// document-space rectangles, at most one per visual line, in reading
// order.
//
// The first and the last text node contribute the box of the selected
// character range, nodes in between contribute their full box.  Boxes
// on the same visual line are merged into one enclosing rectangle.
//
// The result is nil if the text layer is missing, the selection is
// invalid, or one of the two boundary nodes cannot be found.  Missing
// interior nodes are skipped and do not invalidate the rest.
func FromSelection(pv *viewer.PageView, sel pdfmark.Selection) []pdf.Rectangle {
	if pv == nil || pv.Text == nil || !sel.IsValid() {
		return nil
	}
	inv, ok := invert(pv.Transform)
	if !ok {
		return nil
	}

	text := pv.Text
	begin, end := sel.Begin, sel.End
	if end.Node >= text.NumNodes() {
		return nil
	}

	var rects []pdf.Rectangle
	for node := begin.Node; node <= end.Node; node++ {
		var box viewer.Box
		var ok bool
		switch {
		case node == begin.Node && node == end.Node:
			box, ok = text.RangeBox(node, begin.Offset, end.Offset)
		case node == begin.Node:
			box, ok = text.RangeBox(node, begin.Offset, -1)
		case node == end.Node:
			box, ok = text.RangeBox(node, 0, end.Offset)
		default:
			box, ok = text.NodeBox(node)
		}
		if !ok {
			if node == begin.Node || node == end.Node {
				// Without the boundary nodes the extent of the
				// selection is unknown.
				return nil
			}
			continue
		}
		if box.W <= 0 || box.H <= 0 {
			continue
		}
		rects = append(rects, toDocument(inv, box))
	}
	return mergeLines(rects)
}

// FromCorners resolves a freehand marquee, given by two opposite
// corners in screen coordinates, into a document-space rectangle.
// The result is nil if the rectangle would be empty.
func FromCorners(pv *viewer.PageView, p0, p1 vec.Vec2) *pdf.Rectangle {
	if pv == nil {
		return nil
	}
	inv, ok := invert(pv.Transform)
	if !ok {
		return nil
	}

	x0, y0 := inv.Apply(p0.X, p0.Y)
	x1, y1 := inv.Apply(p1.X, p1.Y)
	r := &pdf.Rectangle{
		LLx: math.Min(x0, x1),
		LLy: math.Min(y0, y1),
		URx: math.Max(x0, x1),
		URy: math.Max(y0, y1),
	}
	if r.LLx >= r.URx || r.LLy >= r.URy {
		return nil
	}
	return r
}

// BoundingBox returns the smallest rectangle containing all the given
// rectangles.
func BoundingBox(rects []pdf.Rectangle) pdf.Rectangle {
	var bbox pdf.Rectangle
	if len(rects) == 0 {
		return bbox
	}
	bbox = rects[0]
	for i := range rects[1:] {
		bbox.Extend(&rects[i+1])
	}
	return bbox
}

// QuadPoints returns the corners of the given rectangles in the order
// used by the QuadPoints entry of text markup annotations: for each
// rectangle top-left, top-right, bottom-left, bottom-right.
func QuadPoints(rects []pdf.Rectangle) []vec.Vec2 {
	quads := make([]vec.Vec2, 0, 4*len(rects))
	for _, r := range rects {
		quads = append(quads,
			vec.Vec2{X: r.LLx, Y: r.URy},
			vec.Vec2{X: r.URx, Y: r.URy},
			vec.Vec2{X: r.LLx, Y: r.LLy},
			vec.Vec2{X: r.URx, Y: r.LLy})
	}
	return quads
}

// invert returns the inverse of the viewport transform.
// Matrix.Inv panics for singular matrices, so the determinant is
// checked here and ok is false for degenerate transforms.
func invert(m matrix.Matrix) (matrix.Matrix, bool) {
	if m[0]*m[3]-m[1]*m[2] == 0 {
		return matrix.Identity, false
	}
	return m.Inv(), true
}

// toDocument maps a screen box into document coordinates.  The two
// diagonal corners are transformed separately and the result is
// normalized, since the transform usually flips the y axis.
func toDocument(inv matrix.Matrix, box viewer.Box) pdf.Rectangle {
	x0, y0 := inv.Apply(box.X, box.Y)
	x1, y1 := inv.Apply(box.X+box.W, box.Y+box.H)
	return pdf.Rectangle{
		LLx: math.Min(x0, x1),
		LLy: math.Min(y0, y1),
		URx: math.Max(x0, x1),
		URy: math.Max(y0, y1),
	}
}

// mergeLines merges runs of rectangles which sit on the same visual
// line into their enclosing rectangle, preserving order.
func mergeLines(rects []pdf.Rectangle) []pdf.Rectangle {
	if len(rects) < 2 {
		return rects
	}
	out := append([]pdf.Rectangle{}, rects[0])
	for _, r := range rects[1:] {
		cur := &out[len(out)-1]
		if sameLine(*cur, r) {
			cur.Extend(&r)
		} else {
			out = append(out, r)
		}
	}
	return out
}

// sameLine reports whether two rectangles sit on the same visual line.
// This is the case if their vertical centers differ by less than half
// the height of the taller one.
func sameLine(a, b pdf.Rectangle) bool {
	ca := (a.LLy + a.URy) / 2
	cb := (b.LLy + b.URy) / 2
	h := math.Max(a.URy-a.LLy, b.URy-b.LLy)
	return math.Abs(ca-cb) < h/2
}
