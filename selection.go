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

package pdfmark

// Anchor addresses a position in the text layer of a rendered page.
// Node is the index of a text node on the page, Offset a character
// offset inside that node.  Both are zero-based.
//
// Anchors are only meaningful relative to a rendered text layer; to
// make a position independent of rendering it must be resolved to
// document coordinates.
type Anchor struct {
	Node   int
	Offset int
}

// before reports whether a comes strictly before b in reading order.
func (a Anchor) before(b Anchor) bool {
	if a.Node != b.Node {
		return a.Node < b.Node
	}
	return a.Offset < b.Offset
}

// Selection is a non-empty text range on a single page.  The range
// starts at Begin and extends to End, possibly crossing line and text
// node boundaries.  Begin must come strictly before End.
type Selection struct {
	Begin, End Anchor
}

// IsValid reports whether the selection describes a non-empty,
// correctly ordered range.
func (s Selection) IsValid() bool {
	if s.Begin.Node < 0 || s.Begin.Offset < 0 || s.End.Offset < 0 {
		return false
	}
	return s.Begin.before(s.End)
}
