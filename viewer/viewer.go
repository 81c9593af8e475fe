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

// Package viewer defines the contract between the pdfmark packages and
// a PDF viewer.
//
// The main types of this package are:
//
//   - [Host] is the set of operations a viewer provides: querying and
//     restoring the scroll position, navigating, and giving access to
//     rendered pages.
//   - [PageView] describes the current rendering of one page, together
//     with the transform from document to screen coordinates.
//   - [Events] distributes the viewer's render-lifecycle notifications
//     to interested components.
//
// The viewer itself is not part of this module.  Implementations wrap
// whatever widget or browser component actually draws the pages.
package viewer

import (
	"image"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
)

// Box is an axis-aligned rectangle in screen coordinates.  The origin
// is at the top-left corner of the rendered page, x grows to the right
// and y grows downwards.
type Box struct {
	X, Y, W, H float64
}

// TextLayer gives access to the positioned text nodes of a rendered
// page.  Node indices are zero-based and stable for the lifetime of
// one rendering of the page.
type TextLayer interface {
	// NumNodes returns the number of text nodes on the page.
	NumNodes() int

	// NodeBox returns the screen box of a complete text node.
	// ok is false if the node does not exist.
	NodeBox(node int) (box Box, ok bool)

	// RangeBox returns the screen box of the characters from startChar
	// (inclusive) to endChar (exclusive) inside the given node.  A
	// negative endChar selects everything up to the end of the node.
	// ok is false if the node does not exist.
	RangeBox(node, startChar, endChar int) (box Box, ok bool)
}

// PageView describes the current rendering of one page.  The transform
// and the text layer change whenever the user scrolls or zooms, so a
// PageView must be used immediately and never be stored.
type PageView struct {
	// Page is the one-based page number.
	Page int

	// Transform maps document coordinates to screen coordinates.
	Transform matrix.Matrix

	// PageBox is the page area in document coordinates.
	PageBox *pdf.Rectangle

	// Text is the page's text layer.  It is nil while the text has not
	// been laid out yet.
	Text TextLayer
}

// Host is the interface a PDF viewer implements so that highlights,
// deep links and captures can drive it.  All methods must be safe for
// concurrent use.
type Host interface {
	// State returns the current scroll and zoom state.
	// ok is false if the viewer cannot report its state yet.
	State() (state State, ok bool)

	// Restore scrolls and zooms back to a previously captured state.
	Restore(state State)

	// GoToPage scrolls the top of the given page into view.
	GoToPage(page int)

	// GoToRect scrolls a document-space rectangle on the given page
	// into view.
	GoToRect(page int, r *pdf.Rectangle)

	// PageView returns the current rendering of the given page.
	// ok is false while the page has not been rendered.
	PageView(page int) (pv *PageView, ok bool)

	// PageImage returns the current bitmap of the given page, at
	// screen resolution.  ok is false while the page has not been
	// rendered.
	PageImage(page int) (img image.Image, ok bool)
}
