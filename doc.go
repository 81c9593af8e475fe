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

// Package pdfmark provides the shared data model for marking up PDF
// documents inside a viewer.
//
// The main types of this package are:
//
//   - [Link] is the parsed form of a deep link, a short string which
//     addresses a marked region on a page of a document.  Links survive
//     reloads, zoom changes and (for overlay highlights) edits of the
//     document.
//   - [Selection] describes a contiguous text range on a rendered page
//     in terms of the page's text layer.
//   - [RGB] is the fill color of a highlight.
//
// Sub-packages build on this model: region converts viewer selections
// to document coordinates, overlay keeps per-session highlights, annot
// stores highlights inside the PDF file itself, deeplink navigates to
// links, and capture turns viewer gestures into notes.
package pdfmark
