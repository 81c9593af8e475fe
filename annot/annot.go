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

// Package annot stores highlight annotations inside PDF files.
//
// Unlike overlay highlights, which are drawn by the viewer at render
// time, the highlights written by this package become part of the
// document's object graph and are visible in any PDF viewer.
//
// A document is always processed as a whole: [Store] reads the
// complete file into memory, modifies the object graph, serializes it
// again and writes the result back in a single operation.  There are
// no partial updates of files on disk.
//
// PDF 2.0 sections: 12.5.2, 12.5.6.10
package annot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/pdfmark"
)

// Highlight describes one rectangular text highlight annotation.
type Highlight struct {
	// Number is the object number of the annotation inside the
	// document.  It is set by [Store.List] and ignored by
	// [Store.Write].
	Number uint32

	// Rects are the document-space rectangles covered by the
	// highlight, one per line of text.
	Rects []pdf.Rectangle

	// QuadPoints are the rectangle corners, four per rectangle in the
	// order top-left, top-right, bottom-left, bottom-right.  If nil,
	// [Store.Write] derives them from Rects.
	//
	// This corresponds to the /QuadPoints entry in the annotation
	// dictionary.
	QuadPoints []vec.Vec2

	// Color is the highlight color.
	//
	// This corresponds to the /C entry in the annotation dictionary.
	Color pdfmark.RGB

	// Opacity is the painting opacity, between 0 and 1.  A value of 0
	// means that no opacity is stored and the annotation is painted
	// opaque.
	//
	// This corresponds to the /CA entry in the annotation dictionary.
	Opacity float64

	// Contents is the text content of the annotation.  Highlights
	// whose notes are kept outside the document leave this empty.
	Contents string

	// Name is the highlight identifier.
	//
	// This corresponds to the /NM entry in the annotation dictionary.
	Name string

	// Modified is the last modification time.  It is set by
	// [Store.List]; [Store.Write] always stamps the current time.
	Modified time.Time
}

// Target names one annotation inside a document, for use with
// [Store.BatchDelete].
type Target struct {
	// Page is the one-based page number.
	Page int

	// Number is the object number of the annotation.
	Number uint32
}

// Storage is the binary persistence layer used by [Store].  Documents
// are read and written only as complete files.
type Storage interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// DirStorage implements [Storage] on the file system, resolving paths
// relative to a base directory.  An empty DirStorage uses paths as
// they are.
type DirStorage string

// ReadFile implements the [Storage] interface.
func (d DirStorage) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(d.join(path))
}

// WriteFile implements the [Storage] interface.
func (d DirStorage) WriteFile(path string, data []byte) error {
	return os.WriteFile(d.join(path), data, 0o644)
}

func (d DirStorage) join(path string) string {
	if d == "" {
		return path
	}
	return filepath.Join(string(d), path)
}

// StoreError reports a failed document operation.  The file on disk is
// unmodified unless Op is "write".
type StoreError struct {
	Op   string // "read", "parse", "serialize" or "write"
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
