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

// Package overlay keeps lightweight highlights which are drawn on top
// of rendered pages instead of being stored inside the PDF file.
//
// The main types of this package are:
//
//   - [Cache] holds the highlight records of the current session,
//     indexed by document and page, and replays them whenever a page
//     is rendered again.
//   - [Record] is one highlight: an identifier together with the
//     document-space rectangles it covers.
//   - [Surface] is implemented by the viewer and does the actual
//     drawing.
//
// Overlay highlights do not modify the document.  They exist for one
// session, unless the application persists the records itself, for
// example inside the notes which link to them.
package overlay

import (
	"errors"
	"slices"
	"sync"

	"github.com/tliron/commonlog"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/viewer"
)

// ErrUnknownID is returned by [Cache.RemoveID] for identifiers the
// cache holds no rectangles for.
var ErrUnknownID = errors.New("unknown highlight identifier")

// Record is one cached highlight: an identifier together with the
// document-space rectangles it covers on one page.
//
// Fill selects the visual style: a filled text highlight when set, a
// dashed capture outline when nil.  The two styles are mutually
// exclusive for one record.
type Record struct {
	Doc   string
	Page  int
	ID    string
	Rects []pdf.Rectangle
	Fill  *pdfmark.RGB
}

// Surface is the drawing side of the overlay.  The viewer places
// highlight elements on top of rendered pages and tags them with the
// highlight identifier, so that click handlers and the flash effect
// can find the elements again.
//
// For annotations stored in the PDF file itself the viewer uses the
// annotation's element identifier, the object number followed by "R",
// in place of a highlight identifier.
//
// Implementations must be safe for concurrent use; Flash in
// particular can be called from a background goroutine.
type Surface interface {
	// Draw places one highlight rectangle on a page.  fill selects
	// the visual style as for [Record].
	Draw(doc string, page int, id string, r pdf.Rectangle, fill *pdfmark.RGB)

	// Clear removes all overlay elements from a page.
	Clear(doc string, page int)

	// Remove removes the elements of one highlight from a page.
	Remove(doc string, page int, id string)

	// Exists reports whether elements with the given identifier are
	// currently present on the page.
	Exists(doc string, page int, id string) bool

	// Flash switches the attention effect for the given identifier on
	// or off.
	Flash(doc string, page int, id string, on bool)
}

// Cache holds the overlay highlights of one session.  A Cache is
// created per viewer context and passed to the components which need
// it; there is no global instance.
//
// All methods are safe for concurrent use.  The surface may be nil,
// in which case the cache only tracks state and draws nothing.
type Cache struct {
	surface Surface
	log     commonlog.Logger

	mu   sync.Mutex
	docs map[string]map[int][]*Record
}

// New returns an empty highlight cache drawing to the given surface.
func New(surface Surface) *Cache {
	return &Cache{
		surface: surface,
		log:     commonlog.GetLogger("pdfmark.overlay"),
		docs:    make(map[string]map[int][]*Record),
	}
}

// AddRect registers one document-space rectangle for a highlight and
// draws it.  Adding an identical (id, rect) pair again is a no-op, so
// callers may replay their input without duplicating state.  Distinct
// identifiers keep separate records even for identical rectangles.
//
// The fill of the record is fixed by the first rectangle added for
// the identifier.
func (c *Cache) AddRect(doc string, page int, r pdf.Rectangle, id string, fill *pdfmark.RGB) {
	c.mu.Lock()
	pages, ok := c.docs[doc]
	if !ok {
		pages = make(map[int][]*Record)
		c.docs[doc] = pages
	}

	var rec *Record
	for _, x := range pages[page] {
		if x.ID == id {
			rec = x
			break
		}
	}
	if rec == nil {
		rec = &Record{Doc: doc, Page: page, ID: id, Fill: fill}
		pages[page] = append(pages[page], rec)
	}
	if slices.Contains(rec.Rects, r) {
		c.mu.Unlock()
		return
	}
	rec.Rects = append(rec.Rects, r)
	fill = rec.Fill
	c.mu.Unlock()

	if c.surface != nil {
		c.surface.Draw(doc, page, id, r, fill)
	}
}

// Rects returns the rectangles cached for one highlight on a page.
// The result is a copy; it is nil if the highlight is unknown.
func (c *Cache) Rects(doc string, page int, id string) []pdf.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.docs[doc][page] {
		if rec.ID == id {
			return slices.Clone(rec.Rects)
		}
	}
	return nil
}

// RemoveID removes the highlight with the given identifier from every
// document and page it appears on, and removes its drawn elements
// immediately, without waiting for the next redraw.
//
// If the identifier is unknown, the cache is left untouched and
// ErrUnknownID is returned.
func (c *Cache) RemoveID(id string) error {
	type hit struct {
		doc  string
		page int
	}
	var hits []hit

	c.mu.Lock()
	for doc, pages := range c.docs {
		for page, recs := range pages {
			keep := recs[:0]
			for _, rec := range recs {
				if rec.ID == id {
					hits = append(hits, hit{doc, page})
				} else {
					keep = append(keep, rec)
				}
			}
			if len(keep) == 0 {
				delete(pages, page)
			} else {
				pages[page] = keep
			}
		}
		if len(pages) == 0 {
			delete(c.docs, doc)
		}
	}
	c.mu.Unlock()

	if len(hits) == 0 {
		c.log.Debug("no cached highlight", "id", id)
		return ErrUnknownID
	}
	if c.surface != nil {
		for _, h := range hits {
			c.surface.Remove(h.doc, h.page, id)
		}
	}
	return nil
}

// Redraw repaints the highlights of one page: the page's overlay is
// cleared and every cached rectangle is drawn again with its style.
// The cache itself is not modified, so Redraw can follow every
// rendering of the page.
func (c *Cache) Redraw(doc string, page int) {
	type draw struct {
		id   string
		r    pdf.Rectangle
		fill *pdfmark.RGB
	}

	c.mu.Lock()
	var draws []draw
	for _, rec := range c.docs[doc][page] {
		for _, r := range rec.Rects {
			draws = append(draws, draw{rec.ID, r, rec.Fill})
		}
	}
	c.mu.Unlock()

	if c.surface == nil {
		return
	}
	c.surface.Clear(doc, page)
	for _, d := range draws {
		c.surface.Draw(doc, page, d.id, d.r, d.fill)
	}
}

// HookEvents arranges for every rendering of a page of the given
// document to be followed by a redraw of the page's highlights.  The
// returned function removes the subscription again.
func (c *Cache) HookEvents(doc string, ev *viewer.Events) (remove func()) {
	return ev.OnPageRendered(func(page int) {
		c.Redraw(doc, page)
	})
}
