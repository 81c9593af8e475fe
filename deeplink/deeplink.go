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

// Package deeplink opens deep links in a PDF viewer.
//
// A deep link addresses a region on one page of a document, see
// [seehuhn.de/go/pdfmark.ParseLink] for the format.  The router moves
// the viewer to that region, restores the highlight the link belongs
// to, and briefly flashes it to draw the eye.
package deeplink

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tliron/commonlog"
	"seehuhn.de/go/pdf"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/overlay"
	"seehuhn.de/go/pdfmark/region"
	"seehuhn.de/go/pdfmark/viewer"
)

// Default flash behavior.
const (
	defaultFlashAttempts = 20
	defaultFlashInterval = 100 * time.Millisecond
	defaultFlashDuration = 1500 * time.Millisecond
)

// Router navigates a viewer to the regions deep links address.
type Router struct {
	viewer  viewer.Host
	events  *viewer.Events
	cache   *overlay.Cache
	surface overlay.Surface
	fill    *pdfmark.RGB
	log     commonlog.Logger

	flashAttempts int
	flashInterval time.Duration
	flashDuration time.Duration
}

// RouterOptions configures optional behavior of a [Router].
type RouterOptions struct {
	// Cache records the rectangles of resolved selection links, so
	// that later renders of the page draw them again.
	Cache *overlay.Cache

	// Surface is used for the attention flash after navigation.
	Surface overlay.Surface

	// SelectionFill is the fill color for highlights created from
	// selection links.  A nil fill draws the dashed outline style.
	SelectionFill *pdfmark.RGB

	// FlashAttempts, FlashInterval and FlashDuration control the
	// attention flash.  The flash polls for the highlight elements
	// FlashAttempts times, FlashInterval apart, and keeps the effect
	// on for FlashDuration once the elements have appeared.  Zero
	// values select defaults.
	FlashAttempts int
	FlashInterval time.Duration
	FlashDuration time.Duration
}

// NewRouter returns a router driving the given viewer.  host and
// events must not be nil; opt may be nil.
func NewRouter(host viewer.Host, events *viewer.Events, opt *RouterOptions) *Router {
	r := &Router{
		viewer:        host,
		events:        events,
		log:           commonlog.GetLogger("pdfmark.deeplink"),
		flashAttempts: defaultFlashAttempts,
		flashInterval: defaultFlashInterval,
		flashDuration: defaultFlashDuration,
	}
	if opt != nil {
		r.cache = opt.Cache
		r.surface = opt.Surface
		r.fill = opt.SelectionFill
		if opt.FlashAttempts > 0 {
			r.flashAttempts = opt.FlashAttempts
		}
		if opt.FlashInterval > 0 {
			r.flashInterval = opt.FlashInterval
		}
		if opt.FlashDuration > 0 {
			r.flashDuration = opt.FlashDuration
		}
	}
	return r
}

// Open parses a deep link and navigates the viewer to it.
func (r *Router) Open(link string) error {
	l, err := pdfmark.ParseLink(link)
	if err != nil {
		return err
	}
	return r.Navigate(l)
}

// Navigate moves the viewer to the region a link addresses.
//
// Navigation is asynchronous: if the document's pages are not laid out
// yet, the move is deferred until the viewer reports them ready.
// Selection targets additionally wait for the text layer of the target
// page before they can be placed.
func (r *Router) Navigate(l *pdfmark.Link) error {
	if l == nil || l.Page < 1 || l.Target == nil {
		return fmt.Errorf("deeplink: incomplete link")
	}
	r.log.Debug("navigate",
		"doc", l.Doc, "page", l.Page, "kind", l.Target.Kind())

	switch t := l.Target.(type) {
	case *pdfmark.RectTarget:
		r.events.OncePagesReady(func() {
			r.openRect(l.Doc, l.Page, t.Rect, l.Hash)
		})
	case *pdfmark.SelectionTarget:
		r.events.OncePagesReady(func() {
			r.openSelection(l.Doc, l.Page, t.Selection, l.Hash)
		})
	case *pdfmark.AnnotationTarget:
		r.events.OncePagesReady(func() {
			r.openAnnotation(l.Doc, l.Page, t.Number)
		})
	default:
		return fmt.Errorf("deeplink: unknown target kind %v", l.Target.Kind())
	}
	return nil
}

// openRect handles links with fixed document coordinates.
func (r *Router) openRect(doc string, page int, rect pdf.Rectangle, hash string) {
	r.viewer.GoToRect(page, &rect)
	if hash == "" {
		return
	}
	if r.cache != nil {
		r.cache.AddRect(doc, page, rect, hash, nil)
	}
	r.flash(doc, page, hash)
}

// openSelection handles links which address a text range.  The range
// can only be measured once the target page's text layer exists, so
// the actual work is deferred.  If the highlight is already in the
// cache the text layer is not needed at all.
func (r *Router) openSelection(doc string, page int, sel pdfmark.Selection, hash string) {
	id := hash
	if id == "" {
		id = selectionID(page, sel)
	}

	if r.cache != nil {
		if rects := r.cache.Rects(doc, page, id); len(rects) > 0 {
			bbox := region.BoundingBox(rects)
			r.viewer.GoToRect(page, &bbox)
			r.flash(doc, page, id)
			return
		}
	}

	r.viewer.GoToPage(page)
	r.events.OnceTextLayerReady(page, func() {
		pv, ok := r.viewer.PageView(page)
		if !ok {
			r.log.Debug("page not rendered", "doc", doc, "page", page)
			return
		}
		rects := region.FromSelection(pv, sel)
		if len(rects) == 0 {
			r.log.Debug("selection did not resolve",
				"doc", doc, "page", page,
				"begin", sel.Begin, "end", sel.End)
			return
		}
		if r.cache != nil {
			for _, rect := range rects {
				r.cache.AddRect(doc, page, rect, id, r.fill)
			}
		}
		bbox := region.BoundingBox(rects)
		r.viewer.GoToRect(page, &bbox)
		r.flash(doc, page, id)
	})
}

// openAnnotation handles links to annotations stored in the PDF file.
// The viewer renders these natively and tags their elements with the
// object number followed by "R".
func (r *Router) openAnnotation(doc string, page int, number uint32) {
	r.viewer.GoToPage(page)
	id := strconv.FormatUint(uint64(number), 10) + "R"
	r.flash(doc, page, id)
}

// flash runs the attention effect for one highlight in the background.
// The viewer places the highlight's elements asynchronously, so the
// effect polls for them and gives up silently after a bounded number
// of attempts.
func (r *Router) flash(doc string, page int, id string) {
	if r.surface == nil {
		return
	}
	go func() {
		for range r.flashAttempts {
			if r.surface.Exists(doc, page, id) {
				r.surface.Flash(doc, page, id, true)
				time.Sleep(r.flashDuration)
				r.surface.Flash(doc, page, id, false)
				return
			}
			time.Sleep(r.flashInterval)
		}
		r.log.Debug("highlight did not appear",
			"doc", doc, "page", page, "id", id)
	}()
}

// selectionID returns the element identifier used for a selection link
// which does not carry a highlight hash.  The identifier is derived
// from the link itself, so repeated visits reuse the cached rectangles.
func selectionID(page int, sel pdfmark.Selection) string {
	return fmt.Sprintf("sel-%d-%dx%d-%dx%d",
		page, sel.Begin.Node, sel.Begin.Offset, sel.End.Node, sel.End.Offset)
}
