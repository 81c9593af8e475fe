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

package viewer

import "sync"

// Events distributes the viewer's render-lifecycle notifications.
//
// The host calls the notification methods: [Events.PagesReady] once
// the page list is built, and then, for every rendering of a page,
// [Events.PageRendered], [Events.TextLayerReady] and
// [Events.AnnotationLayerReady] in this order.  Re-rendering a page
// (after scrolling, zooming or reloading) repeats the sequence.
//
// Other components subscribe with the On... methods.  Callbacks run
// synchronously on the goroutine which delivers the notification.
// All methods are safe for concurrent use.
type Events struct {
	mu         sync.Mutex
	pagesReady bool
	pagesQueue []func()

	nextID     int
	renderSubs map[int]func(page int)

	textReady map[int]bool
	textSubs  map[int][]func()

	annotReady map[int]bool
	annotSubs  map[int][]func()
}

// NewEvents returns an empty event hub.
func NewEvents() *Events {
	return &Events{
		renderSubs: make(map[int]func(int)),
		textReady:  make(map[int]bool),
		textSubs:   make(map[int][]func()),
		annotReady: make(map[int]bool),
		annotSubs:  make(map[int][]func()),
	}
}

// PagesReady tells the hub that the host has finished building the
// page list.  Calls after the first are no-ops.
func (e *Events) PagesReady() {
	e.mu.Lock()
	if e.pagesReady {
		e.mu.Unlock()
		return
	}
	e.pagesReady = true
	queue := e.pagesQueue
	e.pagesQueue = nil
	e.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
}

// Ready reports whether the host has announced its page list.
func (e *Events) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pagesReady
}

// OncePagesReady runs fn once the page list is available.  If it
// already is, fn runs immediately on the calling goroutine.
func (e *Events) OncePagesReady(fn func()) {
	e.mu.Lock()
	if !e.pagesReady {
		e.pagesQueue = append(e.pagesQueue, fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn()
}

// PageRendered tells the hub that the given page has been drawn.  Text
// and annotation layer readiness for the page is reset until the host
// announces the layers again.
func (e *Events) PageRendered(page int) {
	e.mu.Lock()
	delete(e.textReady, page)
	delete(e.annotReady, page)
	subs := make([]func(int), 0, len(e.renderSubs))
	for _, fn := range e.renderSubs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn(page)
	}
}

// OnPageRendered registers fn to run every time a page is drawn.  The
// returned function removes the subscription again.
func (e *Events) OnPageRendered(fn func(page int)) (remove func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.renderSubs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.renderSubs, id)
		e.mu.Unlock()
	}
}

// TextLayerReady tells the hub that the text layer of the given page
// is in place.
func (e *Events) TextLayerReady(page int) {
	e.mu.Lock()
	e.textReady[page] = true
	queue := e.textSubs[page]
	delete(e.textSubs, page)
	e.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
}

// OnceTextLayerReady runs fn once the text layer of the given page is
// in place, either immediately or when the host next announces it.
func (e *Events) OnceTextLayerReady(page int, fn func()) {
	e.mu.Lock()
	if !e.textReady[page] {
		e.textSubs[page] = append(e.textSubs[page], fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn()
}

// AnnotationLayerReady tells the hub that the annotation layer of the
// given page is in place.
func (e *Events) AnnotationLayerReady(page int) {
	e.mu.Lock()
	e.annotReady[page] = true
	queue := e.annotSubs[page]
	delete(e.annotSubs, page)
	e.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
}

// OnceAnnotationLayerReady runs fn once the annotation layer of the
// given page is in place, either immediately or when the host next
// announces it.
func (e *Events) OnceAnnotationLayerReady(page int, fn func()) {
	e.mu.Lock()
	if !e.annotReady[page] {
		e.annotSubs[page] = append(e.annotSubs[page], fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn()
}
