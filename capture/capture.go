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

// Package capture turns reading gestures into notes.
//
// While the handler is armed, releasing a text selection or dragging a
// marquee rectangle highlights the region and emits a note which links
// back to it.  Text selections can be highlighted either in the
// session overlay or as annotations stored in the PDF file; marquee
// captures are always session overlays and carry a screenshot of the
// region.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/tliron/commonlog"
	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/annot"
	"seehuhn.de/go/pdfmark/overlay"
	"seehuhn.de/go/pdfmark/region"
	"seehuhn.de/go/pdfmark/viewer"
)

// Mode selects how captured text highlights are persisted.
type Mode int

const (
	// Overlay keeps highlights in the session cache.  The document
	// file is never modified.
	Overlay Mode = iota

	// Annotation writes highlights into the PDF file itself.
	Annotation
)

// Default capture settings.
var (
	defaultFill = pdfmark.RGB{R: 1, G: 0.8, B: 0}
)

const (
	defaultOpacity  = 0.4
	defaultMaxWidth = 1280
)

// Attachment is a file attached to a captured note.
type Attachment struct {
	Name string
	MIME string
	Data []byte
}

// Note is the result of one capture.
type Note struct {
	// Text is the captured text.  It is empty for marquee captures.
	Text string

	// Link is the deep link back to the captured region.
	Link string

	// Bucket is the collection the handler was armed with.
	Bucket string

	// Attachments holds the marquee screenshot, if one was taken.
	Attachments []Attachment
}

// Sink receives captured notes.
type Sink interface {
	CreateNote(note *Note) error
}

// Handler reacts to capture gestures from the viewer.
//
// The viewer calls [Handler.TextSelection] when the user releases a
// text selection and [Handler.Marquee] when the user releases a
// marquee drag.  Both are ignored unless the handler is armed.
type Handler struct {
	viewer viewer.Host
	sink   Sink
	cache  *overlay.Cache
	store  *annot.Store
	log    commonlog.Logger

	mode     Mode
	fill     pdfmark.RGB
	opacity  float64
	maxWidth int

	mu     sync.Mutex
	armed  bool
	bucket string
}

// HandlerOptions configures optional behavior of a [Handler].
type HandlerOptions struct {
	// Mode selects where captured text highlights are stored.
	Mode Mode

	// Cache receives the rectangles of overlay highlights.  It is
	// required in [Overlay] mode and for marquee captures.
	Cache *overlay.Cache

	// Store persists native annotations.  It is required in
	// [Annotation] mode.
	Store *annot.Store

	// Fill is the highlight color.  The zero value selects yellow.
	Fill *pdfmark.RGB

	// Opacity is the opacity of native annotations.  The zero value
	// selects 0.4.
	Opacity float64

	// MaxImageWidth bounds the width of marquee screenshots in
	// pixels; wider crops are scaled down.  The zero value selects
	// 1280.
	MaxImageWidth int
}

// NewHandler returns a capture handler in the disarmed state.
// host and sink must not be nil; opt may be nil.
func NewHandler(host viewer.Host, sink Sink, opt *HandlerOptions) *Handler {
	h := &Handler{
		viewer:   host,
		sink:     sink,
		log:      commonlog.GetLogger("pdfmark.capture"),
		fill:     defaultFill,
		opacity:  defaultOpacity,
		maxWidth: defaultMaxWidth,
	}
	if opt != nil {
		h.mode = opt.Mode
		h.cache = opt.Cache
		h.store = opt.Store
		if opt.Fill != nil {
			h.fill = *opt.Fill
		}
		if opt.Opacity != 0 {
			h.opacity = opt.Opacity
		}
		if opt.MaxImageWidth != 0 {
			h.maxWidth = opt.MaxImageWidth
		}
	}
	return h
}

// Arm enables capturing into the given bucket.  Capturing stays
// enabled until [Handler.Disarm] is called.
func (h *Handler) Arm(bucket string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = true
	h.bucket = bucket
}

// Disarm disables capturing.  Gestures arriving while the handler is
// disarmed are ignored.
func (h *Handler) Disarm() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = false
	h.bucket = ""
}

func (h *Handler) target() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bucket, h.armed
}

// TextSelection captures a released text selection.  text is the
// selected text as reported by the viewer.
//
// The selection is resolved into document-space rectangles, a
// highlight is created according to the handler's mode, and a note
// linking back to the highlight is sent to the sink.  Selections which
// cannot be resolved are dropped without error.
func (h *Handler) TextSelection(doc string, page int, sel pdfmark.Selection, text string) error {
	bucket, ok := h.target()
	if !ok {
		h.log.Debug("selection ignored, capture not armed", "doc", doc, "page", page)
		return nil
	}

	pv, ok := h.viewer.PageView(page)
	if !ok {
		h.log.Debug("selection dropped, page not rendered", "doc", doc, "page", page)
		return nil
	}
	rects := region.FromSelection(pv, sel)
	if len(rects) == 0 {
		h.log.Debug("selection dropped, no rectangles",
			"doc", doc, "page", page, "begin", sel.Begin, "end", sel.End)
		return nil
	}

	link := &pdfmark.Link{Doc: doc, Page: page}
	switch h.mode {
	case Annotation:
		if h.store == nil {
			return fmt.Errorf("capture: no annotation store configured")
		}
		number, err := h.store.Write(doc, page, &annot.Highlight{
			Rects:    rects,
			Color:    h.fill,
			Opacity:  h.opacity,
			Contents: text,
		})
		if err != nil {
			return err
		}
		link.Target = &pdfmark.AnnotationTarget{Number: number}
	default:
		id := ksuid.New().String()
		if h.cache != nil {
			for _, rect := range rects {
				h.cache.AddRect(doc, page, rect, id, &h.fill)
			}
		}
		link.Target = &pdfmark.SelectionTarget{Selection: sel}
		link.Hash = id
	}

	note := &Note{
		Text:   text,
		Link:   link.String(),
		Bucket: bucket,
	}
	if err := h.sink.CreateNote(note); err != nil {
		return err
	}
	h.log.Info("captured selection",
		"doc", doc, "page", page, "bucket", bucket)
	return nil
}

// Marquee captures a released marquee drag, given by two opposite
// corners in screen coordinates.
//
// The region is outlined in the overlay, a screenshot of it is taken
// from the rendered page, and a note linking back to the region is
// sent to the sink.  Empty marquees are dropped without error.
func (h *Handler) Marquee(doc string, page int, p0, p1 vec.Vec2) error {
	bucket, ok := h.target()
	if !ok {
		h.log.Debug("marquee ignored, capture not armed", "doc", doc, "page", page)
		return nil
	}

	pv, ok := h.viewer.PageView(page)
	if !ok {
		h.log.Debug("marquee dropped, page not rendered", "doc", doc, "page", page)
		return nil
	}
	rect := region.FromCorners(pv, p0, p1)
	if rect == nil {
		h.log.Debug("marquee dropped, empty rectangle", "doc", doc, "page", page)
		return nil
	}

	id := ksuid.New().String()
	if h.cache != nil {
		h.cache.AddRect(doc, page, *rect, id, nil)
	}

	note := &Note{
		Link: (&pdfmark.Link{
			Doc:    doc,
			Page:   page,
			Target: &pdfmark.RectTarget{Rect: *rect},
			Hash:   id,
		}).String(),
		Bucket: bucket,
	}
	if img, ok := h.viewer.PageImage(page); ok {
		blob, err := h.screenshot(img, p0, p1)
		if err != nil {
			h.log.Warning("marquee screenshot failed",
				"doc", doc, "page", page, "error", err)
		} else {
			note.Attachments = append(note.Attachments, Attachment{
				Name: "capture-" + id + ".png",
				MIME: "image/png",
				Data: blob,
			})
		}
	}

	if err := h.sink.CreateNote(note); err != nil {
		return err
	}
	h.log.Info("captured marquee",
		"doc", doc, "page", page, "bucket", bucket)
	return nil
}

// screenshot crops the rendered page image to the marquee and bounds
// the width of the result.
func (h *Handler) screenshot(img image.Image, p0, p1 vec.Vec2) ([]byte, error) {
	r := image.Rect(
		int(math.Floor(math.Min(p0.X, p1.X))),
		int(math.Floor(math.Min(p0.Y, p1.Y))),
		int(math.Ceil(math.Max(p0.X, p1.X))),
		int(math.Ceil(math.Max(p0.Y, p1.Y))),
	).Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("marquee outside the rendered page")
	}

	crop := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(crop, crop.Bounds(), img, r.Min, draw.Src)

	if h.maxWidth > 0 && crop.Bounds().Dx() > h.maxWidth {
		scale := float64(h.maxWidth) / float64(crop.Bounds().Dx())
		height := int(math.Round(float64(crop.Bounds().Dy()) * scale))
		if height < 1 {
			height = 1
		}
		small := image.NewRGBA(image.Rect(0, 0, h.maxWidth, height))
		draw.CatmullRom.Scale(small, small.Bounds(), crop, crop.Bounds(), draw.Src, nil)
		crop = small
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, crop); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
