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

package annot

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/tliron/commonlog"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/region"
	"seehuhn.de/go/pdfmark/viewer"
)

// annotFlagPrint is bit 3 of the /F entry: the annotation is included
// when the page is printed.
const annotFlagPrint = 4

// Store reads and writes highlight annotations in PDF documents.
//
// A Store does not lock documents.  Callers must serialize mutations
// of any one document path; reads may happen concurrently.
type Store struct {
	storage Storage
	viewer  viewer.Host
	events  *viewer.Events
	log     commonlog.Logger
}

// StoreOptions configures optional behavior of a [Store].
type StoreOptions struct {
	// Viewer, if set, is the viewer showing the documents.  Its
	// scroll and zoom state is captured before every mutation and
	// restored after the viewer has reloaded the rewritten file.
	Viewer viewer.Host

	// Events must be set together with Viewer.  The restore is
	// deferred until the hub reports the annotation layer of the
	// restored page ready.
	Events *viewer.Events
}

// NewStore returns a store using the given persistence layer.
// opt may be nil.
func NewStore(storage Storage, opt *StoreOptions) *Store {
	s := &Store{
		storage: storage,
		log:     commonlog.GetLogger("pdfmark.annot"),
	}
	if opt != nil {
		s.viewer = opt.Viewer
		s.events = opt.Events
	}
	return s
}

// Write adds a highlight annotation to a page and returns the number
// of the new annotation object.  The page number is one-based.
//
// The document is read as a whole, modified in memory, serialized and
// written back in a single operation.
func (s *Store) Write(path string, page int, h *Highlight) (uint32, error) {
	if len(h.Rects) == 0 {
		return 0, fmt.Errorf("highlight has no rectangles")
	}
	if !h.Color.IsValid() {
		return 0, fmt.Errorf("invalid highlight color")
	}
	if h.Opacity < 0 || h.Opacity > 1 {
		return 0, fmt.Errorf("invalid opacity %g", h.Opacity)
	}

	st, stOK := s.snapshot()

	data, pages, err := s.load(path)
	if err != nil {
		return 0, err
	}
	pageRef, pageDict, err := getPage(data, pages, path, page)
	if err != nil {
		return 0, err
	}

	ref := data.Alloc()
	if err := data.Put(ref, highlightDict(h)); err != nil {
		return 0, &StoreError{Op: "serialize", Path: path, Err: err}
	}

	annotsObj := pageDict["Annots"]
	annots, err := pdf.GetArray(data, annotsObj)
	if err != nil {
		return 0, &StoreError{Op: "parse", Path: path, Err: err}
	}
	annots = append(annots, ref)
	if err := putAnnots(data, pageRef, pageDict, annotsObj, annots); err != nil {
		return 0, &StoreError{Op: "serialize", Path: path, Err: err}
	}

	if err := s.flush(path, data); err != nil {
		return 0, err
	}
	s.restoreAfter(page, st, stOK)
	s.log.Debug("highlight written",
		"path", path, "page", page, "number", ref.Number())
	return ref.Number(), nil
}

// Update replaces the text content of an existing annotation and
// refreshes its modification date.  Updating an annotation which does
// not exist is a no-op.
func (s *Store) Update(path string, page int, number uint32, text string) error {
	st, stOK := s.snapshot()

	data, pages, err := s.load(path)
	if err != nil {
		return err
	}
	if page < 1 || page > len(pages) {
		s.log.Debug("annotation not found",
			"path", path, "page", page, "number", number)
		return nil
	}
	_, pageDict, err := getPage(data, pages, path, page)
	if err != nil {
		return err
	}
	ref, dict, err := findAnnot(data, pageDict, number)
	if err != nil {
		return &StoreError{Op: "parse", Path: path, Err: err}
	}
	if dict == nil {
		s.log.Debug("annotation not found",
			"path", path, "page", page, "number", number)
		return nil
	}

	dict["Contents"] = pdf.TextString(text)
	dict["M"] = pdf.Date(time.Now())
	if err := data.Put(ref, dict); err != nil {
		return &StoreError{Op: "serialize", Path: path, Err: err}
	}

	if err := s.flush(path, data); err != nil {
		return err
	}
	s.restoreAfter(page, st, stOK)
	return nil
}

// Delete removes one annotation from a page.  Deleting an annotation
// which does not exist is a no-op, and the file is not rewritten.
func (s *Store) Delete(path string, page int, number uint32) error {
	return s.BatchDelete(path, []Target{{Page: page, Number: number}})
}

// BatchDelete removes several annotations, rewriting the document only
// once.  Targets which do not exist are skipped; if no target exists,
// the file is not touched at all.
func (s *Store) BatchDelete(path string, targets []Target) error {
	if len(targets) == 0 {
		return nil
	}

	st, stOK := s.snapshot()

	data, pages, err := s.load(path)
	if err != nil {
		return err
	}

	byPage := make(map[int][]uint32)
	for _, t := range targets {
		byPage[t.Page] = append(byPage[t.Page], t.Number)
	}

	changed := false
	for _, page := range slices.Sorted(maps.Keys(byPage)) {
		if page < 1 || page > len(pages) {
			s.log.Debug("annotations not found", "path", path, "page", page)
			continue
		}
		pageRef, pageDict, err := getPage(data, pages, path, page)
		if err != nil {
			return err
		}
		removed, err := removeFromPage(data, path, pageRef, pageDict, byPage[page])
		if err != nil {
			return err
		}
		if removed == 0 {
			s.log.Debug("annotations not found", "path", path, "page", page)
		}
		changed = changed || removed > 0
	}

	if !changed {
		return nil
	}
	if err := s.flush(path, data); err != nil {
		return err
	}
	s.restoreAfter(targets[0].Page, st, stOK)
	return nil
}

// List returns the highlight annotations of one page, in the order of
// the page's annotation array.  Annotations of other types and
// malformed entries are skipped.
func (s *Store) List(path string, page int) ([]Highlight, error) {
	data, pages, err := s.load(path)
	if err != nil {
		return nil, err
	}
	_, pageDict, err := getPage(data, pages, path, page)
	if err != nil {
		return nil, err
	}
	annots, err := pdf.GetArray(data, pageDict["Annots"])
	if err != nil {
		return nil, &StoreError{Op: "parse", Path: path, Err: err}
	}

	var res []Highlight
	for _, el := range annots {
		dict, err := pdf.GetDict(data, el)
		if err != nil || dict == nil {
			continue
		}
		subtype, err := pdf.GetName(data, dict["Subtype"])
		if err != nil || subtype != "Highlight" {
			continue
		}
		h := Highlight{}
		if ref, ok := el.(pdf.Reference); ok {
			h.Number = ref.Number()
		}
		decodeHighlight(data, dict, &h)
		res = append(res, h)
	}
	return res, nil
}

// load reads and parses a complete document.
func (s *Store) load(path string) (*pdf.Data, []pdf.Reference, error) {
	blob, err := s.storage.ReadFile(path)
	if err != nil {
		s.log.Error("cannot read document", "path", path, "error", err)
		return nil, nil, &StoreError{Op: "read", Path: path, Err: err}
	}
	data, err := pdf.Read(bytes.NewReader(blob), nil)
	if err != nil {
		s.log.Error("cannot parse document", "path", path, "error", err)
		return nil, nil, &StoreError{Op: "parse", Path: path, Err: err}
	}
	pages, err := pagetree.FindPages(data)
	if err != nil {
		s.log.Error("cannot parse page tree", "path", path, "error", err)
		return nil, nil, &StoreError{Op: "parse", Path: path, Err: err}
	}
	return data, pages, nil
}

// flush serializes the document and writes it back in one operation.
// Nothing is written if serialization fails.
func (s *Store) flush(path string, data *pdf.Data) error {
	buf := &bytes.Buffer{}
	if err := data.Write(buf); err != nil {
		s.log.Error("cannot serialize document", "path", path, "error", err)
		return &StoreError{Op: "serialize", Path: path, Err: err}
	}
	if err := s.storage.WriteFile(path, buf.Bytes()); err != nil {
		s.log.Error("cannot write document", "path", path, "error", err)
		return &StoreError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// snapshot captures the viewer state before a mutation.
func (s *Store) snapshot() (viewer.State, bool) {
	if s.viewer == nil || s.events == nil {
		return viewer.State{}, false
	}
	return s.viewer.State()
}

// restoreAfter arranges for a captured state to be restored once the
// annotation layer of the restored page has been rebuilt.  Restoring
// earlier would race with the reload and lose the scroll position.
func (s *Store) restoreAfter(page int, st viewer.State, ok bool) {
	if !ok {
		return
	}
	if st.Page >= 1 {
		page = st.Page
	}
	s.events.OnceAnnotationLayerReady(page, func() {
		s.viewer.Restore(st)
	})
}

// highlightDict builds the annotation dictionary for a highlight.
func highlightDict(h *Highlight) pdf.Dict {
	bbox := region.BoundingBox(h.Rects)
	quads := h.QuadPoints
	if quads == nil {
		quads = region.QuadPoints(h.Rects)
	}
	qp := make(pdf.Array, 0, 2*len(quads))
	for _, p := range quads {
		qp = append(qp, pdf.Number(p.X), pdf.Number(p.Y))
	}

	dict := pdf.Dict{
		"Type":       pdf.Name("Annot"),
		"Subtype":    pdf.Name("Highlight"),
		"Rect":       &bbox,
		"QuadPoints": qp,
		"C": pdf.Array{
			pdf.Number(h.Color.R),
			pdf.Number(h.Color.G),
			pdf.Number(h.Color.B),
		},
		"Contents": pdf.TextString(h.Contents),
		"M":        pdf.Date(time.Now()),
		"F":        pdf.Integer(annotFlagPrint),
	}
	if h.Opacity != 0 {
		dict["CA"] = pdf.Number(h.Opacity)
	}
	if h.Name != "" {
		dict["NM"] = pdf.TextString(h.Name)
	}
	return dict
}

// decodeHighlight fills h from an annotation dictionary.  Malformed
// entries are left at their zero value.
func decodeHighlight(data *pdf.Data, dict pdf.Dict, h *Highlight) {
	if qp, _ := pdf.GetArray(data, dict["QuadPoints"]); len(qp) >= 8 {
		for i := 0; i+8 <= len(qp); i += 8 {
			var x [8]float64
			ok := true
			for j := range x {
				num, err := pdf.GetNumber(data, qp[i+j])
				if err != nil {
					ok = false
					break
				}
				x[j] = float64(num)
			}
			if !ok {
				continue
			}
			for j := 0; j < 8; j += 2 {
				h.QuadPoints = append(h.QuadPoints, vec.Vec2{X: x[j], Y: x[j+1]})
			}
			// corner order: top-left, top-right, bottom-left, bottom-right
			h.Rects = append(h.Rects, pdf.Rectangle{
				LLx: x[4], LLy: x[5], URx: x[2], URy: x[3],
			})
		}
	}
	if len(h.Rects) == 0 {
		if r, _ := pdf.GetRectangle(data, dict["Rect"]); r != nil {
			h.Rects = []pdf.Rectangle{*r}
		}
	}

	if c, _ := pdf.GetArray(data, dict["C"]); len(c) == 3 {
		var x [3]float64
		ok := true
		for i := range x {
			num, err := pdf.GetNumber(data, c[i])
			if err != nil {
				ok = false
				break
			}
			x[i] = float64(num)
		}
		if ok {
			h.Color = pdfmark.RGB{R: x[0], G: x[1], B: x[2]}
		}
	}
	if ca, err := pdf.GetNumber(data, dict["CA"]); err == nil {
		h.Opacity = float64(ca)
	}
	if text, err := pdf.GetString(data, dict["Contents"]); err == nil {
		h.Contents = text.AsTextString()
	}
	if nm, err := pdf.GetString(data, dict["NM"]); err == nil {
		h.Name = nm.AsTextString()
	}
	if m, err := pdf.GetString(data, dict["M"]); err == nil {
		if tm, err := m.AsDate(); err == nil {
			h.Modified = tm
		}
	}
}

// getPage returns the reference and dictionary of a page.
func getPage(data *pdf.Data, pages []pdf.Reference, path string, pageNo int) (pdf.Reference, pdf.Dict, error) {
	if pageNo < 1 || pageNo > len(pages) {
		return 0, nil, fmt.Errorf("page %d out of range (document has %d pages)",
			pageNo, len(pages))
	}
	ref := pages[pageNo-1]
	if ref == 0 {
		// pagetree.FindPages marks pages which are not indirect objects
		err := fmt.Errorf("page %d is not an indirect object", pageNo)
		return 0, nil, &StoreError{Op: "parse", Path: path, Err: err}
	}
	dict, err := pdf.GetDict(data, ref)
	if err != nil {
		return 0, nil, &StoreError{Op: "parse", Path: path, Err: err}
	}
	if dict == nil {
		err := fmt.Errorf("page %d has no page dictionary", pageNo)
		return 0, nil, &StoreError{Op: "parse", Path: path, Err: err}
	}
	return ref, dict, nil
}

// findAnnot looks up an annotation in a page's annotation array by
// object number.  A nil dictionary without error means the annotation
// does not exist.
func findAnnot(data *pdf.Data, pageDict pdf.Dict, number uint32) (pdf.Reference, pdf.Dict, error) {
	annots, err := pdf.GetArray(data, pageDict["Annots"])
	if err != nil {
		return 0, nil, err
	}
	for _, el := range annots {
		ref, ok := el.(pdf.Reference)
		if !ok || ref.Number() != number {
			continue
		}
		dict, err := pdf.GetDict(data, ref)
		if err != nil || dict == nil {
			return 0, nil, err
		}
		return ref, dict, nil
	}
	return 0, nil, nil
}

// removeFromPage removes the annotations with the given object numbers
// from one page and deletes the annotation objects.  It reports how
// many annotations were removed.
func removeFromPage(data *pdf.Data, path string, pageRef pdf.Reference, pageDict pdf.Dict, numbers []uint32) (int, error) {
	annotsObj := pageDict["Annots"]
	annots, err := pdf.GetArray(data, annotsObj)
	if err != nil {
		return 0, &StoreError{Op: "parse", Path: path, Err: err}
	}

	keep := make(pdf.Array, 0, len(annots))
	removed := 0
	for _, el := range annots {
		if ref, ok := el.(pdf.Reference); ok && slices.Contains(numbers, ref.Number()) {
			if err := data.Put(ref, nil); err != nil {
				return removed, &StoreError{Op: "serialize", Path: path, Err: err}
			}
			removed++
			continue
		}
		keep = append(keep, el)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := putAnnots(data, pageRef, pageDict, annotsObj, keep); err != nil {
		return removed, &StoreError{Op: "serialize", Path: path, Err: err}
	}
	return removed, nil
}

// putAnnots stores an updated annotation array, either back into the
// indirect object it came from or directly into the page dictionary.
// An empty array is removed altogether.
func putAnnots(data *pdf.Data, pageRef pdf.Reference, pageDict pdf.Dict, annotsObj pdf.Object, annots pdf.Array) error {
	if len(annots) == 0 {
		delete(pageDict, "Annots")
		if ref, ok := annotsObj.(pdf.Reference); ok {
			if err := data.Put(ref, nil); err != nil {
				return err
			}
		}
		return data.Put(pageRef, pageDict)
	}
	if ref, ok := annotsObj.(pdf.Reference); ok {
		return data.Put(ref, annots)
	}
	pageDict["Annots"] = annots
	return data.Put(pageRef, pageDict)
}
