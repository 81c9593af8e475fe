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
	"errors"
	"image"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/internal/testpdf"
	"seehuhn.de/go/pdfmark/region"
	"seehuhn.de/go/pdfmark/viewer"
)

var yellow = pdfmark.RGB{R: 1, G: 0.8, B: 0}

// memStorage keeps documents in memory and counts write operations.
type memStorage struct {
	files  map[string][]byte
	writes int
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (m *memStorage) ReadFile(path string) ([]byte, error) {
	blob, ok := m.files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return blob, nil
}

func (m *memStorage) WriteFile(path string, data []byte) error {
	m.files[path] = data
	m.writes++
	return nil
}

func TestWriteRoundTrip(t *testing.T) {
	store := newMemStorage()
	store.files["doc.pdf"] = testpdf.New(3)
	s := NewStore(store, nil)

	rects := []pdf.Rectangle{
		{LLx: 100, LLy: 740, URx: 220, URy: 752},
		{LLx: 100, LLy: 724, URx: 180, URy: 736},
	}
	h := &Highlight{
		Rects:    rects,
		Color:    yellow,
		Opacity:  0.4,
		Contents: "see also chapter 2",
		Name:     "mk-01",
	}
	number, err := s.Write("doc.pdf", 2, h)
	if err != nil {
		t.Fatal(err)
	}
	if number == 0 {
		t.Fatal("annotation number is zero")
	}

	list, err := s.List("doc.pdf", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d annotations, want 1", len(list))
	}
	got := list[0]
	if got.Number != number {
		t.Errorf("got annotation number %d, want %d", got.Number, number)
	}
	if got.Modified.IsZero() {
		t.Error("modification date is missing")
	}

	got.Number = 0
	got.Modified = time.Time{}
	want := Highlight{
		Rects:      rects,
		QuadPoints: region.QuadPoints(rects),
		Color:      yellow,
		Opacity:    0.4,
		Contents:   "see also chapter 2",
		Name:       "mk-01",
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("annotation differs (-want +got):\n%s", d)
	}

	for _, page := range []int{1, 3} {
		n, err := testpdf.NumAnnots(store.files["doc.pdf"], page)
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("page %d has %d annotations, want 0", page, n)
		}
	}
}

func TestWriteThenDelete(t *testing.T) {
	store := newMemStorage()
	store.files["doc.pdf"] = testpdf.New(2)
	s := NewStore(store, nil)

	before, err := testpdf.NumAnnots(store.files["doc.pdf"], 1)
	if err != nil {
		t.Fatal(err)
	}

	rect := pdf.Rectangle{LLx: 10, LLy: 10, URx: 20, URy: 20}
	number, err := s.Write("doc.pdf", 1, &Highlight{
		Rects: []pdf.Rectangle{rect},
		Color: yellow,
	})
	if err != nil {
		t.Fatal(err)
	}
	mid, err := testpdf.NumAnnots(store.files["doc.pdf"], 1)
	if err != nil {
		t.Fatal(err)
	}
	if mid != before+1 {
		t.Fatalf("got %d annotations after write, want %d", mid, before+1)
	}

	err = s.Delete("doc.pdf", 1, number)
	if err != nil {
		t.Fatal(err)
	}
	after, err := testpdf.NumAnnots(store.files["doc.pdf"], 1)
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Errorf("got %d annotations after delete, want %d", after, before)
	}

	// deleting again must not touch the file
	writes := store.writes
	err = s.Delete("doc.pdf", 1, number)
	if err != nil {
		t.Fatal(err)
	}
	if store.writes != writes {
		t.Error("deleting a missing annotation rewrote the file")
	}
}

func TestBatchDeleteSingleWrite(t *testing.T) {
	store := newMemStorage()
	store.files["doc.pdf"] = testpdf.New(2)
	s := NewStore(store, nil)

	h := &Highlight{
		Rects: []pdf.Rectangle{{LLx: 10, LLy: 10, URx: 20, URy: 20}},
		Color: yellow,
	}
	var targets []Target
	for _, page := range []int{1, 1, 2} {
		number, err := s.Write("doc.pdf", page, h)
		if err != nil {
			t.Fatal(err)
		}
		targets = append(targets, Target{Page: page, Number: number})
	}

	writes := store.writes
	err := s.BatchDelete("doc.pdf", targets)
	if err != nil {
		t.Fatal(err)
	}
	if got := store.writes - writes; got != 1 {
		t.Errorf("batch delete used %d write operations, want 1", got)
	}

	for page := 1; page <= 2; page++ {
		n, err := testpdf.NumAnnots(store.files["doc.pdf"], page)
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("page %d has %d annotations, want 0", page, n)
		}
	}
}

func TestUpdate(t *testing.T) {
	store := newMemStorage()
	store.files["doc.pdf"] = testpdf.New(1)
	s := NewStore(store, nil)

	number, err := s.Write("doc.pdf", 1, &Highlight{
		Rects:    []pdf.Rectangle{{LLx: 10, LLy: 10, URx: 20, URy: 20}},
		Color:    yellow,
		Contents: "first",
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update("doc.pdf", 1, number, "second")
	if err != nil {
		t.Fatal(err)
	}
	list, err := s.List("doc.pdf", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Contents != "second" {
		t.Fatalf("got %v, want one annotation with contents %q", list, "second")
	}

	// updates of missing annotations are no-ops
	writes := store.writes
	if err := s.Update("doc.pdf", 1, number+99, "third"); err != nil {
		t.Fatal(err)
	}
	if err := s.Update("doc.pdf", 7, number, "third"); err != nil {
		t.Fatal(err)
	}
	if store.writes != writes {
		t.Error("updating a missing annotation rewrote the file")
	}
}

// scriptHost is a viewer which records restore calls.
type scriptHost struct {
	st       viewer.State
	restored []viewer.State
}

func (h *scriptHost) State() (viewer.State, bool) { return h.st, true }

func (h *scriptHost) Restore(st viewer.State) {
	h.restored = append(h.restored, st)
}

func (h *scriptHost) GoToPage(page int) {}

func (h *scriptHost) GoToRect(page int, r *pdf.Rectangle) {}

func (h *scriptHost) PageView(page int) (*viewer.PageView, bool) {
	return nil, false
}

func (h *scriptHost) PageImage(page int) (image.Image, bool) {
	return nil, false
}

func TestRestoreAfterWrite(t *testing.T) {
	store := newMemStorage()
	store.files["doc.pdf"] = testpdf.New(3)
	host := &scriptHost{
		st: viewer.State{Page: 2, Left: 10, Top: 700, Zoom: 1.5},
	}
	ev := viewer.NewEvents()
	s := NewStore(store, &StoreOptions{Viewer: host, Events: ev})

	_, err := s.Write("doc.pdf", 1, &Highlight{
		Rects: []pdf.Rectangle{{LLx: 10, LLy: 10, URx: 20, URy: 20}},
		Color: yellow,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(host.restored) != 0 {
		t.Fatal("viewer state restored before the annotation layer was ready")
	}
	ev.AnnotationLayerReady(1)
	if len(host.restored) != 0 {
		t.Fatal("restore triggered by the wrong page")
	}
	ev.AnnotationLayerReady(2)
	if len(host.restored) != 1 {
		t.Fatalf("got %d restore calls, want 1", len(host.restored))
	}
	if d := cmp.Diff(host.st, host.restored[0]); d != "" {
		t.Errorf("restored state differs (-want +got):\n%s", d)
	}
	ev.AnnotationLayerReady(2)
	if len(host.restored) != 1 {
		t.Error("restore ran more than once")
	}
}

// indirectAnnotsPDF builds a single-page document where the /Annots
// array is an indirect object.
func indirectAnnotsPDF(t *testing.T) []byte {
	t.Helper()

	data := pdf.NewData(pdf.V1_7)
	pagesRef := data.Alloc()
	annotsRef := data.Alloc()
	if err := data.Put(annotsRef, pdf.Array{}); err != nil {
		t.Fatal(err)
	}
	pageRef := data.Alloc()
	err := data.Put(pageRef, pdf.Dict{
		"Type":     pdf.Name("Page"),
		"Parent":   pagesRef,
		"MediaBox": &pdf.Rectangle{URx: 612, URy: 792},
		"Annots":   annotsRef,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = data.Put(pagesRef, pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  pdf.Array{pageRef},
		"Count": pdf.Integer(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	data.GetMeta().Catalog.Pages = pagesRef

	buf := &bytes.Buffer{}
	if err := data.Write(buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestIndirectAnnots(t *testing.T) {
	store := newMemStorage()
	store.files["doc.pdf"] = indirectAnnotsPDF(t)
	s := NewStore(store, nil)

	number, err := s.Write("doc.pdf", 1, &Highlight{
		Rects: []pdf.Rectangle{{LLx: 10, LLy: 10, URx: 20, URy: 20}},
		Color: yellow,
	})
	if err != nil {
		t.Fatal(err)
	}

	// the annotation array must still be an indirect object
	r, err := pdf.Read(bytes.NewReader(store.files["doc.pdf"]), nil)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := pagetree.FindPages(r)
	if err != nil {
		t.Fatal(err)
	}
	pageDict, err := pdf.GetDict(r, pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pageDict["Annots"].(pdf.Reference); !ok {
		t.Errorf("annotation array is %T, want a reference", pageDict["Annots"])
	}
	annots, err := pdf.GetArray(r, pageDict["Annots"])
	if err != nil {
		t.Fatal(err)
	}
	if len(annots) != 1 {
		t.Fatalf("got %d annotations, want 1", len(annots))
	}

	if err := s.Delete("doc.pdf", 1, number); err != nil {
		t.Fatal(err)
	}
	n, err := testpdf.NumAnnots(store.files["doc.pdf"], 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("got %d annotations after delete, want 0", n)
	}
}

func TestWriteValidation(t *testing.T) {
	store := newMemStorage()
	store.files["doc.pdf"] = testpdf.New(1)
	s := NewStore(store, nil)

	rect := pdf.Rectangle{LLx: 1, LLy: 1, URx: 2, URy: 2}
	type testCase struct {
		Name string
		Page int
		H    *Highlight
	}
	cases := []testCase{
		{
			Name: "NoRects",
			Page: 1,
			H:    &Highlight{Color: yellow},
		},
		{
			Name: "BadColor",
			Page: 1,
			H:    &Highlight{Rects: []pdf.Rectangle{rect}, Color: pdfmark.RGB{R: 2}},
		},
		{
			Name: "BadOpacity",
			Page: 1,
			H:    &Highlight{Rects: []pdf.Rectangle{rect}, Color: yellow, Opacity: 1.5},
		},
		{
			Name: "PageZero",
			Page: 0,
			H:    &Highlight{Rects: []pdf.Rectangle{rect}, Color: yellow},
		},
		{
			Name: "PageOutOfRange",
			Page: 2,
			H:    &Highlight{Rects: []pdf.Rectangle{rect}, Color: yellow},
		},
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			if _, err := s.Write("doc.pdf", c.Page, c.H); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if store.writes != 0 {
		t.Errorf("rejected writes touched the file %d times", store.writes)
	}
}

// failStorage reads from the wrapped storage but refuses all writes.
type failStorage struct {
	*memStorage
}

func (f *failStorage) WriteFile(path string, data []byte) error {
	return errors.New("disk full")
}

func TestStorageErrors(t *testing.T) {
	store := newMemStorage()
	store.files["broken.pdf"] = []byte("not a pdf")
	store.files["doc.pdf"] = testpdf.New(1)

	rect := pdf.Rectangle{LLx: 1, LLy: 1, URx: 2, URy: 2}
	h := &Highlight{Rects: []pdf.Rectangle{rect}, Color: yellow}

	t.Run("Read", func(t *testing.T) {
		s := NewStore(store, nil)
		_, err := s.Write("missing.pdf", 1, h)
		var sErr *StoreError
		if !errors.As(err, &sErr) || sErr.Op != "read" {
			t.Errorf("got %v, want a read error", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error %v does not wrap os.ErrNotExist", err)
		}
	})
	t.Run("Parse", func(t *testing.T) {
		s := NewStore(store, nil)
		_, err := s.List("broken.pdf", 1)
		var sErr *StoreError
		if !errors.As(err, &sErr) || sErr.Op != "parse" {
			t.Errorf("got %v, want a parse error", err)
		}
	})
	t.Run("Write", func(t *testing.T) {
		s := NewStore(&failStorage{store}, nil)
		_, err := s.Write("doc.pdf", 1, h)
		var sErr *StoreError
		if !errors.As(err, &sErr) || sErr.Op != "write" {
			t.Errorf("got %v, want a write error", err)
		}
	})
}
