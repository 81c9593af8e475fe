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

// Package testpdf builds small PDF files for use in test cases.
package testpdf

import (
	"bytes"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// New returns a serialized document with the given number of empty
// letter-sized pages.
func New(numPages int) []byte {
	data := pdf.NewData(pdf.V1_7)

	pagesRef := data.Alloc()
	kids := make(pdf.Array, numPages)
	for i := range kids {
		ref := data.Alloc()
		page := pdf.Dict{
			"Type":     pdf.Name("Page"),
			"Parent":   pagesRef,
			"MediaBox": &pdf.Rectangle{URx: 612, URy: 792},
		}
		if err := data.Put(ref, page); err != nil {
			panic(err)
		}
		kids[i] = ref
	}
	pages := pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  kids,
		"Count": pdf.Integer(numPages),
	}
	if err := data.Put(pagesRef, pages); err != nil {
		panic(err)
	}
	data.GetMeta().Catalog.Pages = pagesRef

	buf := &bytes.Buffer{}
	if err := data.Write(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// NumAnnots returns the number of entries in the annotation array of
// the given (one-based) page of a serialized document.
func NumAnnots(blob []byte, pageNo int) (int, error) {
	data, err := pdf.Read(bytes.NewReader(blob), nil)
	if err != nil {
		return 0, err
	}
	pages, err := pagetree.FindPages(data)
	if err != nil {
		return 0, err
	}
	pageDict, err := pdf.GetDict(data, pages[pageNo-1])
	if err != nil {
		return 0, err
	}
	annots, err := pdf.GetArray(data, pageDict["Annots"])
	if err != nil {
		return 0, err
	}
	return len(annots), nil
}
