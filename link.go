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

package pdfmark

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/pdf"
)

// Kind identifies the addressing mode of a link target.
type Kind int

// The three ways a link can address a region on a page.
const (
	KindRect       Kind = iota + 1 // fixed document coordinates
	KindSelection                  // text-layer range, resolved lazily
	KindAnnotation                 // annotation object in the PDF file
)

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindSelection:
		return "selection"
	case KindAnnotation:
		return "annotation"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Target selects what a link points at on a page.  The three
// implementations are [*RectTarget], [*SelectionTarget] and
// [*AnnotationTarget].
type Target interface {
	Kind() Kind

	// appendQuery appends the target's fragment parameters to b.
	appendQuery(b []byte) []byte
}

// RectTarget addresses a fixed rectangle, given in document
// coordinates.  The coordinates are rounded to integers when the link
// is written out.
type RectTarget struct {
	Rect pdf.Rectangle
}

// Kind implements the [Target] interface.
func (t *RectTarget) Kind() Kind { return KindRect }

func (t *RectTarget) appendQuery(b []byte) []byte {
	b = append(b, "&rect="...)
	for i, x := range [4]float64{t.Rect.LLx, t.Rect.LLy, t.Rect.URx, t.Rect.URy} {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, int64(math.Round(x)), 10)
	}
	return b
}

// SelectionTarget addresses a text range in the target page's text
// layer.  The range is resolved to document coordinates only when the
// link is opened and the target page's text has been laid out.
type SelectionTarget struct {
	Selection
}

// Kind implements the [Target] interface.
func (t *SelectionTarget) Kind() Kind { return KindSelection }

func (t *SelectionTarget) appendQuery(b []byte) []byte {
	b = append(b, "&selection="...)
	for i, x := range [4]int{t.Begin.Node, t.Begin.Offset, t.End.Node, t.End.Offset} {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, int64(x), 10)
	}
	return b
}

// AnnotationTarget addresses an annotation stored in the PDF file
// itself, by the number of the indirect object which holds the
// annotation dictionary.
type AnnotationTarget struct {
	Number uint32
}

// Kind implements the [Target] interface.
func (t *AnnotationTarget) Kind() Kind { return KindAnnotation }

func (t *AnnotationTarget) appendQuery(b []byte) []byte {
	b = append(b, "&annotation="...)
	b = strconv.AppendUint(b, uint64(t.Number), 10)
	b = append(b, 'R')
	return b
}

// Link is the parsed form of a deep link.
//
// A link consists of an optional document path and a fragment which
// addresses a region on one page of that document:
//
//	notes/paper.pdf#page=3&selection=5,2,7,9&hash='2E9uW1nfAbc'
//
// The fragment names the (one-based) page, a [Target], and optionally
// the identifier of the highlight the link belongs to.
type Link struct {
	// Doc is the path of the document the link points into.
	// An empty Doc means the current document.
	Doc string

	// Page is the one-based page number.
	Page int

	// Target selects the region on the page.
	Target Target

	// Hash is the identifier of the highlight the link belongs to.
	// It is optional, and it is not used for annotation targets.
	Hash string
}

// ParseLink parses a deep link.  The argument can either be a complete
// link including a document path before the '#' character, or a bare
// fragment.
//
// Parse errors are of type [*InvalidLinkError].
func ParseLink(s string) (*Link, error) {
	frag := s
	var doc string
	if idx := strings.LastIndexByte(s, '#'); idx >= 0 {
		doc, frag = s[:idx], s[idx+1:]
	}

	link, err := parseFragment(frag)
	if err != nil {
		return nil, err
	}
	link.Doc = doc
	return link, nil
}

func parseFragment(frag string) (*Link, error) {
	parts := strings.Split(frag, "&")

	pageStr, ok := strings.CutPrefix(parts[0], "page=")
	if !ok {
		return nil, &InvalidLinkError{frag, "fragment must start with a page number"}
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return nil, &InvalidLinkError{frag, "invalid page number " + strconv.Quote(pageStr)}
	}
	if len(parts) < 2 {
		return nil, &InvalidLinkError{frag, "missing target"}
	}

	link := &Link{Page: page}
	key, val, _ := strings.Cut(parts[1], "=")
	switch key {
	case "rect":
		x, err := parseFloats(val)
		if err != nil {
			return nil, &InvalidLinkError{frag, err.Error()}
		}
		link.Target = &RectTarget{pdf.Rectangle{LLx: x[0], LLy: x[1], URx: x[2], URy: x[3]}}
	case "selection":
		x, err := parseInts(val)
		if err != nil {
			return nil, &InvalidLinkError{frag, err.Error()}
		}
		sel := Selection{Anchor{x[0], x[1]}, Anchor{x[2], x[3]}}
		if !sel.IsValid() {
			return nil, &InvalidLinkError{frag, "selection range is empty or reversed"}
		}
		link.Target = &SelectionTarget{sel}
	case "annotation":
		numStr, ok := strings.CutSuffix(val, "R")
		if !ok {
			return nil, &InvalidLinkError{frag, `annotation number must end in "R"`}
		}
		num, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil || num == 0 {
			return nil, &InvalidLinkError{frag, "invalid annotation number " + strconv.Quote(numStr)}
		}
		link.Target = &AnnotationTarget{uint32(num)}
	default:
		return nil, &InvalidLinkError{frag, "unknown target " + strconv.Quote(key)}
	}

	rest := parts[2:]
	if len(rest) > 0 && link.Target.Kind() != KindAnnotation {
		if hash, ok := strings.CutPrefix(rest[0], "hash='"); ok {
			hash, ok = strings.CutSuffix(hash, "'")
			if !ok || hash == "" || strings.ContainsRune(hash, '\'') {
				return nil, &InvalidLinkError{frag, "malformed highlight identifier"}
			}
			link.Hash = hash
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		return nil, &InvalidLinkError{frag, "unexpected " + strconv.Quote(rest[0])}
	}

	return link, nil
}

func parseFloats(s string) ([4]float64, error) {
	var x [4]float64
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return x, fmt.Errorf("need 4 coordinates, got %d", len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return x, fmt.Errorf("invalid coordinate %q", f)
		}
		x[i] = v
	}
	return x, nil
}

func parseInts(s string) ([4]int, error) {
	var x [4]int
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return x, fmt.Errorf("need 4 fields, got %d", len(fields))
	}
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 {
			return x, fmt.Errorf("invalid field %q", f)
		}
		x[i] = v
	}
	return x, nil
}

// Fragment returns the link's fragment in canonical form.  Parsing the
// result with [ParseLink] yields back the link, with rectangle
// coordinates rounded to integers.
func (l *Link) Fragment() string {
	b := make([]byte, 0, 64)
	b = append(b, "page="...)
	b = strconv.AppendInt(b, int64(l.Page), 10)
	if l.Target != nil {
		b = l.Target.appendQuery(b)
	}
	if l.Hash != "" && (l.Target == nil || l.Target.Kind() != KindAnnotation) {
		b = append(b, "&hash='"...)
		b = append(b, l.Hash...)
		b = append(b, '\'')
	}
	return string(b)
}

// String returns the complete link, including the document path if one
// is set.
func (l *Link) String() string {
	frag := l.Fragment()
	if l.Doc == "" {
		return frag
	}
	return l.Doc + "#" + frag
}

// InvalidLinkError is returned by [ParseLink] when a string cannot be
// parsed as a deep link.
type InvalidLinkError struct {
	Link   string
	Reason string
}

func (e *InvalidLinkError) Error() string {
	return fmt.Sprintf("invalid link %q: %s", e.Link, e.Reason)
}
