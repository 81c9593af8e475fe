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

// Pdf-highlight manages highlight annotations in PDF files from the
// command line.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"seehuhn.de/go/pdfmark"
	"seehuhn.de/go/pdfmark/annot"
	"seehuhn.de/go/pdfmark/region"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	page := flag.Int("page", 1, "page number (1-based); 0 lists all pages")
	rectStr := flag.String("rect", "", `rectangle "llx,lly,urx,ury" in document coordinates`)
	colorStr := flag.String("color", "1,0.8,0", `highlight color "r,g,b"`)
	opacity := flag.Float64("opacity", 0.4, "highlight opacity")
	note := flag.String("note", "", "note text stored with the highlight")
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	args := flag.Args()
	if len(args) < 2 {
		usage()
	}
	command, path := args[0], args[1]
	store := annot.NewStore(annot.DirStorage(""), nil)

	var err error
	switch command {
	case "add":
		err = add(store, path, *page, *rectStr, *colorStr, *opacity, *note)
	case "list":
		err = list(store, path, *page)
	case "delete":
		err = del(store, path, *page, args[2:])
	case "update":
		if len(args) != 4 {
			usage()
		}
		err = update(store, path, *page, args[2], args[3])
	case "link":
		err = printLink(path, *page, *rectStr)
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s [options] command args...\n\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  add file.pdf              add a highlight (requires -rect)")
	fmt.Fprintln(os.Stderr, "  list file.pdf             list highlights")
	fmt.Fprintln(os.Stderr, "  delete file.pdf num...    delete highlights by object number")
	fmt.Fprintln(os.Stderr, "  update file.pdf num text  replace a highlight's note text")
	fmt.Fprintln(os.Stderr, "  link file.pdf             print a deep link (requires -rect)")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
	os.Exit(1)
}

func add(store *annot.Store, path string, page int, rectStr, colorStr string, opacity float64, note string) error {
	rect, err := parseRect(rectStr)
	if err != nil {
		return err
	}
	color, err := parseColor(colorStr)
	if err != nil {
		return err
	}

	number, err := store.Write(path, page, &annot.Highlight{
		Rects:    []pdf.Rectangle{*rect},
		Color:    color,
		Opacity:  opacity,
		Contents: note,
	})
	if err != nil {
		return err
	}

	link := &pdfmark.Link{
		Doc:    path,
		Page:   page,
		Target: &pdfmark.AnnotationTarget{Number: number},
	}
	fmt.Println(link)
	return nil
}

func list(store *annot.Store, path string, page int) error {
	first, last := page, page
	if page == 0 {
		n, err := numPages(path)
		if err != nil {
			return err
		}
		first, last = 1, n
	}

	for p := first; p <= last; p++ {
		hh, err := store.List(path, p)
		if err != nil {
			return err
		}
		for _, h := range hh {
			bbox := region.BoundingBox(h.Rects)
			fmt.Printf("page %d\t%dR\t%g,%g,%g,%g",
				p, h.Number, bbox.LLx, bbox.LLy, bbox.URx, bbox.URy)
			if h.Contents != "" {
				fmt.Printf("\t%q", h.Contents)
			}
			fmt.Println()
		}
	}
	return nil
}

func del(store *annot.Store, path string, page int, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no annotation numbers given")
	}
	var targets []annot.Target
	for _, arg := range args {
		number, err := parseNumber(arg)
		if err != nil {
			return err
		}
		targets = append(targets, annot.Target{Page: page, Number: number})
	}
	return store.BatchDelete(path, targets)
}

func update(store *annot.Store, path string, page int, numArg, text string) error {
	number, err := parseNumber(numArg)
	if err != nil {
		return err
	}
	return store.Update(path, page, number, text)
}

func printLink(path string, page int, rectStr string) error {
	rect, err := parseRect(rectStr)
	if err != nil {
		return err
	}
	link := &pdfmark.Link{
		Doc:    path,
		Page:   page,
		Target: &pdfmark.RectTarget{Rect: *rect},
	}
	fmt.Println(link)
	return nil
}

func numPages(path string) (int, error) {
	fd, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer fd.Close()

	data, err := pdf.Read(fd, nil)
	if err != nil {
		return 0, err
	}
	pages, err := pagetree.FindPages(data)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

func parseRect(s string) (*pdf.Rectangle, error) {
	if s == "" {
		return nil, fmt.Errorf("no rectangle given, use -rect")
	}
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return nil, fmt.Errorf("rectangle needs 4 coordinates, got %d", len(fields))
	}
	var x [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", f)
		}
		x[i] = v
	}
	return &pdf.Rectangle{LLx: x[0], LLy: x[1], URx: x[2], URy: x[3]}, nil
}

func parseColor(s string) (pdfmark.RGB, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return pdfmark.RGB{}, fmt.Errorf("color needs 3 components, got %d", len(fields))
	}
	var x [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return pdfmark.RGB{}, fmt.Errorf("invalid color component %q", f)
		}
		x[i] = v
	}
	color := pdfmark.RGB{R: x[0], G: x[1], B: x[2]}
	if !color.IsValid() {
		return pdfmark.RGB{}, fmt.Errorf("color components must be between 0 and 1")
	}
	return color, nil
}

func parseNumber(s string) (uint32, error) {
	number, err := strconv.ParseUint(strings.TrimSuffix(s, "R"), 10, 32)
	if err != nil || number == 0 {
		return 0, fmt.Errorf("invalid annotation number %q", s)
	}
	return uint32(number), nil
}
