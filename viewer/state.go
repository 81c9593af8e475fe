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

import "math"

// Unset is a sentinel value for state fields the viewer could not
// report.  Any NaN value is treated the same way.
var Unset = math.NaN()

// State is a snapshot of the viewer's scroll and zoom state.  It is
// captured before the document is rewritten on disk and restored after
// the viewer has reloaded, so that the user does not lose their place.
type State struct {
	// Page is the one-based number of the topmost visible page.
	Page int

	// Left and Top are the document coordinates of the point shown in
	// the top-left corner of the window.
	Left, Top float64

	// Zoom is the magnification factor.
	Zoom float64
}

// IsSet reports whether a state field holds a known value.
func IsSet(x float64) bool {
	return !math.IsNaN(x)
}
