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

// RGB is a color in the DeviceRGB color space.  Each component is in
// the range from 0.0 (minimum intensity) to 1.0 (maximum intensity).
type RGB struct {
	R, G, B float64
}

// IsValid reports whether all components of the color are within the
// valid range.
func (c RGB) IsValid() bool {
	for _, x := range []float64{c.R, c.G, c.B} {
		if x < 0 || x > 1 || x != x {
			return false
		}
	}
	return true
}
