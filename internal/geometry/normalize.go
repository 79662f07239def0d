// Package geometry normalizes street-segment geometries from the geobase
// dataset into single LineStrings suitable for storage and length math.
package geometry

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
)

// ErrUnsupportedGeometry is returned when a geometry is neither a LineString
// nor a MultiLineString, or has no coordinates. Callers skip persisting
// geometry for that record but may still persist its attributes.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// NormalizeLineString converts a geobase geometry to a single LineString.
//
// LineStrings pass through unchanged. MultiLineStrings are merged by joining
// segments that share endpoints; when the merge still leaves disjoint pieces
// the longest piece wins (first encountered on a tie). If a sub-path is too
// short to merge at all, the first sub-path is used verbatim. This is a
// deliberately lossy simplification, not an error.
func NormalizeLineString(g orb.Geometry) (orb.LineString, error) {
	switch ls := g.(type) {
	case orb.LineString:
		if len(ls) == 0 {
			return nil, ErrUnsupportedGeometry
		}
		return ls, nil
	case orb.MultiLineString:
		if len(ls) == 0 {
			return nil, ErrUnsupportedGeometry
		}
		for _, seg := range ls {
			if len(seg) < 2 {
				// Degenerate sub-path: merging is meaningless, fall back
				// to the first sub-path as-is.
				return ls[0], nil
			}
		}
		pieces := mergeSegments(ls)
		if len(pieces) == 1 {
			return pieces[0], nil
		}
		return longestPiece(pieces), nil
	default:
		return nil, ErrUnsupportedGeometry
	}
}

// ToEWKT normalizes the geometry and renders it as extended WKT with the
// WGS84 SRID prefix, the form the geometry column stores.
func ToEWKT(g orb.Geometry) (string, error) {
	ls, err := NormalizeLineString(g)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SRID=4326;%s", wkt.MarshalString(ls)), nil
}

// mergeSegments joins segments that share endpoints into continuous pieces.
// Each piece grows greedily: a remaining segment attaches to the piece's head
// or tail, reversed when needed, until no segment fits, then the next piece
// starts from the first unused segment.
func mergeSegments(segs orb.MultiLineString) []orb.LineString {
	used := make([]bool, len(segs))
	var pieces []orb.LineString

	for i := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		piece := append(orb.LineString(nil), segs[i]...)

		for attached := true; attached; {
			attached = false
			for j := range segs {
				if used[j] {
					continue
				}
				next, ok := attach(piece, segs[j])
				if ok {
					piece = next
					used[j] = true
					attached = true
				}
			}
		}
		pieces = append(pieces, piece)
	}
	return pieces
}

// attach tries to connect seg to either end of piece, reversing seg when its
// orientation points the wrong way. Returns the grown piece and whether it fit.
func attach(piece, seg orb.LineString) (orb.LineString, bool) {
	head, tail := piece[0], piece[len(piece)-1]
	sHead, sTail := seg[0], seg[len(seg)-1]

	switch {
	case tail.Equal(sHead):
		return append(piece, seg[1:]...), true
	case tail.Equal(sTail):
		return append(piece, reversed(seg)[1:]...), true
	case head.Equal(sTail):
		return append(append(orb.LineString(nil), seg...), piece[1:]...), true
	case head.Equal(sHead):
		return append(reversed(seg), piece[1:]...), true
	}
	return piece, false
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

// longestPiece picks the piece with the greatest geodesic length. Ties keep
// the first-encountered piece.
func longestPiece(pieces []orb.LineString) orb.LineString {
	best := pieces[0]
	bestLen := geo.LengthHaversine(best)
	for _, p := range pieces[1:] {
		if l := geo.LengthHaversine(p); l > bestLen {
			best, bestLen = p, l
		}
	}
	return best
}
