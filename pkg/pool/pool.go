// Pooled line buffers for the point-list writer
//
// A loop is rendered into a Lines buffer (an optional material marker and
// one "x y z" line per control point) and handed to the output in a single
// write.
//
//	l := pool.Get()
//	defer pool.Put(l)
//	l.Material("1")
//	l.Point(p)
//	l.WriteTo(w)
//
// Copyright (C) 2026  Knitout Visualizer Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"bytes"
	"io"
	"math"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// MaxRetained is the largest buffer capacity returned to the pool.
const MaxRetained = 4096

// Lines accumulates the text of one loop.
type Lines struct {
	b []byte
}

var linesPool = sync.Pool{
	New: func() any {
		return &Lines{b: make([]byte, 0, 512)} // one loop of 16 points
	},
}

// Get returns an empty buffer from the pool.
func Get() *Lines {
	l := linesPool.Get().(*Lines)
	l.b = l.b[:0]
	return l
}

// Put returns l to the pool. Buffers that grew past MaxRetained are dropped.
func Put(l *Lines) {
	if l == nil || cap(l.b) > MaxRetained {
		return
	}
	linesPool.Put(l)
}

// Material appends the marker that switches the viewer to carrier's material.
func (l *Lines) Material(carrier string) {
	l.b = append(l.b, "usemtl mtl"...)
	l.b = append(l.b, carrier...)
	l.b = append(l.b, '\n')
}

// Point appends one "x y z" line.
func (l *Lines) Point(v r3.Vec) {
	l.b = AppendNumber(l.b, v.X)
	l.b = append(l.b, ' ')
	l.b = AppendNumber(l.b, v.Y)
	l.b = append(l.b, ' ')
	l.b = AppendNumber(l.b, v.Z)
	l.b = append(l.b, '\n')
}

// Len returns the number of pending bytes.
func (l *Lines) Len() int { return len(l.b) }

// String returns the pending text.
func (l *Lines) String() string { return string(l.b) }

// WriteTo writes the pending text to w and empties the buffer.
func (l *Lines) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(l.b)
	l.b = l.b[:0]
	return int64(n), err
}

// AppendNumber appends x as the viewer expects it: the shortest decimal that
// round-trips, switching to exponent form (without padded exponent digits)
// for magnitudes of 1e21 and above or below 1e-6.
func AppendNumber(dst []byte, x float64) []byte {
	if x == 0 {
		return append(dst, '0')
	}
	if a := math.Abs(x); a < 1e21 && a >= 1e-6 {
		return strconv.AppendFloat(dst, x, 'f', -1, 64)
	}
	start := len(dst)
	dst = strconv.AppendFloat(dst, x, 'e', -1, 64)
	e := start + bytes.IndexByte(dst[start:], 'e')
	digits := e + 2 // past the exponent sign
	i := digits
	for i < len(dst)-1 && dst[i] == '0' {
		i++
	}
	return append(dst[:digits], dst[i:]...)
}
