package viz

import (
	"math"
	"strings"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a Braille dot grid of Width x Height cells, i.e.
// (Width*2) x (Height*4) dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDashed draws every other 3-dot segment of a line through the centre
// at angle theta, nose-up positive.
func (c *Canvas) DrawDashed(theta float64) {
	cx, cy := c.Width, c.Height*2
	half := float64(c.Width) * 0.9
	n := int(half)
	for i := -n; i <= n; i++ {
		if (i+n)/3%2 == 1 {
			continue
		}
		x := cx + int(math.Round(float64(i)*math.Cos(theta)))
		y := cy - int(math.Round(float64(i)*math.Sin(theta)))
		c.Set(x, y)
	}
}

// DrawHull draws a side view of the vehicle pitched by theta: a box hull
// with the bow on the right.
func (c *Canvas) DrawHull(theta float64) {
	cx, cy := float64(c.Width), float64(c.Height*2)
	length := float64(c.Width) * 0.6
	beam := float64(c.Height) * 0.8
	sin, cos := math.Sincos(theta)

	corner := func(along, up float64) (int, int) {
		x := cx + along*cos - up*sin
		y := cy - (along*sin + up*cos)
		return int(math.Round(x)), int(math.Round(y))
	}

	pts := [4][2]int{}
	for i, p := range [4][2]float64{{-length, -beam}, {length, -beam}, {length, beam}, {-length, beam}} {
		pts[i][0], pts[i][1] = corner(p[0], p[1])
	}
	for i := range pts {
		j := (i + 1) % len(pts)
		c.DrawLine(pts[i][0], pts[i][1], pts[j][0], pts[j][1])
	}

	// Bow marker.
	bx, by := corner(length+3, 0)
	nx, ny := corner(length, 0)
	c.DrawLine(nx, ny, bx, by)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
