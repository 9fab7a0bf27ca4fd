package contentstream

// LineCap represents the line cap style (J operator).
type LineCap int

const (
	LineCapButt LineCap = iota
	LineCapRound
	LineCapSquare
)

// LineJoin represents the line join style (j operator).
type LineJoin int

const (
	LineJoinMiter LineJoin = iota
	LineJoinRound
	LineJoinBevel
)

// Path describes a graphics path made of subpaths.
type Path struct {
	Subpaths []Subpath
}

// Subpath describes a portion of a path.
type Subpath struct {
	Points []PathPoint
	Closed bool
}

// PathPoint identifies a path segment and its coordinates.
type PathPoint struct {
	X, Y                 float64
	Type                 PathPointType
	Control1X, Control1Y float64
	Control2X, Control2Y float64
}

// PathPointType enumerates path segment types.
type PathPointType int

const (
	PathMoveTo PathPointType = iota
	PathLineTo
	PathCurveTo
	PathClose
)

// MoveTo starts a new subpath at (x, y).
func (p *Path) MoveTo(x, y float64) {
	p.Subpaths = append(p.Subpaths, Subpath{Points: []PathPoint{{X: x, Y: y, Type: PathMoveTo}}})
}

// LineTo appends a straight segment to the current subpath.
func (p *Path) LineTo(x, y float64) {
	if len(p.Subpaths) == 0 {
		p.MoveTo(x, y)
		return
	}
	last := &p.Subpaths[len(p.Subpaths)-1]
	last.Points = append(last.Points, PathPoint{X: x, Y: y, Type: PathLineTo})
}

// CurveTo appends a cubic Bezier segment to the current subpath.
func (p *Path) CurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	if len(p.Subpaths) == 0 {
		p.MoveTo(c1x, c1y)
	}
	last := &p.Subpaths[len(p.Subpaths)-1]
	last.Points = append(last.Points, PathPoint{
		X: x, Y: y, Type: PathCurveTo,
		Control1X: c1x, Control1Y: c1y,
		Control2X: c2x, Control2Y: c2y,
	})
}

// Close marks the current subpath as closed.
func (p *Path) Close() {
	if len(p.Subpaths) == 0 {
		return
	}
	p.Subpaths[len(p.Subpaths)-1].Closed = true
}
