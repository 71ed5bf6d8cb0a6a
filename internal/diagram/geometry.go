package diagram

import (
	"fmt"
	"math"
	"strconv"
)

// NodeRadius 连线在节点圆周处截断
const NodeRadius = 40.0

// externalLift 外部连线二次曲线控制点的上抬高度
const externalLift = 60.0

type Point struct {
	X, Y float64
}

/**
 * Bezier curve of one edge, cubic or quadratic depending on the edge kind
 * @property {EdgeKind} Kind - External edges use a quadratic arc, others a cubic
 * @property {Point} P0 - Start point, trimmed to the source circle
 * @property {Point} P1,P2 - Control points (P2 unused for quadratic)
 * @property {Point} P3 - End point, trimmed to the target circle
 */
type Curve struct {
	Kind           EdgeKind
	P0, P1, P2, P3 Point
}

/**
 * Build the curve between two node centres
 * @param {EdgeKind} kind - Edge kind
 * @param {Point} src - Source node centre
 * @param {Point} dst - Target node centre
 * @param {float64} radius - Distance to trim from both ends along the centre line
 * @returns {Curve} Trimmed curve
 * @description
 * - Standard and data-flow: control points (midX, sy) and (midX, ty)
 * - External: control point (midX, min(sy, ty) - 60)
 * - Coincident centres produce a degenerate curve instead of NaN
 */
func NewCurve(kind EdgeKind, src, dst Point, radius float64) Curve {
	dx, dy := dst.X-src.X, dst.Y-src.Y
	dist := math.Hypot(dx, dy)
	start, end := src, dst
	if dist > 0 {
		ux, uy := dx/dist, dy/dist
		start = Point{src.X + ux*radius, src.Y + uy*radius}
		end = Point{dst.X - ux*radius, dst.Y - uy*radius}
	}

	midX := (start.X + end.X) / 2
	c := Curve{Kind: kind, P0: start, P3: end}
	if kind == EdgeExternal {
		c.P1 = Point{midX, math.Min(start.Y, end.Y) - externalLift}
		c.P2 = c.P1
		return c
	}
	c.P1 = Point{midX, start.Y}
	c.P2 = Point{midX, end.Y}
	return c
}

// At 曲线参数t处的坐标, t截断到[0,1]
func (c Curve) At(t float64) Point {
	t = clamp01(t)
	u := 1 - t
	if c.Kind == EdgeExternal {
		return Point{
			X: u*u*c.P0.X + 2*u*t*c.P1.X + t*t*c.P3.X,
			Y: u*u*c.P0.Y + 2*u*t*c.P1.Y + t*t*c.P3.Y,
		}
	}
	return Point{
		X: u*u*u*c.P0.X + 3*u*u*t*c.P1.X + 3*u*t*t*c.P2.X + t*t*t*c.P3.X,
		Y: u*u*u*c.P0.Y + 3*u*u*t*c.P1.Y + 3*u*t*t*c.P2.Y + t*t*t*c.P3.Y,
	}
}

// Path SVG路径数据
func (c Curve) Path() string {
	if c.Kind == EdgeExternal {
		return fmt.Sprintf("M%s,%s Q%s,%s %s,%s",
			num(c.P0.X), num(c.P0.Y), num(c.P1.X), num(c.P1.Y), num(c.P3.X), num(c.P3.Y))
	}
	return fmt.Sprintf("M%s,%s C%s,%s %s,%s %s,%s",
		num(c.P0.X), num(c.P0.Y), num(c.P1.X), num(c.P1.Y),
		num(c.P2.X), num(c.P2.Y), num(c.P3.X), num(c.P3.Y))
}

// EndAngle 曲线终点切线方向(度), 用于箭头朝向
func (c Curve) EndAngle() float64 {
	a := c.At(0.98)
	b := c.P3
	if a == b {
		return 0
	}
	return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
}

// EaseCubicInOut 与粒子动画使用的缓动曲线一致
func EaseCubicInOut(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// num 保留两位小数并去掉多余的0
func num(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // 去掉-0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
