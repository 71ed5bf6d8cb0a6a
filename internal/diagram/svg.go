package diagram

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// 节点和指标表格的尺寸
const (
	haloRadius = 50
	bodyRadius = 45
	gridWidth  = 160
	gridHeight = 44
	gridTop    = 90
	cellWidth  = 80
	cellHeight = 22
	arrowSize  = 8
)

// prop 场景中会随状态变化的一个属性, Attr为空表示文本内容
type prop struct {
	ID    string
	Attr  string
	Value string
}

// dynamicProps 渲染和差异计算共用, 保证两边取值一致
func dynamicProps(n Node) []prop {
	base := nodeID(n.ID)
	color := n.Status.Color()
	props := []prop{
		{base, "data-status", string(n.Status)},
		{base + "-halo", "stroke", color},
		{base + "-body", "stroke", color},
		{base + "-label", "", n.Label},
		{base + "-desc", "", n.Description},
	}
	if n.Badge != "" {
		props = append(props,
			prop{base + "-badge", "", n.Badge},
			prop{base + "-badge", "fill", color})
	}
	if len(n.Metrics) > 0 {
		gridStroke := ColorStopped
		if n.Status == StatusHealthy {
			gridStroke = ColorHealthy
		}
		props = append(props, prop{base + "-grid", "stroke", gridStroke})
		for i, m := range n.Metrics {
			cell := fmt.Sprintf("%s-m%d", base, i)
			props = append(props,
				prop{cell + "-label", "", m.Label},
				prop{cell + "-value", "", m.Value},
				prop{cell + "-value", "fill", n.Status.valueColor()})
		}
	}
	return props
}

func lookup(props []prop, id, attr string) string {
	for _, p := range props {
		if p.ID == id && p.Attr == attr {
			return p.Value
		}
	}
	return ""
}

/**
 * Render a scene as a standalone SVG document
 * @param {io.Writer} w - Destination
 * @param {Scene} s - Scene to render
 * @returns {error} Write error
 * @description
 * - Edges are drawn first so nodes cover their ends
 * - Data-flow edges carry particles animated with SMIL animateMotion along the edge path,
 *   so all motion shares the SVG document timeline and can be paused with pauseAnimations()
 * - Every element whose value can change carries a stable id used by Diff patches
 */
func Render(w io.Writer, s Scene) error {
	_, err := io.WriteString(w, RenderString(s))
	return err
}

// RenderString 渲染为字符串
func RenderString(s Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" id="diagram-%s" class="diagram" viewBox="0 0 %s %s" width="100%%" preserveAspectRatio="xMidYMid meet">`,
		esc(s.Name), num(s.Width), num(s.Height))
	b.WriteString("\n")
	fmt.Fprintf(&b, `<title>%s</title>`+"\n", esc(s.Title))

	b.WriteString(`<g class="edges">` + "\n")
	for _, e := range s.Edges {
		writeEdge(&b, e)
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="particles">` + "\n")
	for _, e := range s.Edges {
		for i := 0; i < e.Particles; i++ {
			writeParticle(&b, e, i)
		}
	}
	b.WriteString("</g>\n")

	b.WriteString(`<g class="nodes">` + "\n")
	for _, n := range s.Nodes {
		writeNode(&b, n)
	}
	b.WriteString("</g>\n</svg>\n")
	return b.String()
}

func writeEdge(b *strings.Builder, e Edge) {
	stroke, width, dash := colorEdge, "3", ""
	if e.Kind == EdgeExternal {
		stroke, width, dash = colorExternalEdge, "2", ` stroke-dasharray="8,4,8,4"`
	}
	fmt.Fprintf(b, `<path id="%s" class="edge edge-%s" d="%s" stroke="%s" stroke-width="%s" fill="none" opacity="0.8"%s/>`+"\n",
		esc(e.ID), e.Kind, e.Curve.Path(), stroke, width, dash)

	arrowFill := ColorStopped
	if e.Kind == EdgeDataFlow {
		arrowFill = colorEdge
	}
	end := e.Curve.P3
	fmt.Fprintf(b, `<polygon id="%s-arrow" points="%d,%d 0,0 %d,%d" transform="translate(%s,%s) rotate(%s)" fill="%s" opacity="0.8"/>`+"\n",
		esc(e.ID), -arrowSize, -arrowSize, -arrowSize, arrowSize,
		num(end.X), num(end.Y), num(e.Curve.EndAngle()), arrowFill)
}

// writeParticle 第i个粒子: 时长2s+0.5s*i, 延迟0.8s*i开始, 三次缓入缓出
func writeParticle(b *strings.Builder, e Edge, i int) {
	dur := 2 + 0.5*float64(i)
	begin := 0.8 * float64(i)
	fmt.Fprintf(b, `<circle id="%s-p%d" class="particle" r="5" fill="%s" stroke="#F9FAFB" stroke-width="1.5" opacity="0.9" visibility="hidden">`,
		esc(e.ID), i, colorParticle)
	fmt.Fprintf(b, `<set attributeName="visibility" to="visible" begin="%ss"/>`, num(begin))
	fmt.Fprintf(b, `<animateMotion dur="%ss" begin="%ss" repeatCount="indefinite" calcMode="spline" keyTimes="0;1" keySplines="0.645 0.045 0.355 1">`,
		num(dur), num(begin))
	fmt.Fprintf(b, `<mpath href="#%s" xlink:href="#%s"/></animateMotion></circle>`+"\n", esc(e.ID), esc(e.ID))
}

func writeNode(b *strings.Builder, n Node) {
	props := dynamicProps(n)
	base := nodeID(n.ID)
	cursor := "default"
	if n.Clickable {
		cursor = "pointer"
	}
	link := SafeLink(n.Link)
	if link != "" {
		fmt.Fprintf(b, `<a href="%s" target="%s">`, esc(link), linkTarget(link))
	}
	fmt.Fprintf(b, `<g id="%s" class="node" data-status="%s" transform="translate(%s,%s)" style="cursor:%s">`,
		base, esc(string(n.Status)), num(n.X), num(n.Y), cursor)
	fmt.Fprintf(b, `<circle id="%s-halo" class="halo" r="%d" fill="none" stroke="%s" stroke-width="3" opacity="0.9"/>`,
		base, haloRadius, lookup(props, base+"-halo", "stroke"))
	fmt.Fprintf(b, `<circle id="%s-body" class="body" r="%d" fill="%s" stroke="%s" stroke-width="2.5"/>`,
		base, bodyRadius, colorNodeFill, lookup(props, base+"-body", "stroke"))

	switch {
	case n.Image != "":
		fmt.Fprintf(b, `<image href="%s" x="-20" y="-20" width="40" height="40"/>`, esc(n.Image))
	case n.Icon != "":
		fmt.Fprintf(b, `<text text-anchor="middle" dy="0.35em" font-size="32px">%s</text>`, esc(n.Icon))
	}

	fmt.Fprintf(b, `<text id="%s-label" text-anchor="middle" y="60" fill="%s" font-size="12px" font-weight="bold">%s</text>`,
		base, colorLabel, esc(n.Label))
	fmt.Fprintf(b, `<text id="%s-desc" text-anchor="middle" y="75" fill="%s" font-size="10px">%s</text>`,
		base, colorMuted, esc(n.Description))

	if n.Badge != "" {
		fmt.Fprintf(b, `<text id="%s-badge" text-anchor="middle" y="%d" fill="%s" font-size="10px" font-weight="bold">%s</text>`,
			base, gridTop+4, lookup(props, base+"-badge", "fill"), esc(n.Badge))
	}
	if len(n.Metrics) > 0 {
		writeGrid(b, n, props)
	}
	b.WriteString("</g>")
	if link != "" {
		b.WriteString("</a>")
	}
	b.WriteString("\n")
}

// writeGrid 节点下方的2x2指标表格, 每行一个指标
func writeGrid(b *strings.Builder, n Node, props []prop) {
	base := nodeID(n.ID)
	x0 := -gridWidth / 2
	rows := len(n.Metrics)
	height := gridHeight
	if rows > 2 {
		height = cellHeight * rows
	}
	fmt.Fprintf(b, `<rect id="%s-grid" x="%d" y="%d" width="%d" height="%d" rx="6" fill="%s" stroke="%s" stroke-width="1.5"/>`,
		base, x0, gridTop, gridWidth, height, colorGridFill, lookup(props, base+"-grid", "stroke"))
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1"/>`,
		x0+cellWidth, gridTop+2, x0+cellWidth, gridTop+height-2, colorGridLine)
	for i := 1; i < rows; i++ {
		y := gridTop + cellHeight*i
		fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1"/>`,
			x0+2, y, x0+gridWidth-2, y, colorGridLine)
	}
	for i, m := range n.Metrics {
		cell := fmt.Sprintf("%s-m%d", base, i)
		y := gridTop + 14 + cellHeight*i
		fmt.Fprintf(b, `<text id="%s-label" x="%d" y="%d" text-anchor="middle" fill="%s" font-size="9px" font-weight="500">%s</text>`,
			cell, x0+cellWidth/2, y, colorMuted, esc(m.Label))
		fmt.Fprintf(b, `<text id="%s-value" x="%d" y="%d" text-anchor="middle" fill="%s" font-size="10px" font-weight="bold">%s</text>`,
			cell, x0+cellWidth+cellWidth/2, y, lookup(props, cell+"-value", "fill"), esc(m.Value))
	}
}

// linkTarget 站内链接在当前页打开, 外部服务地址新开窗口
func linkTarget(link string) string {
	if strings.HasPrefix(link, "/") || strings.HasPrefix(link, "?") {
		return "_self"
	}
	return "_blank"
}

func esc(s string) string {
	return html.EscapeString(s)
}
