package diagram

import (
	"fmt"
	"strings"
)

// 补丁类型
const (
	PatchAttr    = "attr"
	PatchText    = "text"
	PatchReplace = "replace"
)

// Patch 对已渲染SVG的一次修改
type Patch struct {
	Op    string `json:"op"`
	ID    string `json:"id"`
	Attr  string `json:"attr,omitempty"`
	Value string `json:"value"`
}

/**
 * Compute the patches that turn the rendering of prev into the rendering of next
 * @param {Scene} prev - Scene currently displayed
 * @param {Scene} next - Scene to display
 * @returns {[]Patch} Attribute and text patches keyed by element id, nil when nothing changed
 * @description
 * - Only values that can change with state are compared (status colours, labels, metrics, badges)
 * - When the structure differs (nodes, edges, positions, metric layout) a single replace
 *   patch carrying the full new SVG is returned, keyed by the id of the displayed root
 * - Edges and particles never appear in attr patches, so running animations are not restarted
 * @example
 * patches := diagram.Diff(last, diagram.Build(topo, states, metrics))
 */
func Diff(prev, next Scene) []Patch {
	if shape(prev) != shape(next) {
		return []Patch{{Op: PatchReplace, ID: "diagram-" + prev.Name, Value: RenderString(next)}}
	}

	var patches []Patch
	for i := range next.Nodes {
		before := dynamicProps(prev.Nodes[i])
		after := dynamicProps(next.Nodes[i])
		for j, p := range after {
			if before[j].Value == p.Value {
				continue
			}
			op := PatchAttr
			if p.Attr == "" {
				op = PatchText
			}
			patches = append(patches, Patch{Op: op, ID: p.ID, Attr: p.Attr, Value: p.Value})
		}
	}
	return patches
}

// shape 场景结构签名, 相同签名的两个场景dynamicProps一一对应
func shape(s Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|", s.Name, num(s.Width), num(s.Height))
	for _, n := range s.Nodes {
		fmt.Fprintf(&b, "n:%s@%s,%s;%s;%s;%s;%t;%d|",
			n.ID, num(n.X), num(n.Y), n.Icon, n.Image, n.Link, n.Badge != "", len(n.Metrics))
	}
	for _, e := range s.Edges {
		fmt.Fprintf(&b, "e:%s;%s;%d|", e.ID, e.Kind, e.Particles)
	}
	return b.String()
}
