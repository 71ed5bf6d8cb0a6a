package diagram

import (
	"net/url"
	"strings"
)

// ServiceState 绑定到节点的后端服务状态
type ServiceState struct {
	Status string
	URL    string
}

// Metric 指标表格中的一格
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Node 渲染用的节点
type Node struct {
	ID          string   `json:"id"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Icon        string   `json:"icon,omitempty"`
	Image       string   `json:"image,omitempty"`
	Status      Status   `json:"status"`
	Clickable   bool     `json:"clickable"`
	Link        string   `json:"link,omitempty"`
	Badge       string   `json:"badge,omitempty"`
	Metrics     []Metric `json:"metrics,omitempty"`
}

// Edge 渲染用的连线
type Edge struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Kind      EdgeKind `json:"kind"`
	Curve     Curve    `json:"-"`
	Particles int      `json:"particles"`
}

// Scene 某一时刻的完整图
type Scene struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Nodes  []Node  `json:"nodes"`
	Edges  []Edge  `json:"edges"`
}

// ParticlesPerEdge 每条data-flow连线上的粒子数
const ParticlesPerEdge = 3

/**
 * Build a scene from a fixed topology and the latest state
 * @param {Topology} t - Static topology
 * @param {map[string]ServiceState} services - Latest status per bound service name, may be nil
 * @param {map[string]string} metrics - Latest telemetry metrics, may be nil
 * @returns {Scene} Scene with node statuses resolved and edge curves computed
 * @description
 * - Unbound nodes are always healthy
 * - A bound node whose service is missing from the map is stopped
 * - A metric with an empty key, or whose key is missing, shows its default
 * - Edges referring to unknown nodes are skipped
 */
func Build(t Topology, services map[string]ServiceState, metrics map[string]string) Scene {
	s := Scene{Name: t.Name, Title: t.Title, Width: t.Width, Height: t.Height}
	pos := make(map[string]Point, len(t.Nodes))

	for _, def := range t.Nodes {
		n := Node{
			ID:          def.ID,
			X:           def.X,
			Y:           def.Y,
			Label:       def.Label,
			Description: def.Description,
			Icon:        def.Icon,
			Image:       def.Image,
			Status:      StatusHealthy,
			Clickable:   def.Clickable,
			Link:        def.Link,
			Badge:       def.Badge,
		}
		if def.Service != "" {
			st := services[def.Service]
			n.Status = StatusFor(st.Status)
			if n.Link == "" {
				n.Link = SafeLink(st.URL)
			}
			if len(def.Metrics) == 0 {
				n.Badge = badgeFor(st.Status)
			}
		}
		if !n.Clickable {
			n.Link = ""
		}
		for _, m := range def.Metrics {
			v := m.Default
			if m.Key != "" {
				if got := metrics[m.Key]; got != "" {
					v = got
				}
			}
			n.Metrics = append(n.Metrics, Metric{Label: m.Label, Value: v})
		}
		pos[def.ID] = Point{def.X, def.Y}
		s.Nodes = append(s.Nodes, n)
	}

	for _, def := range t.Edges {
		src, ok1 := pos[def.Source]
		dst, ok2 := pos[def.Target]
		if !ok1 || !ok2 {
			continue
		}
		e := Edge{
			ID:     edgeID(def.Source, def.Target),
			Source: def.Source,
			Target: def.Target,
			Kind:   def.Kind,
			Curve:  NewCurve(def.Kind, src, dst, NodeRadius),
		}
		if def.Kind == EdgeDataFlow {
			e.Particles = ParticlesPerEdge
		}
		s.Edges = append(s.Edges, e)
	}
	return s
}

// Node 按ID查找场景中的节点
func (s Scene) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

func edgeID(src, dst string) string {
	return "edge-" + src + "--" + dst
}

func nodeID(id string) string {
	return "node-" + id
}

// PointAt 连线上参数t处的坐标
func (e Edge) PointAt(t float64) Point {
	return e.Curve.At(t)
}

// SafeLink 只保留http(s)地址和站内相对路径, 其他scheme(如javascript:, data:)返回空
func SafeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return ""
		}
		return link
	case "":
		if u.Host != "" {
			return ""
		}
		return link
	}
	return ""
}
