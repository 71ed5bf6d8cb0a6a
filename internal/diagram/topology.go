package diagram

import (
	"errors"
	"sort"
	"strings"
)

// EdgeKind 连线类型
type EdgeKind string

const (
	EdgeStandard EdgeKind = "standard"
	EdgeDataFlow EdgeKind = "data-flow"
	EdgeExternal EdgeKind = "external"
)

var ErrUnknownTopology = errors.New("unknown topology")

// MetricSpec 节点下方2x2表格中的一项, Key为空表示固定值
type MetricSpec struct {
	Label   string
	Key     string
	Default string
}

/**
 * Static node definition
 * @property {string} ID - Element key, stable across renders
 * @property {float64} X,Y - Centre in the topology's view box
 * @property {string} Service - Name looked up in the status map, empty for infrastructure nodes
 * @property {string} Badge - Static badge shown when the node has no metric grid
 * @property {string} Link - Static link opened on click, overrides the service URL
 */
type NodeDef struct {
	ID          string
	X, Y        float64
	Label       string
	Description string
	Icon        string
	Image       string
	Service     string
	Clickable   bool
	Badge       string
	Link        string
	Metrics     []MetricSpec
}

// EdgeDef 静态连线定义
type EdgeDef struct {
	Source string
	Target string
	Kind   EdgeKind
}

// Topology 固定拓扑
type Topology struct {
	Name   string
	Title  string
	Width  float64
	Height float64
	Nodes  []NodeDef
	Edges  []EdgeDef
}

// Node 按ID查找节点定义
func (t Topology) Node(id string) (NodeDef, bool) {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeDef{}, false
}

// Services 拓扑中绑定的后端服务名
func (t Topology) Services() []string {
	var out []string
	for _, n := range t.Nodes {
		if n.Service != "" {
			out = append(out, n.Service)
		}
	}
	return out
}

const (
	TopologyTelemetry = "telemetry"
	TopologyRAG       = "rag"
)

// Telemetry 车联网遥测流水线
func Telemetry() Topology {
	return Topology{
		Name:   TopologyTelemetry,
		Title:  "Telemetry Pipeline",
		Width:  1500,
		Height: 600,
		Nodes: []NodeDef{
			{
				ID: "telemetry-generator", X: 120, Y: 200,
				Label: "Telemetry Generator", Description: "Vehicle data source", Icon: "🚗",
				Service: "vehicle-events", Clickable: true,
				Metrics: []MetricSpec{{"Events/sec", "telemetry_rate", "1.2K"}, {"Total Events", "total_events", "2.1M"}},
			},
			{
				ID: "telematics-exchange", X: 360, Y: 200,
				Label: "telematics_exchange", Description: "RabbitMQ fanout exchange", Image: "/static/icons/rabbitmq.svg",
				Clickable: true,
				Metrics:   []MetricSpec{{"Queue Depth", "queue_depth", "42"}, {"Messages/sec", "exchange_rate", "950"}},
			},
			{
				ID: "hdfs-sink", X: 600, Y: 120,
				Label: "HDFS Sink", Description: "All data → Parquet", Icon: "🗄️",
				Service: "hdfs-sink", Clickable: true,
				Metrics: []MetricSpec{{"Files Written", "files_written", "1,204"}, {"Data Size", "hdfs_size", "2.1GB"}},
			},
			{
				ID: "hadoop-hdfs", X: 840, Y: 120,
				Label: "Hadoop HDFS", Description: "File storage", Image: "/static/icons/hadoop.svg",
				Metrics: []MetricSpec{{"Storage Used", "", "2.1GB"}, {"Files", "", "1,204"}},
			},
			{
				ID: "events-processor", X: 600, Y: 320,
				Label: "Events Processor", Description: "Processes telematics data", Icon: "⚙️",
				Service: "data-processor", Clickable: true,
				Metrics: []MetricSpec{{"Processed/sec", "processor_rate", "850"}, {"Error Rate", "error_rate", "0.02%"}},
			},
			{
				ID: "vehicle-events-queue", X: 840, Y: 320,
				Label: "vehicle_events", Description: "Vehicle events queue", Image: "/static/icons/rabbitmq.svg",
				Clickable: true,
				Metrics:   []MetricSpec{{"Queue Length", "events_queue", "12"}, {"Consumers", "", "3"}},
			},
			{
				ID: "jdbc-sink", X: 1080, Y: 200,
				Label: "JDBC Sink", Description: "Persists events to database", Icon: "🗃️",
				Clickable: true,
				Metrics:   []MetricSpec{{"DB Inserts/sec", "db_inserts", "750"}, {"Batch Size", "", "100"}},
			},
			{
				ID: "log-sink", X: 1080, Y: 400,
				Label: "Log Sink", Description: "Outputs events to log files", Icon: "📝",
				Metrics: []MetricSpec{{"Log Files", "", "24"}, {"Size", "", "156MB"}},
			},
			{
				ID: "greenplum-db", X: 1320, Y: 200,
				Label: "Greenplum", Description: "Tanzu Greenplum Database", Image: "/static/icons/tanzu.svg",
				Clickable: true, Link: "/telemetry?panel=fleet",
				Metrics: []MetricSpec{{"Table Rows", "db_rows", "2.1M"}, {"Queries/min", "", "45"}},
			},
		},
		Edges: []EdgeDef{
			{"telemetry-generator", "telematics-exchange", EdgeDataFlow},
			{"telematics-exchange", "hdfs-sink", EdgeDataFlow},
			{"hdfs-sink", "hadoop-hdfs", EdgeDataFlow},
			{"telematics-exchange", "events-processor", EdgeDataFlow},
			{"events-processor", "vehicle-events-queue", EdgeDataFlow},
			{"vehicle-events-queue", "jdbc-sink", EdgeDataFlow},
			{"vehicle-events-queue", "log-sink", EdgeDataFlow},
			{"jdbc-sink", "greenplum-db", EdgeDataFlow},
			{"hadoop-hdfs", "greenplum-db", EdgeExternal},
		},
	}
}

// RAG 文档入库流水线, 三个处理组件的状态来自组件轮询
func RAG() Topology {
	return Topology{
		Name:   TopologyRAG,
		Title:  "RAG Processing Pipeline",
		Width:  1100,
		Height: 560,
		Nodes: []NodeDef{
			{ID: "data-lake", X: 400, Y: 80, Label: "Tanzu Data Lake", Description: "Document Storage & Management", Image: "/static/icons/tanzu.svg"},
			{ID: "hdfsWatcher", X: 160, Y: 260, Label: "hdfsWatcher", Description: "Monitors document storage", Icon: "📂", Service: "hdfsWatcher", Clickable: true, Link: "/files"},
			{ID: "textProc", X: 400, Y: 260, Label: "textProc", Description: "Extracts and processes text", Icon: "📄", Service: "textProc", Clickable: true, Link: "/services"},
			{ID: "embedProc", X: 640, Y: 260, Label: "embedProc", Description: "Generates vector embeddings", Icon: "🧮", Service: "embedProc", Clickable: true, Link: "/services"},
			{ID: "vector-store", X: 900, Y: 260, Label: "Vector Store", Description: "Embedding Storage", Icon: "🗃️", Badge: "ACTIVE"},
			{ID: "rabbitmq", X: 520, Y: 440, Label: "RabbitMQ", Description: "Message Queue & Event Streaming", Image: "/static/icons/rabbitmq.svg", Badge: "CONNECTED"},
		},
		Edges: []EdgeDef{
			{"data-lake", "hdfsWatcher", EdgeStandard},
			{"hdfsWatcher", "textProc", EdgeDataFlow},
			{"textProc", "embedProc", EdgeDataFlow},
			{"embedProc", "vector-store", EdgeDataFlow},
			{"hdfsWatcher", "rabbitmq", EdgeStandard},
			{"textProc", "rabbitmq", EdgeStandard},
			{"embedProc", "rabbitmq", EdgeStandard},
			{"data-lake", "vector-store", EdgeExternal},
		},
	}
}

var builtins = map[string]func() Topology{
	TopologyTelemetry: Telemetry,
	TopologyRAG:       RAG,
}

// Lookup 按名称获取内置拓扑, 名称大小写不敏感
func Lookup(name string) (Topology, error) {
	fn, ok := builtins[strings.ToLower(name)]
	if !ok {
		return Topology{}, ErrUnknownTopology
	}
	return fn(), nil
}

// Names 内置拓扑名称
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
