package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// OutputFormat 命令行输出格式: table, json, yaml. 由根命令的-o参数设置
var OutputFormat = "table"

/**
 * Convert a struct into an ordered map keyed by its json tags
 * @param {interface{}} v - Struct value or pointer
 * @returns {*orderedmap.OrderedMap} Map whose key order follows the struct fields
 * @returns {error} Marshal errors
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := orderedmap.New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ToOrderedMaps 把一组结构体转换成PrintFormat使用的行
func ToOrderedMaps[T any](items []T) ([]*orderedmap.OrderedMap, error) {
	dataList := make([]*orderedmap.OrderedMap, 0, len(items))
	for _, item := range items {
		m, err := StructToOrderedMap(item)
		if err != nil {
			return nil, err
		}
		dataList = append(dataList, m)
	}
	return dataList, nil
}

// PrintFormat 以OutputFormat指定的格式输出到标准输出
func PrintFormat(dataList []*orderedmap.OrderedMap) {
	if err := FprintFormat(os.Stdout, OutputFormat, dataList); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

/**
 * Write rows in the requested format
 * @param {io.Writer} w - Destination
 * @param {string} format - table, json or yaml
 * @param {[]*orderedmap.OrderedMap} dataList - Rows, all sharing the first row's keys
 * @returns {error} Unknown format or encoder errors
 * @description
 * - table uses the first row's keys as the header, upper-cased
 * - yaml keeps the key order by building yaml.Node mappings
 */
func FprintFormat(w io.Writer, format string, dataList []*orderedmap.OrderedMap) error {
	switch strings.ToLower(format) {
	case "", "table":
		printTable(w, dataList)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if dataList == nil {
			dataList = []*orderedmap.OrderedMap{}
		}
		return enc.Encode(dataList)
	case "yaml", "yml":
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, row := range dataList {
			seq.Content = append(seq.Content, mapNode(*row))
		}
		return writeYAML(w, seq)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

/**
 * Write a single value in the requested format
 * @param {io.Writer} w - Destination
 * @param {string} format - table, json or yaml
 * @param {interface{}} v - Value, rendered as a two column key/value table in table mode
 * @returns {error} Unknown format or encoder errors
 */
func FprintValue(w io.Writer, format string, v interface{}) error {
	m, err := StructToOrderedMap(v)
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "", "table":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		for _, k := range m.Keys() {
			val, _ := m.Get(k)
			t.AppendRow(table.Row{k, cell(val)})
		}
		t.Render()
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "yaml", "yml":
		return writeYAML(w, mapNode(*m))
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintValue 以OutputFormat输出单个对象
func PrintValue(v interface{}) {
	if err := FprintValue(os.Stdout, OutputFormat, v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func printTable(w io.Writer, dataList []*orderedmap.OrderedMap) {
	if len(dataList) == 0 {
		fmt.Fprintln(w, "No records")
		return
	}
	keys := dataList[0].Keys()
	header := make(table.Row, 0, len(keys))
	for _, k := range keys {
		header = append(header, strings.ToUpper(k))
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	for _, m := range dataList {
		row := make(table.Row, 0, len(keys))
		for _, k := range keys {
			v, _ := m.Get(k)
			row = append(row, cell(v))
		}
		t.AppendRow(row)
	}
	t.Render()
}

// cell 把嵌套结构压成单元格里的一行json
func cell(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case orderedmap.OrderedMap, []interface{}:
		data, _ := json.Marshal(val)
		return string(data)
	default:
		return val
	}
}

func writeYAML(w io.Writer, node *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

func mapNode(m orderedmap.OrderedMap) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			valueNode(v))
	}
	return node
}

func valueNode(v interface{}) *yaml.Node {
	switch val := v.(type) {
	case orderedmap.OrderedMap:
		return mapNode(val)
	case *orderedmap.OrderedMap:
		return mapNode(*val)
	case []interface{}:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			seq.Content = append(seq.Content, valueNode(item))
		}
		return seq
	default:
		n := &yaml.Node{}
		if err := n.Encode(val); err != nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(val)}
		}
		return n
	}
}
