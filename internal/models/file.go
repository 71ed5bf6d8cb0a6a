package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FileState 文件处理状态
type FileState string

const (
	FilePending    FileState = "pending"
	FileProcessing FileState = "processing"
	FileProcessed  FileState = "processed"
)

// FileSize 后端可能返回字节数或已经格式化好的字符串
type FileSize struct {
	Bytes int64
	Text  string
	Known bool
}

// UnmarshalJSON 数字和字符串之外的值 (bool, 对象, 数组) 视为未知大小, 不影响同一列表中的其他文件
func (s *FileSize) UnmarshalJSON(data []byte) error {
	*s = FileSize{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch c := data[0]; {
	case c == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return nil
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*s = FileSize{Bytes: n, Known: true}
			return nil
		}
		*s = FileSize{Text: v}
	case c == '-' || (c >= '0' && c <= '9'):
		var n float64
		if err := json.Unmarshal(data, &n); err == nil {
			*s = FileSize{Bytes: int64(n), Known: true}
		}
	}
	return nil
}

func (s FileSize) MarshalJSON() ([]byte, error) {
	if s.Known {
		return json.Marshal(s.Bytes)
	}
	if s.Text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s.Text)
}

// FileEntry 后端文件列表中的一行, 名称字段因服务而异
type FileEntry struct {
	Name      string    `json:"name,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Path      string    `json:"path,omitempty"`
	Size      FileSize  `json:"size"`
	State     FileState `json:"state,omitempty"`
	Processed bool      `json:"processed,omitempty"`
}

// DisplayName 依次取name, filename, path
func (f FileEntry) DisplayName() string {
	switch {
	case f.Name != "":
		return f.Name
	case f.Filename != "":
		return f.Filename
	default:
		return f.Path
	}
}

// FileListResponse GET /api/services/hdfswatcher/files
type FileListResponse struct {
	Files []FileEntry `json:"files"`
	Error string      `json:"error,omitempty"`
}

// ProcessedFilesResponse GET /api/services/{name}/files/processed
type ProcessedFilesResponse struct {
	Files          []FileEntry `json:"files,omitempty"`
	ProcessedCount *int        `json:"processedCount,omitempty"`
	Message        string      `json:"message,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// Count processedCount优先, 否则取文件数
func (r ProcessedFilesResponse) Count() int {
	if r.ProcessedCount != nil {
		return *r.ProcessedCount
	}
	return len(r.Files)
}

// FileRecord 文件表格中展示的一行
type FileRecord struct {
	Name  string    `json:"name" example:"doc1.pdf"`
	Size  string    `json:"size" example:"2.0 MB"`
	State FileState `json:"state" example:"processed"`
	Label string    `json:"label" example:"Processed"`
}

// ProgressSource 进度统计的单个数据来源
type ProgressSource struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	FetchedAt string `json:"fetchedAt,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PipelineProgress 流水线进度, 三个来源分别获取, 不保证同一时刻一致
type PipelineProgress struct {
	HDFSFiles      int              `json:"hdfsFiles"`
	TextProcFiles  int              `json:"textProcFiles"`
	EmbedProcFiles int              `json:"embedProcFiles"`
	CompleteFiles  int              `json:"completeFiles"`
	Sources        []ProgressSource `json:"sources,omitempty"`
}
