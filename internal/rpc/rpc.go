package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/env"
	"imc-manager/internal/models"
)

// HTTPClient 定义HTTP客户端接口
type HTTPClient interface {
	Get(ctx context.Context, path string, params map[string]interface{}) (*HTTPResponse, error)
	Post(ctx context.Context, path string, data interface{}, header http.Header) (*HTTPResponse, error)
	Open(ctx context.Context, path string, header http.Header) (*http.Response, error)
	BaseURL() string
	Close() error
}

// HTTPConfig 定义HTTP客户端配置
type HTTPConfig struct {
	Address  string        // unix socket路径, Network为unix时使用
	Network  string        // unix,tcp
	Timeout  time.Duration // 单个请求超时时间, 不作用于Open
	BaseURL  string        // 基础URL
	Username string        // Basic认证
	Password string
}

/**
 * Build client configuration for the platform backend
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {*HTTPConfig} Configuration pointing at backend.base_url
 */
func BackendConfig(cfg *config.AppConfig) *HTTPConfig {
	return &HTTPConfig{
		Network:  "tcp",
		Timeout:  cfg.Backend.Timeout,
		BaseURL:  cfg.Backend.BaseURL,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
	}
}

/**
 * Build client configuration for the local imc-manager server
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {*HTTPConfig} Unix socket config when the socket exists, TCP otherwise
 * @description
 * - Used by CLI commands that talk to a running "imc-manager server"
 * - Dashboard basic auth credentials are attached when configured
 */
func LocalConfig(cfg *config.AppConfig) *HTTPConfig {
	c := &HTTPConfig{
		Network:  "tcp",
		Timeout:  5 * time.Second,
		BaseURL:  "http://" + localHost(cfg.Server.Address),
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
	}
	if cfg.Server.Socket != "" {
		sock := GetSocketPath(cfg.Server.Socket, "")
		if _, err := os.Stat(sock); err == nil {
			c.Network = "unix"
			c.Address = sock
			c.BaseURL = "http://localhost"
		}
	}
	return c
}

// localHost 把":8080"这类监听地址转换成可以访问的地址
func localHost(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// GetSocketPath imc-manager服务侦听的unix socket地址
func GetSocketPath(socketName string, socketDir string) string {
	if socketDir == "" {
		socketDir = env.RunDir()
	}
	return filepath.Join(socketDir, socketName)
}

// HTTPResponse 定义HTTP响应结构
type HTTPResponse struct {
	StatusCode int                 `json:"status_code"`
	Status     string              `json:"status"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
	Error      string              `json:"error"`
}

// OK 2xx视为成功
func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

/**
 * Decode the JSON body into v
 * @param {interface{}} v - Destination value
 * @returns {error} Error when the body is empty or not valid JSON
 */
func (r *HTTPResponse) DecodeJSON(v interface{}) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("malformed response body: %w", err)
	}
	return nil
}

// buildURL 构建完整的URL
func buildURL(baseURL, path string, params map[string]interface{}) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	// 拆出path中自带的查询串
	rawQuery := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		rawQuery = path[i+1:]
		path = path[:i]
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = path
	} else {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid query: %w", err)
	}
	for key, value := range params {
		switch v := value.(type) {
		case string:
			q.Set(key, v)
		case int, int8, int16, int32, int64:
			q.Set(key, fmt.Sprintf("%d", v))
		case uint, uint8, uint16, uint32, uint64:
			q.Set(key, fmt.Sprintf("%d", v))
		case float32, float64:
			q.Set(key, fmt.Sprintf("%g", v))
		case bool:
			q.Set(key, fmt.Sprintf("%t", v))
		default:
			q.Set(key, fmt.Sprintf("%v", v))
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// serializeData 序列化请求数据
func serializeData(data interface{}) (io.Reader, error) {
	if data == nil {
		return nil, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data: %w", err)
	}

	return bytes.NewReader(jsonData), nil
}

// deserializeResponse 反序列化响应数据
func deserializeResponse(resp *http.Response) (*HTTPResponse, error) {
	defer resp.Body.Close()
	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header,
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	httpResp.Body = body
	if httpResp.OK() {
		return httpResp, nil
	}
	if len(bytes.TrimSpace(body)) > 0 {
		var errBody models.ErrorResponse
		if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error != "" {
			httpResp.Error = errBody.Error
		}
	}
	if httpResp.Error == "" {
		httpResp.Error = resp.Status
	}
	if httpResp.Error == "" {
		httpResp.Error = "Unknown error"
	}
	return httpResp, nil
}
