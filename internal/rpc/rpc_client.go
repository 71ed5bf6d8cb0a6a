package rpc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"imc-manager/internal/logger"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config    *HTTPConfig
	client    *http.Client
	transport *http.Transport
}

/**
 * Create new HTTP client
 * @param {HTTPConfig} config - HTTP client configuration
 * @returns {HTTPClient} HTTP client interface
 * @description
 * - Dials the unix socket at config.Address when Network is "unix"
 * - No client wide timeout is set, Get/Post apply config.Timeout per request
 *   so that Open can hold a long lived event stream
 * @example
 * client := rpc.NewHTTPClient(rpc.BackendConfig(config.App()))
 * defer client.Close()
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = &HTTPConfig{Network: "tcp", BaseURL: "http://localhost:8080"}
	}

	c := &httpClient{
		config: config,
	}
	c.transport = http.DefaultTransport.(*http.Transport).Clone()
	if config.Network == "unix" && config.Address != "" {
		socketPath := config.Address
		c.transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		}
	}
	c.client = &http.Client{Transport: c.transport}
	return c
}

func (c *httpClient) BaseURL() string {
	return c.config.BaseURL
}

// Get 发送GET请求
/**
 * Send GET request
 * @param {context.Context} ctx - Request context, cancelled requests are aborted
 * @param {string} path - API endpoint path
 * @param {map[string]interface{}} params - Query parameters
 * @returns {*HTTPResponse} Response for any completed exchange, including non-2xx
 * @returns {error} Transport level error
 * @example
 * resp, err := client.Get(ctx, "/api/services/rag-pipeline/overview", nil)
 */
func (c *httpClient) Get(ctx context.Context, path string, params map[string]interface{}) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, nil)
}

// Post 发送POST请求
/**
 * Send POST request with a JSON body
 * @param {context.Context} ctx - Request context
 * @param {string} path - API endpoint path
 * @param {interface{}} data - Request body data, nil sends an empty body
 * @param {http.Header} header - Extra request headers, may be nil
 * @returns {*HTTPResponse} Response for any completed exchange, including non-2xx
 * @returns {error} Transport level error
 * @description
 * - Content-Type is always application/json, even without a body
 */
func (c *httpClient) Post(ctx context.Context, path string, data interface{}, header http.Header) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodPost, path, nil, data, header)
}

func (c *httpClient) do(ctx context.Context, method, path string, params map[string]interface{}, data interface{}, header http.Header) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	logger.Debugf("Sending %s request to %s", method, url)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

/**
 * Open a long lived GET request and hand back the raw response
 * @param {context.Context} ctx - Cancelling ctx closes the connection
 * @param {string} path - Endpoint path
 * @param {http.Header} header - Extra request headers
 * @returns {*http.Response} Open response, caller must close Body
 * @returns {error} Transport error or non-2xx status
 */
func (c *httpClient) Open(ctx context.Context, path string, header http.Header) (*http.Response, error) {
	url, err := buildURL(c.config.BaseURL, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return resp, nil
}

func (c *httpClient) authorize(req *http.Request) {
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}
}

// Close 关闭空闲连接
func (c *httpClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
