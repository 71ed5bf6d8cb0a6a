package root

import (
	"context"
	"errors"
	"fmt"

	"imc-manager/internal/config"
	"imc-manager/internal/rpc"
)

// APIPrefix 本地服务的接口前缀
const APIPrefix = "/imc/api/v1"

/**
 * Create a client for the local "imc-manager server"
 * @returns {rpc.HTTPClient} Client using the unix socket when present, TCP otherwise
 * @description
 * - Dashboard basic auth credentials from the config are attached
 */
func NewClient() rpc.HTTPClient {
	return rpc.NewHTTPClient(rpc.LocalConfig(config.App()))
}

/**
 * GET a JSON document from the local server
 * @param {context.Context} ctx - Request context
 * @param {string} path - Path below /imc/api/v1
 * @param {map[string]interface{}} params - Query parameters
 * @param {interface{}} v - Destination value
 * @returns {error} Connection error, server error message or decode error
 */
func GetJSON(ctx context.Context, path string, params map[string]interface{}, v interface{}) error {
	client := NewClient()
	defer client.Close()

	resp, err := client.Get(ctx, APIPrefix+path, params)
	if err != nil {
		return fmt.Errorf("imc-manager server is not reachable: %w", err)
	}
	if !resp.OK() {
		return errors.New(resp.Error)
	}
	return resp.DecodeJSON(v)
}

// PostJSON 向本地服务发送POST请求并解析结果
func PostJSON(ctx context.Context, path string, v interface{}) error {
	client := NewClient()
	defer client.Close()

	resp, err := client.Post(ctx, APIPrefix+path, nil, nil)
	if err != nil {
		return fmt.Errorf("imc-manager server is not reachable: %w", err)
	}
	if !resp.OK() {
		return errors.New(resp.Error)
	}
	if v == nil {
		return nil
	}
	return resp.DecodeJSON(v)
}
