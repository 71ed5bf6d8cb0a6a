package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"imc-manager/internal/models"
	"imc-manager/internal/rpc"
	"imc-manager/internal/view"
)

// Source 终端界面的数据来源和命令通道
type Source interface {
	Dashboard(ctx context.Context, events int) (view.Dashboard, error)
	Execute(ctx context.Context, command, service string) (*models.CommandResult, error)
}

// 本地服务的接口路径
const (
	apiPrefix     = "/imc/api/v1"
	pathDashboard = apiPrefix + "/dashboard"
)

/**
 * Source backed by a running "imc-manager server"
 * @description
 * - Reads the same view model the web dashboard renders
 * - Commands go through the server so refresh-services reaches every open page
 */
type RemoteSource struct {
	client rpc.HTTPClient
}

func NewRemoteSource(client rpc.HTTPClient) *RemoteSource {
	return &RemoteSource{client: client}
}

func (r *RemoteSource) Dashboard(ctx context.Context, events int) (view.Dashboard, error) {
	var dash view.Dashboard
	resp, err := r.client.Get(ctx, pathDashboard, map[string]interface{}{"events": events})
	if err != nil {
		return dash, err
	}
	if !resp.OK() {
		return dash, errors.New(resp.Error)
	}
	err = resp.DecodeJSON(&dash)
	return dash, err
}

/**
 * Run a command through the local server
 * @param {context.Context} ctx - Request context
 * @param {string} command - start, stop, toggle, reset, reprocess or restart-pipeline
 * @param {string} service - Target service when the command needs one
 * @returns {*models.CommandResult} Result on success
 * @returns {error} Server error message, including the upstream HTTP status
 */
func (r *RemoteSource) Execute(ctx context.Context, command, service string) (*models.CommandResult, error) {
	path, err := CommandPath(command, service)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Post(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errors.New(resp.Error)
	}
	var result models.CommandResult
	if err := resp.DecodeJSON(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CommandPath 命令对应的本地服务接口
func CommandPath(command, service string) (string, error) {
	switch command {
	case "start", "stop", "toggle":
		if service == "" {
			return "", fmt.Errorf("%s: service name required", command)
		}
		return fmt.Sprintf("%s/services/%s/%s", apiPrefix, url.PathEscape(service), command), nil
	case "reprocess":
		return apiPrefix + "/files/reprocess", nil
	case "restart-pipeline":
		return apiPrefix + "/pipeline/restart", nil
	case "reset":
		p := apiPrefix + "/pipeline/reset"
		if service != "" {
			p += "?service=" + url.QueryEscape(service)
		}
		return p, nil
	}
	return "", fmt.Errorf("unknown command: %s", command)
}
