package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/internal/rpc"

	"github.com/google/uuid"
)

// 命令名称
const (
	CmdStart     = "start"
	CmdStop      = "stop"
	CmdToggle    = "toggle"
	CmdReprocess = "reprocess"
	CmdReset     = "reset"
	CmdRestart   = "restart-pipeline"
)

var (
	ErrUnknownService = errors.New("unknown service")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotResettable  = errors.New("service does not support processing reset")
)

/**
 * Failed command
 * @property {string} Command - Command name
 * @property {string} Service - Target service, empty for pipeline wide commands
 * @property {int} StatusCode - HTTP status, 0 for transport failures
 * @property {string} Message - Backend error text or transport error
 */
type CommandError struct {
	Command    string
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *CommandError) Error() string {
	target := e.Command
	if e.Service != "" {
		target = e.Command + " " + e.Service
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s failed: %s", target, e.Message)
	}
	return fmt.Sprintf("%s failed: HTTP %d: %s", target, e.StatusCode, e.Message)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

/**
 * Sends operator commands to the backend
 * @description
 * - One JSON POST per command, no retry
 * - Success is decided by the HTTP status alone (2xx)
 * - On success, refresh-services is published after the configured delay
 */
type Dispatcher struct {
	cfg       *config.AppConfig
	client    rpc.HTTPClient
	refresher *Refresher
	newID     func() string

	mu      sync.Mutex
	pending map[*time.Timer]struct{}
}

func NewDispatcher(cfg *config.AppConfig, client rpc.HTTPClient, refresher *Refresher) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		client:    client,
		refresher: refresher,
		newID:     uuid.NewString,
		pending:   make(map[*time.Timer]struct{}),
	}
}

/**
 * Execute a command by name
 * @param {context.Context} ctx - Request context
 * @param {string} command - start, stop, toggle, reprocess, reset or restart-pipeline
 * @param {string} service - Target service for start/stop/toggle/reset
 * @returns {*models.CommandResult} Result on success
 * @returns {error} *CommandError, ErrUnknownCommand, ErrUnknownService or ErrNotResettable
 * @example
 * res, err := d.Execute(ctx, services.CmdStart, "hdfswatcher")
 */
func (d *Dispatcher) Execute(ctx context.Context, command, service string) (*models.CommandResult, error) {
	switch command {
	case CmdStart, CmdStop, CmdToggle:
		return d.ServiceAction(ctx, service, command)
	case CmdReprocess:
		return d.Reprocess(ctx)
	case CmdReset:
		return d.Reset(ctx, service)
	case CmdRestart:
		return d.RestartPipeline(ctx)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
}

// ServiceAction 启动/停止/切换单个服务
func (d *Dispatcher) ServiceAction(ctx context.Context, name, action string) (*models.CommandResult, error) {
	switch action {
	case CmdStart, CmdStop, CmdToggle:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, action)
	}
	svc, err := d.cfg.FindService(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	path := "/api/services/" + url.PathEscape(svc.Name) + "/" + action

	var reply models.CommandReply
	res, err := d.post(ctx, action, svc.Name, path, &reply)
	if err != nil {
		return nil, err
	}
	res.Message = reply.Message
	if reply.Error != "" {
		res.Warnings = append(res.Warnings, reply.Error)
	}
	d.scheduleRefresh(d.cfg.Commands.ServiceRefreshDelay)
	return res, nil
}

// Reprocess 清空已处理记录, 让文档监控服务重新处理全部文件
func (d *Dispatcher) Reprocess(ctx context.Context) (*models.CommandResult, error) {
	var reply models.ReprocessResponse
	res, err := d.post(ctx, CmdReprocess, "hdfswatcher", "/api/services/hdfswatcher/reprocess", &reply)
	if err != nil {
		return nil, err
	}
	res.ClearedCount = reply.ClearedCount
	res.Message = reply.Message
	if res.Message == "" {
		res.Message = fmt.Sprintf("Cleared %d processed files", reply.ClearedCount)
	}
	if reply.Error != "" {
		res.Warnings = append(res.Warnings, reply.Error)
	}
	d.scheduleRefresh(d.cfg.Commands.RefreshDelay)
	return res, nil
}

/**
 * Reset the processing state of a service
 * @param {context.Context} ctx - Request context
 * @param {string} name - Service name, empty means textproc
 * @returns {*models.CommandResult} Result on success
 * @returns {error} ErrNotResettable for services without a reset endpoint
 */
func (d *Dispatcher) Reset(ctx context.Context, name string) (*models.CommandResult, error) {
	if name == "" {
		name = "textproc"
	}
	svc, err := d.cfg.FindService(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	if !svc.Resettable {
		return nil, fmt.Errorf("%w: %s", ErrNotResettable, svc.Name)
	}
	var reply models.CommandReply
	res, err := d.post(ctx, CmdReset, svc.Name, "/api/services/"+url.PathEscape(svc.Name)+"/processing/reset", &reply)
	if err != nil {
		return nil, err
	}
	res.Message = reply.Message
	if reply.Error != "" {
		res.Warnings = append(res.Warnings, reply.Error)
	}
	d.scheduleRefresh(d.cfg.Commands.RefreshDelay)
	return res, nil
}

// RestartPipeline 重启整条流水线, 部分失败以警告返回
func (d *Dispatcher) RestartPipeline(ctx context.Context) (*models.CommandResult, error) {
	var reply models.RestartResponse
	res, err := d.post(ctx, CmdRestart, "", "/api/services/restart-pipeline", &reply)
	if err != nil {
		return nil, err
	}
	res.Message = reply.Message
	res.Results = reply.Results
	res.Warnings = append(res.Warnings, reply.Errors...)
	if reply.Error != "" {
		res.Warnings = append(res.Warnings, reply.Error)
	}
	d.scheduleRefresh(d.cfg.Commands.RefreshDelay)
	return res, nil
}

// post 发送命令, 2xx时尽量解析响应体, 解析失败不影响成功判定
func (d *Dispatcher) post(ctx context.Context, command, service, path string, reply interface{}) (*models.CommandResult, error) {
	reqID := d.newID()
	header := http.Header{}
	header.Set("X-Request-ID", reqID)

	logger.Infof("[%s] %s %s", reqID, command, path)
	resp, err := d.client.Post(ctx, path, nil, header)
	if err != nil {
		cmdErr := &CommandError{Command: command, Service: service, Message: err.Error(), Err: err}
		logger.Errorf("[%s] %v", reqID, cmdErr)
		observeCommand(command, cmdErr)
		return nil, cmdErr
	}
	if !resp.OK() {
		cmdErr := &CommandError{Command: command, Service: service, StatusCode: resp.StatusCode, Message: resp.Error}
		logger.Errorf("[%s] %v", reqID, cmdErr)
		observeCommand(command, cmdErr)
		return nil, cmdErr
	}
	if len(strings.TrimSpace(string(resp.Body))) > 0 {
		if err := resp.DecodeJSON(reply); err != nil {
			logger.Warnf("[%s] %s reply: %v", reqID, command, err)
		}
	}
	observeCommand(command, nil)
	logger.Infof("[%s] %s succeeded: %d", reqID, command, resp.StatusCode)
	return &models.CommandResult{
		RequestID:  reqID,
		Command:    command,
		Service:    service,
		StatusCode: resp.StatusCode,
	}, nil
}

func (d *Dispatcher) scheduleRefresh(delay time.Duration) {
	if d.refresher == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.pending, t)
		d.mu.Unlock()
		d.refresher.Publish(EventRefreshServices)
	})
	d.pending[t] = struct{}{}
}

// Close 取消尚未触发的刷新
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for t := range d.pending {
		t.Stop()
		delete(d.pending, t)
	}
}
