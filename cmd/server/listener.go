package server

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"imc-manager/internal/config"
	"imc-manager/internal/env"
	"imc-manager/internal/logger"
	"imc-manager/internal/rpc"
)

// Endpoint 仪表盘的一个侦听地址
type Endpoint struct {
	Network string
	Address string
}

func (e Endpoint) String() string {
	return e.Network + "://" + e.Address
}

// socketFileMode 本地CLI命令socket的权限, 仅属主和同组可连接
const socketFileMode = 0660

/**
 * Report whether the dashboard can offer a unix socket for local CLI commands
 * @returns {bool} True when a unix socket listener can be opened on this host
 * @description
 * - Linux and Darwin always support it
 * - On Windows a throwaway socket is opened in the temp directory and removed again
 * @example
 * if !unixSocketUsable() {
 *     logger.Info("CLI commands fall back to the TCP address")
 * }
 */
func unixSocketUsable() bool {
	if runtime.GOOS != "windows" {
		return true
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("imc-manager-%d.sock", os.Getpid()))
	defer os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return false
	}
	l.Close()
	return true
}

/**
 * Work out where the dashboard should listen
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {[]Endpoint} The TCP address, plus the CLI socket when server.socket is set
 * @description
 * - The socket lives under the run directory, which is created on demand
 */
func dashboardEndpoints(cfg *config.AppConfig) []Endpoint {
	eps := []Endpoint{{Network: "tcp", Address: cfg.Server.Address}}
	if cfg.Server.Socket == "" || !unixSocketUsable() {
		return eps
	}
	if err := os.MkdirAll(env.RunDir(), 0755); err != nil {
		logger.Warnf("Create run directory: %v", err)
	}
	return append(eps, Endpoint{Network: "unix", Address: rpc.GetSocketPath(cfg.Server.Socket, "")})
}

/**
 * Open a listener for every dashboard endpoint
 * @param {[]Endpoint} eps - Endpoints to open
 * @returns {[]net.Listener} Listeners that opened
 * @returns {error} The error of the last endpoint that failed, nil when all opened
 * @description
 * - A socket file left behind by a previous run is removed first
 * - A failed endpoint is logged and skipped; the caller decides whether the rest is enough
 */
func openEndpoints(eps []Endpoint) ([]net.Listener, error) {
	var (
		opened  []net.Listener
		lastErr error
	)
	for _, ep := range eps {
		l, err := openEndpoint(ep)
		if err != nil {
			logger.Errorf("Dashboard endpoint %s unavailable: %v", ep, err)
			lastErr = err
			continue
		}
		opened = append(opened, l)
	}
	return opened, lastErr
}

// openEndpoint 打开单个地址, unix socket先清理遗留文件再收紧权限
func openEndpoint(ep Endpoint) (net.Listener, error) {
	if ep.Network == "unix" {
		if err := os.Remove(ep.Address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	l, err := net.Listen(ep.Network, ep.Address)
	if err != nil {
		return nil, err
	}
	if ep.Network == "unix" {
		if err := os.Chmod(ep.Address, socketFileMode); err != nil {
			logger.Warnf("Chmod %s: %v", ep.Address, err)
		}
	}
	return l, nil
}
