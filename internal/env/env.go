package env

import (
	"os"
	"path/filepath"
)

// Version 由cmd包在构建时注入
var Version string = "1.0.0"

var Daemon bool = false

// (default: %USERPROFILE%/.imc-manager on Windows, $HOME/.imc-manager on Linux)
var DataDir string = GetDataDir()

/**
 * Get imc-manager data directory path
 * @returns {string} Returns data directory path
 * @description
 * - IMC_HOME overrides the default location
 * - Logs and the local control socket live under this directory
 */
func GetDataDir() string {
	if dir := os.Getenv("IMC_HOME"); dir != "" {
		return dir
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".imc-manager")
}

// LogsDir 日志目录
func LogsDir() string {
	return filepath.Join(DataDir, "logs")
}

// RunDir unix socket 所在目录
func RunDir() string {
	return filepath.Join(DataDir, "run")
}
