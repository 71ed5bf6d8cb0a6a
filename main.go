package main

import (
	"os"

	_ "imc-manager/cmd"
	"imc-manager/cmd/root"
	"imc-manager/internal/config"
	"imc-manager/internal/logger"
)

func main() {
	// 服务器模式日志同时输出到控制台
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"
	logger.InitLoggerWithMode(&config.Config.Log, isServerMode)

	if err := root.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
