package config

import "strings"

/**
 * Pipeline component polled through the backend proxy
 * @property {string} name - Proxy app name (e.g. "hdfsWatcher")
 * @property {string} label - Label shown on cards and diagram nodes
 * @property {string} description - One line description
 * @property {string} state_path - State endpoint relative to the proxied app
 * @property {string} status_field - Boolean field reporting the processing state
 */
type ComponentConfig struct {
	Name        string `mapstructure:"name" json:"name"`
	Label       string `mapstructure:"label" json:"label"`
	Description string `mapstructure:"description" json:"description"`
	StatePath   string `mapstructure:"state_path" json:"statePath"`
	StatusField string `mapstructure:"status_field" json:"statusField"`
}

/**
 * Backend service that accepts control commands
 * @property {string} name - Registry name (e.g. "hdfswatcher")
 * @property {string} display_name - Human readable name
 * @property {string} description - One line description
 * @property {bool} resettable - Whether processing/reset is supported
 */
type ServiceConfig struct {
	Name        string `mapstructure:"name" json:"name"`
	DisplayName string `mapstructure:"display_name" json:"displayName"`
	Description string `mapstructure:"description" json:"description"`
	Resettable  bool   `mapstructure:"resettable" json:"resettable"`
}

// DefaultComponents RAG流水线的三个组件
func DefaultComponents() []ComponentConfig {
	return []ComponentConfig{
		{Name: "hdfsWatcher", Label: "hdfsWatcher", Description: "Monitors document storage", StatePath: "/api/processing/state", StatusField: "enabled"},
		{Name: "textProc", Label: "textProc", Description: "Extracts and processes text", StatePath: "/api/processing/state", StatusField: "enabled"},
		{Name: "embedProc", Label: "embedProc", Description: "Generates vector embeddings", StatePath: "/api/processing/state", StatusField: "enabled"},
	}
}

// DefaultServices 后端注册中心里的服务
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: "hdfswatcher", DisplayName: "HDFS Watcher", Description: "Monitors document storage for new files", Resettable: true},
		{Name: "textproc", DisplayName: "Text Processor", Description: "Extracts and processes text from documents", Resettable: true},
		{Name: "embedproc", DisplayName: "Embedding Processor", Description: "Generates vector embeddings from processed text"},
	}
}

/**
 * Find a command target by name
 * @param {string} name - Service name, matched case-insensitively
 * @returns {*ServiceConfig} Matching service
 * @returns {error} ErrServiceNotFound when the name is not configured
 */
func (c *AppConfig) FindService(name string) (*ServiceConfig, error) {
	for i := range c.Services {
		if strings.EqualFold(c.Services[i].Name, name) {
			return &c.Services[i], nil
		}
	}
	return nil, ErrServiceNotFound
}
