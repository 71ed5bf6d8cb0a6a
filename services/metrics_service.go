package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"imc-manager/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_request_total",
			Help: "Total service requests",
		},
		[]string{"service"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "service_request_duration_seconds",
			Help:    "Duration of service requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_request_errors_total",
			Help: "Total service requests answered with status >= 400",
		},
		[]string{"service"},
	)

	pollTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imc_poll_total",
			Help: "Backend polls by poll name and result",
		},
		[]string{"poll", "result"},
	)

	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imc_poll_duration_seconds",
			Help:    "Duration of backend polls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"poll"},
	)

	commandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imc_command_total",
			Help: "Operator commands by command and result",
		},
		[]string{"command", "result"},
	)

	streamEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imc_stream_events_total",
			Help: "Events received on the upstream event stream",
		},
	)

	streamConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "imc_stream_connected",
			Help: "1 while the upstream event stream is connected",
		},
	)
)

// 健康检查接口使用的本地计数
var (
	totalRequests atomic.Int64
	errorRequests atomic.Int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(pollTotal)
	prometheus.MustRegister(pollDuration)
	prometheus.MustRegister(commandTotal)
	prometheus.MustRegister(streamEvents)
	prometheus.MustRegister(streamConnected)
}

// IncrementRequestCount 记录一次HTTP请求
func IncrementRequestCount(service string) {
	requestCount.WithLabelValues(service).Inc()
	totalRequests.Add(1)
}

// RecordRequestDuration 记录HTTP请求耗时(秒)
func RecordRequestDuration(service string, seconds float64) {
	requestDuration.WithLabelValues(service).Observe(seconds)
}

// IncrementErrorCount 记录一次失败的HTTP请求
func IncrementErrorCount(service string) {
	requestErrors.WithLabelValues(service).Inc()
	errorRequests.Add(1)
}

func GetTotalRequestCount() int64 {
	return totalRequests.Load()
}

func GetTotalErrorCount() int64 {
	return errorRequests.Load()
}

func observePoll(name string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	pollTotal.WithLabelValues(name, result).Inc()
	pollDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

func observeCommand(command string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	commandTotal.WithLabelValues(command, result).Inc()
}

func setStreamConnected(connected bool) {
	if connected {
		streamConnected.Set(1)
	} else {
		streamConnected.Set(0)
	}
}

/**
 * Push all registered metrics to a Prometheus Pushgateway once
 * @param {string} addr - Pushgateway URL
 * @param {string} job - Job label
 * @returns {error} Push error
 */
func PushMetrics(addr, job string) error {
	if addr == "" {
		return fmt.Errorf("pushgateway address is empty")
	}
	pusher := push.New(addr, job).Gatherer(prometheus.DefaultGatherer)
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("push to %s: %w", addr, err)
	}
	return nil
}

/**
 * Push metrics periodically until ctx is cancelled
 * @param {context.Context} ctx - Stops the loop when cancelled
 * @param {string} addr - Pushgateway URL, empty disables pushing
 * @param {string} job - Job label
 * @param {time.Duration} interval - Push interval, <= 0 disables pushing
 */
func CollectAndPushMetrics(ctx context.Context, addr, job string, interval time.Duration) {
	if addr == "" || interval <= 0 {
		logger.Info("Metrics pushing is disabled")
		return
	}
	logger.Infof("Pushing metrics to %s every %v", addr, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := PushMetrics(addr, job); err != nil {
			logger.Warnf("Metrics push error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
