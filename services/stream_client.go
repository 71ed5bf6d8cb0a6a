package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"imc-manager/internal/config"
	"imc-manager/internal/logger"
	"imc-manager/internal/models"
	"imc-manager/internal/rpc"
	"imc-manager/internal/sse"
	"imc-manager/internal/utils"
)

var errStreamClosed = errors.New("event stream closed by server")

// StreamOption 事件流客户端选项
type StreamOption func(*StreamClient)

// WithStreamHTTPClient 替换默认的后端客户端
func WithStreamHTTPClient(c rpc.HTTPClient) StreamOption {
	return func(s *StreamClient) {
		s.client = c
	}
}

// WithBackoff 设置重连间隔的初始值和上限
func WithBackoff(base, max time.Duration) StreamOption {
	return func(s *StreamClient) {
		if base > 0 {
			s.baseDelay = base
		}
		if max >= s.baseDelay {
			s.maxDelay = max
		}
	}
}

/**
 * Client of the backend event stream
 * @description
 * - Holds one upstream connection for the lifetime of the process
 * - Keeps the most recent events in a bounded FIFO buffer
 * - Reconnects with exponential backoff; a server retry field overrides the base delay
 * - Sends Last-Event-ID on reconnect; commands are never replayed
 */
type StreamClient struct {
	client    rpc.HTTPClient
	path      string
	buffer    *utils.RingBuffer[models.EventDto]
	baseDelay time.Duration
	maxDelay  time.Duration

	mu          sync.RWMutex
	connected   bool
	lastErr     string
	lastEventID string
	serverRetry time.Duration
	callbacks   []func(models.EventDto)
	subID       int
	subs        map[int]chan models.EventDto

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

/**
 * Create the event stream client
 * @param {*config.AppConfig} cfg - Stream path, buffer size and reconnect delays
 * @param {...StreamOption} opts - Options
 * @returns {*StreamClient} Client, not yet connected
 * @example
 * sc := services.NewStreamClient(cfg)
 * sc.Start(ctx)
 * defer sc.Stop()
 */
func NewStreamClient(cfg *config.AppConfig, opts ...StreamOption) *StreamClient {
	s := &StreamClient{
		path:      cfg.Stream.Path,
		buffer:    utils.NewRingBuffer[models.EventDto](cfg.Stream.BufferSize),
		baseDelay: cfg.Stream.ReconnectDelay,
		maxDelay:  cfg.Stream.MaxReconnectDelay,
		subs:      make(map[int]chan models.EventDto),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = rpc.NewHTTPClient(rpc.BackendConfig(cfg))
	}
	if s.baseDelay <= 0 {
		s.baseDelay = 3 * time.Second
	}
	if s.maxDelay < s.baseDelay {
		s.maxDelay = s.baseDelay
	}
	return s
}

// Start 启动读取协程, 整个生命周期只生效一次
func (s *StreamClient) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(ctx)
	})
}

// Stop 断开连接并等待读取协程退出
func (s *StreamClient) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// OnEvent 注册事件回调, 在读取协程中同步调用
func (s *StreamClient) OnEvent(fn func(models.EventDto)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

/**
 * Subscribe to decoded events
 * @returns {<-chan models.EventDto} Buffered channel; events are dropped when it is full
 * @returns {func()} Unsubscribe function
 */
func (s *StreamClient) Subscribe() (<-chan models.EventDto, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subID++
	id := s.subID
	ch := make(chan models.EventDto, 32)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

func (s *StreamClient) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Err 最近一次连接错误, 连接成功后清空
func (s *StreamClient) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Recent 最近的事件, 最旧的在前
func (s *StreamClient) Recent() []models.EventDto {
	return s.buffer.Snapshot()
}

// Status 连接状态摘要
func (s *StreamClient) Status() models.StreamStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.StreamStatus{
		Connected: s.connected,
		Error:     s.lastErr,
		Buffered:  s.buffer.Len(),
		Received:  s.buffer.Total(),
	}
}

func (s *StreamClient) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(false, "")

	delay := s.baseDelay
	for {
		connected, err := s.connect(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			delay = s.retryBase()
		}
		s.setState(false, err.Error())
		logger.Warnf("Event stream disconnected: %v, reconnecting in %v", err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
}

// retryBase 服务端通过retry字段指定的间隔优先
func (s *StreamClient) retryBase() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.serverRetry > 0 {
		return s.serverRetry
	}
	return s.baseDelay
}

// connect 建立一次连接并读取到断开为止, connected表示本次是否连上过
func (s *StreamClient) connect(ctx context.Context) (bool, error) {
	header := http.Header{}
	header.Set("Accept", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	s.mu.RLock()
	if s.lastEventID != "" {
		header.Set("Last-Event-ID", s.lastEventID)
	}
	s.mu.RUnlock()

	resp, err := s.client.Open(ctx, s.path, header)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	s.setState(true, "")
	logger.Infof("Event stream connected: %s%s", s.client.BaseURL(), s.path)

	parser := sse.NewParser(resp.Body)
	for {
		ev, err := parser.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return true, errStreamClosed
			}
			return true, err
		}
		s.mu.Lock()
		if ev.ID != "" {
			s.lastEventID = ev.ID
		}
		if d := ev.RetryDelay(); d > 0 {
			s.serverRetry = d
		}
		s.mu.Unlock()

		if strings.TrimSpace(ev.Data) == "" {
			continue
		}
		var dto models.EventDto
		if err := json.Unmarshal([]byte(ev.Data), &dto); err != nil {
			logger.Warnf("Dropping undecodable event: %v", err)
			continue
		}
		s.dispatch(dto)
	}
}

func (s *StreamClient) dispatch(ev models.EventDto) {
	s.buffer.Push(ev)
	streamEvents.Inc()

	s.mu.RLock()
	callbacks := append([]func(models.EventDto){}, s.callbacks...)
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.RUnlock()

	for _, fn := range callbacks {
		fn(ev)
	}
}

func (s *StreamClient) setState(connected bool, errText string) {
	s.mu.Lock()
	s.connected = connected
	s.lastErr = errText
	s.mu.Unlock()
	setStreamConnected(connected)
}
