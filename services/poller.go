package services

import (
	"context"
	"sync"
	"time"

	"imc-manager/internal/logger"
)

// FetchFunc 一次轮询, ctx在Stop时取消
type FetchFunc[T any] func(ctx context.Context) (T, error)

// CommitFunc 提交一次轮询结果, 只会被串行调用
type CommitFunc[T any] func(value T, err error, at time.Time)

/**
 * Periodic fetch loop with a stale response guard
 * @description
 * - Fetches once on Start, then on every tick and on every Trigger
 * - Triggers arriving while a fetch is pending collapse into one extra fetch
 * - Every fetch gets a generation number; a result is committed only when its
 *   generation is newer than the last committed one and the poller is still running
 * - Stop cancels the timer and the in-flight request
 */
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	commit   CommitFunc[T]

	mu        sync.Mutex
	gen       uint64
	committed uint64
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	trigger   chan struct{}
}

/**
 * Create a poller
 * @param {string} name - Poll name used in logs and metrics
 * @param {time.Duration} interval - Tick interval, <= 0 means one second
 * @param {FetchFunc[T]} fetch - Fetch function
 * @param {CommitFunc[T]} commit - Receives committed results
 * @returns {*Poller[T]} Stopped poller
 */
func NewPoller[T any](name string, interval time.Duration, fetch FetchFunc[T], commit CommitFunc[T]) *Poller[T] {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		commit:   commit,
		trigger:  make(chan struct{}, 1),
	}
}

func (p *Poller[T]) Name() string {
	return p.name
}

// Running 是否处于运行状态
func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start 启动轮询, 重复调用无效
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop 停止轮询并等待正在进行的请求退出
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	done := p.done
	p.mu.Unlock()
	<-done
}

// Trigger 请求一次额外的轮询, 未消费的触发会合并
func (p *Poller[T]) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

/**
 * Fetch once and commit synchronously
 * @param {context.Context} ctx - Request context
 * @returns {T} Fetched value
 * @returns {error} Fetch error
 * @description
 * - Used by one-shot CLI commands, does not require Start
 * - The result still goes through the generation check
 */
func (p *Poller[T]) Once(ctx context.Context) (T, error) {
	gen := p.next()
	v, err := p.run(ctx)
	p.tryCommit(gen, v, err, false)
	return v, err
}

func (p *Poller[T]) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		}
		p.poll(ctx)
	}
}

func (p *Poller[T]) poll(ctx context.Context) {
	gen := p.next()
	v, err := p.run(ctx)
	if ctx.Err() != nil {
		logger.Debugf("Poll [%s] generation %d aborted", p.name, gen)
		return
	}
	p.tryCommit(gen, v, err, true)
}

func (p *Poller[T]) run(ctx context.Context) (T, error) {
	start := time.Now()
	v, err := p.fetch(ctx)
	observePoll(p.name, start, err)
	if err != nil {
		logger.Warnf("Poll [%s] failed: %v", p.name, err)
	}
	return v, err
}

func (p *Poller[T]) next() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	return p.gen
}

// tryCommit 提交与代数检查在同一把锁内, 保证提交顺序单调
func (p *Poller[T]) tryCommit(gen uint64, v T, err error, needRunning bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen <= p.committed || (needRunning && !p.running) {
		logger.Debugf("Poll [%s] discarded stale generation %d", p.name, gen)
		return false
	}
	p.committed = gen
	if p.commit != nil {
		p.commit(v, err, time.Now())
	}
	return true
}
