package services

import (
	"sync"

	"imc-manager/internal/logger"
)

// EventRefreshServices 命令成功后广播, 通知各视图重新拉取服务状态
const EventRefreshServices = "refresh-services"

/**
 * In-process broadcaster for refresh signals
 * @description
 * - Replaces the browser window event used by the dashboard pages
 * - Each listener is called synchronously, in subscription order, once per Publish
 */
type Refresher struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(event string)
	order     []int
}

func NewRefresher() *Refresher {
	return &Refresher{listeners: make(map[int]func(string))}
}

/**
 * Register a listener
 * @param {func(string)} fn - Called with the event name, must not block
 * @returns {func()} Unsubscribe function, safe to call more than once
 */
func (r *Refresher) Subscribe(fn func(event string)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = fn
	r.order = append(r.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.listeners, id)
			for i, v := range r.order {
				if v == id {
					r.order = append(r.order[:i], r.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish 广播事件
func (r *Refresher) Publish(event string) {
	r.mu.RLock()
	fns := make([]func(string), 0, len(r.order))
	for _, id := range r.order {
		fns = append(fns, r.listeners[id])
	}
	r.mu.RUnlock()

	logger.Debugf("Publish %s to %d listeners", event, len(fns))
	for _, fn := range fns {
		fn(event)
	}
}
