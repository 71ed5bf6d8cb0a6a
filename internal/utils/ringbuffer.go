package utils

import "sync"

// RingBuffer 固定容量的环形缓冲区, 写满后覆盖最旧的元素
/**
 * Fixed capacity FIFO buffer safe for concurrent use
 * @property {[]T} data - Backing storage, len == capacity
 * @property {int} head - Index of the oldest element
 * @property {int} size - Number of stored elements, never exceeds capacity
 * @property {uint64} total - Number of elements ever pushed
 */
type RingBuffer[T any] struct {
	mutex sync.Mutex
	data  []T
	head  int
	size  int
	total uint64
}

// NewRingBuffer 创建环形缓冲区, capacity<=0时按1处理
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer[T]{data: make([]T, capacity)}
}

/**
 * Append an element, evicting the oldest one when full
 * @param {T} v - Element to append
 * @returns {bool} true when an element was evicted
 */
func (r *RingBuffer[T]) Push(v T) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.total++
	capacity := len(r.data)
	if r.size < capacity {
		r.data[(r.head+r.size)%capacity] = v
		r.size++
		return false
	}
	r.data[r.head] = v
	r.head = (r.head + 1) % capacity
	return true
}

// Snapshot 按从旧到新的顺序返回当前内容的副本
func (r *RingBuffer[T]) Snapshot() []T {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}

// Last 返回最近的n个元素, 从旧到新
func (r *RingBuffer[T]) Last(n int) []T {
	all := r.Snapshot()
	if n >= 0 && n < len(all) {
		return all[len(all)-n:]
	}
	return all
}

func (r *RingBuffer[T]) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.size
}

func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

// Total 累计写入的元素个数, 包括已被覆盖的
func (r *RingBuffer[T]) Total() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.total
}

// Reset 清空缓冲区, Total保持不变
func (r *RingBuffer[T]) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head = 0
	r.size = 0
}
