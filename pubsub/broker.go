package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
)

const bufferSize = 64

// Broker 基于内存的发布/订阅实现，泛型 T 为事件载荷类型。
// 服务端的日志订阅者和 TUI 共用同一个 Broker。
type Broker[T any] struct {
	subs       map[chan Event[T]]struct{} // 活跃订阅者集合
	mu         sync.RWMutex               // 保护 subs
	done       chan struct{}              // 关闭信号
	bufferSize int                        // 每个订阅通道的缓冲区大小
	dropped    atomic.Uint64              // 因订阅者缓冲区已满而丢弃的事件数
}

var (
	_ Publisher[any]  = (*Broker[any])(nil)
	_ Subscriber[any] = (*Broker[any])(nil)
)

// NewBroker 创建使用默认缓冲区大小的 Broker
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](bufferSize)
}

// NewBrokerWithBuffer 创建自定义订阅通道缓冲区大小的 Broker
func NewBrokerWithBuffer[T any](channelBufferSize int) *Broker[T] {
	if channelBufferSize <= 0 {
		channelBufferSize = bufferSize
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: channelBufferSize,
	}
}

// Shutdown 关闭 Broker 并关闭所有订阅通道，可重复调用
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribe 注册订阅者并返回事件通道。
// ctx 结束或 Broker 关闭时通道会被注销并关闭。
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 已关闭：返回一个立即关闭的通道
	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// GetSubscriberCount 返回当前活跃的订阅者数量
func (b *Broker[T]) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped 返回累计丢弃的事件数
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Publish 将事件分发给所有订阅者。
// 非阻塞：订阅者缓冲区已满时跳过该订阅者并计入 Dropped。
func (b *Broker[T]) Publish(t EventType, payload T) {
	event := Event[T]{Type: t, Payload: payload}

	// 持有读锁发送，保证不会向已关闭的通道写入
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			b.dropped.Add(1)
		}
	}
}
