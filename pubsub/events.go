package pubsub

import "context"

const (
	// CreatedEvent 收到一个新的请求（例如用户提问）
	CreatedEvent EventType = "created"
	// UpdatedEvent 共享状态发生变化（例如知识索引重建完成）
	UpdatedEvent EventType = "updated"
	// DeletedEvent 数据被删除（例如对话历史被清空）
	DeletedEvent EventType = "deleted"
	// FinishedEvent 请求处理完成（例如回复已生成）
	FinishedEvent EventType = "finished"
)

// Subscriber 订阅者接口
type Subscriber[T any] interface {
	// Subscribe 返回只读事件通道，context 结束时自动关闭
	Subscribe(context.Context) <-chan Event[T]
}

type (
	// EventType 事件类型
	EventType string

	// Event 一次事件及其载荷
	Event[T any] struct {
		Type    EventType
		Payload T
	}

	// Publisher 发布者接口
	Publisher[T any] interface {
		Publish(EventType, T)
	}
)
