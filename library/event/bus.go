package event

import (
	"sync"

	"github.com/go-kratos/kratos/v2/log"
)

// Handler 订阅回调
type Handler func(val any)

// Bus 进程内同步事件总线, 按订阅顺序回调
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

func NewEventBus() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], h)
	b.mu.Unlock()
}

// Publish 通知 topic 的全部订阅者, 单个回调 panic 不影响其他订阅者
func (b *Bus) Publish(topic string, val any) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if e := recover(); e != nil {
					log.Errorf("[event] topic=%q handler panic: %v", topic, e)
				}
			}()
			h(val)
		}()
	}
}
