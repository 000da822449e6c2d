package memory

import (
	"sync"

	"github.com/peter-abah/conecr/internal/store"
)

// subscription 单个实时查询的派发器。
// 快照先进入 pending 队列，由独立 goroutine 按入队顺序串行回调，
// 保证同一订阅内的回调顺序与存储端观察到变化的顺序一致，
// 且回调执行不会阻塞存储写路径。
type subscription struct {
	id    int64
	query store.Query
	fn    func([]store.Document)

	mu      sync.Mutex
	pending [][]store.Document
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// enqueue 追加一次快照
func (s *subscription) enqueue(docs []store.Document) {
	s.mu.Lock()
	s.pending = append(s.pending, docs)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run 派发循环，直到 stop 被调用
func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.mu.Unlock()
				break
			}
			docs := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(docs)
		}
	}
}

// stop 终止派发；可安全地重复调用，终止后不再有任何回调
func (s *subscription) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}
