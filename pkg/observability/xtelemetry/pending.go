package xtelemetry

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// pendingEntry 一次尚未收到响应的依赖调用
type pendingEntry struct {
	item  *Item
	start time.Time
	// finished 由 take 置位，淘汰回调据此区分正常移除与超时丢弃
	finished atomic.Bool
}

// maxPendingShards 分片数上限，必须为 2 的幂
const maxPendingShards = 16

// pendingStore 以依赖 ID 为键、带 TTL 的 LRU。
//
// 按 ID 的 xxhash 分片，每个分片是独立的 expirable.LRU，容量为总容量按分片数均分后向上取整。
type pendingStore struct {
	shards    []*expirable.LRU[string, *pendingEntry]
	mask      uint64
	closing   atomic.Bool
	closeOnce sync.Once
}

// pendingShardCount 返回不超过 size 与 maxPendingShards 的最大 2 的幂
func pendingShardCount(size int) int {
	n := 1
	for n*2 <= size && n*2 <= maxPendingShards {
		n *= 2
	}
	return n
}

// newPendingStore onAbandoned 在条目超时或被 LRU 挤出时调用，
// 执行于分片锁内，不得回调 store 自身。
func newPendingStore(size int, ttl time.Duration, onAbandoned func(*Item)) *pendingStore {
	n := pendingShardCount(size)
	s := &pendingStore{
		shards: make([]*expirable.LRU[string, *pendingEntry], n),
		mask:   uint64(n - 1), //nolint:gosec // n 为正
	}
	evict := func(_ string, e *pendingEntry) {
		if e.finished.Load() || s.closing.Load() || onAbandoned == nil {
			return
		}
		onAbandoned(e.item)
	}
	perShard := (size + n - 1) / n
	for i := range s.shards {
		s.shards[i] = expirable.NewLRU(perShard, evict, ttl)
	}
	return s
}

func (s *pendingStore) shard(id string) *expirable.LRU[string, *pendingEntry] {
	return s.shards[xxhash.Sum64String(id)&s.mask]
}

func (s *pendingStore) add(id string, item *Item, start time.Time) {
	s.shard(id).Add(id, &pendingEntry{item: item, start: start})
}

func (s *pendingStore) peek(id string) (*Item, bool) {
	e, ok := s.shard(id).Peek(id)
	if !ok {
		return nil, false
	}
	return e.item, true
}

// take 取出并移除条目
func (s *pendingStore) take(id string) (*pendingEntry, bool) {
	lru := s.shard(id)
	e, ok := lru.Peek(id)
	if !ok || !e.finished.CompareAndSwap(false, true) {
		return nil, false
	}
	lru.Remove(id)
	return e, true
}

func (s *pendingStore) len() int {
	n := 0
	for _, lru := range s.shards {
		n += lru.Len()
	}
	return n
}

// close 清空条目并停止各分片的 TTL 清理 goroutine，可重复调用
func (s *pendingStore) close() {
	s.closing.Store(true)
	s.closeOnce.Do(func() {
		for _, lru := range s.shards {
			lru.Purge()
			stopExpiryLoop(lru)
		}
	})
}

// stopExpiryLoop 关闭 expirable.LRU 内部的 done 通道，使过期清理 goroutine 退出。
//
// golang-lru/v2 v2.0.7 没有公开的 Close，只能通过反射访问未导出字段。
// 字段名或类型变化时返回 false，此时清理 goroutine 会一直存活到进程退出。
func stopExpiryLoop(lru any) (stopped bool) {
	defer func() {
		if recover() != nil {
			stopped = false
		}
	}()

	v := reflect.ValueOf(lru)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	done := v.Elem().FieldByName("done")
	if !done.IsValid() || done.IsNil() || done.Type() != reflect.TypeOf(make(chan struct{})) {
		return false
	}
	ch := *(*chan struct{})(unsafe.Pointer(done.UnsafeAddr())) //nolint:gosec // 访问上游未导出字段
	close(ch)
	return true
}
