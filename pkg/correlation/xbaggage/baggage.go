package xbaggage

import (
	"iter"
	"strings"
)

const (
	// MaxKeyLength 键的最大长度
	MaxKeyLength = 16

	// MaxValueLength 值的最大长度
	MaxValueLength = 41

	// KeyID 关联上下文中携带根操作 ID 的保留键
	KeyID = "Id"
)

// Entry 单个键值对
type Entry struct {
	Key   string
	Value string
}

// Baggage 有序、键唯一的关联上下文。
//
// 零值可直接使用。条目数通常只有个位数，查找用线性扫描。
// Baggage 不是并发安全的；在 scope 之间共享前应先 Clone。
type Baggage struct {
	entries []Entry
}

// New 按给定顺序构造 Baggage，重复键以后出现的值为准。
func New(entries ...Entry) Baggage {
	var b Baggage
	for _, e := range entries {
		b.Set(e.Key, e.Value)
	}
	return b
}

// Valid 判断键值是否满足尺寸限制。
func Valid(key, value string) bool {
	return len(key) > 0 && len(key) <= MaxKeyLength &&
		len(value) > 0 && len(value) <= MaxValueLength
}

func (b Baggage) indexOf(key string) int {
	for i := range b.entries {
		if b.entries[i].Key == key {
			return i
		}
	}
	return -1
}

// Set 写入键值。键已存在时原位覆盖，不改变顺序。
func (b *Baggage) Set(key, value string) {
	if i := b.indexOf(key); i >= 0 {
		b.entries[i].Value = value
		return
	}
	b.entries = append(b.entries, Entry{Key: key, Value: value})
}

// SetIfAbsent 仅在键不存在时写入，返回是否写入。
func (b *Baggage) SetIfAbsent(key, value string) bool {
	if b.indexOf(key) >= 0 {
		return false
	}
	b.entries = append(b.entries, Entry{Key: key, Value: value})
	return true
}

// Get 读取键对应的值。
func (b Baggage) Get(key string) (string, bool) {
	if i := b.indexOf(key); i >= 0 {
		return b.entries[i].Value, true
	}
	return "", false
}

// Len 条目数
func (b Baggage) Len() int {
	return len(b.entries)
}

// Keys 按插入顺序返回所有键。
func (b Baggage) Keys() []string {
	if len(b.entries) == 0 {
		return nil
	}
	keys := make([]string, len(b.entries))
	for i, e := range b.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries 返回条目副本。
func (b Baggage) Entries() []Entry {
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// All 按插入顺序遍历。
func (b Baggage) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, e := range b.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Clone 深拷贝。空 Baggage 的拷贝仍为零值。
func (b Baggage) Clone() Baggage {
	if len(b.entries) == 0 {
		return Baggage{}
	}
	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)
	return Baggage{entries: entries}
}

// Merge 把 other 中 b 尚未包含的键按顺序追加到 b，返回追加的条目数。
func (b *Baggage) Merge(other Baggage) int {
	n := 0
	for _, e := range other.entries {
		if b.SetIfAbsent(e.Key, e.Value) {
			n++
		}
	}
	return n
}

// String 编码为 Correlation-Context 头的值："k1=v1, k2=v2"。空 Baggage 返回空串。
func (b Baggage) String() string {
	switch len(b.entries) {
	case 0:
		return ""
	case 1:
		return b.entries[0].Key + "=" + b.entries[0].Value
	}
	var sb strings.Builder
	for i, e := range b.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Key)
		sb.WriteByte('=')
		sb.WriteString(e.Value)
	}
	return sb.String()
}
