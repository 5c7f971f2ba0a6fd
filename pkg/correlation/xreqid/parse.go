package xreqid

import "strings"

// IsHierarchical 判断 id 是否为层级式（非空且以 '|' 开头）。
func IsHierarchical(id string) bool {
	return id != "" && id[0] == '|'
}

// RootID 提取根部分。
//
// 层级式 ID 返回 '|' 与第一个 '.' 之间的子串；没有 '.' 时取到末尾。
// 不透明 ID 原样返回。
// 空串是调用方的前置条件错误，此处返回空串而不 panic。
func RootID(id string) string {
	if !IsHierarchical(id) {
		return id
	}
	end := strings.IndexByte(id, '.')
	if end < 0 {
		end = len(id)
	}
	return id[1:end]
}

// IsOverflowed 判断 id 是否经过溢出截断（含 '#' 标记）。
func IsOverflowed(id string) bool {
	return IsHierarchical(id) && strings.IndexByte(id, OverflowMarker) >= 0
}

// Depth 返回根之后的段数，不透明 ID 返回 0。
//
//	|r.        -> 0
//	|r.a_      -> 1
//	|r.a_b.    -> 2
func Depth(id string) int {
	if !IsHierarchical(id) {
		return 0
	}
	start := strings.IndexByte(id, '.')
	if start < 0 {
		return 0
	}
	n := 0
	for i := start + 1; i < len(id); i++ {
		switch id[i] {
		case '.', '_', OverflowMarker:
			n++
		}
	}
	return n
}
