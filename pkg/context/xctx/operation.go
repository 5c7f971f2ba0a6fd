package xctx

import (
	"strconv"

	"github.com/omeyang/xcorr/pkg/correlation/xbaggage"
)

// Source 操作三元组的来源
type Source uint8

const (
	// SourceUnknown 未标注来源（直接调用 Establish）
	SourceUnknown Source = iota
	// SourceStandard 来自 Request-Id / Correlation-Context
	SourceStandard
	// SourceCustom 来自自定义的 root/parent 头
	SourceCustom
	// SourceFresh 没有任何入站头，新生成
	SourceFresh
	// SourceChild 由 StartChild 从外层 scope 派生
	SourceChild
	// SourceRestored 由 RestoreIfLost 重建
	SourceRestored
)

// String 返回指标和日志中使用的名称
func (s Source) String() string {
	switch s {
	case SourceUnknown:
		return "unknown"
	case SourceStandard:
		return "standard"
	case SourceCustom:
		return "custom"
	case SourceFresh:
		return "fresh"
	case SourceChild:
		return "child"
	case SourceRestored:
		return "restored"
	default:
		return "Source(" + strconv.Itoa(int(s)) + ")"
	}
}

// Operation 一个逻辑操作的关联标识。
type Operation struct {
	// OperationID 根操作 ID
	OperationID string
	// ParentID 直接调用方的 ID，根操作为空
	ParentID string
	// ID 当前操作自身的 ID
	ID string
	// Baggage 关联上下文
	Baggage xbaggage.Baggage
	// Source 三元组的来源
	Source Source
}

// IsZero 判断是否未设置任何标识。
func (o Operation) IsZero() bool {
	return o.OperationID == "" && o.ParentID == "" && o.ID == "" && o.Baggage.Len() == 0
}

// clone 返回 Baggage 独立的副本。
func (o Operation) clone() Operation {
	o.Baggage = o.Baggage.Clone()
	return o
}
