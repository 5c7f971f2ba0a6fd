package xtelemetry

import (
	"strconv"
	"time"

	"github.com/omeyang/xcorr/pkg/correlation/xbaggage"
)

// Kind 遥测条目类型
type Kind uint8

const (
	// KindRequest 服务端请求
	KindRequest Kind = iota
	// KindDependency 出站依赖调用
	KindDependency
	// KindTrace 日志类条目
	KindTrace
	// KindEvent 自定义事件
	KindEvent
)

// IsOperation 请求与依赖是"操作"：拥有自己的 ID
func (k Kind) IsOperation() bool {
	return k == KindRequest || k == KindDependency
}

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindDependency:
		return "dependency"
	case KindTrace:
		return "trace"
	case KindEvent:
		return "event"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// TypeTrackedComponent 目标组件回传了不同 appId 时的依赖类型
const TypeTrackedComponent = "Http (tracked component)"

// Item 一条遥测数据
type Item struct {
	Kind Kind
	Name string

	ID          string
	OperationID string
	ParentID    string

	// Source 请求的来源组件（入站 Request-Context 中的 appId）
	Source string
	// Target 依赖的目标（主机名，可追加 " | <appId>"）
	Target string
	// Type 依赖类型，如 "Http"
	Type string
	// Data 依赖的完整命令，如请求 URL
	Data string

	ResultCode string
	Success    bool
	Timestamp  time.Time
	Duration   time.Duration

	Properties map[string]string
	Baggage    xbaggage.Baggage
}
