package xreqid

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// 常量与错误
// =============================================================================

const (
	// MaxLength Request-Id 最大编码长度
	MaxLength = 1024

	// overflowReserve 溢出后缀长度：8 位十六进制 + '#'
	overflowReserve = 9

	// suffixLen 随机后缀的十六进制位数
	suffixLen = 8

	// OverflowMarker 标记截断点的分隔符
	OverflowMarker = '#'
)

// ErrInvalidMaxLength 最大长度不足以容纳根段和溢出后缀
var ErrInvalidMaxLength = errors.New("xreqid: invalid max length")

// Kind 子 ID 类型，决定追加段的结束分隔符。
type Kind uint8

const (
	// KindRequest 服务端请求，段以 '_' 结尾
	KindRequest Kind = iota
	// KindDependency 出站依赖调用，段以 '.' 结尾
	KindDependency
)

// Delimiter 返回该类型子段的结束分隔符。
func (k Kind) Delimiter() byte {
	if k == KindDependency {
		return '.'
	}
	return '_'
}

// String 返回可读名称
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindDependency:
		return "dependency"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// =============================================================================
// Generator
// =============================================================================

// Generator 层级式 Request-Id 生成器。
//
// 唯一的共享可变状态是计数器（原子递增）和惰性计算的机器前缀（CAS 单次发布），
// 热路径上不加锁。所有方法并发安全。
type Generator struct {
	hostname   string
	maxLength  int
	random     func() uint32
	clockStamp func() int64

	prefix    atomic.Pointer[string]
	counter   atomic.Uint64
	overflows atomic.Uint64
}

// NewGenerator 创建独立的生成器实例。
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := &options{maxLength: MaxLength}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.maxLength <= overflowReserve+1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxLength, cfg.maxLength)
	}

	g := &Generator{
		hostname:   sanitizeHostname(cfg.hostname),
		maxLength:  cfg.maxLength,
		random:     cfg.random,
		clockStamp: cfg.clockStamp,
	}
	if g.random == nil {
		g.random = rand.Uint32
	}
	if g.clockStamp == nil {
		g.clockStamp = func() int64 { return time.Now().UnixNano() }
	}

	seed := cfg.seed
	if !cfg.seedSet {
		seed = randomSeed()
	}
	g.counter.Store(uint64(seed))
	return g, nil
}

// randomSeed 取随机 UUID 的末 4 字节作为计数器种子（小端序）。
func randomSeed() uint32 {
	u := uuid.New()
	return binary.LittleEndian.Uint32(u[12:16])
}

// machinePrefix 返回缓存的机器前缀，首次调用时计算。
//
// 并发首次调用可能各自计算一次，只有第一个 CompareAndSwap 成功的值被发布，
// 其余调用方丢弃自己的结果并读取已发布的值。
func (g *Generator) machinePrefix() string {
	if p := g.prefix.Load(); p != nil {
		return *p
	}
	host := g.hostname
	if host == "" {
		host = defaultHostname()
	}
	computed := host + "-" + strconv.FormatUint(uint64(uint32(g.clockStamp())), 16)
	g.prefix.CompareAndSwap(nil, &computed)
	return *g.prefix.Load()
}

// GenerateRootID 返回 <machinePrefix>-<hex(counter)>，不含 '|' 和 '.'。
func (g *Generator) GenerateRootID() string {
	n := g.counter.Add(1)
	return g.machinePrefix() + "-" + strconv.FormatUint(n, 16)
}

// GenerateNewHierarchicalID 返回 "|" + 根 ID + "."。
func (g *Generator) GenerateNewHierarchicalID() string {
	return "|" + g.GenerateRootID() + "."
}

// GenerateChildID 基于 parent 生成子 ID。
//
// parent 为空时生成新的层级根 ID。否则先规范化：缺少前导 '|' 时补上，
// 不以 '.' 或 '_' 结尾时追加 '.'；随后追加 8 位十六进制后缀和 kind 对应的分隔符。
// 结果长度不超过最大长度，超长时按溢出规则截断。
func (g *Generator) GenerateChildID(parent string, kind Kind) string {
	if parent == "" {
		return g.GenerateNewHierarchicalID()
	}
	if parent[0] != '|' {
		parent = "|" + parent
	}
	if last := parent[len(parent)-1]; last != '.' && last != '_' {
		parent += "."
	}
	return g.appendSuffix(parent, kind.Delimiter())
}

// GenerateRequestID 生成请求类型（'_'）子 ID。
func (g *Generator) GenerateRequestID(parent string) string {
	return g.GenerateChildID(parent, KindRequest)
}

// GenerateDependencyID 生成依赖类型（'.'）子 ID。
func (g *Generator) GenerateDependencyID(parent string) string {
	return g.GenerateChildID(parent, KindDependency)
}

// Overflows 返回自创建以来触发溢出处理的次数。
func (g *Generator) Overflows() uint64 {
	return g.overflows.Load()
}

// appendSuffix 追加后缀；parent 已规范化。
func (g *Generator) appendSuffix(parent string, delimiter byte) string {
	suffix := g.suffix()
	if len(parent)+suffixLen+1 <= g.maxLength {
		return parent + suffix + string(delimiter)
	}

	g.overflows.Add(1)

	// 从 maxLength-9 向前找最近的分隔符，截断点位于分隔符之后
	trim := min(g.maxLength-overflowReserve, len(parent))
	for trim > 1 {
		if c := parent[trim-1]; c == '.' || c == '_' {
			break
		}
		trim--
	}
	if trim <= 1 {
		return g.GenerateNewHierarchicalID()
	}
	return parent[:trim] + suffix + string(OverflowMarker)
}

// suffix 返回 8 位小写十六进制随机串（不足补零）。
func (g *Generator) suffix() string {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], g.random())
	return hex.EncodeToString(raw[:])
}

// =============================================================================
// 包级函数（默认生成器）
// =============================================================================

var defaultGen = mustDefault()

func mustDefault() *Generator {
	g, err := NewGenerator()
	if err != nil {
		// 默认参数不会失败
		panic(err)
	}
	return g
}

// Default 返回包级默认生成器。
func Default() *Generator {
	return defaultGen
}

// GenerateRootID 使用默认生成器，见 [Generator.GenerateRootID]。
func GenerateRootID() string {
	return defaultGen.GenerateRootID()
}

// GenerateNewHierarchicalID 使用默认生成器，见 [Generator.GenerateNewHierarchicalID]。
func GenerateNewHierarchicalID() string {
	return defaultGen.GenerateNewHierarchicalID()
}

// GenerateChildID 使用默认生成器，见 [Generator.GenerateChildID]。
func GenerateChildID(parent string, kind Kind) string {
	return defaultGen.GenerateChildID(parent, kind)
}

// GenerateRequestID 使用默认生成器生成请求类型子 ID。
func GenerateRequestID(parent string) string {
	return defaultGen.GenerateRequestID(parent)
}

// GenerateDependencyID 使用默认生成器生成依赖类型子 ID。
func GenerateDependencyID(parent string) string {
	return defaultGen.GenerateDependencyID(parent)
}
