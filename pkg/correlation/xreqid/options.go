package xreqid

// options 内部配置结构
type options struct {
	hostname   string
	maxLength  int
	random     func() uint32
	seed       uint32
	seedSet    bool // 区分"未传入"与"显式传入 0"
	clockStamp func() int64
}

// Option 配置选项函数
type Option func(*options)

// WithHostname 固定机器前缀中的主机名部分。
//
// 默认按 os.Hostname → POD_NAME → HOSTNAME → "localhost" 顺序获取。
// 主机名中的 '.' 及之后部分会被截掉，其他非字母数字字符替换为 '-'。
func WithHostname(hostname string) Option {
	return func(o *options) {
		o.hostname = hostname
	}
}

// WithMaxLength 设置 ID 最大长度，默认 [MaxLength]。
// 必须大于 overflowReserve+1，否则 NewGenerator 返回 ErrInvalidMaxLength。
func WithMaxLength(n int) Option {
	return func(o *options) {
		o.maxLength = n
	}
}

// WithRandom 替换后缀随机源。默认使用 math/rand/v2。
func WithRandom(fn func() uint32) Option {
	return func(o *options) {
		o.random = fn
	}
}

// WithSeed 设置计数器初始值。默认取随机 UUID 的 12-15 字节。
func WithSeed(seed uint32) Option {
	return func(o *options) {
		o.seed = seed
		o.seedSet = true
	}
}

// withClock 替换机器前缀使用的时间戳来源，仅测试使用。
func withClock(fn func() int64) Option {
	return func(o *options) {
		o.clockStamp = fn
	}
}
