package xreqid

import (
	"os"
	"strings"
)

// 测试注入点
var osHostname = os.Hostname

const (
	// EnvPodName K8s Pod 名称环境变量（通过 Downward API 注入）
	EnvPodName = "POD_NAME"

	// EnvHostname 主机名环境变量
	EnvHostname = "HOSTNAME"

	fallbackHostname = "localhost"
)

// defaultHostname 按以下优先级获取主机名：
//
//  1. os.Hostname()
//  2. POD_NAME 环境变量
//  3. HOSTNAME 环境变量
//  4. "localhost"
func defaultHostname() string {
	if h, err := osHostname(); err == nil {
		if h = sanitizeHostname(h); h != "" {
			return h
		}
	}
	for _, env := range []string{EnvPodName, EnvHostname} {
		if h := sanitizeHostname(os.Getenv(env)); h != "" {
			return h
		}
	}
	return fallbackHostname
}

// sanitizeHostname 去掉域名部分，并把非 [A-Za-z0-9-] 字符替换为 '-'。
//
// 根 ID 以第一个 '.' 为界，主机名里出现 '.' 会让 RootID 截出错误的根；
// '_' '#' '|' 同样是 ID 语法字符。
func sanitizeHostname(h string) string {
	h = strings.TrimSpace(h)
	if i := strings.IndexByte(h, '.'); i >= 0 {
		h = h[:i]
	}
	if h == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, h)
}
