package xbaggage

import "strings"

// Parse 解析一个或多个 Correlation-Context 头的值。
//
// 每个值是逗号分隔的 key=value 列表。键值两侧空白被去掉，值外层的双引号被剥离。
// 缺少 '=' 或不满足 [Valid] 的条目被丢弃，dropped 返回丢弃数量。
// 同一个键出现多次时，后出现的值原位覆盖先出现的值。
func Parse(values ...string) (b Baggage, dropped int) {
	for _, v := range values {
		for item := range strings.SplitSeq(v, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			key, value, ok := strings.Cut(item, "=")
			if !ok {
				dropped++
				continue
			}
			key = strings.TrimSpace(key)
			value = unquote(strings.TrimSpace(value))
			if !Valid(key, value) {
				dropped++
				continue
			}
			b.Set(key, value)
		}
	}
	return b, dropped
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
