// Package e2e 端到端测试：多个 HTTP 服务之间的 Request-Id 串联。
//
// 运行方式：go test -tags e2e ./internal/e2e/...
package e2e
