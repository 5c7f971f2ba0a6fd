package xmetrics

import "errors"

var (
	// ErrCreateInstrument 创建 OTel instrument 失败
	ErrCreateInstrument = errors.New("xmetrics: create instrument failed")
)
