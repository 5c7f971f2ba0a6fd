package xconf_test

import (
	"fmt"

	"github.com/omeyang/xcorr/pkg/config/xconf"
)

func ExampleLoadCorrelation() {
	data := []byte(`
correlation:
  root_header: x-ms-request-root-id
  parent_header: x-ms-request-id
  pending:
    ttl: 30s
`)
	cfg, err := xconf.NewFromBytes(data, xconf.FormatYAML)
	if err != nil {
		panic(err)
	}
	c, err := xconf.LoadCorrelation(cfg, "correlation")
	if err != nil {
		panic(err)
	}
	fmt.Println(c.RootHeader, c.ParentHeader)
	fmt.Println(c.Pending.Size, c.Pending.TTL)
	// Output:
	// x-ms-request-root-id x-ms-request-id
	// 10000 30s
}
