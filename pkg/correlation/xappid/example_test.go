package xappid_test

import (
	"context"
	"fmt"

	"github.com/omeyang/xcorr/pkg/correlation/xappid"
)

func ExampleStatic() {
	var r xappid.Resolver = xappid.Static{"ikey-1": "cid-42"}
	id, ok := r.AppID(context.Background(), "ikey-1")
	fmt.Println(id, ok)
	// Output:
	// cid-42 true
}
