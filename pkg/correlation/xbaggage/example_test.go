package xbaggage_test

import (
	"fmt"

	"github.com/omeyang/xcorr/pkg/correlation/xbaggage"
)

func ExampleParse() {
	b, dropped := xbaggage.Parse("Id=guid2, this-key-is-far-too-long=x, tenant=t1")
	fmt.Println(b.String())
	fmt.Println(dropped)
	// Output:
	// Id=guid2, tenant=t1
	// 1
}

func ExampleBaggage_Merge() {
	item := xbaggage.New(xbaggage.Entry{Key: "user", Value: "local"})
	ambient := xbaggage.New(
		xbaggage.Entry{Key: "user", Value: "ambient"},
		xbaggage.Entry{Key: "tenant", Value: "t1"},
	)
	item.Merge(ambient)
	fmt.Println(item.String())
	// Output:
	// user=local, tenant=t1
}
