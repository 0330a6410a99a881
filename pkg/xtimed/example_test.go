package xtimed_test

import (
	"fmt"

	"github.com/omeyang/xtimed/pkg/xtimed"
)

func ExampleFunc2() {
	rec := &xtimed.RecorderSink{}
	add := xtimed.Func2(func(a, b int) int { return a + b },
		xtimed.WithSink(rec),
		xtimed.WithName("math", "add"),
	)

	fmt.Println(add(1, 2))

	ev := rec.Events()[0]
	fmt.Println(ev.Name)
	_, ok := ev.Measurements[xtimed.MeasurementCall]
	fmt.Println(ok)
	// Output:
	// 3
	// math.add
	// true
}

func ExampleStart() {
	rec := &xtimed.RecorderSink{}

	span := xtimed.Start(xtimed.DefaultName("load"), xtimed.WithSink(rec))
	// ……被测逻辑……
	span.End(xtimed.Metadata{"source": "disk"})

	ev := rec.Events()[0]
	fmt.Println(ev.Name)
	fmt.Println(ev.Metadata["source"])
	// Output:
	// timing.load
	// disk
}

func ExampleSinkFunc() {
	sink := xtimed.SinkFunc(func(name xtimed.Name, _ xtimed.Measurements, _ xtimed.Metadata) {
		fmt.Println("event on", name)
	})

	ping := xtimed.Func0(func() bool { return true },
		xtimed.WithSink(sink),
		xtimed.WithName("net", "ping"),
	)
	ping()
	// Output: event on net.ping
}

func ExampleDefaultName() {
	fmt.Println(xtimed.DefaultName("add"))
	fmt.Println(xtimed.DefaultName(""))
	// Output:
	// timing.add
	// timing.unknown
}
