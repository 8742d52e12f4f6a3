package rx_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/baxromumarov/rx"
)

func Example() {
	isPrime := func(n int) bool {
		if n < 2 {
			return false
		}
		for d := 2; d*d <= n; d++ {
			if n%d == 0 {
				return false
			}
		}
		return true
	}

	primes := rx.Map(rx.Range(0, 100).Filter(isPrime), strconv.Itoa).Take(5)
	err := primes.Subscribe(context.Background(), func(s string) {
		fmt.Println(s)
	}, rx.OnComplete(func() { fmt.Println("done") }))
	if err != nil {
		fmt.Println("error:", err)
	}
	// Output:
	// 2
	// 3
	// 5
	// 7
	// 11
	// done
}

func ExampleObservable_SubscribeWith() {
	err := rx.Range(1, 10).SubscribeWith(context.Background(), func(v int) error {
		fmt.Println(v)
		if v == 3 {
			return rx.ErrComplete
		}
		return nil
	})
	fmt.Println("err:", err)
	// Output:
	// 1
	// 2
	// 3
	// err: <nil>
}

func ExampleScan() {
	totals, _ := rx.Scan(rx.Of(1, 2, 3), 0, func(acc, v int) int { return acc + v }).
		ToSlice(context.Background())
	fmt.Println(totals)
	// Output: [1 3 6 6]
}

func ExampleBufferWithCount() {
	batches, _ := rx.BufferWithCount(rx.Of(1, 2, 3, 4, 5), 3).ToSlice(context.Background())
	fmt.Println(batches)
	// Output: [[1 2 3] [4 5]]
}

func ExampleGroupBy() {
	groups, _ := rx.GroupBy(rx.Of(1, 2, 3, 4, 5, 6), func(v int) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	}).ToSlice(context.Background())

	for _, g := range groups {
		vals, _ := g.ToSlice(context.Background())
		fmt.Println(g.Key, vals)
	}
	// Output:
	// odd [1 3 5]
	// even [2 4 6]
}

func ExampleNewReplaySubject() {
	s := rx.NewReplaySubject[int](3)
	for i := 1; i <= 4; i++ {
		s.OnNext(i)
	}

	closer := s.Subscribe(func(v int) { fmt.Println("got", v) })
	defer closer.Close()
	s.OnNext(5)
	// Output:
	// got 2
	// got 3
	// got 4
	// got 5
}

func ExampleObservable_Sample() {
	fc := clockwork.NewFakeClock()
	ticks := rx.Create(func(ctx context.Context, emit rx.Observer[int]) error {
		for i := 1; i <= 10; i++ {
			fc.Advance(30 * time.Millisecond)
			if err := emit(i); err != nil {
				return err
			}
		}
		return nil
	})

	sampled, _ := ticks.Sample(100*time.Millisecond, rx.WithClock(fc)).ToSlice(context.Background())
	fmt.Println(sampled)
	// Output: [4 7 10]
}

func ExampleStageOf() {
	sensor := rx.Create(func(ctx context.Context, emit rx.Observer[float64]) error {
		return errors.New("probe disconnected")
	}, rx.WithName("sensor"))

	_, err := rx.Average(sensor).ToSlice(context.Background())
	stage, _ := rx.StageOf(err)
	fmt.Println(stage)
	fmt.Println(rx.CauseOf(err))
	// Output:
	// sensor
	// probe disconnected
}
