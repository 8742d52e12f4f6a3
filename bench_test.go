package rx_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/baxromumarov/rx"
)

// BenchmarkChain measures the per-value cost of a typical operator chain,
// compared to the equivalent plain loop.
func BenchmarkChain(b *testing.B) {
	for _, n := range []int{10, 1000, 100000} {
		b.Run(sizeName(n), func(b *testing.B) {
			chain := rx.Map(rx.Range(0, n).Filter(func(v int) bool { return v%3 == 0 }), func(v int) int {
				return v * 2
			})
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var sum int
				_ = chain.Subscribe(context.Background(), func(v int) { sum += v })
			}
		})
	}
}

// BenchmarkPlainLoop is the baseline for BenchmarkChain.
func BenchmarkPlainLoop(b *testing.B) {
	for _, n := range []int{10, 1000, 100000} {
		b.Run(sizeName(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var sum int
				for v := 0; v < n; v++ {
					if v%3 == 0 {
						sum += v * 2
					}
				}
				_ = sum
			}
		})
	}
}

// BenchmarkTakeEarly shows that take stops a large source after n values.
func BenchmarkTakeEarly(b *testing.B) {
	chain := rx.Range(0, 1<<30).Take(10)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = chain.ToSlice(context.Background())
	}
}

func BenchmarkDistinct(b *testing.B) {
	chain := rx.Distinct(rx.Map(rx.Range(0, 10000), func(v int) int { return v % 100 }))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = chain.ToSlice(context.Background())
	}
}

func BenchmarkBufferWithCount(b *testing.B) {
	chain := rx.BufferWithCount(rx.Range(0, 10000), 64)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = chain.Subscribe(context.Background(), nil)
	}
}

func BenchmarkFlatMap(b *testing.B) {
	chain := rx.FlatMap(rx.Range(0, 1000), func(v int) *rx.Observable[int] {
		return rx.Repeat(v, 4)
	})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = chain.Subscribe(context.Background(), nil)
	}
}

func BenchmarkMerge(b *testing.B) {
	for _, n := range []int{2, 8, 32} {
		b.Run(fmt.Sprintf("sources=%d", n), func(b *testing.B) {
			sources := make([]*rx.Observable[int], n)
			for i := range sources {
				sources[i] = rx.Range(0, 1000)
			}
			chain := rx.Merge(sources...)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = chain.Subscribe(context.Background(), nil)
			}
		})
	}
}

func BenchmarkSubjectFanOut(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("observers=%d", n), func(b *testing.B) {
			s := rx.NewSubject[int]()
			for i := 0; i < n; i++ {
				s.Subscribe(func(int) {})
			}
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				s.OnNext(i)
			}
		})
	}
}

func sizeName(n int) string {
	return fmt.Sprintf("values=%d", n)
}
