// Package rx provides push-based reactive streams for Go.
//
// An [Observable] is a cold sequence of values: every subscription runs
// its [Producer] from scratch, and the producer pushes each value into the
// [Observer] it was given as soon as the value exists. Operators wrap the
// observer they hand upstream, so a chain such as
//
//	rx.Map(rx.Range(0, 100).Filter(isPrime), strconv.Itoa).Take(5)
//
// is evaluated by a single synchronous call stack per value, on the
// goroutine that subscribed.
//
// # Subscribing
//
// [Observable.Subscribe] takes a value handler and blocks until the stream
// ends:
//
//	err := obs.Subscribe(ctx, func(v int) {
//	    fmt.Println(v)
//	}, rx.OnComplete(func() { fmt.Println("done") }))
//
// [Observable.SubscribeWith] takes an [Observer] that can stop the stream
// itself. [Observable.ToSlice], [Observable.ForEach], [Observable.ToChan]
// and [Async] are convenience terminals.
//
// # Completion and Failure
//
// Observers and producers return an error. nil means "continue". The
// sentinel [ErrComplete] is the completion signal: it stops upstream
// production and is absorbed at the nearest subscribe boundary, after
// which completion handlers run exactly as for a stream that ran out of
// values. [Observable.Take], [Observable.First] and [Observable.All] use it
// to short-circuit.
//
// Any other error is a failure. It travels to the terminal subscriber,
// wrapped in a [*StreamError] naming the stage it came from; completion
// handlers do not run. Use [IsStreamError], [StageOf], [CauseOf] and
// [AllStreamErrors] to inspect it. Only [Observable.Retry] recovers from
// failures. Panics in observers are not recovered.
//
// # Operators
//
// Operators that keep the element type are methods: [Observable.Filter],
// [Observable.Take], [Observable.Skip], [Observable.SkipWhile],
// [Observable.First], [Observable.Last], [Observable.Peek],
// [Observable.Delay], [Observable.Debounce], [Observable.Sample],
// [Observable.Retry], [Observable.All] and [Observable.Count]. Operators
// that change it are functions, because Go methods cannot declare type
// parameters: [Map], [To], [Scan], [Reduce], [Sum], [Average], [Distinct],
// [Collect], [FlatMap], [IfThenElse], [BufferWithCount], [BufferWithTime],
// [Window], [GroupBy], [TimeInterval] and [Merge].
//
// Operator state (counters, buffers, deadlines, seen-sets) is created per
// subscription, so two subscriptions to one chain never interfere.
//
// # Time
//
// Time-based operators and sources read an injectable clock set with
// [WithClock]; tests use a fake clock to step deadlines deterministically.
// Blocking waits ([Observable.Delay], [Interval], [Observable.Retry]
// backoff) also return early when the subscription's context is cancelled.
//
// # Subjects
//
// A [Subject] is a hot stream with a push side ([Subject.OnNext]). Plain
// subjects deliver only future pushes, behavior subjects start every new
// subscriber with the current value, and replay subjects start it with the
// last n values. [Subject.AsObservable] turns a subject into an
// [Observable] for use with operators.
//
// # Sources
//
// [Of], [From], [Range], [Repeat], [Start], [Defer], [Interval],
// [FromChan], [FromFunc], [Empty], [Never] and [Throw] build observables.
// The [github.com/baxromumarov/rx/source] subpackage adds line readers and
// TCP sources, and [github.com/baxromumarov/rx/metric] instruments stages
// with Prometheus counters.
package rx
