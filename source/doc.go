// Package source provides rx observables backed by external I/O: line
// readers and TCP servers and clients.
//
// Every source follows the rx producer contract: it pushes values as they
// are read, completes when its input ends, fails on I/O errors, and stops
// as soon as downstream returns [rx.ErrComplete] or the subscription's
// context is cancelled. Network reads are unblocked by closing the
// connection or listener when the subscription ends.
package source
