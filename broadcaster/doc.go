// Package broadcaster periodically samples the top of the order book and
// pushes it to every registered downstream subscriber. Each subscriber is fed
// by its own goroutine and only ever gets the newest sample, so a slow one
// misses samples instead of holding back the others. A subscriber whose push
// fails is dropped; the others are unaffected.
package broadcaster
