// Package rate implements the fixed-window call counter shared by all
// engine flows. The window starts at the first increment for a key and the
// counter resets once the window elapses. Correctness under concurrency
// hinges entirely on the backing store's atomic increment: the limiter never
// performs a read-modify-write of its own.
package rate
