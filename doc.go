// Package relaybuf adapts a push-based event source into a pull-based sequence for a single
// consumer. Events the consumer has not caught up with are buffered up to a waterline; once the
// buffer is full, further events bypass the consumer and are handed to overflow listeners, so the
// producer is never blocked and memory stays bounded.
//
// A consumer waits only while nothing is buffered. A producer that stops without calling End
// leaves such a consumer waiting until its context is done.
package relaybuf
