/*
Package events provides the four-channel synchronous publish/subscribe bus of Arbor.

Listeners run on the publisher's goroutine, once each, in subscription order.
A change publication always carries the tree as it is after the triggering mutation.
*/
package events
