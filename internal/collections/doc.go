// Package collections provides the ordered queues used by the event
// dispatcher.
//
// SortedQueue keeps its elements ordered by a comparator. Elements that
// compare equal keep the order in which they were added, so a queue sorted
// by priority alone still dispatches same-priority listeners in registration
// order.
//
// CombinedQueue merges several SortedQueues into a single ordered stream
// without copying them. Each Draw scans the heads of the sources and takes
// the smallest; ties go to the source that was added first.
//
// Both types are safe for concurrent use.
package collections
