/*
Package membership contains the sets used to decide if a number has been seen before.

Every backend answers the same question through Store.Insert and must agree on the answer
for any sequence of values. They differ only in cost:

* hash
** map backed, O(1) amortised
** memory grows with the number of distinct values seen

* tree
** B-tree backed, O(log n)
** memory grows with the number of distinct values seen
** values can be walked in ascending order

* bitmap
** one preallocated bit per value in [0, max value), O(1)
** memory is fixed by the domain, 1e9 values is ~120MiB regardless of traffic

None of the backends are safe for concurrent use. The dedupe engine is the only goroutine
that touches its store.
*/
package membership
