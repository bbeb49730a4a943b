// Package idempotency de-duplicates deliveries that providers may send more
// than once, such as payment webhooks. Keys live in Redis when it is
// configured and in a go-cache instance otherwise.
package idempotency
