// Package redis connects to Redis with retries and exposes a readiness probe.
// The service uses Redis to de-duplicate payment webhook deliveries across
// instances; without REDIS_URL an in-process store is used instead.
package redis
