// Package analytics emits product analytics events such as lesson progress
// and certificate issuance. Events are published to NATS when configured and
// logged otherwise. Delivery is best-effort.
package analytics
