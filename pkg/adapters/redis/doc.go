// Package redis provides a distributed lock for session.Manager backed by
// Redis, so several processes can take turns editing one root.
package redis
