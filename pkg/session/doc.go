/*
Package session keeps named augeas sessions and serializes access to them.

A Manager runs each unit of work under a per-name mutex, and under a
distributed lock when several processes edit the same root. The redis
adapter provides such a lock.
*/
package session
