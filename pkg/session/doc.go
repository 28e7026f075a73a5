/*
Package session implements session management and persistence orchestration.

The Manager owns the mapping from a user id to its stored state. It serializes every
read-modify-write on one session with a reference-counted local mutex and, when
configured, a distributed lock so that replicas sharing a Redis store do the same.
Different sessions never wait on each other.
*/
package session
