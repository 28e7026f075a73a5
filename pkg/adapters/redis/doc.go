/*
Package redis provides Redis-backed implementations of the session ports.

The Store shares session state between replicas of the bot or the HTTP server, and the
Locker serializes choices for one user across those replicas. Both are optional: a single
process runs fine on the in-memory store and the Session Manager's local locks.
*/
package redis
