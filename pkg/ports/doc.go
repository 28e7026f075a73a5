/*
Package ports defines the driven ports (interfaces) of the storyline engine.

These interfaces decouple the session state machine from where sessions live and how
concurrent access to them is coordinated across processes.

# Key Interfaces

  - StateStore: persists and loads session State (memory or Redis).
  - DistributedLocker: serializes access to one session across replicas.
*/
package ports
