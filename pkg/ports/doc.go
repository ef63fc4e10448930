/*
Package ports defines the driven port between the augeas facade and the
configuration-tree engine that actually holds the tree.

The facade never talks to an engine except through these interfaces, so the
same Session code runs against the cgo binding to libaugeas, the pure-Go
memory engine, or a test double.

# Key Interfaces

  - Engine: one live engine handle, exposing the raw operation set with the
    engine's own calling convention (shared error state plus negative
    return codes).
  - OpenFunc: opens an Engine for a root, a module load path and a flags word.
  - DistributedLocker: optional cross-process lock used by the session
    manager when several processes edit the same tree.
*/
package ports
