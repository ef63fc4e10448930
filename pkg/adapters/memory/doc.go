/*
Package memory is a configuration-tree engine written in Go. It keeps the
tree in memory and maps files under a root directory into it with a small
set of built-in lenses, so sessions can run without libaugeas.

The engine registers itself as "memory" and is the default engine of the
augeas package.

# Lenses

  - Hosts.lns: /etc/hosts, autoloaded for /etc/hosts.
  - Simplevars.lns: "key = value" files.
  - Simplelines.lns: one node per line.

More lenses can be added with RegisterLens.

# Path expressions

The engine evaluates the commonly used subset of the augeas path language:
absolute and relative location paths, "*", ".", "..", the "//" descendant
axis, "$var" references and the predicates [n], [last()], [last()+n],
[last()-n], [label() = 'x'], [label() =~ regexp('re')], [sub],
[sub = 'v'] and [sub != 'v'].
*/
package memory
