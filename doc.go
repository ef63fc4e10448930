/*
Package augeas is a client for the Augeas configuration editing engine.

Augeas parses configuration files into a labeled tree, lets callers edit the tree with path expressions, and writes the changes back to disk through bidirectional lenses. This package wraps an engine handle in a Session and turns the engine's error-state conventions into ordinary Go errors.

# Concept

The engine keeps an error state that every command overwrites, and some commands also report failure through a negative return value. Session checks both right after each call and returns an *Error carrying an ErrorKind, the engine's message and details, and the operation that failed. Callers classify failures with errors.Is against the sentinels (ErrNoMatch, ErrMultipleMatches, ...) or with KindOf.

Engines live behind the ports.Engine interface. The pure Go "memory" engine is registered by default; the "libaugeas" engine binds the C library when built with the libaugeas tag.

# Key Features

  - Path expressions: Get, Set, SetM, Match, Rm, Mv, Insert, Rename and Label work on the whole tree.
  - Transforms: register lenses for extra files at runtime with Session.Transform.
  - Save modes: overwrite, backup, newfile or noop, chosen per session.
  - Scoped sessions: With and WithResult close the handle on every exit path.
  - Observability: Hooks.OnCommand sees every dispatched command.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/augeas"
	)

	func main() {
		s, err := augeas.Create(augeas.WithRoot("/srv/chroot"))
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		ip, ok, err := s.Get("/files/etc/hosts/1/ipaddr")
		if err != nil {
			log.Fatal(err)
		}
		if ok {
			fmt.Println(ip)
		}

		if err := s.Set("/files/etc/hosts/1/alias[last()+1]", "web"); err != nil {
			log.Fatal(err)
		}
		if err := s.Save(); err != nil {
			// Per file details live under /augeas//error.
			fes, _ := s.FileErrors()
			log.Fatal(err, fes)
		}
	}
*/
package augeas
