package augeas_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aretw0/augeas"
)

func exampleRoot() string {
	root, err := os.MkdirTemp("", "augeas-example")
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "etc"), 0o755); err != nil {
		log.Fatal(err)
	}
	hosts := "127.0.0.1 localhost\n192.168.0.1 gateway\n"
	if err := os.WriteFile(filepath.Join(root, "etc", "hosts"), []byte(hosts), 0o644); err != nil {
		log.Fatal(err)
	}
	return root
}

// ExampleCreate opens a session on a root directory, edits /etc/hosts and
// writes the change back.
func ExampleCreate() {
	root := exampleRoot()
	defer os.RemoveAll(root)

	s, err := augeas.Create(augeas.WithRoot(root))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	ip, _, err := s.Get("/files/etc/hosts/2/ipaddr")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("gateway is", ip)

	if err := s.Set("/files/etc/hosts/2/alias[last()+1]", "gw"); err != nil {
		log.Fatal(err)
	}
	if err := s.Save(); err != nil {
		log.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(root, "etc", "hosts"))
	fmt.Print(string(data))
	// Output:
	// gateway is 192.168.0.1
	// 127.0.0.1	localhost
	// 192.168.0.1	gateway gw
}

// ExampleWith runs a unit of work on a session that is closed afterwards,
// even when the work fails.
func ExampleWith() {
	root := exampleRoot()
	defer os.RemoveAll(root)

	err := augeas.With(func(s *augeas.Session) error {
		paths, err := s.Match("/files/etc/hosts/*/canonical")
		if err != nil {
			return err
		}
		for _, p := range paths {
			v, _, _ := s.Get(p)
			fmt.Println(p, "=", v)
		}
		return nil
	}, augeas.WithRoot(root), augeas.WithSaveMode(augeas.SaveNoop))
	if err != nil {
		log.Fatal(err)
	}
	// Output:
	// /files/etc/hosts/1/canonical = localhost
	// /files/etc/hosts/2/canonical = gateway
}

// ExampleSession_Transform registers a lens for files the built-in modules
// do not know about.
func ExampleSession_Transform() {
	root := exampleRoot()
	defer os.RemoveAll(root)
	_ = os.WriteFile(filepath.Join(root, "etc", "app.conf"), []byte("port = 8080\n"), 0o644)

	s, err := augeas.Create(augeas.WithRoot(root), augeas.WithNoLoad())
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	err = s.Transform(augeas.Transform{Lens: "Simplevars.lns", Incl: []string{"/etc/*.conf"}})
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Load(); err != nil {
		log.Fatal(err)
	}
	port, _, _ := s.Get("/files/etc/app.conf/port")
	fmt.Println(port)
	// Output:
	// 8080
}

// ExampleKindOf classifies a failure.
func ExampleKindOf() {
	root := exampleRoot()
	defer os.RemoveAll(root)

	s, err := augeas.Create(augeas.WithRoot(root))
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	_, _, err = s.Get("/files/etc/hosts/*/ipaddr")
	kind, _ := augeas.KindOf(err)
	fmt.Println(kind)
	// Output:
	// multiple-matches
}
