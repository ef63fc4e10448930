/*
Package libaugeas binds the augeas C library as a ports.Engine.

It is only built with the libaugeas build tag and needs the library and its
headers, found through pkg-config:

	go build -tags libaugeas ./...

Importing the package registers the engine as "libaugeas":

	import _ "github.com/aretw0/augeas/pkg/adapters/libaugeas"

	s, err := augeas.Create(augeas.WithEngineName("libaugeas"))
*/
package libaugeas
