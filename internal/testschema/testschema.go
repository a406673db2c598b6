// Package testschema provides the example schema shared by the datastore tests.
package testschema

import (
	"bytes"
	_ "embed" // schema description

	"github.com/damianoneill/ncstore/schema"
)

//go:embed library.yaml
var libraryYAML []byte

// Namespaces used by the example schema.
const (
	LibraryNS = "urn:example:library"
	AuditNS   = "urn:example:audit"
)

// Library delivers a registry built from the example library schema.
// The audit module deliberately declares no prefix.
func Library() *schema.Registry {
	reg, err := schema.Load(bytes.NewReader(libraryYAML))
	if err != nil {
		panic(err)
	}
	return reg
}

// Q delivers a library-namespace QName.
func Q(name string) schema.QName {
	return schema.QName{Namespace: LibraryNS, Name: name}
}
