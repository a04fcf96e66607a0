// Command musgen regenerates the binary serializers for the types the badger
// store persists. Run it through go generate in the core package.
package main

import (
	"os"
	"reflect"
	"strings"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	"github.com/poiesic/uniterare/core"
)

const output = "./core/records_mus.gen.go"

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// go generate runs in core/; the output path is relative to the module root.
	if strings.HasSuffix(cwd, "core") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}

	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/poiesic/uniterare/core"),
	)
	if err != nil {
		panic(err)
	}

	g.AddDefinedType(reflect.TypeFor[core.ID]())

	// Id, Name, Description
	err = g.AddStruct(reflect.TypeFor[core.Record](),
		structops.WithField(),
		structops.WithField(),
		structops.WithField())
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile(output, bs, 0644); err != nil {
		panic(err)
	}
}
