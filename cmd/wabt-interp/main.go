// Command wabt-interp translates a .wasm binary into interpreter
// bytecode and prints the resulting istream disassembly and exports.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/guybedford/wabt/interp"
	"github.com/guybedford/wabt/wasm"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-v] module.wasm\n", os.Args[0])
		os.Exit(1)
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("create logger: %v", err)
		}
		defer l.Sync() //nolint:errcheck
		interp.SetLogger(l)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read module: %v", err)
	}

	env := interp.NewEnvironment()
	module, err := interp.ReadBinary(env, data)
	if err != nil {
		log.Fatalf("translate module: %v", err)
	}

	fmt.Print(interp.Disassemble(env.Istream, module.IstreamStart, module.IstreamEnd))
	for _, export := range module.Exports {
		fmt.Printf("export %s %q -> env index %d\n",
			wasm.ExternalKindName(export.Kind), export.Name, export.Index)
	}
}
