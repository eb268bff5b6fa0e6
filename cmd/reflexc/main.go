// Reflexc compiles, inspects and evaluates reflex binding expressions.
package main

import (
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("reflexc")

func configureLogging(verbose bool) {
	verbosity := 0
	if verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: reflexc <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  compile   Compile every binding in reflex.toml into the unit store\n")
	fmt.Fprintf(os.Stderr, "  gen       Generate Go source for the bindings in reflex.toml\n")
	fmt.Fprintf(os.Stderr, "  disasm    Disassemble one expression or manifest binding\n")
	fmt.Fprintf(os.Stderr, "  eval      Evaluate one expression against supplied state\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  reflexc compile -C ./ui\n")
	fmt.Fprintf(os.Stderr, "  reflexc disasm -expr '{\"op\":\"add\",\"left\":1,\"right\":2}'\n")
	fmt.Fprintf(os.Stderr, "  reflexc eval -expr '{\"var\":\"n\"}' -s n=4\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "compile":
		err = runCompile(os.Args[2:])
	case "gen":
		err = runGen(os.Args[2:])
	case "disasm":
		err = runDisasm(os.Args[2:])
	case "eval":
		err = runEval(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}
