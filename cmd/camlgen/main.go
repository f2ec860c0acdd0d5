package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/camlbridge/codegen"
	"github.com/wippyai/camlbridge/heap"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/wasmcode"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	witFile  string
	wasmFile string
	pkg      string
	out      string
	mlFile   string
	names    []string
	types    bool
	list     bool
}

func main() {
	var (
		configFile  = flag.String("config", "", "YAML config file (keys: wit, wasm, package, out, ml, types, go_types)")
		_           = flag.String("wit", "", "Path to a resolved WIT document in JSON form")
		_           = flag.String("wasm", "", "Path to a core module with tagged-word exports (interactive mode)")
		_           = flag.String("pkg", "bindings", "Package name of the generated file")
		_           = flag.String("out", "", "Output Go file (default stdout)")
		_           = flag.String("ml", "", "Also write foreign type declarations to this file")
		_           = flag.Bool("types", true, "Declare the Go types in the generated file")
		list        = flag.Bool("list", false, "List described types with their layout and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging to stderr")
		names       stringList
	)
	flag.Var(&names, "type", "Type to generate, by foreign or Go name (repeatable, default all)")
	flag.Parse()

	opts, err := loadOptions(*configFile, setFlags(flag.CommandLine))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.list = *list

	if opts.witFile == "" && !(*interactive && opts.wasmFile != "") {
		fmt.Fprintln(os.Stderr, "Usage: camlgen -wit <resolve.json> [-type name]... [-pkg name] [-out file.go] [-ml file.ml]")
		fmt.Fprintln(os.Stderr, "       camlgen -config camlgen.yaml")
		fmt.Fprintln(os.Stderr, "       camlgen -wit <resolve.json> -list")
		fmt.Fprintln(os.Stderr, "       camlgen [-wit <resolve.json>] [-wasm <module.wasm>] -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			defer func() { _ = logger.Sync() }()
			heap.SetLogger(logger)
			runtime.SetLogger(logger)
			wasmcode.SetLogger(logger)
		}
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	all, err := loadTypes(o.witFile)
	if err != nil {
		return err
	}
	types, err := selectTypes(all, o.names)
	if err != nil {
		return err
	}

	if o.list {
		width := 0
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			if w, _, err := term.GetSize(fd); err == nil {
				width = w
			}
		}
		for _, t := range types {
			for _, line := range layoutLines(t) {
				fmt.Println(clip(line, width))
			}
		}
		return nil
	}

	src, err := codegen.Generate(codegen.Config{Package: o.pkg, Types: o.types}, types...)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if o.out == "" {
		if _, err := os.Stdout.Write(src); err != nil {
			return err
		}
	} else if err := os.WriteFile(o.out, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.out, err)
	}

	if o.mlFile != "" {
		if err := os.WriteFile(o.mlFile, []byte(codegen.Signatures(types...)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", o.mlFile, err)
		}
	}
	return nil
}

func clip(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
