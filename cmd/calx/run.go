package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"calx/internal/code"
	"calx/internal/config"
	"calx/internal/image"
	"calx/internal/object"
	"calx/internal/runtimeio"
	"calx/internal/vm"

	"github.com/google/uuid"
)

type runOptions struct {
	entry     string
	maxFrames int
	echo      string
	showCode  bool
	dis       bool
}

func runRun(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	showCode := fs.Bool("S", false, "print loaded functions before running")
	dis := fs.Bool("dis", false, "print the disassembly and exit")
	verbose := fs.Int("v", 0, "log verbosity")
	entry := fs.String("entry", vm.DefaultEntry, "function to call")
	maxFrames := fs.Int("max-frames", 0, "call depth limit (0 = unlimited)")
	echo := fs.String("echo", "stdout", "echo sink: stdout, stderr or discard")
	if err := fs.Parse(args); err != nil || fs.NArg() > 1 {
		fmt.Fprintln(stdout, "usage: calx [run] [-S] [-dis] [-v N] [-entry fn] [-max-frames n] [-echo sink] <file>")
		return 2
	}
	configureLogging(*verbose)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	man, err := config.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintln(stdout, "config error:", err)
		return 1
	}

	opts := runOptions{entry: *entry, maxFrames: *maxFrames, echo: *echo, showCode: *showCode, dis: *dis}
	var target string
	if man != nil {
		target = man.EntryPath()
		opts = manifestDefaults(man, opts, setFlags(fs))
	}
	if fs.NArg() == 1 {
		target = fs.Arg(0)
	}
	if target == "" {
		fmt.Fprintln(stdout, "usage: calx [run] <file> (or set entry in "+config.FileName+")")
		return 2
	}

	prog, err := loadProgram(target)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}
	if opts.dis {
		for _, fn := range prog.Functions {
			fmt.Fprint(stdout, fn.String())
		}
		return 0
	}

	id := uuid.New()
	log.Infof("run %s: %s entry=%s max-frames=%d", id, target, opts.entry, opts.maxFrames)
	if err := execute(id, prog, opts, stdout); err != nil {
		log.Debugf("run %s failed: %v", id, err)
		return 1
	}
	log.Debugf("run %s done", id)
	return 0
}

func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// manifestDefaults fills every option not given on the command line from
// the manifest's [run] table.
func manifestDefaults(man *config.Manifest, opts runOptions, set map[string]bool) runOptions {
	if !set["entry"] {
		opts.entry = man.Run.Function
	}
	if !set["max-frames"] {
		opts.maxFrames = man.Run.MaxFrames
	}
	if !set["echo"] {
		opts.echo = man.Run.Echo
	}
	if !set["S"] {
		opts.showCode = man.Run.ShowCode
	}
	return opts
}

// loadProgram reads an image or assembles a source file.
func loadProgram(path string) (*code.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if image.IsImage(data) {
		prog, err := image.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return prog, nil
	}
	u, err := assembleFile(path)
	if err != nil {
		return nil, err
	}
	return u.Program, nil
}

// hostImports is the import table every run gets.
func hostImports(stdout io.Writer) vm.Imports {
	return vm.Imports{
		"log2": vm.LogImport(stdout, 2),
		"input": {
			Arity: 1,
			Fn: func(args []object.Object) (object.Object, error) {
				prompt := object.Inspect(args[0])
				if s, ok := args[0].(*object.String); ok {
					prompt = s.Value
				}
				line, err := runtimeio.Input(prompt)
				if err != nil {
					return nil, err
				}
				return &object.String{Value: line}, nil
			},
		},
	}
}

// execute runs prog. A failed run reports its id so it can be matched
// against the -v log.
func execute(id uuid.UUID, prog *code.Program, opts runOptions, stdout io.Writer) error {
	echo, err := runtimeio.Sink(opts.echo)
	if err != nil {
		fmt.Fprintln(stdout, "config error:", err)
		return err
	}
	m, err := vm.NewFromProgram(prog, hostImports(stdout),
		vm.WithEntry(opts.entry),
		vm.WithEcho(echo),
		vm.WithMaxFrames(opts.maxFrames),
	)
	if err != nil {
		fmt.Fprintln(stdout, "load error:", err)
		return err
	}
	if opts.showCode {
		for _, fn := range m.Functions() {
			fmt.Fprintf(stdout, "loaded %s", fn.String())
		}
	}

	start := time.Now()
	if err := m.Run(); err != nil {
		fmt.Fprintf(stdout, "VM state: %s\n", object.InspectAll(m.Stack()))
		fmt.Fprintln(stdout, err)
		fmt.Fprintf(stdout, "run id: %s\n", id)
		return err
	}
	fmt.Fprintf(stdout, "Took %s: %s\n", time.Since(start).Round(time.Microsecond), object.InspectAll(m.Stack()))
	return nil
}
