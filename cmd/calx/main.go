package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"calx/internal/asm"
	"calx/internal/config"
	"calx/internal/diag"
	"calx/internal/format"
	"calx/internal/image"
	"calx/internal/lint"
	"calx/internal/repl"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const (
	sourceExt = ".calx"
	imageExt  = ".calxb"
)

var log = commonlog.GetLogger("calx")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run dispatches a command line and returns the process exit code.
func run(args []string, stdout io.Writer) int {
	cmd := "run"
	if len(args) > 0 {
		switch args[0] {
		case "run", "build", "fmt", "lint", "repl", "init":
			cmd, args = args[0], args[1:]
		}
	}
	switch cmd {
	case "build":
		return runBuild(args, stdout)
	case "fmt":
		return runFmt(args, stdout)
	case "lint":
		return runLint(args, stdout)
	case "repl":
		return runRepl(args, stdout)
	case "init":
		return runInit(args, stdout)
	}
	return runRun(args, stdout)
}

func configureLogging(verbosity int) {
	commonlog.Configure(verbosity, nil)
}

// diagError carries the error diagnostics of a failed assembly.
type diagError struct {
	path  string
	diags []diag.Diagnostic
}

func (e *diagError) Error() string {
	lines := make([]string, 0, len(e.diags))
	for _, d := range e.diags {
		lines = append(lines, d.Format(e.path))
	}
	return strings.Join(lines, "\n")
}

func assembleFile(path string) (*asm.Unit, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	u := asm.AssembleUnit(string(b))
	if u.HasErrors() {
		return nil, &diagError{path: path, diags: diag.Errors(u.Diagnostics)}
	}
	return u, nil
}

func runBuild(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("o", "", "output image path")
	verbose := fs.Int("v", 0, "log verbosity")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(stdout, "usage: calx build [-o out.calxb] <file.calx>")
		return 2
	}
	configureLogging(*verbose)

	src := fs.Arg(0)
	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + imageExt
	}
	u, err := assembleFile(src)
	if err != nil {
		fmt.Fprintln(stdout, "build error:", err)
		return 1
	}
	if err := image.WriteFile(dst, u.Program); err != nil {
		fmt.Fprintln(stdout, "build error:", err)
		return 1
	}
	log.Infof("wrote %s (%d functions)", dst, len(u.Program.Functions))
	fmt.Fprintf(stdout, "built %s\n", dst)
	return 0
}

func runFmt(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	writeBack := fs.Bool("w", false, "write result to (source) file")
	indent := fs.String("i", "  ", "indent string")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stdout, "usage: calx fmt [-w] [-i <indent>] <path>")
		return 2
	}

	targets := fs.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}
	files, err := collectSourceFiles(targets)
	if err != nil {
		fmt.Fprintln(stdout, "fmt error:", err)
		return 1
	}
	sort.Strings(files)

	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdout, "fmt error:", err)
			return 1
		}
		formatted, err := format.Format(string(b), format.Options{Indent: *indent})
		if err != nil {
			fmt.Fprintf(stdout, "fmt error: %s:%v\n", path, err)
			return 1
		}
		if !*writeBack {
			fmt.Fprint(stdout, formatted)
			continue
		}
		if string(b) != formatted {
			if err := writeFileAtomic(path, []byte(formatted)); err != nil {
				fmt.Fprintln(stdout, "fmt error:", err)
				return 1
			}
			fmt.Fprintf(stdout, "formatted %s\n", path)
		}
	}
	return 0
}

func runLint(args []string, stdout io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, "usage: calx lint <file|dir> [more...]")
		return 2
	}

	files, err := collectSourceFiles(args)
	if err != nil {
		fmt.Fprintln(stdout, "lint error:", err)
		return 1
	}
	sort.Strings(files)

	hadErrors := false
	for _, path := range files {
		diags, err := lintFile(path)
		if err != nil {
			fmt.Fprintln(stdout, "lint error:", err)
			hadErrors = true
			continue
		}
		for _, d := range diags {
			fmt.Fprintln(stdout, d.Format(path))
			if d.Severity == diag.SeverityError {
				hadErrors = true
			}
		}
	}
	if hadErrors {
		return 1
	}
	return 0
}

func lintFile(path string) ([]diag.Diagnostic, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	u := asm.AssembleUnit(string(b))
	diags := append([]diag.Diagnostic{}, u.Diagnostics...)
	diags = append(diags, lint.Run(u)...)
	diag.Sort(diags)
	return diags, nil
}

func runRepl(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	maxFrames := fs.Int("max-frames", 0, "call depth limit (0 = unlimited)")
	history := fs.String("history", "", "history file")
	verbose := fs.Int("v", 0, "log verbosity")
	if err := fs.Parse(args); err != nil || fs.NArg() > 1 {
		fmt.Fprintln(stdout, "usage: calx repl [-max-frames n] [-history file] [program]")
		return 2
	}
	configureLogging(*verbose)

	opts := repl.Options{
		Imports:   hostImports(stdout),
		MaxFrames: *maxFrames,
		History:   *history,
	}
	if fs.NArg() == 1 {
		prog, err := loadProgram(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(stdout, "repl error:", err)
			return 1
		}
		opts.Program = prog
	}
	if err := repl.Start(os.Stdin, stdout, opts); err != nil {
		fmt.Fprintln(stdout, "repl error:", err)
		return 1
	}
	return 0
}

func runInit(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "project name")
	entry := fs.String("entry", "main.calx", "entry file")
	force := fs.Bool("force", false, "overwrite existing files")
	dir := fs.String("dir", ".", "project directory")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		fmt.Fprintln(stdout, "usage: calx init [-name <name>] [-entry <file>] [-dir <dir>] [-force]")
		return 2
	}
	if strings.TrimSpace(*entry) == "" {
		fmt.Fprintln(stdout, "init error: entry cannot be empty")
		return 1
	}

	manifestPath := filepath.Join(*dir, config.FileName)
	exists, err := pathExists(manifestPath)
	if err != nil {
		fmt.Fprintln(stdout, "init error:", err)
		return 1
	}
	if exists && !*force {
		fmt.Fprintf(stdout, "init error: %s already exists (use -force to overwrite)\n", config.FileName)
		return 1
	}
	if err := os.WriteFile(manifestPath, []byte(buildManifest(*name, *entry)), 0o644); err != nil {
		fmt.Fprintln(stdout, "init error:", err)
		return 1
	}

	entryPath := filepath.Join(*dir, *entry)
	if err := os.MkdirAll(filepath.Dir(entryPath), 0o755); err != nil {
		fmt.Fprintln(stdout, "init error:", err)
		return 1
	}
	entryExists, err := pathExists(entryPath)
	if err != nil {
		fmt.Fprintln(stdout, "init error:", err)
		return 1
	}
	if !entryExists || *force {
		if err := os.WriteFile(entryPath, []byte(starterProgram), 0o644); err != nil {
			fmt.Fprintln(stdout, "init error:", err)
			return 1
		}
	}
	return 0
}

func buildManifest(name, entry string) string {
	var b strings.Builder
	if strings.TrimSpace(name) != "" {
		fmt.Fprintf(&b, "name = %q\n", name)
	}
	fmt.Fprintf(&b, "entry = %q\n", entry)
	b.WriteString("\n[run]\nfunction = \"main\"\n")
	return b.String()
}

const starterProgram = `(fn main ()
  (const 2)
  (const 3)
  i.add)
`

func collectSourceFiles(targets []string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.HasSuffix(target, sourceExt) {
				files = append(files, target)
			}
			continue
		}

		err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if base := filepath.Base(path); base == ".git" || base == "testdata" {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, sourceExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func writeFileAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".calxfmt-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
