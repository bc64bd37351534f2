package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"calx/internal/asm"
	"calx/internal/code"
	"calx/internal/object"
	"calx/internal/parser"
	"calx/internal/runtimeio"
	"calx/internal/vm"

	"github.com/peterh/liner"
)

const (
	prompt1 = "calx> "
	prompt2 = "....> "
)

var errQuit = errors.New("quit")

type Options struct {
	// Program supplies functions and initial globals; bodies typed at
	// the prompt may call its functions.
	Program   *code.Program
	Imports   vm.Imports
	MaxFrames int
	// History is a liner history file, used only on a terminal.
	History string
}

// Session keeps one VM alive across inputs.
type Session struct {
	opts Options
	out  io.Writer
	m    *vm.VM
}

func NewSession(out io.Writer, opts Options) (*Session, error) {
	if opts.Program == nil {
		opts.Program = &code.Program{}
	}
	s := &Session{opts: opts, out: out}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) VM() *vm.VM { return s.m }

func (s *Session) reset() error {
	m, err := vm.NewFromProgram(s.opts.Program, s.opts.Imports,
		vm.WithEcho(s.out), vm.WithMaxFrames(s.opts.MaxFrames))
	if err != nil {
		return err
	}
	s.m = m
	return nil
}

// Eval handles one complete input: a :command or an instruction body.
func (s *Session) Eval(src string) error {
	trim := strings.TrimSpace(src)
	if trim == "" {
		return nil
	}
	if strings.HasPrefix(trim, ":") {
		return s.command(trim)
	}

	body, diags := asm.AssembleBody(src, asm.WithFunctions(s.m.Functions()))
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(s.out, d.Format("<repl>"))
		}
		return nil
	}
	if err := s.m.Eval(body); err != nil {
		fmt.Fprintln(s.out, err)
		return nil
	}
	fmt.Fprintln(s.out, object.InspectAll(s.m.Stack()))
	return nil
}

func (s *Session) command(cmd string) error {
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return errQuit
	case ":stack":
		fmt.Fprintln(s.out, object.InspectAll(s.m.Stack()))
	case ":globals":
		fmt.Fprintln(s.out, object.InspectAll(s.m.Globals()))
	case ":funcs":
		for _, fn := range s.m.Functions() {
			fmt.Fprintln(s.out, fn.Signature())
		}
	case ":reset":
		if err := s.reset(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "reset")
	default:
		fmt.Fprintf(s.out, "unknown command %s. Type :quit to exit.\n", cmd)
	}
	return nil
}

type prompter interface {
	Prompt(prompt string) (string, error)
}

type scannerPrompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (p *scannerPrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.sc.Text(), nil
}

// Start runs the read-eval-print loop until EOF or :quit. A terminal
// stdin gets line editing and history; anything else is scanned.
func Start(in io.Reader, out io.Writer, opts Options) error {
	s, err := NewSession(out, opts)
	if err != nil {
		return err
	}
	fmt.Fprint(out, "Calx REPL (Ctrl+D to exit)\n")

	var p prompter
	if f, ok := in.(*os.File); ok && f == os.Stdin && runtimeio.IsInteractive() {
		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)
		if opts.History != "" {
			if f, err := os.Open(opts.History); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(opts.History); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				}
			}()
		}
		p = &linerPrompter{ln: ln}
	} else {
		p = &scannerPrompter{sc: bufio.NewScanner(in), out: out}
	}

	for {
		src, ok := readByParseProbe(p)
		if !ok {
			fmt.Fprint(out, "\n")
			return nil
		}
		if err := s.Eval(src); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

type linerPrompter struct {
	ln *liner.State
}

func (p *linerPrompter) Prompt(prompt string) (string, error) {
	line, err := p.ln.Prompt(prompt)
	if err == nil && strings.TrimSpace(line) != "" {
		p.ln.AppendHistory(line)
	}
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", nil
	}
	return line, err
}

// readByParseProbe keeps reading continuation lines while the input
// leaves a list open.
func readByParseProbe(p prompter) (string, bool) {
	var b strings.Builder
	for {
		prompt := prompt1
		if b.Len() > 0 {
			prompt = prompt2
		}
		line, err := p.Prompt(prompt)
		if err != nil {
			if b.Len() > 0 && errors.Is(err, io.EOF) {
				return b.String(), true
			}
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !parser.IsIncomplete(src) {
			return src, true
		}
	}
}
