// Command dashvm is the CLI front end for the dashvm stack machine:
// assemble, run, disassemble, and interactively debug programs. It is the
// component I surface of the VM design, restructured from the teacher's
// cmd/smog subcommand switch onto github.com/urfave/cli/v2 with colorized
// output (fatih/color), tabular draw-op traces (olekukonko/tablewriter), and
// a liner-backed REPL/debugger prompt.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	"github.com/kristofer/dashvm/pkg/assembler"
	"github.com/kristofer/dashvm/pkg/program"
	"github.com/kristofer/dashvm/pkg/sink"
	"github.com/kristofer/dashvm/pkg/vm"
)

// diagnostic wraps a compile-time error (assembler or type checker) with
// the Go-side call stack that caught it, so a --verbose run can show
// where in the CLI the failure surfaced, separate from the VM-level
// stack trace a RuntimeError carries.
type diagnostic struct {
	err   error
	stack stack.CallStack
}

func newDiagnostic(err error) *diagnostic {
	return &diagnostic{err: err, stack: stack.Trace().TrimRuntime()}
}

func (d *diagnostic) Error() string { return d.err.Error() }
func (d *diagnostic) Unwrap() error { return d.err }

func (d *diagnostic) verbose() string {
	return fmt.Sprintf("%s\ncaught at:\n%+v", d.err.Error(), d.stack)
}

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "dashvm",
		Usage:   "assemble, run, and debug dashvm drawing programs",
		Version: version,
		Commands: []*cli.Command{
			asmCommand(),
			runCommand(),
			disasmCommand(),
			debugCommand(),
			replCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func asmCommand() *cli.Command {
	return &cli.Command{
		Name:      "asm",
		Usage:     "assemble a .dvmasm source file into a binary program",
		ArgsUsage: "<input.dvmasm> [output.dvmbc]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "on failure, print the CLI-side call stack that caught the error"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("asm requires an input file", 2)
			}
			input := c.Args().Get(0)
			output := c.Args().Get(1)
			if output == "" {
				output = strings.TrimSuffix(input, ".dvmasm") + ".dvmbc"
			}
			src, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			p, err := assembler.Assemble(string(src))
			if err != nil {
				diag := newDiagnostic(fmt.Errorf("assembling %s: %w", input, err))
				if c.Bool("verbose") {
					return cli.Exit(diag.verbose(), 1)
				}
				return diag
			}
			data, err := program.Encode(p)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Println(color.GreenString("assembled %s -> %s (%d instructions, %d constants)", input, output, len(p.Code), len(p.Constants)))
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "execute a dashvm program (source or compiled)",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "trace", Usage: "print every dispatched draw op"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("run requires a file", 2)
			}
			p, err := loadProgram(c.Args().Get(0))
			if err != nil {
				return err
			}

			var snk sink.Sink
			rec := &sink.RecordingSink{}
			snk = rec

			m := vm.New(p, snk, defaultGlobals(), 0)
			if err := m.Run(); err != nil {
				return err
			}

			if c.Bool("trace") {
				printTrace(rec)
			}
			return nil
		},
	}
}

func disasmCommand() *cli.Command {
	return &cli.Command{
		Name:      "disasm",
		Usage:     "disassemble a dashvm program",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("disasm requires a file", 2)
			}
			p, err := loadProgram(c.Args().Get(0))
			if err != nil {
				return err
			}
			printDisassembly(p)
			return nil
		},
	}
}

func debugCommand() *cli.Command {
	return &cli.Command{
		Name:      "debug",
		Usage:     "step through a dashvm program interactively",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("debug requires a file", 2)
			}
			p, err := loadProgram(c.Args().Get(0))
			if err != nil {
				return err
			}
			return runDebugSession(p)
		},
	}
}

func replCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "start an interactive assembly REPL",
		Action: func(c *cli.Context) error {
			return runREPL()
		},
	}
}

func loadProgram(path string) (*program.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".dvmbc") {
		return program.Decode(data)
	}
	return assembler.Assemble(string(data))
}

func defaultGlobals() map[string]any {
	return map[string]any{
		"width":  int64(800),
		"height": int64(600),
	}
}

func printTrace(rec *sink.RecordingSink) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"op", "args"})
	for _, r := range rec.Records {
		args := make([]string, len(r.Args))
		for i, a := range r.Args {
			args[i] = fmt.Sprintf("%v", a)
		}
		table.Append([]string{r.Op.String(), strings.Join(args, ", ")})
	}
	table.Render()
}

func printDisassembly(p *program.Program) {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(color.CyanString("; %d instructions, %d constants", len(p.Code), len(p.Constants)))
	}
	fmt.Print(program.Disassemble(p))
}

// runDebugSession drives an interactive single-step debugger over a
// liner-backed prompt, in the style of the teacher's InteractivePrompt
// but against dashvm's Debugger view methods instead of direct VM field
// access.
func runDebugSession(p *program.Program) error {
	m := vm.New(p, &sink.RecordingSink{}, defaultGlobals(), 0)
	dbg := vm.NewDebugger(m)
	dbg.Enable()
	dbg.SetStepMode(true)
	m.AttachDebugger(dbg)

	sessionID := uuid.New().String()
	fmt.Println(color.YellowString("debug session %s — type 'help' for commands", sessionID))

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println(dbg.CurrentInstruction())
	for {
		input, err := line.Prompt("dvm> ")
		if err != nil {
			return nil
		}
		line.AppendHistory(input)
		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "help", "h":
			printDebugHelp()
		case "step", "s", "":
			// Step mode makes the debugger pause before every pc, so it is
			// switched off for the one instruction this command executes.
			dbg.Disable()
			err := stepOnce(m)
			dbg.Enable()
			if err != nil {
				return err
			}
			fmt.Println(dbg.CurrentInstruction())
		case "continue", "c":
			dbg.SetStepMode(false)
			if err := m.Run(); err != nil {
				return err
			}
			fmt.Println(color.GreenString("program halted"))
			return nil
		case "break", "b":
			if len(fields) < 2 {
				fmt.Println("usage: break <pc>")
				continue
			}
			pc, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("invalid pc")
				continue
			}
			dbg.AddBreakpoint(pc)
		case "stack", "st":
			fmt.Print(dbg.StackView())
		case "frames", "f":
			fmt.Print(dbg.CallStackView())
		case "globals", "g":
			fmt.Print(dbg.GlobalsView())
		case "list", "ls":
			fmt.Print(dbg.ListingView())
		case "quit", "q":
			return nil
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}

func stepOnce(m *vm.VM) error {
	err := m.Step()
	if err == nil {
		return nil
	}
	if _, halted := err.(*vm.Halted); halted {
		return nil
	}
	return err
}

func printDebugHelp() {
	fmt.Println("commands: step(s) continue(c) break(b) <pc> stack(st) frames(f) globals(g) list(ls) quit(q)")
}

func runREPL() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println(color.YellowString("dashvm assembly REPL — one instruction per line, 'run' to execute, 'quit' to exit"))
	var buf []string
	for {
		prompt := "dvm> "
		input, err := line.Prompt(prompt)
		if err != nil {
			return nil
		}
		line.AppendHistory(input)
		trimmed := strings.TrimSpace(input)
		switch trimmed {
		case "quit", "exit":
			return nil
		case "run":
			p, err := assembler.Assemble(strings.Join(buf, "\n"))
			if err != nil {
				fmt.Println(color.RedString("assemble error: %v", err))
				continue
			}
			rec := &sink.RecordingSink{}
			m := vm.New(p, rec, defaultGlobals(), 0)
			if err := m.Run(); err != nil {
				fmt.Println(color.RedString("runtime error: %v", err))
				continue
			}
			fmt.Println(color.GreenString("ok, final stack: %v", m.Stack()))
			printTrace(rec)
			buf = nil
		case "clear":
			buf = nil
		default:
			buf = append(buf, trimmed)
		}
	}
}
