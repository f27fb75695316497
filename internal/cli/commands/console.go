package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dark/internal/cli/output"
	"github.com/leapstack-labs/dark/internal/command"
	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/pkg/core"
)

const consolePrompt = "dark> "

// NewConsoleCommand creates the console command.
func NewConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive shell issuing editor commands",
		Long: `Start an interactive shell over the stored graph.

Each line is a command name followed by an optional JSON object of
arguments. The cursor follows the result of the previous command.`,
		Example: `  dark console
  dark> add_datastore {"name":"users","x":0,"y":0}
  dark(users)> add_datastore_field {"name":"email","type":"Email"}`,
		Args: cobra.NoArgs,
		RunE: runConsole,
	}
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          consolePrompt,
		HistoryFile:     filepath.Join(cmdCtx.Cfg.StateDir(), "console_history"),
		AutoComplete:    newCommandCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize console: %w", err)
	}
	defer func() { _ = rl.Close() }()

	c := newConsole(cmdCtx.Engine, cmdCtx.Renderer, cmd.OutOrStdout(), cmd.ErrOrStderr())

	_, _ = fmt.Fprintf(c.out, "Dark console (state: %s %s)\n", cmdCtx.Cfg.State.Driver, cmdCtx.Cfg.State.DSN)
	_, _ = fmt.Fprintln(c.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(c.out)

	return c.run(cmd.Context(), rl)
}

// lineReader is the part of *readline.Instance the console loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// run reads and evaluates lines until .quit, EOF or a read error.
func (c *console) run(ctx context.Context, rl lineReader) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read console input: %w", err)
		}

		if quit := c.eval(ctx, line); quit {
			return nil
		}
		rl.SetPrompt(c.prompt())
	}
}

// console evaluates shell lines against an engine.
type console struct {
	eng    *engine.Engine
	r      *output.Renderer
	out    io.Writer
	errOut io.Writer
	cursor *string
}

func newConsole(eng *engine.Engine, r *output.Renderer, out, errOut io.Writer) *console {
	return &console{eng: eng, r: r, out: out, errOut: errOut}
}

func (c *console) prompt() string {
	if c.cursor == nil {
		return consolePrompt
	}
	return fmt.Sprintf("dark(%s)> ", *c.cursor)
}

// eval runs one line and reports whether the shell should exit.
func (c *console) eval(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ".") {
		return c.dotCommand(ctx, line)
	}

	name, rawArgs, _ := strings.Cut(line, " ")
	req := core.Request{Command: name, Cursor: c.cursor}

	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs == "" {
		rawArgs = "{}"
	}
	if err := json.Unmarshal([]byte(rawArgs), &req.Args); err != nil {
		c.printError(core.Wrap(core.KindMalformedArgs, err, "arguments must be a JSON object"))
		return false
	}

	view, err := c.eng.Execute(ctx, req)
	if err != nil {
		c.printError(err)
		return false
	}
	c.cursor = view.Cursor

	if err := renderView(c.r, view); err != nil {
		c.printError(err)
	}
	_, _ = fmt.Fprintln(c.out)
	return false
}

func (c *console) dotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printConsoleHelp(c.out)

	case ".show":
		if err := renderView(c.r, c.eng.View(derefCursor(c.cursor))); err != nil {
			c.printError(err)
		}

	case ".cursor":
		if len(parts) < 2 {
			c.cursor = nil
			return false
		}
		if _, err := c.eng.Node(parts[1]); err != nil {
			c.printError(err)
			return false
		}
		c.cursor = core.StringPtr(parts[1])

	case ".fields":
		if err := renderFieldTypes(c.r, c.eng.Fields()); err != nil {
			c.printError(err)
		}

	case ".snapshots":
		snaps, err := c.eng.Snapshots(ctx)
		if err != nil {
			c.printError(err)
			return false
		}
		if err := renderSnapshots(c.r, snaps); err != nil {
			c.printError(err)
		}

	default:
		_, _ = fmt.Fprintf(c.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func (c *console) printError(err error) {
	if kind := core.KindOf(err); kind != "" {
		_, _ = fmt.Fprintf(c.errOut, "Error [%s]: %v\n", kind, err)
		return
	}
	_, _ = fmt.Fprintf(c.errOut, "Error: %v\n", err)
}

func derefCursor(c *string) string {
	if c == nil {
		return ""
	}
	return *c
}

func printConsoleHelp(w io.Writer) {
	help := `
Commands:
  <command> [json]  Execute an editor command, e.g. add_function_call {"name":"f","x":0,"y":0}
  .show             Show the graph
  .cursor [name]    Set the cursor, or clear it with no name
  .fields           List field types
  .snapshots        List stored snapshots
  .help             Show this help message
  .quit / .exit     Exit the console

Editor commands: ` + strings.Join(command.Names(), ", ") + `
`
	_, _ = fmt.Fprintln(w, help)
}

// newCommandCompleter completes editor command names and dot-commands.
func newCommandCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, name := range command.Names() {
		items = append(items, readline.PcItem(name))
	}
	items = append(items,
		readline.PcItem(".show"),
		readline.PcItem(".cursor"),
		readline.PcItem(".fields"),
		readline.PcItem(".snapshots"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}
