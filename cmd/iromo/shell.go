package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/collection"
	"github.com/iromo/iromo/internal/config"
	"github.com/iromo/iromo/internal/outline"
	"github.com/iromo/iromo/internal/topic"
	"github.com/iromo/iromo/internal/undo"
)

func init() {
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session with undo and redo",
	Long: `Start an interactive session on the collection. Changes made in the
session can be undone and redone; the history is discarded when the session
ends or another collection is opened.

Type 'help' inside the shell for commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	root := mustResolveCollection()

	m := collection.NewManager(collectionOptions())
	r := newREPL(m, os.Stdout)
	if err := r.open(root); err != nil {
		exitWithErr(err, "opening collection %s", root)
	}
	defer m.Close()

	if err := r.Run(); err != nil {
		m.Close()
		exitWithErr(err, "shell")
	}
	return nil
}

// errQuit ends the session.
var errQuit = errors.New("quit")

// REPL is the interactive command loop.
type REPL struct {
	manager *collection.Manager
	out     io.Writer
	liner   *liner.State
	cancel  func()
}

func newREPL(m *collection.Manager, out io.Writer) *REPL {
	return &REPL{manager: m, out: out}
}

// historyFile returns the path to the line history file.
func historyFile() string {
	path := config.GlobalConfigPath()
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "shell_history")
}

// Run starts the REPL loop. It returns nil on exit and an error only when
// the session cannot continue.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}
	defer r.saveHistory()

	fmt.Fprintf(r.out, "iromo shell on %s\n", r.manager.Active().Root)
	fmt.Fprintln(r.out, "Type 'help' for available commands.")

	for {
		line, err := r.liner.Prompt("iromo> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(r.out, "\nBye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		err = r.execute(line)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			fmt.Fprintln(r.out, "Bye!")
			return nil
		case errors.Is(err, undo.ErrFatalInconsistency):
			return err
		default:
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

// saveHistory persists line history to disk.
func (r *REPL) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f)
		f.Close()
	}
}

// open makes root the active collection and reports history changes.
func (r *REPL) open(root string) error {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	c, err := r.manager.Open(root)
	if err != nil {
		return err
	}
	r.cancel = c.History.Subscribe(r.report)
	if err := config.RememberCollection(root); err != nil {
		logger.Warn("remembering collection", zap.String("root", root), zap.Error(err))
	}
	return nil
}

// report prints undo and redo outcomes as the history changes.
func (r *REPL) report(ev undo.Event) {
	switch ev.Kind {
	case undo.Executed:
		fmt.Fprintf(r.out, "Done: %s\n", ev.Description)
	case undo.Undone:
		fmt.Fprintf(r.out, "Undone: %s\n", ev.Description)
	case undo.Redone:
		fmt.Fprintf(r.out, "Redone: %s\n", ev.Description)
	case undo.Diverged:
		fmt.Fprintf(r.out, "Could not reverse '%s'; history dropped. Run 'check'.\n", ev.Description)
	}
}

// execute runs one shell line.
func (r *REPL) execute(line string) error {
	parts := strings.Fields(line)
	name := strings.ToLower(parts[0])
	args := parts[1:]

	switch name {
	case "exit", "quit", "q":
		return errQuit

	case "help", "?":
		r.printHelp()
		return nil

	case "open":
		if len(args) != 1 {
			return usage("open <dir>")
		}
		root, err := filepath.Abs(config.ExpandPath(args[0]))
		if err != nil {
			return err
		}
		if err := r.open(root); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Opened %s\n", root)
		return nil
	}

	c := r.manager.Active()
	if c == nil {
		return errors.New("no collection open (use 'open <dir>')")
	}

	switch name {
	case "tree", "ls":
		entries, err := c.Engine.Hierarchy()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(r.out, "No topics")
			return nil
		}
		return outline.WriteText(r.out, entries, outline.TextOptions{ShowIDs: true})

	case "show", "cat":
		if len(args) != 1 {
			return usage("show <topic-id>")
		}
		resp, err := showTopic(c, args[0])
		if err != nil {
			return err
		}
		printShowHuman(r.out, resp)
		return nil

	case "new":
		if len(args) == 0 {
			return usage("new <text...>")
		}
		return r.created(createTopic(c, "", "", strings.Join(args, " ")))

	case "add":
		if len(args) < 2 {
			return usage("add <parent-id> <text...>")
		}
		return r.created(createTopic(c, args[0], "", strings.Join(args[1:], " ")))

	case "rename":
		if len(args) < 2 {
			return usage("rename <topic-id> <title...>")
		}
		return renameTopic(c, args[0], strings.Join(args[1:], " "))

	case "extract", "x":
		if len(args) != 3 {
			return usage("extract <topic-id> <start> <end>")
		}
		start, err := parseOffset("start", args[1])
		if err != nil {
			return err
		}
		end, err := parseOffset("end", args[2])
		if err != nil {
			return err
		}
		_, child, err := extractSpan(c, args[0], start, end)
		return r.created(child, err)

	case "move", "mv":
		if len(args) < 2 || len(args) > 3 {
			return usage("move <topic-id> <parent-id|-> [position]")
		}
		position := -1
		if len(args) == 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("position must be an integer, got %q", args[2])
			}
			position = n
		}
		_, err := moveTopic(c, args[0], parseParent(args[1]), position)
		return err

	case "delete", "rm":
		if len(args) == 0 {
			return usage("delete <topic-id>...")
		}
		_, err := deleteTopics(c, args...)
		return err

	case "unlink":
		if len(args) != 1 {
			return usage("unlink <extraction-id>")
		}
		return unlinkExtraction(c, args[0])

	case "undo", "u":
		if !c.History.CanUndo() {
			fmt.Fprintln(r.out, "Nothing to undo")
			return nil
		}
		return c.History.Undo()

	case "redo", "r":
		if !c.History.CanRedo() {
			fmt.Fprintln(r.out, "Nothing to redo")
			return nil
		}
		return c.History.Redo()

	case "history", "h":
		r.printHistory(c.History)
		return nil

	case "check":
		report, err := c.Engine.Check()
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%d topics, %d extractions, %d missing, %d orphan, %d misplaced, %d stale\n",
			report.Topics, report.Extractions, len(report.MissingBlobs), len(report.OrphanBlobs),
			len(report.MisplacedExtractions), len(report.StaleExtractions))
		return nil
	}

	return fmt.Errorf("unknown command: %s (type 'help' for commands)", name)
}

// created prints the id of a topic the last command created.
func (r *REPL) created(t *topic.Topic, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "  id: %s\n", t.ID)
	return nil
}

func (r *REPL) printHistory(h *undo.History) {
	undoStack, redoStack := h.UndoStack(), h.RedoStack()
	if len(undoStack) == 0 && len(redoStack) == 0 {
		fmt.Fprintln(r.out, "History is empty")
		return
	}
	for i := len(redoStack) - 1; i >= 0; i-- {
		fmt.Fprintf(r.out, "  (redo) %s\n", redoStack[i])
	}
	for i, d := range undoStack {
		marker := "       "
		if i == 0 {
			marker = "  ->   "
		}
		fmt.Fprintf(r.out, "%s%s\n", marker, d)
	}
}

// completer provides tab completion for commands.
func (r *REPL) completer(line string) []string {
	commands := []string{
		"open", "tree", "ls", "show", "cat",
		"new", "add", "rename", "extract",
		"move", "mv", "delete", "rm", "unlink",
		"undo", "redo", "history", "check",
		"help", "exit", "quit",
	}

	var completions []string
	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}
	return completions
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  tree                               Show the hierarchy with IDs")
	fmt.Fprintln(r.out, "  show <id>                          Show a topic and its extractions")
	fmt.Fprintln(r.out, "  new <text...>                      Create a root topic")
	fmt.Fprintln(r.out, "  add <parent-id> <text...>          Create a child topic")
	fmt.Fprintln(r.out, "  rename <id> <title...>             Change a title")
	fmt.Fprintln(r.out, "  extract <id> <start> <end>         Extract characters [start, end)")
	fmt.Fprintln(r.out, "  move <id> <parent-id|-> [pos]      Move a topic")
	fmt.Fprintln(r.out, "  delete <id>...                     Delete topics with their subtrees")
	fmt.Fprintln(r.out, "  unlink <extraction-id>             Remove an extraction record")
	fmt.Fprintln(r.out, "  undo / redo                        Step through the session history")
	fmt.Fprintln(r.out, "  history                            List undoable and redoable changes")
	fmt.Fprintln(r.out, "  check                              Check index and text files")
	fmt.Fprintln(r.out, "  open <dir>                         Switch collection (drops history)")
	fmt.Fprintln(r.out, "  help                               Show this help")
	fmt.Fprintln(r.out, "  exit / quit / q                    Exit")
}

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}
