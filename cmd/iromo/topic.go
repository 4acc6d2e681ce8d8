package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iromo/iromo/internal/clipboard"
)

var (
	newParent        string
	newTitle         string
	newFile          string
	newFromClipboard bool

	editFile string

	movePosition int
)

func init() {
	newCmd.Flags().StringVarP(&newParent, "parent", "p", "", "Parent topic ID (default: root level)")
	newCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Title (default: derived from the text)")
	newCmd.Flags().StringVarP(&newFile, "file", "f", "", "Read text from file ('-' for stdin)")
	newCmd.Flags().BoolVar(&newFromClipboard, "from-clipboard", false, "Read text from the system clipboard")
	rootCmd.AddCommand(newCmd)

	rootCmd.AddCommand(renameCmd)

	editCmd.Flags().StringVarP(&editFile, "file", "f", "-", "Read new text from file ('-' for stdin)")
	rootCmd.AddCommand(editCmd)

	moveCmd.Flags().IntVar(&movePosition, "position", -1, "Index among the new siblings (default: last)")
	rootCmd.AddCommand(moveCmd)

	rootCmd.AddCommand(deleteCmd)
}

var newCmd = &cobra.Command{
	Use:   "new [text...]",
	Short: "Create a topic",
	Long: `Create a topic from the arguments, a file, stdin or the clipboard.

Examples:
  iromo new "Some note worth reading later"
  iromo new --parent 0190f3c2-... --file chapter1.txt
  iromo new --from-clipboard --title "Pasted"`,
	RunE: runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	sources := 0
	if len(args) > 0 {
		sources++
	}
	if newFile != "" {
		sources++
	}
	if newFromClipboard {
		sources++
	}
	if sources > 1 {
		exitWithError(ExitError, "text arguments, --file and --from-clipboard are mutually exclusive")
	}

	var text string
	var err error
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case newFromClipboard:
		text, err = clipboard.Paste()
	default:
		text, err = readText(newFile)
	}
	if err != nil {
		exitWithErr(err, "reading text")
	}

	c := mustOpenCollection()
	defer c.Close()

	t, err := createTopic(c, parseParent(newParent), newTitle, text)
	if err != nil {
		exitWithErr(err, "creating topic")
	}

	if humanOutput {
		outputHuman("Created topic: %s\n  Title: %s\n", t.ID, t.Title)
	} else {
		outputJSON(TopicResponse{Topic: *t, Content: text})
	}
	return nil
}

var renameCmd = &cobra.Command{
	Use:   "rename <topic-id> <title...>",
	Short: "Change a topic's title",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	title := strings.Join(args[1:], " ")
	if err := renameTopic(c, args[0], title); err != nil {
		exitWithErr(err, "renaming topic")
	}

	if humanOutput {
		outputHuman("Renamed %s to %q\n", args[0], title)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: "title", Value: title})
	}
	return nil
}

var editCmd = &cobra.Command{
	Use:   "edit <topic-id>",
	Short: "Replace a topic's text",
	Long: `Replace a topic's text with the content of a file or stdin.

Extractions already recorded against the topic keep their offsets; any that
no longer fit the new text are reported as stale by 'show'.

Examples:
  iromo edit 0190f3c2-... --file revised.txt
  pbpaste | iromo edit 0190f3c2-...`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	text, err := readText(editFile)
	if err != nil {
		exitWithErr(err, "reading text")
	}

	c := mustOpenCollection()
	defer c.Close()

	if err := saveContent(c, args[0], text); err != nil {
		exitWithErr(err, "saving content")
	}

	if humanOutput {
		outputHuman("Saved %s (%d characters)\n", args[0], len([]rune(text)))
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: "content", Value: args[0]})
	}
	return nil
}

var moveCmd = &cobra.Command{
	Use:   "move <topic-id> <new-parent-id|->",
	Short: "Move a topic under another parent",
	Long: `Move a topic and its subtree under a new parent. Use '-' for the root level.

Moving a topic away from the topic it was extracted from removes that
extraction record.

Examples:
  iromo move 0190f3c2-... 0190f3d0-...
  iromo move 0190f3c2-... - --position 0`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	resp, err := moveTopic(c, args[0], parseParent(args[1]), movePosition)
	if err != nil {
		exitWithErr(err, "moving topic")
	}

	if humanOutput {
		outputHuman("Moved %s under %s at position %d\n", resp.ID, formatPlacement(resp.ParentID), resp.Position)
		if resp.Detached != nil {
			outputHuman("  Removed extraction %s\n", resp.Detached.ID)
		}
	} else {
		outputJSON(resp)
	}
	return nil
}

var deleteCmd = &cobra.Command{
	Use:   "delete <topic-id>...",
	Short: "Delete topics with their subtrees",
	Long: `Delete one or more topics, their whole subtrees, every extraction touching
them, and their text files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	resp, err := deleteTopics(c, args...)
	if err != nil {
		exitWithErr(err, "deleting topics")
	}

	if humanOutput {
		outputHuman("%s (%s removed)\n", resp.Description, pluralize(len(resp.Deleted), "topic"))
	} else {
		outputJSON(resp)
	}
	return nil
}

// pluralize formats a count with a noun.
func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
