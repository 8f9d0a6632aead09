package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Iron-Ham/postoffice/internal/loader"
	"github.com/Iron-Ham/postoffice/internal/mailbox"
	"github.com/Iron-Ham/postoffice/internal/util"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var loadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load a module and list its symbols",
	Long: `Load a module unit (YAML, JSON or TOML), execute its definitions and
init statements, and list the names it defines.

Optionally call one of its function symbols:
  postoffice load mail.yaml --call send_mail --arg address=ops@example.com --arg message=hi

Argument values are parsed as YAML scalars or flow collections, so
--arg parts=[a,b] passes a list and --arg count=3 passes an integer.
Values that would not survive the round trip, such as 007 or
"build #42 failed", are passed as the raw string. Quote a value to
force a string: --arg code="'42'".

With --watch the module is reloaded every time the file changes until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().String("call", "", "function symbol to call after loading")
	loadCmd.Flags().StringArray("arg", nil, "call argument as key=value (repeatable)")
	loadCmd.Flags().Bool("watch", false, "reload the module whenever the file changes")
}

func runLoad(cmd *cobra.Command, args []string) error {
	callName, _ := cmd.Flags().GetString("call")
	rawArgs, _ := cmd.Flags().GetStringArray("arg")
	watch, _ := cmd.Flags().GetBool("watch")

	callArgs, err := parseCallArgs(rawArgs)
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	out := cmd.OutOrStdout()
	p := paletteFor(out)

	if watch {
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return rt.loader.Watch(ctx, args[0], func(mod *loader.Module, err error) {
			if err != nil {
				rt.logFailure("module load failed", err, "path", args[0])
				fmt.Fprintln(out, p.err.Render("error: ")+err.Error())
				return
			}
			printModule(out, p, mod)
			if callName != "" {
				if err := callSymbol(out, p, mod, callName, callArgs); err != nil {
					rt.logFailure("call failed", err, "symbol", callName)
					fmt.Fprintln(out, p.err.Render("error: ")+err.Error())
				}
			}
		})
	}

	mod, err := rt.loader.Load(args[0])
	if err != nil {
		rt.logFailure("module load failed", err, "path", args[0])
		return err
	}
	printModule(out, p, mod)

	if callName == "" {
		return nil
	}
	if err := callSymbol(out, p, mod, callName, callArgs); err != nil {
		rt.logFailure("call failed", err, "symbol", callName)
		return err
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseCallArgs turns key=value flags into a call argument map.
func parseCallArgs(raw []string) (map[string]any, error) {
	args := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: expected key=value", kv)
		}
		args[key] = parseArgValue(value)
	}
	return args, nil
}

// parseArgValue decodes value as YAML when doing so keeps it intact.
// Collections need explicit flow brackets so that "disk: full" and
// "- buy milk" stay strings. A plain scalar is decoded only when it
// encodes back to the same text, which keeps "007", "1.50" and
// "build #42 failed" as written. Quoted scalars yield their contents.
func parseArgValue(value string) any {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil || v == nil {
			return value
		}
		return v
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err != nil || len(doc.Content) != 1 {
		return value
	}
	node := doc.Content[0]
	if node.Kind != yaml.ScalarNode || hasComment(&doc) || hasComment(node) {
		return value
	}
	if node.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) != 0 {
		return node.Value
	}

	var v any
	if err := node.Decode(&v); err != nil || v == nil {
		return value
	}
	encoded, err := yaml.Marshal(v)
	if err != nil || strings.TrimSuffix(string(encoded), "\n") != value {
		return value
	}
	return v
}

func hasComment(n *yaml.Node) bool {
	return n.HeadComment != "" || n.LineComment != "" || n.FootComment != ""
}

func printModule(w io.Writer, p palette, mod *loader.Module) {
	fmt.Fprintf(w, "%s %s\n", p.title.Render("module "+mod.Name()), p.detail.Render("("+mod.Path()+")"))
	if mod.Len() == 0 {
		fmt.Fprintln(w, p.detail.Render("  (no symbols)"))
		return
	}
	width := detailWidth(w)
	for _, name := range mod.Names() {
		sym, err := mod.Lookup(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s %s %s\n", p.name.Render(name), p.kind.Render(sym.Kind.String()), p.detail.Render(describe(sym, width)))
	}
}

func describe(sym loader.Symbol, width int) string {
	if sym.Kind == loader.KindFunc {
		if len(sym.Defaults) == 0 {
			return sym.Capability
		}
		return sym.Capability + " " + util.Summarize(sym.Defaults, width)
	}
	return util.Summarize(sym.Value, width)
}

func callSymbol(w io.Writer, p palette, mod *loader.Module, name string, args map[string]any) error {
	result, err := mod.Call(name, args)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	if mb, ok := result.(*mailbox.Mailbox[string, any]); ok {
		fmt.Fprintf(w, "%s mailbox with %d entries\n", p.ok.Render("result:"), mb.Len())
		for k, v := range mb.All() {
			fmt.Fprintf(w, "  %s = %v\n", p.name.Render(k), v)
		}
		return nil
	}
	fmt.Fprintf(w, "%s %v\n", p.ok.Render("result:"), result)
	return nil
}
