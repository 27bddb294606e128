package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-interface-types/adapter"
	"github.com/wippyai/wasm-interface-types/engine"
	"github.com/wippyai/wasm-interface-types/interpreter"
	"github.com/wippyai/wasm-interface-types/itypes"
)

type options struct {
	manifest    string
	wasm        string
	memoryLimit uint32
	verbose     bool
}

func (o *options) flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("", pflag.ContinueOnError)
	fs.StringVarP(&o.manifest, "manifest", "m", "", "path to the adapter manifest (YAML)")
	fs.StringVarP(&o.wasm, "wasm", "w", "", "path to the core wasm module")
	fs.Uint32Var(&o.memoryLimit, "memory-limit", 0, "maximum memory in 64KB pages, overrides the manifest")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log instructions and calls to stderr")
	return fs
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "itrun",
		Short:         "Run interface adapters against a core wasm module",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			engine.SetLogger(l)
			interpreter.SetLogger(l)
			return nil
		},
	}
	root.PersistentFlags().AddFlagSet(opts.flags())
	root.AddCommand(newRunCmd(opts, out), newListCmd(opts, out))
	return root
}

func newRunCmd(opts *options, out io.Writer) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "run <adapter> [args...]",
		Short: "Run an adapter and print the resulting stack",
		Long: `Run an adapter and print the resulting stack.

  Arguments are parsed against the adapter inputs: strings verbatim,
  everything else as YAML (arrays as sequences, records as mappings).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if interactive {
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					return fmt.Errorf("interactive mode needs a terminal")
				}
				return runInteractive(ctx, opts, args[0], args[1:])
			}
			return runAdapter(ctx, opts, out, args[0], args[1:])
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "step through the adapter in a TUI")
	return cmd
}

func newListCmd(opts *options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manifest adapters and, with --wasm, module exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := adapter.LoadFile(opts.manifest)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Adapters: %d\n", len(m.Adapters()))
			for _, name := range m.Adapters() {
				a, _ := m.Adapter(name)
				fmt.Fprintf(out, "  %s\n", signature(m, a))
			}
			if opts.wasm == "" {
				return nil
			}
			ctx := context.Background()
			inst, err := instantiate(ctx, opts, m)
			if err != nil {
				return err
			}
			defer inst.Close(ctx)
			exports := inst.Exports()
			fmt.Fprintf(out, "Exports: %d\n", len(exports))
			for _, name := range exports {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}

func instantiate(ctx context.Context, opts *options, m *adapter.Manifest) (*engine.Instance, error) {
	if opts.wasm == "" {
		return nil, fmt.Errorf("--wasm is required")
	}
	data, err := os.ReadFile(opts.wasm)
	if err != nil {
		return nil, fmt.Errorf("read wasm: %w", err)
	}
	cfg := m.Config()
	if opts.memoryLimit > 0 {
		cfg.MemoryLimitPages = opts.memoryLimit
	}
	return engine.Instantiate(ctx, data, m.Registry(), cfg)
}

func runAdapter(ctx context.Context, opts *options, out io.Writer, name string, args []string) error {
	m, err := adapter.LoadFile(opts.manifest)
	if err != nil {
		return err
	}
	a, ok := m.Adapter(name)
	if !ok {
		return fmt.Errorf("unknown adapter %q", name)
	}
	inputs, err := m.ParseArgs(a, args)
	if err != nil {
		return err
	}
	inst, err := instantiate(ctx, opts, m)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	stack, err := a.Interpreter().Run(ctx, inputs, inst)
	if err != nil {
		return err
	}
	for _, v := range stack.Values() {
		fmt.Fprintln(out, v.String())
	}
	return nil
}

// signature renders an adapter as name(input: type, ...) -> (type, ...)
// using WIT type names.
func signature(m *adapter.Manifest, a *adapter.Adapter) string {
	params := make([]string, len(a.Inputs))
	for i, in := range a.Inputs {
		params[i] = in.Name + ": " + witName(m, in.Type)
	}
	results := make([]string, len(a.Outputs))
	for i, t := range a.Outputs {
		results[i] = witName(m, t)
	}
	s := a.Name + "(" + strings.Join(params, ", ") + ")"
	switch len(results) {
	case 0:
	case 1:
		s += " -> " + results[0]
	default:
		s += " -> (" + strings.Join(results, ", ") + ")"
	}
	return s
}

func witName(m *adapter.Manifest, t itypes.IType) string {
	wt, err := itypes.ToWIT(t, m.Registry())
	if err != nil {
		return t.String()
	}
	return itypes.WITName(wt)
}
