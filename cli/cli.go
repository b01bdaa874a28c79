package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/akashmane1598/hyperdash/cli/cmd"
	"github.com/akashmane1598/hyperdash/pkg"
)

// CLI is the top-level command-line interface of hyperdash.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Source []string `help:"Input source file(s) or '-' for stdin."                      name:"source" short:"s" type:"existingfile"`
	Path   []string `help:"Directories searched for documents named without a path."    name:"path"   short:"I" type:"path"`
	Var    []string `help:"Assign a variable at the document root, as KEY=VALUE."      name:"var"    short:"D" placeholder:"KEY=VALUE"`

	Resolve cmd.Resolve `cmd:"" default:"withargs" help:"Resolve a document"`
	Eval    cmd.Eval    `cmd:""                    help:"Evaluate expressions against a document"`
	Parse   cmd.Parse   `cmd:""                    help:"Print the parse tree of expressions"`
	Fmt     cmd.Fmt     `cmd:""                    help:"Format a document"`
	Repl    cmd.Repl    `cmd:""                    help:"Start an interactive session"`
	Init    cmd.Init    `cmd:""                    help:"Initialize configuration file"`
}

// Run executes the hyperdash CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFilePath := configPath(configYAML)

	vars := kong.Vars{
		"version":            pkg.Version(),
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  cacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Logger flags are applied before kong parses, so they take effect
	// regardless of position.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configPath(configJSON)),
		kong.Configuration(resolveYAML, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithSourceFiles(ctx, cli.Source)
	ctx = cmd.WithSearchPath(ctx, cli.Path)

	ctx, err = cmd.WithVariables(ctx, cli.Var)
	if err != nil {
		return err
	}

	defer cli.Log.start(ctx)()

	// No-op unless built with tag pprof and a mode is selected.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}
