package charm

import (
	"errors"
	"flag"
	"io"
	"strings"
)

type instance struct {
	spec    *Spec
	command Command
	flags   *flag.FlagSet
}

type path []instance

func (p path) run(args []string) error {
	return p[len(p)-1].command.Run(args)
}

func (p path) last() instance {
	return p[len(p)-1]
}

// parse walks args down the command hierarchy rooted at spec, constructing
// each command along the way with its flags.  When leaf is true, an
// internal leaf that is not followed by a subcommand also gets its leaf
// flags; if a subcommand does follow, ErrNotLeaf is returned so the caller
// can retry without them.
func parse(spec *Spec, args []string, parent Command, leaf bool) (path, []string, bool, error) {
	flags := flag.NewFlagSet(spec.Name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	var showHidden bool
	flags.BoolVar(&showHidden, "hidden", false, "show hidden flags and commands")
	cmd, err := spec.New(parent, flags)
	if err != nil {
		return nil, nil, false, err
	}
	leafFlags := leaf && spec.InternalLeaf
	if leafFlags {
		if il, ok := cmd.(InternalLeaf); ok {
			il.SetLeafFlags(flags)
		}
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			err = NeedHelp
		}
		return path{{spec, cmd, flags}}, nil, showHidden, err
	}
	p := path{{spec, cmd, flags}}
	rest := flags.Args()
	if len(rest) > 0 {
		if child := spec.lookupSub(rest[0]); child != nil {
			if leafFlags {
				return nil, nil, false, ErrNotLeaf
			}
			sub, rest, hidden, err := parse(child, rest[1:], cmd, leaf)
			return append(p, sub...), rest, showHidden || hidden, err
		}
	}
	return p, rest, showHidden, nil
}

// parseHelp finds the command named by the non-flag arguments in args.
// Commands are constructed only so their flags can be displayed.
func parseHelp(spec *Spec, args []string) (path, error) {
	var p path
	var parent Command
	for {
		flags := flag.NewFlagSet(spec.Name, flag.ContinueOnError)
		flags.SetOutput(io.Discard)
		cmd, err := spec.New(parent, flags)
		if err != nil {
			return nil, err
		}
		if il, ok := cmd.(InternalLeaf); ok && spec.InternalLeaf {
			il.SetLeafFlags(flags)
		}
		p = append(p, instance{spec, cmd, flags})
		var child *Spec
		for len(args) > 0 {
			arg := args[0]
			args = args[1:]
			if strings.HasPrefix(arg, "-") {
				continue
			}
			if child = spec.lookupSub(arg); child != nil {
				break
			}
		}
		if child == nil {
			return p, nil
		}
		spec, parent = child, cmd
	}
}
