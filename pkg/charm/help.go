package charm

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
)

func writeHelp(w io.Writer, p path, showHidden bool) {
	inst := p.last()
	spec := inst.spec
	var names []string
	for _, i := range p {
		names = append(names, i.spec.Name)
	}
	fmt.Fprintf(w, "NAME\n    %s - %s\n\n", strings.Join(names, " "), spec.Short)
	fmt.Fprintf(w, "USAGE\n    %s\n", spec.Usage)
	if opts := options(inst, showHidden); len(opts) > 0 {
		fmt.Fprintln(w, "\nOPTIONS")
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		for _, opt := range opts {
			fmt.Fprintf(tw, "    %s\n", opt)
		}
		tw.Flush()
	}
	var children []*Spec
	for _, child := range spec.children {
		if !child.Hidden || showHidden {
			children = append(children, child)
		}
	}
	if len(children) > 0 {
		fmt.Fprintln(w, "\nCOMMANDS")
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		for _, child := range children {
			fmt.Fprintf(tw, "    %s\t%s\n", child.Name, child.Short)
		}
		tw.Flush()
	}
	if long := strings.TrimSpace(spec.Long); long != "" {
		fmt.Fprintf(w, "\nDESCRIPTION\n")
		for _, line := range strings.Split(long, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

func options(inst instance, showHidden bool) []string {
	hidden := flagSet(inst.spec.HiddenFlags)
	hidden["hidden"] = true
	redacted := flagSet(inst.spec.RedactedFlags)
	var out []string
	inst.flags.VisitAll(func(f *flag.Flag) {
		if hidden[f.Name] && !showHidden {
			return
		}
		name, usage := flag.UnquoteUsage(f)
		line := "-" + f.Name
		if name != "" {
			line += " " + name
		}
		line += "\t" + usage
		if !redacted[f.Name] && f.DefValue != "" && f.DefValue != "false" {
			line += fmt.Sprintf(" (default %q)", f.DefValue)
		}
		out = append(out, line)
	})
	slices.Sort(out)
	return out
}

func flagSet(s string) map[string]bool {
	m := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			m[name] = true
		}
	}
	return m
}
