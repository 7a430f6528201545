// Command minigrad trains small classifiers with the minigrad autodiff engine and checks its
// gradients numerically.
//
// Usage:
//
//	minigrad train [flags]      train a model on a synthetic dataset
//	minigrad gradcheck [flags]  compare back-propagated and numerical gradients
//	minigrad version            print the version
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

const version = "v0.1.0"

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"train", "train a model on a synthetic dataset", runTrain},
	{"gradcheck", "compare back-propagated and numerical gradients of a model", runGradCheck},
	{"version", "print the version", runVersion},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name := os.Args[1]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		err := cmd.run(os.Args[2:])
		klog.Flush()
		if err != nil {
			klog.Errorf("%s: %+v", name, err)
			os.Exit(1)
		}
		return
	}
	if name == "-h" || name == "-help" || name == "--help" || name == "help" {
		usage()
		return
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "minigrad %s\n\nCommands:\n", version)
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'minigrad <command> -help' for the flags of a command.\n")
}

// newFlagSet creates the flag set of a subcommand, with the klog flags registered.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	klog.InitFlags(fs)
	return fs
}

func runVersion(args []string) error {
	fs := newFlagSet("version")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Printf("minigrad %s\n", version)
	return nil
}
