// Command jpyclient is a thin command-line front end over the jpyclient
// library: it connects to a running Jupyter kernel using a connection
// description file and issues one shell command or one iopub/heartbeat
// observation per invocation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/go-jupyter/jpyclient/client"
	"github.com/go-jupyter/jpyclient/internal/util"
	"github.com/go-jupyter/jpyclient/version"
	"k8s.io/klog/v2"
)

var (
	flagConnection = flag.String("connection", "",
		"Path to the Jupyter connection description file written by the kernel.")
	flagVersion = flag.Bool("version", false, "Print version information and exit.")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: jpyclient -connection <file> <subcommand> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	for _, c := range subcommands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", c.name, c.help)
	}
	flag.PrintDefaults()
}

type subcommand struct {
	name string
	help string
	run  func(ctx context.Context, c *client.Client, args []string)
}

var subcommands = []subcommand{
	{"info", "fetch kernel_info and print implementation details", cmdInfo},
	{"run", "execute a snippet of code", cmdRun},
	{"inspect", "inspect the object under the cursor", cmdInspect},
	{"complete", "list completions at the cursor", cmdComplete},
	{"history", "query session history", cmdHistory},
	{"iscomplete", "check whether code is ready to execute", cmdIsComplete},
	{"comminfo", "list open comms", cmdCommInfo},
	{"shutdown", "ask the kernel to shut down", cmdShutdown},
	{"watch", "print iopub broadcast traffic until interrupted", cmdWatch},
	{"heartbeat", "ping the kernel and report round-trip results", cmdHeartbeat},
}

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()
	flag.Usage = usage
	flag.Parse()

	if *flagVersion {
		version.AppVersion.Print()
		return
	}

	if *flagConnection == "" {
		color.Red("missing -connection flag")
		usage()
		os.Exit(1)
	}
	args := flag.Args()
	if len(args) == 0 {
		color.Red("missing subcommand")
		usage()
		os.Exit(1)
	}

	var cmd *subcommand
	for i := range subcommands {
		if subcommands[i].name == args[0] {
			cmd = &subcommands[i]
			break
		}
	}
	if cmd == nil {
		color.Red("unknown subcommand %q", args[0])
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	c, err := client.FromConnectionFile(ctx, *flagConnection)
	if err != nil {
		color.Red("failed to connect: %+v", err)
		os.Exit(1)
	}
	defer func() { util.ReportError(c.Close()) }()

	cmd.run(ctx, c, args[1:])
}
