package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/go-jupyter/jpyclient/client"
	"github.com/go-jupyter/jpyclient/command"
	"github.com/go-jupyter/jpyclient/response"
	"github.com/janpfeifer/must"
)

func fatalf(format string, args ...interface{}) {
	color.Red(format, args...)
	os.Exit(1)
}

func cmdInfo(ctx context.Context, c *client.Client, _ []string) {
	resp := must.M1(c.SendShell(ctx, command.KernelInfo{}))
	info, ok := resp.(response.KernelInfoResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}
	fmt.Printf("%s %s (protocol %s)\n", color.New(color.Bold).Sprint(info.Content.Implementation),
		info.Content.ImplementationVersion, info.Content.ProtocolVersion)
	fmt.Println(info.Content.Banner)
}

func cmdRun(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	code := fs.String("code", "", "Code to execute.")
	silent := fs.Bool("silent", false, "Do not broadcast execute_input/outputs.")
	storeHistory := fs.Bool("store_history", true, "Record this execution in the kernel's history.")
	must.M(fs.Parse(args))
	if *code == "" {
		fatalf("run: -code is required")
	}

	handle := must.M1(c.IOPubSubscribe(ctx))
	defer handle.Close()

	resp := must.M1(c.SendShell(ctx, command.Execute{
		Code:         *code,
		Silent:       *silent,
		StoreHistory: *storeHistory,
	}))
	exec, ok := resp.(response.ExecuteResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}

	drainIOPubUntilIdle(handle)

	if exec.Content.Status == response.StatusError {
		color.Red("%s: %s", exec.Content.Ename, exec.Content.Evalue)
		for _, line := range exec.Content.Traceback {
			fmt.Println(line)
		}
		os.Exit(1)
	}
	fmt.Printf("Out[%d]\n", exec.Content.ExecutionCount)
}

// drainIOPubUntilIdle prints stream, error and execute_result iopub
// traffic (from any execution: messages are not matched to a parent
// request) until the kernel reports status=idle, or until a short grace
// period elapses with nothing new arriving (a kernel is not required to
// report idle before the shell reply in every implementation).
func drainIOPubUntilIdle(handle *client.IOPubHandle) {
	const grace = 2 * time.Second
	for {
		select {
		case resp, ok := <-handle.C:
			if !ok {
				return
			}
			switch m := resp.(type) {
			case response.StreamResponse:
				if m.Content.Name == response.Stderr {
					color.New(color.FgRed).Print(m.Content.Text)
				} else {
					fmt.Print(m.Content.Text)
				}
			case response.ErrorResponse:
				color.Red("%s: %s", m.Content.Ename, m.Content.Evalue)
			case response.ExecuteResultResponse:
				fmt.Printf("%v\n", m.Content.Data)
			case response.StatusResponse:
				if m.Content.ExecutionState == response.Idle {
					return
				}
			}
		case <-time.After(grace):
			return
		}
	}
}

func cmdInspect(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	code := fs.String("code", "", "Code to inspect.")
	pos := fs.Int("pos", 0, "Cursor position within code.")
	full := fs.Bool("full", false, "Request the full (rather than brief) detail level.")
	must.M(fs.Parse(args))

	level := command.DetailBrief
	if *full {
		level = command.DetailFull
	}
	resp := must.M1(c.SendShell(ctx, command.Inspect{Code: *code, CursorPos: *pos, DetailLevel: level}))
	insp, ok := resp.(response.InspectResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}
	if !insp.Content.Found {
		fmt.Println("(nothing found at cursor)")
		return
	}
	for mime, data := range insp.Content.Data {
		fmt.Printf("[%s]\n%v\n", mime, data)
	}
}

// runSetup executes code so a subsequent query (completion, history,
// inspection) can see the interpreter state it builds up.
func runSetup(ctx context.Context, c *client.Client, code string) {
	resp := must.M1(c.SendShell(ctx, command.Execute{Code: code, StoreHistory: true}))
	if exec, ok := resp.(response.ExecuteResponse); ok && exec.Content.Status == response.StatusError {
		fatalf("setup code failed: %s: %s", exec.Content.Ename, exec.Content.Evalue)
	}
}

func cmdComplete(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	code := fs.String("code", "", "Code to complete.")
	pos := fs.Int("pos", 0, "Cursor position within code.")
	setup := fs.String("setup", "", "Code to execute first, so completions can see the names it defines.")
	must.M(fs.Parse(args))

	if *setup != "" {
		runSetup(ctx, c, *setup)
	}
	resp := must.M1(c.SendShell(ctx, command.Completion{Code: *code, CursorPos: *pos}))
	comp, ok := resp.(response.CompleteResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}
	for _, m := range comp.Content.Matches {
		fmt.Println(m)
	}
}

func cmdHistory(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int("n", 10, "Number of trailing history entries to fetch (tail access).")
	pattern := fs.String("pattern", "", "If set, search history by glob pattern instead of tailing.")
	output := fs.Bool("output", false, "Include outputs.")
	raw := fs.Bool("raw", false, "Fetch raw (unprocessed) input.")
	setup := fs.String("setup", "", "Code to execute first, so the history query has entries to return.")
	must.M(fs.Parse(args))

	if *setup != "" {
		runSetup(ctx, c, *setup)
	}
	var accessType command.HistoryAccessType = command.Tail{N: *n}
	if *pattern != "" {
		accessType = command.Search{Pattern: *pattern}
	}
	resp := must.M1(c.SendShell(ctx, command.History{
		Output: *output, Raw: *raw, AccessType: accessType,
	}))
	hist, ok := resp.(response.HistoryResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}
	for _, e := range hist.Content.History {
		if e.HasOutput {
			fmt.Printf("[%d.%d] %s => %s\n", e.Session, e.Line, e.Input, e.Output)
		} else {
			fmt.Printf("[%d.%d] %s\n", e.Session, e.Line, e.Input)
		}
	}
}

func cmdIsComplete(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("iscomplete", flag.ExitOnError)
	code := fs.String("code", "", "Code to check.")
	must.M(fs.Parse(args))

	resp := must.M1(c.SendShell(ctx, command.IsComplete{Code: *code}))
	ic, ok := resp.(response.IsCompleteResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}
	switch s := ic.Status.(type) {
	case response.Complete:
		color.Green("complete")
	case response.Invalid:
		color.Red("invalid")
	case response.IndeterminateCompleteness:
		fmt.Println("unknown")
	case response.Incomplete:
		fmt.Printf("incomplete, indent=%q\n", s.Indent)
	}
}

func cmdCommInfo(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("comminfo", flag.ExitOnError)
	target := fs.String("target", "", "If set, restrict to comms with this target_name.")
	must.M(fs.Parse(args))

	resp := must.M1(c.SendShell(ctx, command.CommInfo{TargetName: *target}))
	info, ok := resp.(response.CommInfoResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}
	for id, entry := range info.Content.Comms {
		fmt.Printf("%s: %s\n", id, entry.TargetName)
	}
}

func cmdShutdown(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("shutdown", flag.ExitOnError)
	restart := fs.Bool("restart", false, "Ask the kernel to restart rather than terminate.")
	must.M(fs.Parse(args))

	resp := must.M1(c.SendShell(ctx, command.Shutdown{Restart: *restart}))
	sd, ok := resp.(response.ShutdownResponse)
	if !ok {
		fatalf("unexpected response type %T", resp)
	}
	fmt.Printf("shutdown acknowledged, restart=%v\n", sd.Content.Restart)
}

func cmdWatch(ctx context.Context, c *client.Client, _ []string) {
	handle := must.M1(c.IOPubSubscribe(ctx))
	defer handle.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	for {
		select {
		case <-sigCh:
			return
		case resp, ok := <-handle.C:
			if !ok {
				return
			}
			fmt.Printf("[%s] %s\n", resp.Header().MsgType, summarize(resp))
		}
	}
}

func summarize(resp response.Response) string {
	switch m := resp.(type) {
	case response.StatusResponse:
		return string(m.Content.ExecutionState)
	case response.StreamResponse:
		return fmt.Sprintf("%s: %s", m.Content.Name, m.Content.Text)
	case response.ExecuteInputResponse:
		return m.Content.Code
	case response.ErrorResponse:
		return fmt.Sprintf("%s: %s", m.Content.Ename, m.Content.Evalue)
	case response.ExecuteResultResponse:
		return describeMIMEBundle(m.Content.Data)
	case response.DisplayDataResponse:
		return describeMIMEBundle(m.Content.Data)
	default:
		return ""
	}
}

func cmdHeartbeat(ctx context.Context, c *client.Client, args []string) {
	fs := flag.NewFlagSet("heartbeat", flag.ExitOnError)
	period := fs.Duration("period", time.Second, "Interval between heartbeats.")
	duration := fs.Duration("duration", 5*time.Second, "How long to keep pinging before exiting.")
	must.M(fs.Parse(args))

	handle := must.M1(c.Heartbeat(ctx, *period))
	defer handle.Close()

	deadline := time.After(*duration)
	for {
		select {
		case <-deadline:
			return
		case alive, ok := <-handle.Alive:
			if !ok {
				return
			}
			if alive {
				color.Green("alive")
			} else {
				color.Red("no response")
			}
		}
	}
}
