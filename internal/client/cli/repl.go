package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Capture(ctx context.Context, args []string) error
	Groups(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	RetryFailed(ctx context.Context) error
	Cancel(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the Dayly CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands:
//
//	capture <group> <file>  - send today's photo to a group
//	groups                  - list groups
//	list <group>            - list visible content in a group
//	sync                    - run a synchronization pass now
//	retry                   - requeue all failed uploads
//	cancel <item>           - cancel a queued or in-flight upload
//	status                  - show queue and store state
//	exit | quit             - leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("dayly> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: capture, groups, (l)ist, sync, retry, cancel, status, exit")

		case "capture":
			_ = a.Capture(ctx, args)

		case "groups":
			_ = a.Groups(ctx)

		case "l", "list":
			_ = a.List(ctx, args)

		case "sync":
			_ = a.Sync(ctx)

		case "retry":
			_ = a.RetryFailed(ctx)

		case "cancel":
			_ = a.Cancel(ctx, args)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
