package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Pending(ctx context.Context) error
	Remove(ctx context.Context, args []string) error
	Analyze(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Copy(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Clear(ctx context.Context) error
	Export(ctx context.Context, args []string) error
	Quota(ctx context.Context) error
	Reload(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: register, login, add, pending, remove, analyze, (l)ist, show, copy, delete, clear, export, reload, status, exit"
	helpSignedIn  = "Available commands: add, pending, remove, analyze, (l)ist, show, copy, delete, clear, export, quota, reload, status, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop ends on EOF, on "exit"/"quit", or when ctx is done.
//
//	register [email]      create an account
//	login [email]         sign in
//	logout                sign out and forget local results
//	add <path...>         queue photos for evaluation
//	pending               show the queue
//	remove <id>           drop a queued photo
//	analyze [text]        evaluate the queue, text is passed along
//	list                  list results, newest first
//	show <id>             show one result
//	copy <id>             print the copy-ready description
//	delete <id>           delete one result
//	clear                 delete every result
//	export [path]         write the results as CSV
//	quota                 show this month's evaluations
//	reload                reload results
//	status                show connectivity and sync state
//
// Handler errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("wn (%s) > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			cmdErr = a.Register(ctx, args)

		case "login":
			cmdErr = a.Login(ctx, args)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "add":
			cmdErr = a.Add(ctx, args)

		case "pending":
			cmdErr = a.Pending(ctx)

		case "remove":
			cmdErr = a.Remove(ctx, args)

		case "analyze":
			cmdErr = a.Analyze(ctx, args)

		case "l", "list":
			cmdErr = a.List(ctx)

		case "show":
			cmdErr = a.Show(ctx, args)

		case "copy":
			cmdErr = a.Copy(ctx, args)

		case "delete":
			cmdErr = a.Delete(ctx, args)

		case "clear":
			cmdErr = a.Clear(ctx)

		case "export":
			cmdErr = a.Export(ctx, args)

		case "quota":
			cmdErr = a.Quota(ctx)

		case "reload":
			cmdErr = a.Reload(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
