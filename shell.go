package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"book-exchange/exchange"

	"github.com/spf13/cobra"
)

func (c *cli) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session that keeps the publish form and inbox between commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh := newShell(c, cmd.InOrStdin(), cmd.OutOrStdout())
			defer sh.close()
			return sh.run(cmd.Context())
		},
	}
}

// shell is the interactive front end. The publish form and the profile view
// live as long as the shell; the profile is rebuilt whenever the
// authentication state changes.
type shell struct {
	cli     *cli
	in      io.Reader
	sc      *bufio.Scanner
	out     io.Writer
	pub     *exchange.Publisher
	profile *exchange.Profile

	authenticated bool
	unsubscribe   func()
}

func newShell(c *cli, in io.Reader, out io.Writer) *shell {
	sh := &shell{
		cli:           c,
		in:            in,
		sc:            bufio.NewScanner(in),
		out:           out,
		pub:           exchange.NewPublisher(c.app.client, c.app.sessions, ""),
		authenticated: c.app.sessions.Authenticated(),
	}
	sh.profile = exchange.NewProfile(c.app.client, c.app.sessions, c.app.inbox)
	sh.unsubscribe = c.app.notifier.Subscribe(sh.onAuthChanged)
	return sh
}

func (sh *shell) close() { sh.unsubscribe() }

func (sh *shell) onAuthChanged() {
	now := sh.cli.app.sessions.Authenticated()
	if now != sh.authenticated {
		if now {
			fmt.Fprintln(sh.out, "[signed in]")
		} else {
			fmt.Fprintln(sh.out, "[signed out]")
		}
	}
	sh.authenticated = now
	sh.profile = exchange.NewProfile(sh.cli.app.client, sh.cli.app.sessions, sh.cli.app.inbox)
}

func (sh *shell) prompt() string {
	if sh.authenticated {
		return "\nbookx> "
	}
	return "\nbookx (guest)> "
}

func (sh *shell) run(ctx context.Context) error {
	fmt.Fprintln(sh.out, "Welcome to the book exchange!")
	fmt.Fprintln(sh.out, "Available commands:")
	fmt.Fprintln(sh.out, "  Account: register, login, logout, status")
	fmt.Fprintln(sh.out, "  Publish: titles, search, select, condition, publish, clear")
	fmt.Fprintln(sh.out, "  Profile: profile, requests, accept, reject")
	fmt.Fprintln(sh.out, "  System: help, exit")

	for {
		fmt.Fprint(sh.out, sh.prompt())
		if !sh.sc.Scan() {
			return sh.sc.Err()
		}
		cmd := strings.TrimSpace(sh.sc.Text())

		switch cmd {
		case "":
		case "register":
			sh.handleRegister(ctx)
		case "login":
			sh.handleLogin(ctx)
		case "logout":
			sh.handleLogout()
		case "status":
			printStatus(sh.out, sh.cli.app.sessions)
		case "titles":
			sh.handleTitles(ctx)
		case "search":
			sh.handleSearch()
		case "select":
			sh.handleSelect()
		case "condition":
			sh.handleCondition()
		case "publish":
			sh.handlePublish(ctx)
		case "clear":
			sh.pub.Reset()
			fmt.Fprintln(sh.out, "Form cleared.")
		case "profile":
			sh.handleProfile(ctx)
		case "requests":
			printRequests(sh.out, sh.profile.Requests().List())
		case "accept":
			sh.handleRequest(true)
		case "reject":
			sh.handleRequest(false)
		case "help":
			fmt.Fprintln(sh.out, "register, login, logout, status, titles, search, select, condition, publish, clear, profile, requests, accept, reject, exit")
		case "exit", "quit":
			fmt.Fprintln(sh.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(sh.out, "Unknown command. Type 'help' to list the available commands.")
		}
	}
}

func (sh *shell) handleRegister(ctx context.Context) {
	var form exchange.RegistrationForm
	var ok bool
	if form.Name, ok = readLine(sh.sc, sh.out, "Name: "); !ok {
		return
	}
	if form.Address, ok = readLine(sh.sc, sh.out, "Address: "); !ok {
		return
	}
	if form.Email, ok = readLine(sh.sc, sh.out, "Email: "); !ok {
		return
	}
	var err error
	if form.Password, err = readPassword(sh.in, sh.sc, sh.out, "Password: "); err != nil {
		fmt.Fprintf(sh.out, "Error reading password: %v\n", err)
		return
	}
	if form.Confirm, err = readPassword(sh.in, sh.sc, sh.out, "Confirm password: "); err != nil {
		fmt.Fprintf(sh.out, "Error reading password: %v\n", err)
		return
	}

	err = sh.cli.app.accounts.Register(ctx, form)
	fmt.Fprintln(sh.out, exchange.RegisterMessage(err))
}

func (sh *shell) handleLogin(ctx context.Context) {
	email, ok := readLine(sh.sc, sh.out, "Email: ")
	if !ok {
		return
	}
	password, err := readPassword(sh.in, sh.sc, sh.out, "Password: ")
	if err != nil {
		fmt.Fprintf(sh.out, "Error reading password: %v\n", err)
		return
	}
	_ = sh.cli.login(ctx, sh.out, email, password)
}

func (sh *shell) handleLogout() {
	if err := sh.cli.app.accounts.Logout(); err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(sh.out, "Logged out.")
}

func (sh *shell) handleTitles(ctx context.Context) {
	if err := sh.pub.Load(ctx); err != nil {
		fmt.Fprintln(sh.out, sh.pub.Error())
		return
	}
	printTitles(sh.out, sh.pub.Filtered())
}

func (sh *shell) handleSearch() {
	query, ok := readLine(sh.sc, sh.out, "Filter by title, author, editorial or ISBN: ")
	if !ok {
		return
	}
	sh.pub.SetQuery(query)
	defs := sh.pub.Filtered()
	printTitles(sh.out, defs)
}

func (sh *shell) handleSelect() {
	id, ok := readLine(sh.sc, sh.out, "Title ID: ")
	if !ok {
		return
	}
	if _, found := exchange.FindByID(sh.pub.Filtered(), id); !found && id != "" {
		fmt.Fprintf(sh.out, "No title with ID %s in the current results.\n", id)
		return
	}
	sh.pub.Select(id)
	sh.printFormState()
}

func (sh *shell) handleCondition() {
	text, ok := readLine(sh.sc, sh.out, "Condition (e.g. like new, underlined, good): ")
	if !ok {
		return
	}
	sh.pub.SetCondition(text)
	sh.printFormState()
}

func (sh *shell) printFormState() {
	if sh.pub.CanSubmit() {
		fmt.Fprintln(sh.out, "Ready to publish.")
	} else {
		fmt.Fprintln(sh.out, "Select a title and describe its condition to publish.")
	}
}

func (sh *shell) handlePublish(ctx context.Context) {
	if !sh.pub.CanSubmit() {
		fmt.Fprintln(sh.out, "Select a title and describe its condition first.")
		return
	}
	fmt.Fprintln(sh.out, "Publishing...")
	if _, err := sh.pub.Submit(ctx); err != nil {
		fmt.Fprintln(sh.out, sh.pub.Error())
		return
	}
	fmt.Fprintln(sh.out, sh.pub.Success())
}

func (sh *shell) handleProfile(ctx context.Context) {
	// A view loads once; a fresh one refetches.
	profile := exchange.NewProfile(sh.cli.app.client, sh.cli.app.sessions, sh.cli.app.inbox)
	sh.profile = profile
	fmt.Fprintln(sh.out, "Loading profile...")
	_ = profile.Load(ctx)
	printProfile(sh.out, profile)
}

func (sh *shell) handleRequest(accept bool) {
	id, ok := readLine(sh.sc, sh.out, "Request ID: ")
	if !ok {
		return
	}
	inbox := sh.profile.Requests()
	if accept {
		if _, err := inbox.Accept(id); err != nil {
			fmt.Fprintf(sh.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(sh.out, "Exchange accepted for request #%s\n", id)
		return
	}
	if _, err := inbox.Reject(id); err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Request #%s discarded\n", id)
}
