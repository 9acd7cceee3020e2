package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"book-exchange/exchange"
	"book-exchange/logging"
	"book-exchange/session"

	"github.com/spf13/cobra"
)

func (c *cli) newRegisterCmd() *cobra.Command {
	var form exchange.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, in := cmd.OutOrStdout(), cmd.InOrStdin()
			sc := bufio.NewScanner(in)
			if form.Password == "" {
				var err error
				if form.Password, err = readPassword(in, sc, out, "Password: "); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				if form.Confirm, err = readPassword(in, sc, out, "Confirm password: "); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			} else if form.Confirm == "" {
				form.Confirm = form.Password
			}

			err := c.app.accounts.Register(cmd.Context(), form)
			fmt.Fprintln(out, exchange.RegisterMessage(err))
			return err
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "full name")
	cmd.Flags().StringVar(&form.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&form.Email, "email", "", "e-mail address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (prompted when omitted)")
	return cmd
}

func (c *cli) newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, in := cmd.OutOrStdout(), cmd.InOrStdin()
			sc := bufio.NewScanner(in)
			if strings.TrimSpace(email) == "" {
				var ok bool
				if email, ok = readLine(sc, out, "Email: "); !ok {
					return errors.New("email is required")
				}
			}
			if password == "" {
				var err error
				if password, err = readPassword(in, sc, out, "Password: "); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			return c.login(cmd.Context(), out, email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "e-mail address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func (c *cli) login(ctx context.Context, out io.Writer, email, password string) error {
	if err := c.app.accounts.Login(ctx, email, password); err != nil {
		fmt.Fprintln(out, exchange.UserMessage(err, exchange.MsgLoginFallback))
		return err
	}
	userID := c.app.sessions.UserID()
	logging.WithUser(userID).Info("logged in")
	if userID == "" {
		fmt.Fprintln(out, "Logged in.")
	} else {
		fmt.Fprintf(out, "Logged in as client %s.\n", userID)
	}
	return nil
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.accounts.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printStatus(cmd.OutOrStdout(), c.app.sessions)
			return nil
		},
	}
}

func printStatus(out io.Writer, sessions *session.Manager) {
	s, err := sessions.Current()
	if errors.Is(err, session.ErrNoSession) {
		fmt.Fprintln(out, "Not logged in.")
		return
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	userID := s.UserID
	if userID == "" {
		userID = "unknown"
	}
	fmt.Fprintf(out, "Logged in as client %s since %s\n", userID, s.StartedAt.Local().Format(time.DateTime))
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Token expires %s\n", s.ExpiresAt.Local().Format(time.DateTime))
	}
}

func (c *cli) newTitlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "titles [query]",
		Short: "List the title catalog, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pub := exchange.NewPublisher(c.app.client, c.app.sessions, "")
			if err := pub.Load(cmd.Context()); err != nil {
				fmt.Fprintln(out, pub.Error())
				return err
			}
			pub.SetQuery(strings.Join(args, " "))
			printTitles(out, pub.Filtered())
			return nil
		},
	}
}

func printTitles(out io.Writer, defs []exchange.BookDefinition) {
	if len(defs) == 0 {
		fmt.Fprintln(out, "No results.")
		return
	}
	fmt.Fprintf(out, "%-8s %-35s %-25s %-20s %-17s\n", "ID", "Title", "Author", "Editorial", "ISBN")
	fmt.Fprintln(out, strings.Repeat("-", 109))
	for _, d := range defs {
		fmt.Fprintf(out, "%-8s %-35s %-25s %-20s %-17s\n",
			truncateString(d.ID, 8),
			truncateString(d.Title, 35),
			truncateString(d.Author, 25),
			truncateString(d.Editorial, 20),
			d.ISBN)
	}
}

func (c *cli) newPublishCmd() *cobra.Command {
	var titleID, condition, clientID string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an owned copy of a catalog title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pub := exchange.NewPublisher(c.app.client, c.app.sessions, clientID)
			if err := pub.Load(cmd.Context()); err != nil {
				fmt.Fprintln(out, pub.Error())
				return err
			}
			pub.Select(titleID)
			pub.SetCondition(condition)
			if !pub.CanSubmit() {
				return errors.New("--title and a non-blank --condition are required")
			}
			book, err := pub.Submit(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, pub.Error())
				return err
			}
			fmt.Fprintln(out, pub.Success())
			if book.ID != "" {
				fmt.Fprintf(out, "Book ID: %s\n", book.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&titleID, "title", "", "catalog title id")
	cmd.Flags().StringVar(&condition, "condition", "", "condition of the copy, e.g. \"like new\"")
	cmd.Flags().StringVar(&clientID, "client", "", "owning client id (defaults to the logged-in user)")
	return cmd
}

func (c *cli) newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your profile, books and exchange requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := exchange.NewProfile(c.app.client, c.app.sessions, c.app.inbox)
			err := profile.Load(cmd.Context())
			printProfile(cmd.OutOrStdout(), profile)
			return err
		},
	}
}

func printProfile(out io.Writer, p *exchange.Profile) {
	fmt.Fprintln(out, "My Profile")
	if msg := p.Error(); msg != "" {
		fmt.Fprintln(out, msg)
		return
	}

	info := p.Info()
	fmt.Fprintln(out, "\nPersonal information")
	fmt.Fprintf(out, "  Name:    %s\n", orDash(info.Name))
	fmt.Fprintf(out, "  Email:   %s\n", orDash(info.Email))
	fmt.Fprintf(out, "  Address: %s\n", orDash(info.Address))

	fmt.Fprintln(out, "\nPublished books")
	books := p.Books()
	if len(books) == 0 {
		fmt.Fprintln(out, "  You have not published any books yet.")
	}
	for _, b := range books {
		fmt.Fprintf(out, "  %-35s %-25s State: %s\n",
			truncateString(b.BookDefinition.Title, 35),
			truncateString(b.BookDefinition.Author, 25),
			b.State)
	}

	fmt.Fprintln(out, "\nExchanged books")
	exchanged := p.Exchanged()
	if len(exchanged) == 0 {
		fmt.Fprintln(out, "  You have not exchanged any books yet.")
	}
	for _, b := range exchanged {
		fmt.Fprintf(out, "  %-35s %s\n", truncateString(b.BookDefinition.Title, 35), b.BookDefinition.Author)
	}

	printRequests(out, p.Requests().List())
}

func printRequests(out io.Writer, requests []exchange.ExchangeRequest) {
	fmt.Fprintln(out, "\nExchange requests")
	if len(requests) == 0 {
		fmt.Fprintln(out, "  No pending requests.")
		return
	}
	fmt.Fprintf(out, "  %-8s %-25s %s\n", "ID", "User", "Requested book")
	for _, r := range requests {
		fmt.Fprintf(out, "  %-8s %-25s %s\n", r.ID, truncateString(r.Requester, 25), r.Book)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
