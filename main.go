package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"book-exchange/api"
	"book-exchange/config"
	"book-exchange/exchange"
	"book-exchange/logging"
	"book-exchange/session"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg      *config.Config
	store    *session.Store
	sessions *session.Manager
	notifier *session.Notifier
	client   *api.Client
	accounts *exchange.Accounts
	inbox    *exchange.Inbox
}

func newApp(cfg *config.Config, requestsPath string) (*app, error) {
	store, err := session.NewStore(cfg.SessionDB, clockwork.NewRealClock())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	var sealer session.Sealer = session.NoopSealer{}
	if cfg.SessionKey != "" {
		if sealer, err = session.NewAEADSealer(cfg.SessionKey); err != nil {
			store.Close()
			return nil, err
		}
	}

	notifier := session.NewNotifier(session.AuthChanged)
	sessions := session.NewManager(store, sealer, notifier)

	httpClient, err := api.NewHTTPClient(cfg.HTTPTimeout)
	if err != nil {
		store.Close()
		return nil, err
	}
	client, err := api.New(api.Options{
		BaseURL:      cfg.APIURL,
		HTTPClient:   httpClient,
		Tokens:       sessions,
		Unauthorized: sessions,
		TitlesPath:   cfg.TitlesPath,
		BooksPath:    cfg.BooksPath,
		LoginPath:    cfg.LoginPath,
		RegisterPath: cfg.RegisterPath,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	inbox := exchange.NewInbox(nil)
	if requestsPath != "" {
		f, err := os.Open(requestsPath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open requests file: %w", err)
		}
		inbox, err = exchange.LoadInbox(f)
		f.Close()
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	return &app{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		notifier: notifier,
		client:   client,
		accounts: exchange.NewAccounts(client, sessions),
		inbox:    inbox,
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// cli carries the app between cobra's pre-run hook and the commands.
type cli struct {
	app *app

	apiURL       string
	sessionDB    string
	logLevel     string
	requestsPath string
}

// Close releases the app built by the pre-run hook, if any. It runs after
// Execute whether or not the command succeeded.
func (c *cli) Close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "bookx",
		Short:         "Client for the book exchange platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.apiURL != "" {
				cfg.APIURL = c.apiURL
			}
			if c.sessionDB != "" {
				cfg.SessionDB = c.sessionDB
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logging.Init(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

			c.app, err = newApp(cfg, c.requestsPath)
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api-url", "", "API base URL (overrides BOOKX_API_URL)")
	flags.StringVar(&c.sessionDB, "session-db", "", "session database file (overrides BOOKX_SESSION_DB)")
	flags.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (overrides BOOKX_LOG_LEVEL)")
	flags.StringVar(&c.requestsPath, "requests", "", "JSON file of exchange requests to show in the inbox")

	root.AddCommand(
		c.newRegisterCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newStatusCmd(),
		c.newTitlesCmd(),
		c.newPublishCmd(),
		c.newProfileCmd(),
		c.newShellCmd(),
	)
	return root, c
}

func main() {
	root, c := newRootCmd()
	err := root.Execute()
	c.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readPassword reads a password with masking when in is a terminal, and a
// plain line from sc otherwise.
func readPassword(in io.Reader, sc *bufio.Scanner, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(out) // Add newline after password input
		return strings.TrimSpace(string(bytePassword)), nil
	}
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(sc.Text()), nil
}

// readLine prompts and returns the trimmed next line.
func readLine(sc *bufio.Scanner, out io.Writer, prompt string) (string, bool) {
	fmt.Fprint(out, prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// truncateString cuts s to maxLength runes, marking the cut with "...".
func truncateString(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
