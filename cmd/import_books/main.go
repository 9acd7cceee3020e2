package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"book-exchange/api"
	"book-exchange/config"
	"book-exchange/exchange"
	"book-exchange/logging"
	"book-exchange/session"

	"github.com/jonboulle/clockwork"
)

// import_books publishes owned copies in bulk. Each CSV row is
// "isbn,condition"; the ISBN is matched against the title catalog.
func main() {
	file := flag.String("file", "books.csv", "CSV file with isbn,condition rows")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := session.NewStore(cfg.SessionDB, clockwork.NewRealClock())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var sealer session.Sealer = session.NoopSealer{}
	if cfg.SessionKey != "" {
		if sealer, err = session.NewAEADSealer(cfg.SessionKey); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	sessions := session.NewManager(store, sealer, session.NewNotifier(session.AuthChanged))
	if !sessions.Authenticated() {
		fmt.Fprintln(os.Stderr, "Not logged in. Run 'bookx login' first.")
		os.Exit(1)
	}

	httpClient, err := api.NewHTTPClient(cfg.HTTPTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	client, err := api.New(api.Options{
		BaseURL:      cfg.APIURL,
		HTTPClient:   httpClient,
		Tokens:       sessions,
		Unauthorized: sessions,
		TitlesPath:   cfg.TitlesPath,
		BooksPath:    cfg.BooksPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *file, err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	pub := exchange.NewPublisher(client, sessions, "")
	fmt.Println("Loading title catalog...")
	if err := pub.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s (%v)\n", pub.Error(), err)
		os.Exit(1)
	}
	successCount, errorCount := run(ctx, f, pub, os.Stdout)

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully published: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)
	if errorCount > 0 {
		os.Exit(1)
	}
}
