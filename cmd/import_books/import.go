package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"book-exchange/exchange"
)

// run publishes one book per "isbn,condition" row of r, matching ISBNs
// against the catalog pub has loaded. Blank, short and "#" rows and an
// "isbn" header are skipped. A 401 stops the import.
func run(ctx context.Context, r io.Reader, pub *exchange.Publisher, out io.Writer) (successCount, errorCount int) {
	pub.SetQuery("")
	catalog := pub.Filtered()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			fmt.Fprintf(out, "Line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}
		if len(record) < 2 || strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			continue
		}
		isbn, condition := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if strings.EqualFold(isbn, "isbn") {
			continue // header
		}

		def, ok := exchange.FindByISBN(catalog, isbn)
		if !ok {
			fmt.Fprintf(out, "Line %d: ERROR - %v: ISBN %s\n", line, exchange.ErrUnknownTitle, isbn)
			errorCount++
			continue
		}

		fmt.Fprintf(out, "Publishing: %s... ", def.Label())
		pub.Select(def.ID)
		pub.SetCondition(condition)
		book, err := pub.Submit(ctx)
		if err != nil {
			if errors.Is(err, exchange.ErrCannotSubmit) {
				fmt.Fprintln(out, "ERROR - condition is empty")
			} else {
				fmt.Fprintf(out, "ERROR - %s\n", pub.Error())
			}
			errorCount++
			if exchange.Status(err) == http.StatusUnauthorized {
				fmt.Fprintln(out, exchange.MsgSessionExpired)
				break
			}
			continue
		}
		if book.ID != "" {
			fmt.Fprintf(out, "SUCCESS (ID: %s)\n", book.ID)
		} else {
			fmt.Fprintln(out, "SUCCESS")
		}
		successCount++
	}
	return successCount, errorCount
}
