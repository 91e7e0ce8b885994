// Package sheets appends contact messages to a Google Sheets worksheet as a
// secondary, best-effort store.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const appendTimeout = 10 * time.Second

// Grid bounds used when the target worksheet has to be created.
const (
	newSheetRows    = 1000
	newSheetColumns = 6
)

// headerRow is written as the first row of a newly created worksheet.
var headerRow = []any{"Timestamp", "Name", "Email", "Subject", "Message", "IP Address"}

// Appender writes one contact message to a spreadsheet.
type Appender interface {
	// Configured reports whether the integration is active. When false,
	// Append is never called and the message is simply "not saved".
	Configured() bool

	// Append writes one row, creating the worksheet (with header) if it
	// does not exist yet.
	Append(ctx context.Context, name, email, subject, message, ip string) error
}

// Client is the Google Sheets implementation of Appender.
type Client struct {
	spreadsheetID string
	worksheet     string
	svc           *sheetsapi.Service
}

// NewClient builds a Client authenticated with the given service-account JSON.
// spreadsheetID and credentialsJSON must both be non-empty.
func NewClient(ctx context.Context, spreadsheetID, worksheet, credentialsJSON string) (*Client, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &Client{
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		svc:           svc,
	}, nil
}

// Disabled returns an inactive Client. Configured reports false and Append
// is a no-op error; used when the integration is not set up.
func Disabled() *Client {
	return &Client{}
}

// Ensure Client implements Appender at compile time.
var _ Appender = (*Client)(nil)

// Configured reports whether this client can reach a spreadsheet.
func (c *Client) Configured() bool {
	return c.svc != nil && c.spreadsheetID != ""
}

// Append writes [timestamp, name, email, subject, message, ip] to the
// configured worksheet, creating it with a header row when missing.
func (c *Client) Append(ctx context.Context, name, email, subject, message, ip string) error {
	if !c.Configured() {
		return fmt.Errorf("sheets: not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()

	if err := c.ensureWorksheet(ctx); err != nil {
		return err
	}

	row := messageRow(time.Now().UTC(), name, email, subject, message, ip)
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.appendRange(), &sheetsapi.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	return nil
}

// ensureWorksheet creates the target worksheet with its header row if the
// spreadsheet does not contain it yet.
func (c *Client) ensureWorksheet(ctx context.Context) error {
	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: open spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.worksheet {
			return nil
		}
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: c.worksheet,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetColumns,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: create worksheet: %w", err)
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.appendRange(), &sheetsapi.ValueRange{
		Values: [][]any{headerRow},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: write header: %w", err)
	}
	return nil
}

func (c *Client) appendRange() string {
	return fmt.Sprintf("'%s'!A1", c.worksheet)
}

// messageRow builds one spreadsheet row in header-row column order.
func messageRow(at time.Time, name, email, subject, message, ip string) []any {
	return []any{at.Format(time.RFC3339), name, email, subject, message, ip}
}
