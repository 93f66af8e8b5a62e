package export

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets appends one row per payload to a Google spreadsheet.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheets authenticates with the given client options, typically
// option.WithCredentialsFile for a service account.
func NewSheets(ctx context.Context, spreadsheetID, writeRange string, opts ...option.ClientOption) (*Sheets, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if writeRange == "" {
		writeRange = "Leads!A1"
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, writeRange: writeRange}, nil
}

func (s *Sheets) Name() string { return "sheets" }

func (s *Sheets) Send(ctx context.Context, p Payload) error {
	row := []interface{}{
		p.Date, string(p.Action), p.PlaceID, p.Name, p.Phone, p.Address,
		p.Status, p.BusinessType, p.Notes, p.MarkedBy, p.Reviews,
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.writeRange, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append sheet row: %w", err)
	}
	return nil
}
