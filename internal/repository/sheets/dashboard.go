// Package sheets exports farm KPIs to a Google Sheets dashboard.
package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const kpiRange = "KPIs!A:I"

// Dashboard defines the export operations the reporting service needs.
type Dashboard interface {
	AppendKPIRow(ctx context.Context, row []interface{}) error
	ReadKPIRange(ctx context.Context) ([][]interface{}, error)
}

// GoogleSheetDashboard implements Dashboard with the official Google
// Sheets API.
type GoogleSheetDashboard struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetDashboard builds a Google Sheets backed dashboard.
func NewGoogleSheetDashboard(ctx context.Context, credentialsPath, spreadsheetID string, logger *zap.Logger) (Dashboard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(credentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetDashboard{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
	}, nil
}

// AppendKPIRow appends one daily KPI row to the dashboard sheet.
func (d *GoogleSheetDashboard) AppendKPIRow(ctx context.Context, row []interface{}) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	call := d.service.Spreadsheets.Values.Append(d.spreadsheetID, kpiRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append kpi row: %w", err)
	}

	d.logger.Debug("kpi row appended to dashboard")
	return nil
}

// ReadKPIRange fetches the exported KPI history.
func (d *GoogleSheetDashboard) ReadKPIRange(ctx context.Context) ([][]interface{}, error) {
	resp, err := d.service.Spreadsheets.Values.Get(d.spreadsheetID, kpiRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read kpi range: %w", err)
	}
	return resp.Values, nil
}
