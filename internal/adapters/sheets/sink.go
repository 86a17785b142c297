package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/quentinrf/plant-monitor/services/climate-logger/internal/domain"
)

// TimestampLayout is the day-first layout used in the sheet's first column
const TimestampLayout = "02/01/2006 15:04:05"

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Scopes requested for the service account: sheet access plus Drive for lookup by name
var Scopes = []string{gsheets.SpreadsheetsScope, drive.DriveReadonlyScope}

// Config identifies the spreadsheet and the credential used to reach it
type Config struct {
	CredentialsFile string // service account JSON key
	SpreadsheetName string // looked up through Drive when SpreadsheetID is empty
	SpreadsheetID   string
}

// Sink implements domain.Sink by appending rows to the first sheet of a spreadsheet
type Sink struct {
	cfg  Config
	opts []option.ClientOption
}

// NewSink creates a spreadsheet sink. Extra client options are applied to
// both the Drive and Sheets clients, after the credentials.
func NewSink(cfg Config, opts ...option.ClientOption) *Sink {
	return &Sink{cfg: cfg, opts: opts}
}

// Name returns the spreadsheet name, or its ID when opened by ID
func (s *Sink) Name() string {
	if s.cfg.SpreadsheetName != "" {
		return s.cfg.SpreadsheetName
	}
	return s.cfg.SpreadsheetID
}

// Connect authenticates, resolves the spreadsheet and its first sheet
func (s *Sink) Connect(ctx context.Context) (domain.Connection, error) {
	opts, err := s.clientOptions(ctx)
	if err != nil {
		return nil, err
	}

	id := s.cfg.SpreadsheetID
	if id == "" {
		id, err = s.lookup(ctx, opts)
		if err != nil {
			return nil, err
		}
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create sheets client: %v", domain.ErrSinkUnavailable, err)
	}

	ss, err := svc.Spreadsheets.Get(id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, classify("open spreadsheet", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("%w: spreadsheet %s has no sheets", domain.ErrSinkNotFound, id)
	}

	title := ss.Sheets[0].Properties.Title
	return &connection{
		values:   svc.Spreadsheets.Values,
		id:       id,
		appendAt: fmt.Sprintf("'%s'!A1", strings.ReplaceAll(title, "'", "''")),
	}, nil
}

func (s *Sink) clientOptions(ctx context.Context) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if s.cfg.CredentialsFile != "" {
		data, err := os.ReadFile(s.cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read credentials: %v", domain.ErrSinkAuth, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse credentials: %v", domain.ErrSinkAuth, err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	return append(opts, s.opts...), nil
}

// lookup finds the spreadsheet ID by name among files shared with the account
func (s *Sink) lookup(ctx context.Context, opts []option.ClientOption) (string, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create drive client: %v", domain.ErrSinkUnavailable, err)
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(s.cfg.SpreadsheetName, "'", `\'`), spreadsheetMimeType)

	list, err := svc.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", classify("find spreadsheet", err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: no spreadsheet named %q is shared with this account",
			domain.ErrSinkNotFound, s.cfg.SpreadsheetName)
	}
	return list.Files[0].Id, nil
}

type connection struct {
	values   *gsheets.SpreadsheetsValuesService
	id       string
	appendAt string
}

// Append adds one row below the existing data
func (c *connection) Append(ctx context.Context, r *domain.Reading) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{Row(r)}}

	_, err := c.values.Append(c.id, c.appendAt, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify("append row", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no per-session state
func (c *connection) Close() error {
	return nil
}

// Row renders a reading as spreadsheet cells
func Row(r *domain.Reading) []interface{} {
	row := []interface{}{r.Timestamp.Format(TimestampLayout), r.Temperature, r.Humidity}
	if r.HasMoisture() {
		row = append(row, *r.Moisture)
	}
	return row
}

// classify maps Google API errors onto the sink error kinds
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", domain.ErrSinkAuth, op, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %v", domain.ErrSinkNotFound, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrSinkUnavailable, op, err)
}
