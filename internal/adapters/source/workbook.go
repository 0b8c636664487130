package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/okian/gincana/internal/domain/model"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxWorkbookBytes    = 32 << 20
	maxXLSRows          = 100000
)

// File signatures.
var (
	zipMagic = []byte("PK\x03\x04")                                   //nolint:gochecknoglobals // read-only
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1} //nolint:gochecknoglobals // read-only
)

// WorkbookOption applies a configuration option to the Workbook.
type WorkbookOption func(*Workbook)

// WithSheets overrides the tab names. Empty names keep the default.
func WithSheets(s Sheets) WorkbookOption {
	return func(w *Workbook) {
		w.sheets = s.withDefaults()
	}
}

// WithHTTPClient sets the client used for URL locations.
func WithHTTPClient(c *http.Client) WorkbookOption {
	return func(w *Workbook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithFetchTimeout bounds a single URL download.
func WithFetchTimeout(d time.Duration) WorkbookOption {
	return func(w *Workbook) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithMaxBytes caps the size of a downloaded workbook.
func WithMaxBytes(n int64) WorkbookOption {
	return func(w *Workbook) {
		if n > 0 {
			w.maxBytes = n
		}
	}
}

// Workbook reads an .xlsx or legacy .xls workbook from a local path or an
// http(s) URL. The format is detected from the file signature.
type Workbook struct {
	location string
	sheets   Sheets
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewWorkbook creates a workbook source for location.
func NewWorkbook(location string, opts ...WorkbookOption) *Workbook {
	w := &Workbook{
		location: strings.TrimSpace(location),
		sheets:   DefaultSheets(),
		client:   http.DefaultClient,
		timeout:  defaultFetchTimeout,
		maxBytes: maxWorkbookBytes,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the workbook location.
func (w *Workbook) Name() string { return w.location }

// Location returns the configured path or URL.
func (w *Workbook) Location() string { return w.location }

// IsRemote reports whether the location is a URL.
func (w *Workbook) IsRemote() bool { return isURL(w.location) }

// Load reads the configured sheets.
func (w *Workbook) Load(ctx context.Context) (model.RawDataset, error) {
	data, err := w.read(ctx)
	if err != nil {
		return model.RawDataset{}, err
	}
	return Parse(data, w.sheets)
}

func (w *Workbook) read(ctx context.Context) ([]byte, error) {
	if !w.IsRemote() {
		data, err := os.ReadFile(w.location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		return data, nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetch, w.location, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if int64(len(data)) > w.maxBytes {
		return nil, fmt.Errorf("%w: workbook exceeds %d bytes", ErrFetch, w.maxBytes)
	}
	return data, nil
}

// Parse decodes workbook bytes and extracts the named sheets. Sheet names
// match case-insensitively; an absent sheet yields a nil table.
func Parse(data []byte, sheets Sheets) (model.RawDataset, error) {
	sheets = sheets.withDefaults()
	var (
		all map[string][][]string
		err error
	)
	switch {
	case bytes.HasPrefix(data, zipMagic):
		all, err = readXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		all, err = readXLS(data)
	default:
		return model.RawDataset{}, ErrUnsupportedFormat
	}
	if err != nil {
		return model.RawDataset{}, err
	}

	pick := func(name string) *model.Table {
		for sheet, rows := range all {
			if strings.EqualFold(strings.TrimSpace(sheet), name) {
				return toTable(name, rows)
			}
		}
		return nil
	}
	return model.RawDataset{
		Participants: pick(sheets.Participants),
		Categories:   pick(sheets.Categories),
		Donations:    pick(sheets.Donations),
	}, nil
}

func readXLSX(data []byte) (map[string][][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	out := make(map[string][][]string)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		out[name] = rows
	}
	return out, nil
}

func readXLS(data []byte) (map[string][][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	out := make(map[string][][]string)
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow) && r < maxXLSRows; r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		out[sheet.Name] = rows
	}
	return out, nil
}

func isURL(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
