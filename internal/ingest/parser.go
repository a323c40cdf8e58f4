// Package ingest turns uploaded trade-history CSV files into validated
// journal trades. It performs no I/O: callers hand it the file text and
// decide what to do with the result.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// headerRows is the number of file rows before the first data row. Row
// numbers reported to users are file rows, so data row i is row i+headerRows+1.
const headerRows = 1

// RowError describes why a single data row was rejected.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result is the outcome of parsing one file. When RowErrors is non-empty the
// batch must be rejected as a whole and Trades must not be persisted.
type Result struct {
	Trades    []domain.Trade
	RowErrors []RowError
}

// OK reports whether every row passed validation.
func (r Result) OK() bool {
	return len(r.RowErrors) == 0
}

// Options tunes a Parser.
type Options struct {
	// Location is used for timestamps without an explicit zone. Defaults to UTC.
	Location *time.Location
	// MaxRows rejects files with more data rows. Zero means unlimited.
	MaxRows int
	// NewID generates trade IDs. Defaults to random UUIDs.
	NewID func() string
	// Now stamps CreatedAt/UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

// Parser converts CSV text into trades.
type Parser struct {
	loc     *time.Location
	maxRows int
	newID   func() string
	now     func() time.Time
}

// NewParser creates a Parser, filling unset options with defaults.
func NewParser(opts Options) *Parser {
	p := &Parser{
		loc:     opts.Location,
		maxRows: opts.MaxRows,
		newID:   opts.NewID,
		now:     opts.Now,
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.newID == nil {
		p.newID = func() string { return uuid.New().String() }
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Parse reads text as a header-driven CSV file and maps every data row onto a
// trade for accountID/userID. It returns domain.ErrEmptyImport when the file
// has no data rows and domain.ErrInvalidInput when the text is not valid CSV
// or exceeds MaxRows. Row-level problems are reported in Result.RowErrors.
func (p *Parser) Parse(text, accountID, userID string) (Result, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return Result{}, domain.ErrEmptyImport
	}

	rows, err := gocsv.CSVToMaps(strings.NewReader(text))
	if err != nil {
		return Result{}, fmt.Errorf("ingest: read csv: %w: %v", domain.ErrInvalidInput, err)
	}

	headers := headerNames(rows)
	cols := resolveColumns(headers)

	var res Result
	now := p.now().UTC()
	dataRows := 0
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		dataRows++
		if p.maxRows > 0 && dataRows > p.maxRows {
			return Result{}, fmt.Errorf("ingest: more than %d rows: %w", p.maxRows, domain.ErrInvalidInput)
		}

		rowNum := i + headerRows + 1
		trade, msg := p.mapRow(cols, row)
		if msg != "" {
			res.RowErrors = append(res.RowErrors, RowError{Row: rowNum, Message: msg})
			continue
		}
		trade.ID = p.newID()
		trade.AccountID = accountID
		trade.UserID = userID
		trade.CreatedAt = now
		trade.UpdatedAt = now
		res.Trades = append(res.Trades, trade)
	}

	if dataRows == 0 {
		return Result{}, domain.ErrEmptyImport
	}
	if !res.OK() {
		res.Trades = nil
	}
	return res, nil
}

// mapRow validates one row. It returns a non-empty message for the first
// rule the row breaks.
func (p *Parser) mapRow(cols columnMap, row map[string]string) (domain.Trade, string) {
	symbol := cols.value(row, fieldSymbol)
	if symbol == "" {
		return domain.Trade{}, "symbol is required"
	}

	rawDir := cols.value(row, fieldDirection)
	dir, ok := domain.ParseDirection(rawDir)
	if !ok {
		return domain.Trade{}, fmt.Sprintf("direction must be LONG or SHORT (got %q)", rawDir)
	}

	entryPrice, ok := parsePositive(cols.value(row, fieldEntryPrice))
	if !ok {
		return domain.Trade{}, "entryPrice must be a positive number"
	}

	qty, ok := parsePositive(cols.value(row, fieldQuantity))
	if !ok {
		return domain.Trade{}, "quantity must be a positive number"
	}

	entryDate, err := ParseTime(cols.value(row, fieldEntryDate), p.loc)
	if err != nil {
		return domain.Trade{}, "entryDate is missing or invalid"
	}

	rawExitDate := cols.value(row, fieldExitDate)
	var exitDate *time.Time
	if rawExitDate != "" {
		t, err := ParseTime(rawExitDate, p.loc)
		if err != nil {
			return domain.Trade{}, "exitDate is invalid"
		}
		exitDate = &t
	}

	fees := decimal.Zero
	if raw := cols.value(row, fieldFees); raw != "" {
		f, ok := parseNumber(raw)
		if !ok || f.IsNegative() {
			return domain.Trade{}, "fees must be a non-negative number"
		}
		fees = f
	}

	rawExitPrice := cols.value(row, fieldExitPrice)
	var exitPrice *float64
	if rawExitPrice != "" {
		x, ok := parsePositive(rawExitPrice)
		if !ok {
			return domain.Trade{}, "exitPrice must be a positive number"
		}
		exitPrice = &x
	}

	switch {
	case exitDate != nil && exitPrice == nil:
		return domain.Trade{}, "exitPrice is required when exitDate is set"
	case exitDate == nil && exitPrice != nil:
		return domain.Trade{}, "exitDate is required when exitPrice is set"
	}

	feesF, _ := fees.Float64()
	t := domain.Trade{
		Symbol:     symbol,
		Direction:  dir,
		Quantity:   qty,
		EntryPrice: entryPrice,
		EntryDate:  entryDate,
		Fees:       feesF,
		Strategy:   cols.value(row, fieldStrategy),
		Notes:      cols.value(row, fieldNotes),
		Tags:       SplitTags(cols.value(row, fieldTags)),
	}
	if math.IsInf(qty*entryPrice, 0) {
		return domain.Trade{}, "price, quantity and fees are out of range"
	}
	if exitDate != nil {
		t.Close(*exitPrice, *exitDate)
		if math.IsInf(*t.PnL, 0) {
			return domain.Trade{}, "price, quantity and fees are out of range"
		}
	}
	return t, ""
}

// SplitTags splits a comma separated tag list, trimming entries and dropping
// empty ones. It never returns nil.
func SplitTags(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// dateLayouts are tried in order by ParseTime.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02",
}

// errUnparseableTime is returned by ParseTime for values no layout accepts.
var errUnparseableTime = errors.New("unrecognised date format")

// ParseTime parses s with the supported layouts. Values without a zone are
// interpreted in loc. The result is always in UTC.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errUnparseableTime
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errUnparseableTime, s)
}

// parseNumber accepts plain decimals with an optional leading currency sign
// and thousands separators ("$1,250.50").
func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	// Values beyond float64 range would become ±Inf once stored.
	if f, _ := d.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, false
	}
	return d, true
}

func parsePositive(s string) (float64, bool) {
	d, ok := parseNumber(s)
	if !ok || !d.IsPositive() {
		return 0, false
	}
	f, _ := d.Float64()
	return f, f > 0
}

// headerNames collects the header set from the parsed rows. Every row
// carries every header, so the first row is enough.
func headerNames(rows []map[string]string) []string {
	if len(rows) == 0 {
		return nil
	}
	names := make([]string, 0, len(rows[0]))
	for h := range rows[0] {
		names = append(names, h)
	}
	return names
}

// blankRow reports whether every cell of a row is empty, as produced by
// spreadsheet exports with trailing separator-only lines.
func blankRow(row map[string]string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
