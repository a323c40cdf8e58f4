package ingest

import (
	"sort"
	"strings"
)

// field names a logical trade column independent of the header spelling used
// by the file.
type field string

const (
	fieldSymbol     field = "symbol"
	fieldDirection  field = "direction"
	fieldQuantity   field = "quantity"
	fieldEntryPrice field = "entryPrice"
	fieldExitPrice  field = "exitPrice"
	fieldEntryDate  field = "entryDate"
	fieldExitDate   field = "exitDate"
	fieldFees       field = "fees"
	fieldStrategy   field = "strategy"
	fieldNotes      field = "notes"
	fieldTags       field = "tags"
)

// synonyms is the canonical header table. Keys are matched against
// normalised headers (see normalizeHeader), in the listed order, so the first
// synonym present in the file wins.
var synonyms = []struct {
	field   field
	headers []string
}{
	{fieldSymbol, []string{"symbol", "ticker", "instrument", "asset"}},
	{fieldDirection, []string{"direction", "side", "position", "longshort"}},
	{fieldQuantity, []string{"quantity", "qty", "shares", "size", "contracts", "units"}},
	{fieldEntryPrice, []string{"entryprice", "entry", "openprice", "priceentry", "buyprice"}},
	{fieldExitPrice, []string{"exitprice", "exit", "closeprice", "priceexit", "sellprice"}},
	{fieldEntryDate, []string{"entrydate", "entrytime", "opendate", "opentime", "date"}},
	{fieldExitDate, []string{"exitdate", "exittime", "closedate", "closetime"}},
	{fieldFees, []string{"fees", "fee", "commission", "commissions"}},
	{fieldStrategy, []string{"strategy", "setup", "playbook"}},
	{fieldNotes, []string{"notes", "note", "comment", "comments"}},
	{fieldTags, []string{"tags", "tag", "labels"}},
}

// normalizeHeader folds case and drops separators so that "Entry Price",
// "entry_price", "ENTRY-PRICE" and "entryPrice" compare equal.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	b.Grow(len(h))
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '_', '-', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// columnMap resolves each logical field to the original header that carries
// it in a given file.
type columnMap map[field]string

// resolveColumns builds the column map from the headers of a file. When two
// headers normalise to the same key the lexically smallest one is used so the
// mapping does not depend on map iteration order.
func resolveColumns(headers []string) columnMap {
	sorted := append([]string(nil), headers...)
	sort.Strings(sorted)

	byNorm := make(map[string]string, len(sorted))
	for _, h := range sorted {
		n := normalizeHeader(h)
		if _, seen := byNorm[n]; !seen {
			byNorm[n] = h
		}
	}

	cols := make(columnMap, len(synonyms))
	for _, s := range synonyms {
		for _, syn := range s.headers {
			if orig, ok := byNorm[syn]; ok {
				cols[s.field] = orig
				break
			}
		}
	}
	return cols
}

// value returns the trimmed cell for f, or "" when the file has no such
// column.
func (c columnMap) value(row map[string]string, f field) string {
	h, ok := c[f]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[h])
}
