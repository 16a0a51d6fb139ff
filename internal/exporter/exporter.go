// Package exporter writes fetched rows as CSV, JSON or XML.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"io"
	"iter"
	"strconv"

	"github.com/samber/lo"

	"github.com/SimonWaldherr/funcsql/internal/storage"
)

// Options controls exporter behavior.
type Options struct {
	PrettyJSON   bool
	CSVNoHeader  bool
	CSVDelimiter rune
}

// valueToString renders a cell for the text formats. NULL is empty.
func valueToString(v storage.Value) string {
	switch v.Kind() {
	case storage.NullKind:
		return ""
	case storage.TextKind:
		s, _ := v.AsText()
		return s
	case storage.IntKind:
		n, _ := v.AsInt()
		return strconv.FormatInt(n, 10)
	case storage.FloatKind:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'f', -1, 64)
	case storage.BoolKind:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	}
	return v.String()
}

// columns returns the union of column names in first-seen order.
func columns(rows []storage.Row) []string {
	return lo.Uniq(lo.FlatMap(rows, func(r storage.Row, _ int) []string { return r.Columns() }))
}

// ExportCSV writes rows as CSV to w. The header is the union of the row
// columns in first-seen order; missing cells are empty.
func ExportCSV(w io.Writer, rows iter.Seq2[storage.Row, error], opts Options) error {
	all, err := collect(rows)
	if err != nil {
		return err
	}
	cols := columns(all)
	csvw := csv.NewWriter(w)
	if opts.CSVDelimiter != 0 {
		csvw.Comma = opts.CSVDelimiter
	}
	if !opts.CSVNoHeader {
		if err := csvw.Write(cols); err != nil {
			return err
		}
	}
	for _, r := range all {
		line := make([]string, len(cols))
		for i, c := range cols {
			v, _ := r.Lookup(c)
			line[i] = valueToString(v)
		}
		if err := csvw.Write(line); err != nil {
			return err
		}
	}
	csvw.Flush()
	return csvw.Error()
}

// ExportJSON writes rows as a JSON array of objects, keys in column order.
func ExportJSON(w io.Writer, rows iter.Seq2[storage.Row, error], opts Options) error {
	all, err := collect(rows)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	out := lo.Map(all, func(r storage.Row, _ int) storage.Record { return r.Record() })
	if out == nil {
		out = []storage.Record{}
	}
	return enc.Encode(out)
}

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlRow struct {
	Fields []xmlField `xml:",any"`
}

type xmlRows struct {
	XMLName xml.Name `xml:"rows"`
	Rows    []xmlRow `xml:"row"`
}

// ExportXML writes rows as simple XML: <rows><row><col>value</col>...</row>...</rows>
func ExportXML(w io.Writer, rows iter.Seq2[storage.Row, error]) error {
	xr := xmlRows{XMLName: xml.Name{Local: "rows"}}
	for r, err := range rows {
		if err != nil {
			return err
		}
		row := xmlRow{Fields: make([]xmlField, 0, r.Len())}
		for _, f := range r.Record() {
			row.Fields = append(row.Fields, xmlField{XMLName: xml.Name{Local: f.Name}, Value: valueToString(f.Value)})
		}
		xr.Rows = append(xr.Rows, row)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(xr); err != nil {
		return err
	}
	return enc.Flush()
}

func collect(rows iter.Seq2[storage.Row, error]) ([]storage.Row, error) {
	var out []storage.Row
	for r, err := range rows {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
