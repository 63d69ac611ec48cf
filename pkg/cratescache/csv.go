package cratescache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var errUnknownOwnerKind = errors.New("unknown owner kind")

// csvRow gives by-name access to one record. Field order in the dump is
// defined by the header row and has changed between dump versions.
type csvRow struct {
	header map[string]int
	fields []string
	line   int
}

func (r csvRow) lookup(name string) (string, bool) {
	i, ok := r.header[name]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	return r.fields[i], true
}

func (r csvRow) string(name string) (string, error) {
	v, ok := r.lookup(name)
	if !ok {
		return "", fmt.Errorf("line %d: missing column %q", r.line, name)
	}
	return v, nil
}

// optional maps an empty or absent field to nil.
func (r csvRow) optional(name string) *string {
	v, ok := r.lookup(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (r csvRow) uint64(name string) (uint64, error) {
	v, err := r.string(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %q: %w", r.line, name, err)
	}
	return n, nil
}

// readCSV decodes every record of a header-first, comma-delimited,
// double-quote-escaped table. Rows whose owner kind is not recognised are
// skipped and counted; any other decode error aborts the whole table.
func readCSV[T any](r io.Reader, decode func(csvRow) (T, error)) (records []T, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.Comma = ','
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, 0, err
	}
	header := make(map[string]int, len(head))
	for i, name := range head {
		header[name] = i
	}

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return records, skipped, nil
		}
		if err != nil {
			return nil, 0, err
		}
		line, _ := cr.FieldPos(0)
		rec, err := decode(csvRow{header: header, fields: fields, line: line})
		if errors.Is(err, errUnknownOwnerKind) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
}
