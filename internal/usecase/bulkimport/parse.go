package bulkimport

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"coop-ledger/internal/domain/apperr"
)

// Parse turns an uploaded file into records. The type is taken from the
// file extension, falling back to content sniffing.
func Parse(filename string, data []byte) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(bytes.NewReader(data))
	case ".json":
		return ParseJSON(bytes.NewReader(data))
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("text/csv"):
		return ParseCSV(bytes.NewReader(data))
	case mt.Is("application/json"):
		return ParseJSON(bytes.NewReader(data))
	}
	return nil, apperr.Format("unsupported file type %s, upload CSV or JSON", mt.String())
}

// ParseCSV reads a header row followed by data rows.
func ParseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Format("file contains no data")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFormat, err, "invalid CSV file")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindFormat, err, "invalid CSV file")
		}
		if blank(row) {
			continue
		}
		rec := make(Record, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseJSON reads an array of objects. Numbers keep their literal text.
func ParseJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Wrap(apperr.KindFormat, err, "invalid JSON file, expected an array of objects")
	}
	out := make([]Record, 0, len(raw))
	for _, obj := range raw {
		rec := make(Record, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case nil:
				rec[k] = ""
			case string:
				rec[k] = strings.TrimSpace(val)
			case json.Number:
				rec[k] = val.String()
			default:
				b, _ := json.Marshal(val)
				rec[k] = string(b)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
