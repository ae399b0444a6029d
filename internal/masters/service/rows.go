package service

import (
	"encoding/csv"
	"encoding/json"
	"io"

	dErrors "masters/pkg/domain-errors"
)

// ReadJSONRows decodes an import payload: a JSON array of row objects.
func ReadJSONRows(r io.Reader) ([]map[string]any, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON import payload")
	}
	return rows, nil
}

// ReadCSVRows decodes a CSV import payload. The first record is the
// header; every following record becomes a row map keyed by header name.
func ReadCSVRows(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid CSV import payload")
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid CSV import payload")
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
}
