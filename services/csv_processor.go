package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	csvRequiredHeaders = []string{"name", "address"}
	csvAllowedHeaders  = []string{"name", "address", "phone"}
)

// HospitalRow is one parsed CSV record. Phone is nil when the column is
// absent or the cell is empty.
type HospitalRow struct {
	Name    string
	Address string
	Phone   *string
}

// ValidationError marks upload-level problems (bad file, bad headers,
// missing required fields, too many rows). Controllers map it to HTTP 400;
// nothing has touched the ledger or the external API by the time it occurs.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ParseHospitalCSV validates the uploaded file and parses it into rows.
//
// Checks, in order: .csv extension, UTF-8 encoding, required headers
// (name, address), no unexpected headers, non-empty name/address per row,
// at least one data row, and the configured row limit.
func ParseHospitalCSV(filename string, content []byte, maxRows int) ([]HospitalRow, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, &ValidationError{Message: "File must be a CSV file"}
	}

	if !utf8.Valid(content) {
		return nil, &ValidationError{Message: "File must be UTF-8 encoded"}
	}

	reader := csv.NewReader(bytes.NewReader(content))
	// Rows shorter than the header are tolerated; missing cells read as empty.
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if err != nil {
		return nil, &ValidationError{Message: "CSV file is empty or has no headers"}
	}

	headers := make([]string, len(headerRecord))
	for i, h := range headerRecord {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, required := range csvRequiredHeaders {
		if !containsHeader(headers, required) {
			return nil, validationErrorf("Missing required header: %s", required)
		}
	}

	for _, header := range headers {
		if !containsHeader(csvAllowedHeaders, header) {
			return nil, validationErrorf("Unexpected header: %s. Allowed headers are: %s",
				header, strings.Join(csvAllowedHeaders, ", "))
		}
	}

	var rows []HospitalRow
	// Line 1 is the header, so the first data row is line 2.
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, validationErrorf("Row %d: malformed CSV record", line)
		}

		cells := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				cells[header] = strings.TrimSpace(record[i])
			}
		}

		if cells["name"] == "" {
			return nil, validationErrorf("Row %d: 'name' is required", line)
		}
		if cells["address"] == "" {
			return nil, validationErrorf("Row %d: 'address' is required", line)
		}

		row := HospitalRow{Name: cells["name"], Address: cells["address"]}
		if phone := cells["phone"]; phone != "" {
			row.Phone = &phone
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, &ValidationError{Message: "CSV file contains no data rows"}
	}

	if len(rows) > maxRows {
		return nil, validationErrorf("CSV file contains %d rows, but maximum allowed is %d",
			len(rows), maxRows)
	}

	return rows, nil
}

// ValidateHospitalData applies per-row field limits. Pure; first failing
// check wins.
func ValidateHospitalData(row HospitalRow) (bool, string) {
	if utf8.RuneCountInString(row.Name) > 200 {
		return false, "Hospital name too long (max 200 characters)"
	}

	if utf8.RuneCountInString(row.Address) > 500 {
		return false, "Address too long (max 500 characters)"
	}

	if row.Phone != nil && utf8.RuneCountInString(*row.Phone) > 20 {
		return false, "Phone number too long (max 20 characters)"
	}

	return true, ""
}

func containsHeader(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
