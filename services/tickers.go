package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseTickers splits a comma separated list, dropping blanks and duplicates
func ParseTickers(list string) []string {
	var tickers []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		t := NormalizeTicker(part)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	return tickers
}

// LoadTickersFromCSV reads tickers from the first column of a CSV file with
// a header row
func LoadTickersFromCSV(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ticker file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading ticker file header: %w", err)
	}

	var tickers []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ticker file: %w", err)
		}

		if len(record) > 0 {
			tickers = append(tickers, record[0])
		}
	}

	return ParseTickers(strings.Join(tickers, ",")), nil
}
