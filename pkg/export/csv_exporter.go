package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is positional tabular content: each row carries one value per
// header, in header order.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// CSVExporter renders a Dataset into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset. Short rows are padded
// with empty cells so every record has the full header width.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	width := len(data.Headers)
	for _, row := range data.Rows {
		record := make([]string, width)
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
