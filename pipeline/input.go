package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadTargets reads bulk targets from r. Each record's first field is a
// target; blank records, "#" comments and a leading header cell named
// target, domain, url or website are skipped. Plain one-per-line files are
// single-column CSV.
func ReadTargets(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var targets []string
	for line := 0; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read targets: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		value := strings.TrimSpace(record[0])
		if value == "" {
			continue
		}
		if line == 0 && isHeaderCell(value) {
			continue
		}
		targets = append(targets, value)
	}
	return targets, nil
}

// ReadTargetsFile opens path and reads its targets.
func ReadTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets: %w", err)
	}
	defer f.Close()
	return ReadTargets(f)
}

func isHeaderCell(value string) bool {
	switch strings.ToLower(value) {
	case "target", "domain", "url", "website":
		return true
	}
	return false
}
