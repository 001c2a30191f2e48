package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/types"
)

// WriteReport writes r as indented JSON.
func WriteReport(w io.Writer, r types.Report) error { //nolint:gocritic // hugeParam: read-only view
	if r.Events == nil {
		r.Events = []model.Event{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report %s: %w", r.SessionID, err)
	}
	return nil
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(rd io.Reader) (types.Report, error) {
	var r types.Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return types.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
