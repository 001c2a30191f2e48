// Package export renders session events and reports for download.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/okian/proctor/internal/domain/model"
)

// TimeLayout is the millisecond ISO-8601 form used in exports.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var csvHeader = []string{"t", "type", "details"}

// WriteCSV writes events as t,type,details rows. Every cell is quoted and
// details are JSON objects.
func WriteCSV(w io.Writer, events []model.Event) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, csvHeader); err != nil {
		return err
	}
	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode details of event %d: %w", e.Seq, err)
		}
		row := []string{e.Timestamp.UTC().Format(TimeLayout), string(e.Type), string(details)}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, cells []string) error {
	for i, c := range cells {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(c)); err != nil {
			return err
		}
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
