// Package export serializes finished results for spreadsheets and the clipboard.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"hrtoolkit/internal/models"
)

// utf8BOM makes Excel open the file as UTF-8.
const utf8BOM = "\xef\xbb\xbf"

// GroupsCSVFilename returns the download name for a grouping export made on day.
func GroupsCSVFilename(day time.Time) string {
	return fmt.Sprintf("分組結果_%s.csv", day.Format(time.DateOnly))
}

// WriteGroupsCSV writes one row per group member under the header 分組,姓名.
func WriteGroupsCSV(w io.Writer, groups []models.Group) error {
	rows := [][]string{{"分組", "姓名"}}
	for _, g := range groups {
		for _, m := range g.Members {
			rows = append(rows, []string{g.Name, m.Name})
		}
	}
	return writeCSV(w, rows)
}

// WriteWinnersCSV writes the winner history in the order given.
func WriteWinnersCSV(w io.Writer, winners []models.Winner, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	rows := [][]string{{"獎項", "姓名", "時間"}}
	for _, win := range winners {
		rows = append(rows, []string{
			win.Prize,
			win.Participant.Name,
			win.Timestamp.In(loc).Format(time.DateTime),
		})
	}
	return writeCSV(w, rows)
}

func writeCSV(w io.Writer, rows [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ClipboardText renders groups as plain text blocks:
//
//	第 1 組:
//	・ Alice
//	・ Bob
func ClipboardText(groups []models.Group) string {
	blocks := make([]string, 0, len(groups))
	for _, g := range groups {
		var b strings.Builder
		b.WriteString(g.Name)
		b.WriteString(":")
		for _, m := range g.Members {
			b.WriteString("\n・ ")
			b.WriteString(m.Name)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
