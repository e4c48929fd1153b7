package cli

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/tOgg1/inapp/internal/models"
)

const (
	tablePadding = 2
	titleWidth   = 48
	payloadWidth = 60
)

// column describes one table column. A positive width caps the cell's
// display width; right aligns numeric columns.
type column struct {
	header string
	width  int
	right  bool
}

// table collects rows and writes them aligned by display width.
// Cells come from server payloads, so escape sequences and control
// characters are removed before measuring.
type table struct {
	columns    []column
	rows       [][]string
	skipHeader bool
}

func newTable(columns ...column) *table {
	return &table{columns: columns}
}

// newKeyValueTable is a two column table without a header row.
func newKeyValueTable() *table {
	return &table{columns: []column{{}, {}}, skipHeader: true}
}

func (t *table) addRow(cells ...string) {
	row := make([]string, len(t.columns))
	for idx, col := range t.columns {
		if idx < len(cells) {
			row[idx] = truncate(cleanCell(cells[idx]), col.width)
		}
	}
	t.rows = append(t.rows, row)
}

func (t *table) write(out io.Writer) error {
	if len(t.columns) == 0 {
		return nil
	}

	widths := make([]int, len(t.columns))
	measure := func(row []string) {
		for idx, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[idx] {
				widths[idx] = w
			}
		}
	}
	headers := make([]string, len(t.columns))
	for idx, col := range t.columns {
		headers[idx] = col.header
	}
	if !t.skipHeader {
		measure(headers)
	}
	for _, row := range t.rows {
		measure(row)
	}

	writer := bufio.NewWriter(out)
	var writeErr error
	writeRow := func(row []string) {
		if writeErr != nil {
			return
		}
		var line strings.Builder
		last := len(row) - 1
		for idx, cell := range row {
			switch {
			case t.columns[idx].right:
				line.WriteString(runewidth.FillLeft(cell, widths[idx]))
			case idx < last:
				line.WriteString(runewidth.FillRight(cell, widths[idx]))
			default:
				line.WriteString(cell)
			}
			if idx < last {
				line.WriteString(strings.Repeat(" ", tablePadding))
			}
		}
		line.WriteByte('\n')
		_, writeErr = writer.WriteString(line.String())
	}

	if !t.skipHeader {
		writeRow(headers)
	}
	for _, row := range t.rows {
		writeRow(row)
	}
	if writeErr != nil {
		return writeErr
	}
	return writer.Flush()
}

// cleanCell drops ANSI escape sequences and turns other control
// characters into spaces so a cell stays on one line.
func cleanCell(value string) string {
	if value == "" {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch == 0x1b && i+1 < len(value) && value[i+1] == '[' {
			i += 2
			for i < len(value) && (value[i] < 0x40 || value[i] > 0x7e) {
				i++
			}
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// truncate shortens value to at most width display cells.
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	return runewidth.Truncate(value, width, "...")
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatPriority(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func writeMessageTable(w io.Writer, messages []*models.Message) error {
	t := newTable(
		column{header: "ID"},
		column{header: "PRIORITY", right: true},
		column{header: "TRIGGER"},
		column{header: "READ"},
		column{header: "PINNED"},
		column{header: "EXPIRES"},
		column{header: "TITLE", width: titleWidth},
	)
	for _, m := range messages {
		t.addRow(
			m.ID,
			formatPriority(m.Priority),
			string(m.Trigger),
			formatYesNo(m.Read),
			formatYesNo(m.Pinned),
			formatTime(m.ExpiresAt),
			orDash(m.Title()),
		)
	}
	return t.write(w)
}

func writeMessageDetail(w io.Writer, m *models.Message) error {
	t := newKeyValueTable()
	t.addRow("ID", m.ID)
	t.addRow("Title", orDash(m.Title()))
	t.addRow("Priority", formatPriority(m.Priority))
	t.addRow("Trigger", string(m.Trigger))
	t.addRow("Campaign", strconv.FormatInt(m.CampaignID, 10))
	t.addRow("Created", formatTime(m.CreatedAt))
	t.addRow("Expires", formatTime(m.ExpiresAt))
	t.addRow("Inbox", formatYesNo(m.SaveToInbox))
	t.addRow("Silent", formatYesNo(m.SilentInbox))
	t.addRow("Read", formatYesNo(m.Read))
	t.addRow("Pinned", formatYesNo(m.Pinned))
	t.addRow("Processed", formatYesNo(m.DidProcessTrigger))
	t.addRow("Consumed", formatYesNo(m.Consumed))
	return t.write(w)
}

func writeEventTable(w io.Writer, events []*models.Event) error {
	t := newTable(
		column{header: "TIME"},
		column{header: "TYPE"},
		column{header: "ENTITY"},
		column{header: "PAYLOAD", width: payloadWidth},
	)
	for _, e := range events {
		t.addRow(
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Type),
			orDash(e.EntityID),
			string(e.Payload),
		)
	}
	return t.write(w)
}

func writeEventCounts(w io.Writer, counts []eventCount) error {
	t := newTable(column{header: "TYPE"}, column{header: "COUNT", right: true})
	for _, c := range counts {
		t.addRow(string(c.Type), strconv.FormatInt(c.Count, 10))
	}
	return t.write(w)
}

func writeSessionTable(w io.Writer, sessions []*models.SessionInfo) error {
	t := newTable(
		column{header: "ID"},
		column{header: "STARTED"},
		column{header: "DURATION", right: true},
		column{header: "MESSAGES", right: true},
		column{header: "UNREAD", right: true},
		column{header: "IMPRESSIONS", right: true},
	)
	for _, s := range sessions {
		t.addRow(
			s.Start.ID,
			formatAge(s.Start.StartTime),
			s.EndTime.Sub(s.Start.StartTime).Round(time.Second).String(),
			strconv.Itoa(s.Start.TotalMessageCount),
			strconv.Itoa(s.Start.UnreadMessageCount),
			strconv.Itoa(len(s.Impressions)),
		)
	}
	return t.write(w)
}

func writeImpressionTable(w io.Writer, impressions []models.Impression) error {
	t := newTable(
		column{header: "MESSAGE"},
		column{header: "FIRST SHOWN"},
		column{header: "SHOWN", right: true},
		column{header: "DURATION", right: true},
		column{header: "SILENT"},
	)
	for _, imp := range impressions {
		t.addRow(
			imp.MessageID,
			imp.FirstShownAt.Local().Format("15:04:05"),
			strconv.Itoa(imp.DisplayCount),
			imp.Duration.String(),
			formatYesNo(imp.SilentInbox),
		)
	}
	return t.write(w)
}
