// Package report renders a period of transactions into an Excel workbook.
package report

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"moneymanager/internal/core"
)

const (
	// Filename is the download name clients receive for the workbook.
	Filename = "money-report.xlsx"
	// ContentType is the MIME type sent alongside the workbook bytes.
	ContentType = "application/octet-stream"

	SheetName = "Money Report"

	periodLayout  = "2006-01-02"
	rowDateLayout = "02-01-2006"

	minColWidth = 10
	maxColWidth = 60
)

// ErrGenerationFailed wraps every failure raised while assembling a workbook.
var ErrGenerationFailed = errors.New("report generation failed")

// Builder lays out the workbook. The zero value formats dates in each
// transaction's own location.
type Builder struct {
	Location *time.Location
}

// Build renders txs for the period [start, end] with the default Builder.
func Build(txs []core.Transaction, start, end time.Time) ([]byte, error) {
	return Builder{}.Build(txs, start, end)
}

// Build renders the workbook. On error no bytes are returned.
func (b Builder) Build(txs []core.Transaction, start, end time.Time) ([]byte, error) {
	out, err := b.build(txs, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return out, nil
}

func (b Builder) build(txs []core.Transaction, start, end time.Time) ([]byte, error) {
	summary := core.Summarize(txs)
	byCategory, err := core.ExpenseByCategory(txs)
	if err != nil {
		return nil, fmt.Errorf("expense by category: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := &sheetWriter{f: f, sheet: SheetName, bold: bold, widths: map[int]int{}}

	w.title(fmt.Sprintf("Report Period: %s to %s", start.Format(periodLayout), end.Format(periodLayout)))
	w.blank()
	w.keyValue("Total Income", summary.TotalIncome.InexactFloat64())
	w.keyValue("Total Expense", summary.TotalExpense.InexactFloat64())
	w.keyValue("Balance", summary.Balance.InexactFloat64())
	w.blank()

	w.title("Category Wise Expense")
	for _, ca := range byCategory {
		w.keyValue(ca.Name, ca.Amount.InexactFloat64())
	}
	w.blank()

	w.title("Income Details")
	w.header("Date", "Category", "Amount", "Description")
	for _, t := range txs {
		if t.Type != core.Income {
			continue
		}
		w.row(b.date(t.CreatedAt), t.Category, t.Amount.InexactFloat64(), t.Description)
	}
	w.blank()

	w.title("Expense Details")
	w.header("Date", "Category", "Division", "Amount", "Description")
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		w.row(b.date(t.CreatedAt), t.Category, string(t.Division), t.Amount.InexactFloat64(), t.Description)
	}

	if w.err != nil {
		return nil, w.err
	}
	if err := w.autoSize(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (b Builder) date(t time.Time) string {
	if b.Location != nil {
		t = t.In(b.Location)
	}
	return t.Format(rowDateLayout)
}

// sheetWriter appends rows top to bottom and remembers the first error.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	bold   int
	rowNum int
	widths map[int]int
	err    error
}

func (w *sheetWriter) blank() {
	w.rowNum++
}

func (w *sheetWriter) title(text string) {
	w.rowNum++
	w.set(1, text)
	w.style(1, 1)
}

func (w *sheetWriter) header(cols ...string) {
	w.rowNum++
	for i, c := range cols {
		w.set(i+1, c)
	}
	w.style(1, len(cols))
}

func (w *sheetWriter) keyValue(key string, value float64) {
	w.row(key, value)
}

func (w *sheetWriter) row(values ...any) {
	w.rowNum++
	for i, v := range values {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		w.set(i+1, v)
	}
}

func (w *sheetWriter) set(col int, v any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, w.rowNum)
	if err != nil {
		w.err = fmt.Errorf("cell name: %w", err)
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
		w.err = fmt.Errorf("set %s: %w", cell, err)
		return
	}
	if n := utf8.RuneCountInString(fmt.Sprint(v)); n > w.widths[col] {
		w.widths[col] = n
	}
}

func (w *sheetWriter) style(fromCol, toCol int) {
	if w.err != nil {
		return
	}
	from, _ := excelize.CoordinatesToCellName(fromCol, w.rowNum)
	to, _ := excelize.CoordinatesToCellName(toCol, w.rowNum)
	if err := w.f.SetCellStyle(w.sheet, from, to, w.bold); err != nil {
		w.err = fmt.Errorf("style %s:%s: %w", from, to, err)
	}
}

// autoSize widens each used column to fit its longest cell. The title row
// spans the sheet, so column A is capped.
func (w *sheetWriter) autoSize() error {
	for col, n := range w.widths {
		width := n + 2
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxColWidth {
			width = maxColWidth
		}
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := w.f.SetColWidth(w.sheet, name, name, float64(width)); err != nil {
			return fmt.Errorf("set width %s: %w", name, err)
		}
	}
	return nil
}
