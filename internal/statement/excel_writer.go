// Package statement renders an employee's claims as an XLSX workbook.
package statement

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetName is the single sheet written to every statement
const SheetName = "Claims"

var headers = []string{
	"ClaimID", "ProjectID", "Currency", "Amount", "Status",
	"ExpenseDate", "Purpose", "ChargeToDefaultDept", "AlternativeDeptCode", "LastEdited",
}

// ExcelWriter writes claim statements with excelize
type ExcelWriter struct {
	logger *zap.Logger
}

// NewExcelWriter creates a new statement writer
func NewExcelWriter(logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{logger: logger}
}

// Write renders one header row, one row per claim, a blank row, then one
// total row per currency. Amounts and totals are numeric cells formatted to
// two decimals.
func (ew *ExcelWriter) Write(w io.Writer, employee *entity.Employee, claims []*entity.ClaimWithCurrency) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	sheet := &sheetWriter{file: f}
	sheet.set("A1", fmt.Sprintf("Statement for %s %s (%d)", employee.FirstName, employee.LastName, employee.EmployeeID))

	row := 3
	for col, h := range headers {
		sheet.set(cellName(col+1, row), h)
	}

	totals := make(map[string]decimal.Decimal)
	for _, c := range claims {
		row++
		values := []interface{}{
			c.ClaimID,
			c.ProjectID,
			c.Currency.CurrencyID,
			amountValue(c.Amount),
			c.Status,
			c.ExpenseDate.Format(entity.ExpenseDateLayout),
			c.Purpose,
			c.ChargeToDefaultDept,
			c.AlternativeDeptCode,
			c.LastEditedClaimDate.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			sheet.set(cellName(col+1, row), v)
		}
		sheet.style(cellName(amountColumn, row), amountStyle)

		code := strings.ToUpper(c.Currency.CurrencyID)
		totals[code] = totals[code].Add(c.Amount)
	}

	codes := make([]string, 0, len(totals))
	for code := range totals {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	row++
	for _, code := range codes {
		row++
		sheet.set(cellName(1, row), "Total")
		sheet.set(cellName(3, row), code)
		sheet.set(cellName(amountColumn, row), amountValue(totals[code]))
		sheet.style(cellName(amountColumn, row), amountStyle)
	}

	if sheet.err != nil {
		ew.logger.Error("Failed to fill statement",
			zap.Int64("employee_id", employee.EmployeeID),
			zap.Error(sheet.err))
		return fmt.Errorf("failed to fill statement: %w", sheet.err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}

	ew.logger.Info("Statement written",
		zap.Int64("employee_id", employee.EmployeeID),
		zap.Int("claims", len(claims)),
		zap.Int("currencies", len(codes)))

	return nil
}

// amountColumn is the 1-based column holding amounts and totals
const amountColumn = 4

// amountValue rounds to cents. Values beyond float64 range stay as text.
func amountValue(d decimal.Decimal) interface{} {
	rounded := d.Round(2)
	v, _ := rounded.Float64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return rounded.StringFixed(2)
	}
	return v
}

// sheetWriter keeps the first error from a run of cell writes
type sheetWriter struct {
	file *excelize.File
	err  error
}

func (sw *sheetWriter) set(cell string, value interface{}) {
	if sw.err != nil {
		return
	}
	if err := sw.file.SetCellValue(SheetName, cell, value); err != nil {
		sw.err = fmt.Errorf("cell %s: %w", cell, err)
	}
}

func (sw *sheetWriter) style(cell string, styleID int) {
	if sw.err != nil {
		return
	}
	if err := sw.file.SetCellStyle(SheetName, cell, cell, styleID); err != nil {
		sw.err = fmt.Errorf("style %s: %w", cell, err)
	}
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}

var _ port.StatementWriter = (*ExcelWriter)(nil)
