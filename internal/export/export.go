// Package export renders dashboard results as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/maeknit/dashboard/internal/calc"
)

const (
	summarySheet  = "Summary"
	expensesSheet = "Expenses"
	servicesSheet = "Services"
	scenarioSheet = "Scenarios"
	cashFlowSheet = "Cash Flow"
)

// Report is everything written to the workbook.
type Report struct {
	Dashboard calc.DashboardResult
	Scenarios []calc.Scenario
	CashFlow  []calc.CashFlowMonth
}

// Workbook builds the dashboard workbook.
func Workbook(r Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, name := range []string{expensesSheet, servicesSheet, scenarioSheet, cashFlowSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	d := r.Dashboard
	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{
			name:   summarySheet,
			header: []string{"Metric", "Value"},
			rows: [][]any{
				{"Monthly expenses", d.MonthlyExpenses},
				{"Annual expenses", d.AnnualExpenses},
				{"Daily production capacity", d.DailyProductionCapacity},
				{"Annual production capacity", d.AnnualProductionCapacity},
				{"Production revenue", d.ProductionRevenue},
				{"Development revenue", d.DevelopmentRevenue},
				{"Total revenue", d.TotalRevenue},
				{"Profit", d.Profit},
				{"Profit margin %", d.ProfitMargin},
				{"Break-even units", d.BreakEven.Units},
				{"Safety margin %", d.BreakEven.SafetyMarginPercent},
			},
		},
		{
			name:   expensesSheet,
			header: []string{"Category", "Base monthly", "Adjusted monthly"},
			rows: [][]any{
				{"Team labor", d.BaseExpenses.TeamLabor, d.AdjustedExpenses.TeamLabor},
				{"Rent", d.BaseExpenses.Rent, d.AdjustedExpenses.Rent},
				{"Electricity", d.BaseExpenses.Electricity, d.AdjustedExpenses.Electricity},
				{"Water", d.BaseExpenses.Water, d.AdjustedExpenses.Water},
				{"Material", d.BaseExpenses.MaterialCost, d.AdjustedExpenses.MaterialCost},
				{"Overhead", d.BaseExpenses.Overhead, d.AdjustedExpenses.Overhead},
				{"Total", d.BaseExpenses.Total(), d.AdjustedExpenses.Total()},
			},
		},
		{
			name:   servicesSheet,
			header: []string{"Service", "Annual quantity", "Unit price", "Unit cost", "Margin %", "Annual revenue", "Annual profit"},
			rows:   serviceRows(d.Services),
		},
		{
			name:   scenarioSheet,
			header: []string{"Scenario", "Revenue", "Expenses", "Profit"},
			rows:   scenarioRows(r.Scenarios),
		},
		{
			name:   cashFlowSheet,
			header: []string{"Month", "Revenue", "Expenses", "Net flow", "Cumulative"},
			rows:   cashFlowRows(r.CashFlow),
		},
	}

	for _, s := range sheets {
		if err := writeTable(f, s.name, s.header, s.rows); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("style %s header: %w", s.name, err)
		}
		if err := f.SetColWidth(s.name, "A", "A", 28); err != nil {
			f.Close()
			return nil, fmt.Errorf("size %s columns: %w", s.name, err)
		}
	}

	return f, nil
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, r Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]any) error {
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell %s: %w", sheet, err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("row cell %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}

func serviceRows(services []calc.ServiceLine) [][]any {
	rows := make([][]any, 0, len(services))
	for _, s := range services {
		rows = append(rows, []any{s.Service, s.AnnualQuantity, s.UnitPrice, s.UnitCost, s.MarginPercent, s.AnnualRevenue, s.AnnualProfit})
	}
	return rows
}

func scenarioRows(scenarios []calc.Scenario) [][]any {
	rows := make([][]any, 0, len(scenarios))
	for _, s := range scenarios {
		rows = append(rows, []any{s.Name, s.Revenue, s.Expenses, s.Profit})
	}
	return rows
}

func cashFlowRows(months []calc.CashFlowMonth) [][]any {
	rows := make([][]any, 0, len(months))
	for _, m := range months {
		rows = append(rows, []any{m.Month, m.Revenue, m.Expenses, m.NetFlow, m.CumulativeFlow})
	}
	return rows
}
