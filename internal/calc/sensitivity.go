package calc

// CategoryImpact is the monthly cost effect of one multiplier.
type CategoryImpact struct {
	Category      string  `json:"category"`
	Multiplier    float64 `json:"multiplier"`
	BaseMonthly   float64 `json:"baseMonthly"`
	MonthlyImpact float64 `json:"monthlyImpact"`
}

// SensitivityResult compares profit at the given multipliers against profit
// with every multiplier at 1.
type SensitivityResult struct {
	BaseProfit     float64          `json:"baseProfit"`
	AdjustedProfit float64          `json:"adjustedProfit"`
	ProfitChange   float64          `json:"profitChange"`
	ChangePercent  float64          `json:"changePercent"`
	Impacts        []CategoryImpact `json:"impacts"`
}

// Sensitivity reports how the multipliers move annual profit.
func Sensitivity(params DashboardParams, mult Multipliers, tables Tables) SensitivityResult {
	m := mult.Resolved()
	base := Dashboard(params, DefaultMultipliers(), tables)
	adjusted := Dashboard(params, m, tables)

	change := adjusted.Profit - base.Profit
	return finite(SensitivityResult{
		BaseProfit:     base.Profit,
		AdjustedProfit: adjusted.Profit,
		ProfitChange:   change,
		ChangePercent:  percentOf(change, base.Profit),
		Impacts: []CategoryImpact{
			impact("labor", num(m.Labor), base.BaseExpenses.TeamLabor),
			impact("rent", num(m.Rent), base.BaseExpenses.Rent),
			impact("material", num(m.Material), base.BaseExpenses.MaterialCost),
		},
	})
}

func impact(category string, multiplier, baseMonthly float64) CategoryImpact {
	return CategoryImpact{
		Category:      category,
		Multiplier:    multiplier,
		BaseMonthly:   baseMonthly,
		MonthlyImpact: (multiplier - 1) * baseMonthly,
	}
}
