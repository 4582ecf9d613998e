package calc

// DefaultSeasonality is the monthly revenue factor from January to December.
var DefaultSeasonality = [monthsPerYear]float64{0.8, 0.9, 1.1, 1.2, 1.3, 1.1, 0.9, 0.8, 1.0, 1.2, 1.4, 1.2}

var monthNames = [monthsPerYear]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// CashFlowMonth is one month of the seasonal cash flow projection.
type CashFlowMonth struct {
	Month          string  `json:"month"`
	Factor         float64 `json:"factor"`
	Revenue        float64 `json:"revenue"`
	Expenses       float64 `json:"expenses"`
	NetFlow        float64 `json:"netFlow"`
	CumulativeFlow float64 `json:"cumulativeFlow"`
}

// CashFlow spreads monthly revenue over the year using seasonality factors and
// accumulates net flow. Expenses are flat. A factor list that does not have
// exactly twelve entries is replaced by DefaultSeasonality.
func CashFlow(monthlyRevenue, monthlyExpenses float64, seasonality []float64) []CashFlowMonth {
	factors := DefaultSeasonality[:]
	if len(seasonality) == monthsPerYear {
		factors = seasonality
	}

	out := make([]CashFlowMonth, monthsPerYear)
	var cumulative float64
	for i, f := range factors {
		revenue := monthlyRevenue * f
		net := revenue - monthlyExpenses
		cumulative += net
		out[i] = CashFlowMonth{
			Month:          monthNames[i],
			Factor:         f,
			Revenue:        revenue,
			Expenses:       monthlyExpenses,
			NetFlow:        net,
			CumulativeFlow: cumulative,
		}
	}
	return finite(out)
}

// DashboardCashFlow projects cash flow from a dashboard result, using one
// twelfth of annual revenue as the unadjusted monthly revenue.
func DashboardCashFlow(r DashboardResult, seasonality []float64) []CashFlowMonth {
	return CashFlow(r.TotalRevenue/monthsPerYear, r.MonthlyExpenses, seasonality)
}
