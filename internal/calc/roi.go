package calc

import "fmt"

// ROIParams is the saved configuration of the machine investment calculator.
type ROIParams struct {
	MachineCost           *float64 `json:"machineCost,omitempty"`
	AdditionalCapacity    *float64 `json:"additionalCapacity,omitempty"`
	AvgGarmentPrice       *float64 `json:"avgGarmentPrice,omitempty"`
	OperatingCostPerMonth *float64 `json:"operatingCostPerMonth,omitempty"`
}

// DefaultROIParams returns the numbers for a typical new flatbed.
func DefaultROIParams() ROIParams {
	return ROIParams{
		MachineCost:           Float(100000),
		AdditionalCapacity:    Float(10),
		AvgGarmentPrice:       Float(150),
		OperatingCostPerMonth: Float(5000),
	}
}

// PaybackNotApplicable labels an investment that never pays for itself.
const PaybackNotApplicable = "N/A"

// ROIResult is the return on a machine purchase. PaybackYears is nil when the
// machine does not produce a profit.
type ROIResult struct {
	AnnualRevenue   float64  `json:"annualRevenue"`
	AnnualCost      float64  `json:"annualCost"`
	AnnualProfit    float64  `json:"annualProfit"`
	MonthlyProfit   float64  `json:"monthlyProfit"`
	PaybackYears    *float64 `json:"paybackYears"`
	PaybackLabel    string   `json:"paybackLabel"`
	ROIPercent      float64  `json:"roiPercent"`
	FiveYearNetGain float64  `json:"fiveYearNetGain"`
}

// ROI computes payback and annual return for an additional machine.
func ROI(params ROIParams) ROIResult {
	p := params.Resolved()

	cost := num(p.MachineCost)
	revenue := num(p.AdditionalCapacity) * daysPerYear * num(p.AvgGarmentPrice)
	annualCost := num(p.OperatingCostPerMonth) * monthsPerYear
	profit := revenue - annualCost

	r := ROIResult{
		AnnualRevenue:   revenue,
		AnnualCost:      annualCost,
		AnnualProfit:    profit,
		MonthlyProfit:   profit / monthsPerYear,
		PaybackLabel:    PaybackNotApplicable,
		FiveYearNetGain: profit*5 - cost,
	}
	if profit > 0 {
		years := cost / profit
		r.PaybackYears = &years
		r.PaybackLabel = formatYears(years)
		r.ROIPercent = percentOf(profit, cost)
	}
	return finite(r)
}

func formatYears(years float64) string {
	return fmt.Sprintf("%.1f years", years)
}
