package calc

// ServicePrices is the price charged for each development service.
type ServicePrices struct {
	Swatch  float64 `json:"swatch"`
	Sample  float64 `json:"sample"`
	Grading float64 `json:"grading"`
}

// ServiceLine is the economics of one development service.
type ServiceLine struct {
	Service        string  `json:"service"`
	WeeklyQuantity float64 `json:"weeklyQuantity"`
	AnnualQuantity float64 `json:"annualQuantity"`
	UnitPrice      float64 `json:"unitPrice"`
	UnitCost       float64 `json:"unitCost"`
	UnitProfit     float64 `json:"unitProfit"`
	MarginPercent  float64 `json:"marginPercent"`
	AnnualRevenue  float64 `json:"annualRevenue"`
	AnnualProfit   float64 `json:"annualProfit"`
}

func servicesFor(prices ServicePrices, costs ServiceCosts, weekly [3]float64) []ServiceLine {
	return []ServiceLine{
		serviceLine("swatch", prices.Swatch, costs.Swatch, weekly[0]),
		serviceLine("sample", prices.Sample, costs.Sample, weekly[1]),
		serviceLine("grading", prices.Grading, costs.Grading, weekly[2]),
	}
}

func serviceLine(name string, price, cost, weekly float64) ServiceLine {
	annual := weekly * weeksPerYear
	profit := price - cost
	return ServiceLine{
		Service:        name,
		WeeklyQuantity: weekly,
		AnnualQuantity: annual,
		UnitPrice:      price,
		UnitCost:       cost,
		UnitProfit:     profit,
		MarginPercent:  percentOf(profit, price),
		AnnualRevenue:  annual * price,
		AnnualProfit:   annual * profit,
	}
}

// PricingParams is the editable service price list.
type PricingParams struct {
	SwatchPrice     *float64 `json:"swatchPrice,omitempty"`
	SamplePrice     *float64 `json:"samplePrice,omitempty"`
	GradingPrice    *float64 `json:"gradingPrice,omitempty"`
	SwatchCost      *float64 `json:"swatchCost,omitempty"`
	SampleCost      *float64 `json:"sampleCost,omitempty"`
	GradingCost     *float64 `json:"gradingCost,omitempty"`
	SwatchesPerWeek *float64 `json:"swatchesPerWeek,omitempty"`
	SamplesPerWeek  *float64 `json:"samplesPerWeek,omitempty"`
	GradingPerWeek  *float64 `json:"gradingPerWeek,omitempty"`
}

// DefaultPricingParams returns the current price list.
func DefaultPricingParams() PricingParams {
	costs := DefaultServiceCosts()
	return PricingParams{
		SwatchPrice:     Float(250),
		SamplePrice:     Float(2000),
		GradingPrice:    Float(2500),
		SwatchCost:      Float(costs.Swatch),
		SampleCost:      Float(costs.Sample),
		GradingCost:     Float(costs.Grading),
		SwatchesPerWeek: Float(14),
		SamplesPerWeek:  Float(4),
		GradingPerWeek:  Float(2),
	}
}

// PricingResult is the per-service breakdown plus annual totals.
type PricingResult struct {
	Services      []ServiceLine `json:"services"`
	AnnualRevenue float64       `json:"annualRevenue"`
	AnnualProfit  float64       `json:"annualProfit"`
	MarginPercent float64       `json:"marginPercent"`
}

// Pricing computes unit margins and annual revenue for development services.
func Pricing(params PricingParams) PricingResult {
	p := params.Resolved()

	services := servicesFor(
		ServicePrices{Swatch: num(p.SwatchPrice), Sample: num(p.SamplePrice), Grading: num(p.GradingPrice)},
		ServiceCosts{Swatch: num(p.SwatchCost), Sample: num(p.SampleCost), Grading: num(p.GradingCost)},
		[3]float64{num(p.SwatchesPerWeek), num(p.SamplesPerWeek), num(p.GradingPerWeek)},
	)

	result := PricingResult{Services: services}
	for _, s := range services {
		result.AnnualRevenue += s.AnnualRevenue
		result.AnnualProfit += s.AnnualProfit
	}
	result.MarginPercent = percentOf(result.AnnualProfit, result.AnnualRevenue)
	return finite(result)
}
