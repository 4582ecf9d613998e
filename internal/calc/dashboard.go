package calc

import "math"

// Development mix values. Any value other than MixProductionOnly is modeled as
// production mixed with development work.
const (
	MixWorst          = "worst"
	MixProductionOnly = "production-only"
)

// DashboardParams is the editable configuration of the finance dashboard.
type DashboardParams struct {
	TeamLabor    *float64 `json:"teamLabor,omitempty"`
	Rent         *float64 `json:"rent,omitempty"`
	Electricity  *float64 `json:"electricity,omitempty"`
	Water        *float64 `json:"water,omitempty"`
	MaterialCost *float64 `json:"materialCost,omitempty"`
	Overhead     *float64 `json:"overhead,omitempty"`

	WaterRate       *float64 `json:"waterRate,omitempty"`
	ElectricityRate *float64 `json:"electricityRate,omitempty"`
	LaborRate       *float64 `json:"laborRate,omitempty"`

	SwatchPrice  *float64 `json:"swatchPrice,omitempty"`
	SamplePrice  *float64 `json:"samplePrice,omitempty"`
	GradingPrice *float64 `json:"gradingPrice,omitempty"`

	E72StollCapacity *float64 `json:"e72StollCapacity,omitempty"`
	E35StollCapacity *float64 `json:"e35StollCapacity,omitempty"`
	E18SwgCapacity   *float64 `json:"e18SwgCapacity,omitempty"`
	E72StollTime     *float64 `json:"e72StollTime,omitempty"`
	E35StollTime     *float64 `json:"e35StollTime,omitempty"`
	E18SwgTime       *float64 `json:"e18SwgTime,omitempty"`

	Shifts          *float64 `json:"shifts,omitempty"`
	AvgGarmentPrice *float64 `json:"avgGarmentPrice,omitempty"`
	DevelopmentMix  *string  `json:"developmentMix,omitempty"`
	SwatchesPerWeek *float64 `json:"swatchesPerWeek,omitempty"`
	SamplesPerWeek  *float64 `json:"samplesPerWeek,omitempty"`
	GradingPerWeek  *float64 `json:"gradingPerWeek,omitempty"`
}

// DefaultDashboardParams returns the dashboard configuration used when
// nothing has been saved yet.
func DefaultDashboardParams() DashboardParams {
	return DashboardParams{
		TeamLabor:        Float(50684),
		Rent:             Float(7000),
		Electricity:      Float(450),
		Water:            Float(431),
		MaterialCost:     Float(2000),
		Overhead:         Float(4240),
		WaterRate:        Float(1.69),
		ElectricityRate:  Float(0.32),
		LaborRate:        Float(30),
		SwatchPrice:      Float(250),
		SamplePrice:      Float(2000),
		GradingPrice:     Float(2500),
		E72StollCapacity: Float(16),
		E35StollCapacity: Float(10),
		E18SwgCapacity:   Float(16),
		E72StollTime:     Float(3),
		E35StollTime:     Float(1),
		E18SwgTime:       Float(1),
		Shifts:           Float(1),
		AvgGarmentPrice:  Float(150),
		DevelopmentMix:   String(MixWorst),
		SwatchesPerWeek:  Float(14),
		SamplesPerWeek:   Float(4),
		GradingPerWeek:   Float(2),
	}
}

// Multipliers scale individual expense categories for what-if analysis.
// They live for a session only and are never persisted.
type Multipliers struct {
	Labor    *float64 `json:"laborCostMultiplier,omitempty"`
	Rent     *float64 `json:"rentMultiplier,omitempty"`
	Material *float64 `json:"materialCostMultiplier,omitempty"`
}

// DefaultMultipliers leaves every expense at its base value.
func DefaultMultipliers() Multipliers {
	return Multipliers{Labor: Float(1), Rent: Float(1), Material: Float(1)}
}

// CapacityTable holds the daily production capacity for each shift and
// development mix combination. The values come from the business, not from
// a formula.
type CapacityTable struct {
	OneShiftProductionOnly float64 `json:"oneShiftProductionOnly" toml:"one_shift_production_only"`
	OneShiftMixed          float64 `json:"oneShiftMixed" toml:"one_shift_mixed"`
	TwoShifts              float64 `json:"twoShifts" toml:"two_shifts"`
}

// DefaultCapacityTable returns the capacities measured on the current floor.
func DefaultCapacityTable() CapacityTable {
	return CapacityTable{OneShiftProductionOnly: 42, OneShiftMixed: 16, TwoShifts: 58}
}

// Daily returns garments per day for the given shift count and mix.
// Shift counts other than 1 and 2 have no capacity.
func (t CapacityTable) Daily(shifts float64, mix string) float64 {
	switch shifts {
	case 1:
		if mix == MixProductionOnly {
			return t.OneShiftProductionOnly
		}
		return t.OneShiftMixed
	case 2:
		return t.TwoShifts
	default:
		return 0
	}
}

// ServiceCosts is the internal unit cost of each development service.
type ServiceCosts struct {
	Swatch  float64 `json:"swatch" toml:"swatch"`
	Sample  float64 `json:"sample" toml:"sample"`
	Grading float64 `json:"grading" toml:"grading"`
}

// DefaultServiceCosts returns the unit costs from the last costing exercise.
func DefaultServiceCosts() ServiceCosts {
	return ServiceCosts{Swatch: 75.88, Sample: 327.02, Grading: 1201.34}
}

// Tables groups the business lookup values the dashboard depends on.
type Tables struct {
	Capacity     CapacityTable `json:"capacity"`
	ServiceCosts ServiceCosts  `json:"serviceCosts"`
}

// DefaultTables returns DefaultCapacityTable and DefaultServiceCosts.
func DefaultTables() Tables {
	return Tables{Capacity: DefaultCapacityTable(), ServiceCosts: DefaultServiceCosts()}
}

// ExpenseBreakdown lists monthly expenses by category.
type ExpenseBreakdown struct {
	TeamLabor    float64 `json:"teamLabor"`
	Rent         float64 `json:"rent"`
	Electricity  float64 `json:"electricity"`
	Water        float64 `json:"water"`
	MaterialCost float64 `json:"materialCost"`
	Overhead     float64 `json:"overhead"`
}

// Total sums every category.
func (e ExpenseBreakdown) Total() float64 {
	return e.TeamLabor + e.Rent + e.Electricity + e.Water + e.MaterialCost + e.Overhead
}

// MachineCapacity describes one knitting machine.
type MachineCapacity struct {
	Machine        string  `json:"machine"`
	TimePerGarment float64 `json:"timePerGarment"`
	DailyCapacity  float64 `json:"dailyCapacity"`
	AnnualCapacity float64 `json:"annualCapacity"`
}

// BreakEven is the point where revenue covers annual expenses.
type BreakEven struct {
	Revenue             float64 `json:"revenue"`
	Units               float64 `json:"units"`
	SafetyMarginPercent float64 `json:"safetyMarginPercent"`
}

// DashboardResult is everything the dashboard displays for one parameter set.
type DashboardResult struct {
	BaseExpenses     ExpenseBreakdown `json:"baseExpenses"`
	AdjustedExpenses ExpenseBreakdown `json:"adjustedExpenses"`
	MonthlyExpenses  float64          `json:"monthlyExpenses"`
	AnnualExpenses   float64          `json:"annualExpenses"`

	DailyProductionCapacity  float64 `json:"dailyProductionCapacity"`
	AnnualProductionCapacity float64 `json:"annualProductionCapacity"`
	UtilizationPercent       float64 `json:"utilizationPercent"`

	AnnualSwatches float64 `json:"annualSwatches"`
	AnnualSamples  float64 `json:"annualSamples"`
	AnnualGrading  float64 `json:"annualGrading"`

	ProductionRevenue  float64 `json:"productionRevenue"`
	DevelopmentRevenue float64 `json:"developmentRevenue"`
	TotalRevenue       float64 `json:"totalRevenue"`
	Profit             float64 `json:"profit"`
	ProfitMargin       float64 `json:"profitMargin"`

	Machines  []MachineCapacity `json:"machines"`
	Services  []ServiceLine     `json:"services"`
	BreakEven BreakEven         `json:"breakEven"`
}

// Dashboard computes monthly and annual expenses, capacity, revenue and profit.
func Dashboard(params DashboardParams, mult Multipliers, tables Tables) DashboardResult {
	p := params.Resolved()
	m := mult.Resolved()

	base := ExpenseBreakdown{
		TeamLabor:    num(p.TeamLabor),
		Rent:         num(p.Rent),
		Electricity:  num(p.Electricity),
		Water:        num(p.Water),
		MaterialCost: num(p.MaterialCost),
		Overhead:     num(p.Overhead),
	}
	// Utilities and overhead are not subject to sensitivity multipliers.
	adjusted := ExpenseBreakdown{
		TeamLabor:    base.TeamLabor * num(m.Labor),
		Rent:         base.Rent * num(m.Rent),
		Electricity:  base.Electricity,
		Water:        base.Water,
		MaterialCost: base.MaterialCost * num(m.Material),
		Overhead:     base.Overhead,
	}
	monthlyExpenses := adjusted.Total()
	annualExpenses := monthlyExpenses * monthsPerYear

	dailyCapacity := tables.Capacity.Daily(num(p.Shifts), str(p.DevelopmentMix))
	annualCapacity := dailyCapacity * daysPerYear
	avgPrice := num(p.AvgGarmentPrice)
	productionRevenue := annualCapacity * avgPrice

	services := servicesFor(
		ServicePrices{Swatch: num(p.SwatchPrice), Sample: num(p.SamplePrice), Grading: num(p.GradingPrice)},
		tables.ServiceCosts,
		[3]float64{num(p.SwatchesPerWeek), num(p.SamplesPerWeek), num(p.GradingPerWeek)},
	)
	var developmentRevenue float64
	for _, s := range services {
		developmentRevenue += s.AnnualRevenue
	}

	totalRevenue := productionRevenue + developmentRevenue
	profit := totalRevenue - annualExpenses

	machines := []MachineCapacity{
		machine("E7.2 STOLL", num(p.E72StollTime), num(p.E72StollCapacity)),
		machine("E3.5,2 STOLL", num(p.E35StollTime), num(p.E35StollCapacity)),
		machine("E18 SWG", num(p.E18SwgTime), num(p.E18SwgCapacity)),
	}
	var machineDaily float64
	for _, mc := range machines {
		machineDaily += mc.DailyCapacity
	}

	breakEvenUnits := 0.0
	if avgPrice > 0 {
		breakEvenUnits = math.Ceil(annualExpenses / avgPrice)
	}

	return finite(DashboardResult{
		BaseExpenses:             base,
		AdjustedExpenses:         adjusted,
		MonthlyExpenses:          monthlyExpenses,
		AnnualExpenses:           annualExpenses,
		DailyProductionCapacity:  dailyCapacity,
		AnnualProductionCapacity: annualCapacity,
		UtilizationPercent:       percentOf(dailyCapacity, machineDaily),
		AnnualSwatches:           services[0].AnnualQuantity,
		AnnualSamples:            services[1].AnnualQuantity,
		AnnualGrading:            services[2].AnnualQuantity,
		ProductionRevenue:        productionRevenue,
		DevelopmentRevenue:       developmentRevenue,
		TotalRevenue:             totalRevenue,
		Profit:                   profit,
		ProfitMargin:             percentOf(profit, totalRevenue),
		Machines:                 machines,
		Services:                 services,
		BreakEven: BreakEven{
			Revenue:             annualExpenses,
			Units:               breakEvenUnits,
			SafetyMarginPercent: percentOf(totalRevenue-annualExpenses, totalRevenue),
		},
	})
}

func machine(name string, timePerGarment, daily float64) MachineCapacity {
	return MachineCapacity{
		Machine:        name,
		TimePerGarment: timePerGarment,
		DailyCapacity:  daily,
		AnnualCapacity: daily * daysPerYear,
	}
}

// Scenario is one row of the scenario comparison table.
type Scenario struct {
	Name     string  `json:"scenario"`
	Revenue  float64 `json:"revenue"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

// Scenarios recomputes the dashboard for the four standard shift and mix
// combinations, followed by the current parameters.
func Scenarios(params DashboardParams, mult Multipliers, tables Tables) []Scenario {
	variants := []struct {
		name   string
		shifts float64
		mix    string
	}{
		{"1 Shift - Worst Case", 1, MixWorst},
		{"1 Shift - Best Case", 1, MixProductionOnly},
		{"2 Shifts - Worst Case", 2, MixWorst},
		{"2 Shifts - Best Case", 2, MixProductionOnly},
	}

	out := make([]Scenario, 0, len(variants)+1)
	for _, v := range variants {
		p := params
		p.Shifts = Float(v.shifts)
		p.DevelopmentMix = String(v.mix)
		out = append(out, scenarioOf(v.name, Dashboard(p, mult, tables)))
	}
	return append(out, scenarioOf("Current Scenario", Dashboard(params, mult, tables)))
}

func scenarioOf(name string, r DashboardResult) Scenario {
	return Scenario{Name: name, Revenue: r.TotalRevenue, Expenses: r.AnnualExpenses, Profit: r.Profit}
}
