package calc

import "math"

// Bottleneck names the constraint that limits achievable production.
type Bottleneck string

const (
	BottleneckLabor   Bottleneck = "labor"
	BottleneckMachine Bottleneck = "machine"
)

// CapacityParams is the saved configuration of the capacity planning tool.
// Service times are in minutes per unit, machine times in minutes per garment
// and capacities in garments per day.
type CapacityParams struct {
	TargetAnnualRevenue       *float64 `json:"targetAnnualRevenue,omitempty"`
	NumStaff                  *float64 `json:"numStaff,omitempty"`
	NumShifts                 *float64 `json:"numShifts,omitempty"`
	DesiredWeeklySwatches     *float64 `json:"desiredWeeklySwatches,omitempty"`
	DesiredWeeklySamples      *float64 `json:"desiredWeeklySamples,omitempty"`
	DesiredWeeklyGrading      *float64 `json:"desiredWeeklyGrading,omitempty"`
	AvgGarmentPrice           *float64 `json:"avgGarmentPrice,omitempty"`
	LaborRatePerHour          *float64 `json:"laborRatePerHour,omitempty"`
	WorkHoursPerWeekPerPerson *float64 `json:"workHoursPerWeekPerPerson,omitempty"`

	SwatchPrice  *float64 `json:"swatchPrice,omitempty"`
	SamplePrice  *float64 `json:"samplePrice,omitempty"`
	GradingPrice *float64 `json:"gradingPrice,omitempty"`

	SwatchProgrammingMin  *float64 `json:"swatchProgrammingMin,omitempty"`
	SwatchKnittingMin     *float64 `json:"swatchKnittingMin,omitempty"`
	SwatchLinkingMin      *float64 `json:"swatchLinkingMin,omitempty"`
	SampleProgrammingMin  *float64 `json:"sampleProgrammingMin,omitempty"`
	SampleKnittingMin     *float64 `json:"sampleKnittingMin,omitempty"`
	SampleLinkingMin      *float64 `json:"sampleLinkingMin,omitempty"`
	GradingProgrammingMin *float64 `json:"gradingProgrammingMin,omitempty"`
	GradingKnittingMin    *float64 `json:"gradingKnittingMin,omitempty"`
	GradingLinkingMin     *float64 `json:"gradingLinkingMin,omitempty"`

	E72StollKnittingTime *float64 `json:"e72StollKnittingTime,omitempty"`
	E35StollKnittingTime *float64 `json:"e35StollKnittingTime,omitempty"`
	E18SwgKnittingTime   *float64 `json:"e18SwgKnittingTime,omitempty"`

	E72Stoll1ShiftProdOnlyCapacity *float64 `json:"e72Stoll1ShiftProdOnlyCapacity,omitempty"`
	E35Stoll1ShiftProdOnlyCapacity *float64 `json:"e35Stoll1ShiftProdOnlyCapacity,omitempty"`
	E18Swg1ShiftProdOnlyCapacity   *float64 `json:"e18Swg1ShiftProdOnlyCapacity,omitempty"`
	E72Stoll1ShiftWithDevCapacity  *float64 `json:"e72Stoll1ShiftWithDevCapacity,omitempty"`
	E35Stoll1ShiftWithDevCapacity  *float64 `json:"e35Stoll1ShiftWithDevCapacity,omitempty"`
	E18Swg1ShiftWithDevCapacity    *float64 `json:"e18Swg1ShiftWithDevCapacity,omitempty"`
	E72Stoll2ShiftsCapacity        *float64 `json:"e72Stoll2ShiftsCapacity,omitempty"`
	E35Stoll2ShiftsCapacity        *float64 `json:"e35Stoll2ShiftsCapacity,omitempty"`
	E18Swg2ShiftsCapacity          *float64 `json:"e18Swg2ShiftsCapacity,omitempty"`
}

// DefaultCapacityParams returns the lab's current staffing and machine data.
func DefaultCapacityParams() CapacityParams {
	return CapacityParams{
		TargetAnnualRevenue:            Float(100000),
		NumStaff:                       Float(5),
		NumShifts:                      Float(1),
		DesiredWeeklySwatches:          Float(20),
		DesiredWeeklySamples:           Float(4),
		DesiredWeeklyGrading:           Float(2),
		AvgGarmentPrice:                Float(150),
		LaborRatePerHour:               Float(30),
		WorkHoursPerWeekPerPerson:      Float(40),
		SwatchPrice:                    Float(250),
		SamplePrice:                    Float(2000),
		GradingPrice:                   Float(2500),
		SwatchProgrammingMin:           Float(30),
		SwatchKnittingMin:              Float(25),
		SwatchLinkingMin:               Float(0),
		SampleProgrammingMin:           Float(180),
		SampleKnittingMin:              Float(100),
		SampleLinkingMin:               Float(60),
		GradingProgrammingMin:          Float(600),
		GradingKnittingMin:             Float(450),
		GradingLinkingMin:              Float(300),
		E72StollKnittingTime:           Float(90),
		E35StollKnittingTime:           Float(50),
		E18SwgKnittingTime:             Float(30),
		E72Stoll1ShiftProdOnlyCapacity: Float(16),
		E35Stoll1ShiftProdOnlyCapacity: Float(10),
		E18Swg1ShiftProdOnlyCapacity:   Float(16),
		E72Stoll1ShiftWithDevCapacity:  Float(20),
		E35Stoll1ShiftWithDevCapacity:  Float(8),
		E18Swg1ShiftWithDevCapacity:    Float(10),
		E72Stoll2ShiftsCapacity:        Float(27),
		E35Stoll2ShiftsCapacity:        Float(12),
		E18Swg2ShiftsCapacity:          Float(19),
	}
}

// DevelopmentHours is weekly development time split by stage.
type DevelopmentHours struct {
	Programming float64 `json:"programming"`
	Knitting    float64 `json:"knitting"`
	Linking     float64 `json:"linking"`
	Total       float64 `json:"total"`
}

// CapacityResult is the capacity plan for one parameter set.
type CapacityResult struct {
	AvailableLaborHoursPerWeek float64 `json:"totalAvailableLaborHoursPerWeek"`
	AvailableLaborHoursPerYear float64 `json:"totalAvailableLaborHoursPerYear"`
	AnnualLaborCost            float64 `json:"annualLaborCost"`

	DevelopmentHoursWeekly   DevelopmentHours `json:"developmentHoursWeekly"`
	DevelopmentRevenueWeekly float64          `json:"developmentRevenueWeekly"`
	DevelopmentRevenueAnnual float64          `json:"developmentRevenueAnnual"`

	RemainingLaborHoursWeekly float64 `json:"remainingLaborHoursForProductionWeekly"`
	RemainingLaborHoursAnnual float64 `json:"remainingLaborHoursForProductionAnnual"`

	EffectiveDailyMachineCapacity map[string]float64 `json:"effectiveDailyMachineCapacity"`
	AnnualMachineCapacity         float64            `json:"totalAnnualMachineCapacity"`
	ProductionHoursPerGarment     float64            `json:"productionHoursPerGarment"`

	LaborBoundUnits   float64    `json:"laborBoundUnits"`
	MachineBoundUnits float64    `json:"machineBoundUnits"`
	AchievableUnits   float64    `json:"achievableProductionUnitsAnnual"`
	Bottleneck        Bottleneck `json:"bottleneck"`

	ProductionRevenueAnnual float64 `json:"productionRevenueAnnual"`
	TotalProjectedRevenue   float64 `json:"totalProjectedRevenue"`
	TargetAnnualRevenue     float64 `json:"targetAnnualRevenue"`
	HoursToReachTarget      float64 `json:"hoursToReachTargetRevenue"`
	TargetAchievable        bool    `json:"isTargetAchievable"`
	RevenueGap              float64 `json:"revenueGap"`
}

// Capacity plans annual production from staffing, development load and
// machine capacity. Achievable production is the smaller of what the
// remaining labor hours and the machines allow.
func Capacity(params CapacityParams) CapacityResult {
	p := params.Resolved()

	shifts := num(p.NumShifts)
	availableWeekly := num(p.NumStaff) * num(p.WorkHoursPerWeekPerPerson) * shifts
	availableAnnual := availableWeekly * weeksPerYear

	swatches, samples, grading := num(p.DesiredWeeklySwatches), num(p.DesiredWeeklySamples), num(p.DesiredWeeklyGrading)
	dev := DevelopmentHours{
		Programming: swatches*hours(p.SwatchProgrammingMin) + samples*hours(p.SampleProgrammingMin) + grading*hours(p.GradingProgrammingMin),
		Knitting:    swatches*hours(p.SwatchKnittingMin) + samples*hours(p.SampleKnittingMin) + grading*hours(p.GradingKnittingMin),
		Linking:     swatches*hours(p.SwatchLinkingMin) + samples*hours(p.SampleLinkingMin) + grading*hours(p.GradingLinkingMin),
	}
	dev.Total = dev.Programming + dev.Knitting + dev.Linking

	devRevenueWeekly := swatches*num(p.SwatchPrice) + samples*num(p.SamplePrice) + grading*num(p.GradingPrice)
	devRevenueAnnual := devRevenueWeekly * weeksPerYear

	remainingWeekly := availableWeekly - dev.Total
	remainingAnnual := remainingWeekly * weeksPerYear

	machines := effectiveMachineCapacity(p, shifts, dev.Total)
	var daily float64
	for _, c := range machines {
		daily += c
	}
	machineBound := daily * daysPerYear

	avgKnittingMin := (num(p.E72StollKnittingTime) + num(p.E35StollKnittingTime) + num(p.E18SwgKnittingTime)) / 3
	hoursPerGarment := avgKnittingMin / 60.0
	laborBound := math.Max(0, safeDiv(remainingAnnual, hoursPerGarment))

	bottleneck := BottleneckMachine
	achievable := machineBound
	if laborBound < machineBound {
		bottleneck = BottleneckLabor
		achievable = laborBound
	}
	achievable = math.Floor(achievable)

	price := num(p.AvgGarmentPrice)
	productionRevenue := achievable * price
	projected := productionRevenue + devRevenueAnnual

	target := num(p.TargetAnnualRevenue)
	devHoursAnnual := dev.Total * weeksPerYear
	hoursToTarget := devHoursAnnual
	if target > devRevenueAnnual {
		hoursToTarget = 0
		if price > 0 && hoursPerGarment > 0 {
			hoursToTarget = (target-devRevenueAnnual)/price*hoursPerGarment + devHoursAnnual
		}
	}

	return finite(CapacityResult{
		AvailableLaborHoursPerWeek:    availableWeekly,
		AvailableLaborHoursPerYear:    availableAnnual,
		AnnualLaborCost:               availableAnnual * num(p.LaborRatePerHour),
		DevelopmentHoursWeekly:        dev,
		DevelopmentRevenueWeekly:      devRevenueWeekly,
		DevelopmentRevenueAnnual:      devRevenueAnnual,
		RemainingLaborHoursWeekly:     remainingWeekly,
		RemainingLaborHoursAnnual:     remainingAnnual,
		EffectiveDailyMachineCapacity: machines,
		AnnualMachineCapacity:         machineBound,
		ProductionHoursPerGarment:     hoursPerGarment,
		LaborBoundUnits:               laborBound,
		MachineBoundUnits:             machineBound,
		AchievableUnits:               achievable,
		Bottleneck:                    bottleneck,
		ProductionRevenueAnnual:       productionRevenue,
		TotalProjectedRevenue:         projected,
		TargetAnnualRevenue:           target,
		HoursToReachTarget:            hoursToTarget,
		TargetAchievable:              projected >= target,
		RevenueGap:                    target - projected,
	})
}

// effectiveMachineCapacity picks the per-machine daily capacity. A single
// shift that also carries development work runs the "with development" mix.
func effectiveMachineCapacity(p CapacityParams, shifts, devHours float64) map[string]float64 {
	switch {
	case shifts == 1 && devHours > 0:
		return map[string]float64{
			"E7.2 STOLL":   num(p.E72Stoll1ShiftWithDevCapacity),
			"E3.5,2 STOLL": num(p.E35Stoll1ShiftWithDevCapacity),
			"E18 SWG":      num(p.E18Swg1ShiftWithDevCapacity),
		}
	case shifts == 1:
		return map[string]float64{
			"E7.2 STOLL":   num(p.E72Stoll1ShiftProdOnlyCapacity),
			"E3.5,2 STOLL": num(p.E35Stoll1ShiftProdOnlyCapacity),
			"E18 SWG":      num(p.E18Swg1ShiftProdOnlyCapacity),
		}
	default:
		return map[string]float64{
			"E7.2 STOLL":   num(p.E72Stoll2ShiftsCapacity),
			"E3.5,2 STOLL": num(p.E35Stoll2ShiftsCapacity),
			"E18 SWG":      num(p.E18Swg2ShiftsCapacity),
		}
	}
}
