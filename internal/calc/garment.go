package calc

// GarmentParams is the saved configuration of the garment cost calculator.
// Times are in minutes, rates are per hour.
type GarmentParams struct {
	MonthlyRent          *float64 `json:"monthlyRent,omitempty"`
	TotalMachines        *float64 `json:"totalMachines,omitempty"`
	WorkingHoursPerMonth *float64 `json:"workingHoursPerMonth,omitempty"`

	KnittingMachineCount *float64 `json:"knittingMachineCount,omitempty"`
	LinkingMachineCount  *float64 `json:"linkingMachineCount,omitempty"`
	WashingMachineCount  *float64 `json:"washingMachineCount,omitempty"`

	KnittingDepreciationPerHour *float64 `json:"knittingDepreciationPerHour,omitempty"`
	LinkingDepreciationPerHour  *float64 `json:"linkingDepreciationPerHour,omitempty"`
	WashingDepreciationPerHour  *float64 `json:"washingDepreciationPerHour,omitempty"`
	SteamingDepreciationPerHour *float64 `json:"steamingDepreciationPerHour,omitempty"`

	KnittingElectricityCost *float64 `json:"knittingElectricityCost,omitempty"`
	LinkingElectricityCost  *float64 `json:"linkingElectricityCost,omitempty"`
	WashingElectricityCost  *float64 `json:"washingElectricityCost,omitempty"`
	SteamingElectricityCost *float64 `json:"steamingElectricityCost,omitempty"`

	KnittingLaborRate     *float64 `json:"knittingLaborRate,omitempty"`
	LinkingLaborRate      *float64 `json:"linkingLaborRate,omitempty"`
	WashingLaborRate      *float64 `json:"washingLaborRate,omitempty"`
	QCHandFinishLaborRate *float64 `json:"qcHandFinishLaborRate,omitempty"`
	ProgrammingLaborRate  *float64 `json:"programmingLaborRate,omitempty"`
	ConsultationLaborRate *float64 `json:"consultationLaborRate,omitempty"`
	CadLaborRate          *float64 `json:"cadLaborRate,omitempty"`
	RenderingLaborRate    *float64 `json:"renderingLaborRate,omitempty"`

	StandardKnittingTime     *float64 `json:"standardKnittingTime,omitempty"`
	StandardLinkingTime      *float64 `json:"standardLinkingTime,omitempty"`
	StandardWashingTime      *float64 `json:"standardWashingTime,omitempty"`
	StandardQCTime           *float64 `json:"standardQCTime,omitempty"`
	StandardProgrammingTime  *float64 `json:"standardProgrammingTime,omitempty"`
	StandardConsultationTime *float64 `json:"standardConsultationTime,omitempty"`
	StandardCadTime          *float64 `json:"standardCadTime,omitempty"`
	StandardRenderingTime    *float64 `json:"standardRenderingTime,omitempty"`

	YarnCostPerKg              *float64 `json:"yarnCostPerKg,omitempty"`
	StandardGarmentWeightGrams *float64 `json:"standardGarmentWeightGrams,omitempty"`

	MarginPercent    *float64 `json:"marginPercent,omitempty"`
	SurchargePercent *float64 `json:"surchargePercent,omitempty"`
}

// DefaultGarmentParams returns the standard costing assumptions.
func DefaultGarmentParams() GarmentParams {
	return GarmentParams{
		MonthlyRent:                 Float(7000),
		TotalMachines:               Float(10),
		WorkingHoursPerMonth:        Float(160),
		KnittingMachineCount:        Float(4),
		LinkingMachineCount:         Float(3),
		WashingMachineCount:         Float(2),
		KnittingDepreciationPerHour: Float(5),
		LinkingDepreciationPerHour:  Float(4),
		WashingDepreciationPerHour:  Float(6),
		SteamingDepreciationPerHour: Float(3),
		KnittingElectricityCost:     Float(0.74),
		LinkingElectricityCost:      Float(0.48),
		WashingElectricityCost:      Float(2.56),
		SteamingElectricityCost:     Float(0.7),
		KnittingLaborRate:           Float(30),
		LinkingLaborRate:            Float(30),
		WashingLaborRate:            Float(30),
		QCHandFinishLaborRate:       Float(30),
		ProgrammingLaborRate:        Float(40),
		ConsultationLaborRate:       Float(40),
		CadLaborRate:                Float(50),
		RenderingLaborRate:          Float(50),
		StandardKnittingTime:        Float(90),
		StandardLinkingTime:         Float(60),
		StandardWashingTime:         Float(30),
		StandardQCTime:              Float(20),
		StandardProgrammingTime:     Float(15),
		StandardConsultationTime:    Float(30),
		StandardCadTime:             Float(45),
		StandardRenderingTime:       Float(60),
		YarnCostPerKg:               Float(25),
		StandardGarmentWeightGrams:  Float(600),
		MarginPercent:               Float(50),
		SurchargePercent:            Float(0),
	}
}

// GarmentOverrides replaces standard values for one specific garment. A nil
// override falls back to the standard value.
type GarmentOverrides struct {
	KnittingTime       *float64 `json:"customKnittingTime,omitempty"`
	LinkingTime        *float64 `json:"customLinkingTime,omitempty"`
	WashingTime        *float64 `json:"customWashingTime,omitempty"`
	QCTime             *float64 `json:"customQCTime,omitempty"`
	ProgrammingTime    *float64 `json:"customProgrammingTime,omitempty"`
	ConsultationTime   *float64 `json:"customConsultationTime,omitempty"`
	CadTime            *float64 `json:"customCadTime,omitempty"`
	RenderingTime      *float64 `json:"customRenderingTime,omitempty"`
	YarnCostPerKg      *float64 `json:"customYarnCost,omitempty"`
	GarmentWeightGrams *float64 `json:"customGarmentWeight,omitempty"`
}

// ResolvedFor fills every unset override with the matching standard value
// of p.
func (o GarmentOverrides) ResolvedFor(p GarmentParams) GarmentOverrides {
	p = p.Resolved()
	return withDefaults(o, GarmentOverrides{
		KnittingTime:       p.StandardKnittingTime,
		LinkingTime:        p.StandardLinkingTime,
		WashingTime:        p.StandardWashingTime,
		QCTime:             p.StandardQCTime,
		ProgrammingTime:    p.StandardProgrammingTime,
		ConsultationTime:   p.StandardConsultationTime,
		CadTime:            p.StandardCadTime,
		RenderingTime:      p.StandardRenderingTime,
		YarnCostPerKg:      p.YarnCostPerKg,
		GarmentWeightGrams: p.StandardGarmentWeightGrams,
	})
}

// ProcessCost is the cost of one production step for a single garment.
type ProcessCost struct {
	TimeHours            float64 `json:"timeHr"`
	Labor                float64 `json:"labor"`
	Electricity          float64 `json:"electricity"`
	Depreciation         float64 `json:"depreciation"`
	Rent                 float64 `json:"rent"`
	RentSharePerHour     float64 `json:"rentSharePerHour"`
	SteamingElectricity  float64 `json:"steamingElectricity,omitempty"`
	SteamingDepreciation float64 `json:"steamingDepreciation,omitempty"`
	Total                float64 `json:"total"`
}

// GarmentBreakdown holds every process cost plus material.
type GarmentBreakdown struct {
	Knitting     ProcessCost `json:"knitting"`
	Linking      ProcessCost `json:"linking"`
	Washing      ProcessCost `json:"washing"`
	QC           ProcessCost `json:"qc"`
	Programming  ProcessCost `json:"programming"`
	Consultation ProcessCost `json:"consultation"`
	Cad          ProcessCost `json:"cad"`
	Rendering    ProcessCost `json:"rendering"`
	Material     float64     `json:"material"`
}

// GarmentTotals holds the cost and price roll-up.
type GarmentTotals struct {
	TotalCost       float64 `json:"totalCost"`
	MarginAmount    float64 `json:"marginAmount"`
	SellingPrice    float64 `json:"sellingPrice"`
	SurchargeAmount float64 `json:"surchargeAmount"`
	FinalPrice      float64 `json:"finalPrice"`
}

// GarmentResult groups the full garment costing output.
type GarmentResult struct {
	RentPerHour float64          `json:"rentPerHour"`
	Breakdown   GarmentBreakdown `json:"breakdown"`
	Totals      GarmentTotals    `json:"totals"`
}

type machineRates struct {
	labor        float64
	electricity  float64
	depreciation float64
	rentShare    float64
}

// Garment computes the cost and selling price of one garment.
func Garment(params GarmentParams, overrides GarmentOverrides) GarmentResult {
	p := params.Resolved()
	o := overrides.ResolvedFor(p)

	rentPerHour := safeDiv(num(p.MonthlyRent), num(p.WorkingHoursPerMonth))
	rentShare := func(machines *float64) float64 {
		if num(machines) <= 0 {
			return 0
		}
		return rentPerHour / num(machines)
	}

	washing := machineProcess(hours(o.WashingTime), machineRates{
		labor:        num(p.WashingLaborRate),
		electricity:  num(p.WashingElectricityCost),
		depreciation: num(p.WashingDepreciationPerHour),
		rentShare:    rentShare(p.WashingMachineCount),
	})
	// Steaming follows washing on the same garment for the same duration.
	washing.SteamingElectricity = washing.TimeHours * num(p.SteamingElectricityCost)
	washing.SteamingDepreciation = washing.TimeHours * num(p.SteamingDepreciationPerHour)
	washing.Total += washing.SteamingElectricity + washing.SteamingDepreciation

	b := GarmentBreakdown{
		Knitting: machineProcess(hours(o.KnittingTime), machineRates{
			labor:        num(p.KnittingLaborRate),
			electricity:  num(p.KnittingElectricityCost),
			depreciation: num(p.KnittingDepreciationPerHour),
			rentShare:    rentShare(p.KnittingMachineCount),
		}),
		Linking: machineProcess(hours(o.LinkingTime), machineRates{
			labor:        num(p.LinkingLaborRate),
			electricity:  num(p.LinkingElectricityCost),
			depreciation: num(p.LinkingDepreciationPerHour),
			rentShare:    rentShare(p.LinkingMachineCount),
		}),
		Washing:      washing,
		QC:           laborProcess(hours(o.QCTime), num(p.QCHandFinishLaborRate)),
		Programming:  laborProcess(hours(o.ProgrammingTime), num(p.ProgrammingLaborRate)),
		Consultation: laborProcess(hours(o.ConsultationTime), num(p.ConsultationLaborRate)),
		Cad:          laborProcess(hours(o.CadTime), num(p.CadLaborRate)),
		Rendering:    laborProcess(hours(o.RenderingTime), num(p.RenderingLaborRate)),
		Material:     num(o.GarmentWeightGrams) / 1000.0 * num(o.YarnCostPerKg),
	}

	totalCost := b.Material
	for _, pc := range []ProcessCost{b.Knitting, b.Linking, b.Washing, b.QC, b.Programming, b.Consultation, b.Cad, b.Rendering} {
		totalCost += pc.Total
	}

	selling := SellingPrice(totalCost, num(p.MarginPercent)/100.0)
	surcharge := selling * num(p.SurchargePercent) / 100.0

	return finite(GarmentResult{
		RentPerHour: rentPerHour,
		Breakdown:   b,
		Totals: GarmentTotals{
			TotalCost:       totalCost,
			MarginAmount:    selling - totalCost,
			SellingPrice:    selling,
			SurchargeAmount: surcharge,
			FinalPrice:      selling + surcharge,
		},
	})
}

// SellingPrice backs a price out of cost so that margin is the given fraction
// of the price. A margin of 1 or more cannot be priced and returns cost.
func SellingPrice(cost, margin float64) float64 {
	if margin >= 1 {
		return cost
	}
	return cost / (1 - margin)
}

func hours(minutes *float64) float64 {
	return num(minutes) / 60.0
}

func machineProcess(timeHr float64, r machineRates) ProcessCost {
	pc := ProcessCost{
		TimeHours:        timeHr,
		Labor:            timeHr * r.labor,
		Electricity:      timeHr * r.electricity,
		Depreciation:     timeHr * r.depreciation,
		Rent:             timeHr * r.rentShare,
		RentSharePerHour: r.rentShare,
	}
	pc.Total = pc.Labor + pc.Electricity + pc.Depreciation + pc.Rent
	return pc
}

func laborProcess(timeHr, rate float64) ProcessCost {
	labor := timeHr * rate
	return ProcessCost{TimeHours: timeHr, Labor: labor, Total: labor}
}
