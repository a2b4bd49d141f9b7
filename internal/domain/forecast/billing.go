package forecast

import "sort"

const defaultTariffRate = 0.10

// Tariff maps total predicted energy to a bill amount.
type Tariff interface {
	Bill(totalEnergyUsage float64) float64
	Rate() float64
}

// FlatTariff charges a single rate per unit.
type FlatTariff struct {
	PerUnit float64
}

// Bill returns usage × rate. Negative usage bills as zero.
func (t FlatTariff) Bill(totalEnergyUsage float64) float64 {
	if totalEnergyUsage <= 0 || t.PerUnit <= 0 {
		return 0
	}
	return totalEnergyUsage * t.PerUnit
}

func (t FlatTariff) Rate() float64 { return t.PerUnit }

// Advisory is one rung of the recommendation ladder.
type Advisory struct {
	Threshold float64
	Message   string
}

// DefaultLadder is the stock advice for households above 100 and 200 units.
func DefaultLadder() []Advisory {
	return []Advisory{
		{Threshold: 100, Message: "Use energy-efficient appliances."},
		{Threshold: 200, Message: "Shift usage to off-peak hours."},
	}
}

// EstimateBill prices a prediction.
func EstimateBill(prediction PredictionResult, tariff Tariff, currency string) BillEstimate {
	total := prediction.TotalEnergyUsage()
	return BillEstimate{
		TotalBill:        tariff.Bill(total),
		TotalEnergyUsage: total,
		TariffRate:       tariff.Rate(),
		Currency:         currency,
	}
}

// Recommend returns the advisories whose threshold usage strictly exceeds, in
// ascending threshold order.
func Recommend(totalEnergyUsage float64, ladder []Advisory) []string {
	rungs := append([]Advisory(nil), ladder...)
	sort.SliceStable(rungs, func(i, j int) bool {
		return rungs[i].Threshold < rungs[j].Threshold
	})
	out := make([]string, 0, len(rungs))
	for _, rung := range rungs {
		if totalEnergyUsage > rung.Threshold {
			out = append(out, rung.Message)
		}
	}
	return out
}
