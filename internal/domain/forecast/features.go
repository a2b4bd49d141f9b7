package forecast

// BuildFeatures joins each appliance with the submission's weather snapshot. Output
// order follows the input order.
func BuildFeatures(appliances []ApplianceUsage, weather WeatherSnapshot) []FeatureRecord {
	records := make([]FeatureRecord, 0, len(appliances))
	for _, a := range appliances {
		rec := FeatureRecord{
			Appliance:         a.Name,
			PowerWatts:        a.PowerRatingWatts,
			Count:             a.Count,
			UsageMinutes:      a.TotalUsageMinutes,
			DaysPerWeek:       len(a.UsageDays),
			Temperature:       weather.Temperature,
			Humidity:          weather.Humidity,
			WindSpeed:         weather.WindSpeed,
			Visibility:        weather.Visibility,
			Pressure:          weather.Pressure,
			CloudCover:        weather.CloudCover,
			WindBearing:       weather.WindBearing,
			PrecipIntensity:   weather.PrecipIntensity,
			PrecipProbability: weather.PrecipProbability,
			Month:             weather.Month,
			Day:               weather.Day,
			Hour:              weather.Hour,
			Weekday:           weather.Weekday,
		}
		for _, day := range a.UsageDays {
			for _, bucket := range a.UsageTimesByDay[day] {
				switch bucket {
				case BucketMorning:
					rec.SlotsMorning++
				case BucketNoon:
					rec.SlotsNoon++
				case BucketEvening:
					rec.SlotsEvening++
				case BucketNight:
					rec.SlotsNight++
				}
			}
		}
		records = append(records, rec)
	}
	return records
}
