package forecast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplianceSetPreservesOrder(t *testing.T) {
	raw := `{"location":"Lat: 1, Lng: 2","appliances":{
		"TV":{"power":"120","count":"1","days":["Mon"],"times":{"Mon":["Night"]},"usageTime":"3h"},
		"Fans":{"power":75,"count":3,"days":["Tuesday"],"times":{"Tuesday":["Noon"]},"usageTime":4},
		"Air Conditioner":{"power":1500,"count":1,"days":["sat"],"times":{"Sat":["Evening"]},"usageTime":"2h30m"}
	}}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	require.Len(t, req.Appliances, 3)
	require.Equal(t, "TV", req.Appliances[0].Name)
	require.Equal(t, "Fans", req.Appliances[1].Name)
	require.Equal(t, "Air Conditioner", req.Appliances[2].Name)
	require.Equal(t, FlexFloat(120), req.Appliances[0].Input.Power)
	require.Equal(t, FlexString("4"), req.Appliances[1].Input.UsageTime)

	encoded, err := json.Marshal(req.Appliances)
	require.NoError(t, err)
	var again ApplianceSet
	require.NoError(t, json.Unmarshal(encoded, &again))
	require.Equal(t, req.Appliances, again)
}

func TestApplianceSetKeepsMalformedEntries(t *testing.T) {
	raw := `{
		"Fan":{"power":75,"count":1,"days":["Mon"],"times":{"Mon":["Noon"]},"usageTime":"2h"},
		"Heater":{"power":2000,"count":1,"days":"Mon","times":{"Mon":["Night"]},"usageTime":"1h"},
		"Lamp":"bright"
	}`

	var set ApplianceSet
	require.NoError(t, json.Unmarshal([]byte(raw), &set))
	require.Len(t, set, 3)
	require.NoError(t, set[0].DecodeErr)
	require.Error(t, set[1].DecodeErr)
	require.Error(t, set[2].DecodeErr)

	valid, excluded := NormalizeAppliances(set)
	require.Len(t, valid, 1)
	require.Equal(t, "Fan", valid[0].Name)
	require.Len(t, excluded, 2)
	require.Equal(t, "Heater", excluded[0].Name)
	require.Equal(t, "field days has the wrong type", excluded[0].Reason)
	require.Equal(t, "Lamp", excluded[1].Name)
	require.Contains(t, excluded[1].Reason, "malformed appliance declaration")
}

func TestApplianceSetRejectsArrays(t *testing.T) {
	var set ApplianceSet
	require.Error(t, json.Unmarshal([]byte(`[{"power":1}]`), &set))
	require.NoError(t, json.Unmarshal([]byte(`null`), &set))
	require.Nil(t, set)
}

func TestNormalizeAppliances(t *testing.T) {
	set := ApplianceSet{
		{Name: "Lights", Input: ApplianceInput{Power: 10, Count: 8, Days: []string{"Fri", "Monday", "mon"}, Times: map[string][]string{"Monday": {"Night", "Morning"}, "Fri": {"Evening"}}, UsageTime: "5h"}},
		{Name: "Heater", Input: ApplianceInput{Power: 2000, Count: 1, Days: nil, UsageTime: "1h"}},
		{Name: "Microwave", Input: ApplianceInput{Power: 800, Count: 1, Days: []string{"Sun"}, Times: map[string][]string{}, UsageTime: "20m"}},
		{Name: "Pump", Input: ApplianceInput{Power: 0, Count: 1, Days: []string{"Sun"}, Times: map[string][]string{"Sun": {"Morning"}}, UsageTime: "1h"}},
		{Name: "Kettle", Input: ApplianceInput{Power: 1200, Count: 1.5, Days: []string{"Sun"}, Times: map[string][]string{"Sun": {"Morning"}}, UsageTime: "1h"}},
		{Name: "lights", Input: ApplianceInput{Power: 10, Count: 1, Days: []string{"Sun"}, Times: map[string][]string{"Sun": {"Morning"}}, UsageTime: "1h"}},
		{Name: "Chimney", Input: ApplianceInput{Power: 200, Count: 1, Days: []string{"Funday"}, UsageTime: "1h"}},
		{Name: "TV", Input: ApplianceInput{Power: 100, Count: 1, Days: []string{"Sun"}, Times: map[string][]string{"Sun": {"Dawn"}}, UsageTime: "1h"}},
		{Name: "Dishwasher", Input: ApplianceInput{Power: 1800, Count: 1, Days: []string{"Sun"}, Times: map[string][]string{"Sun": {"afternoon"}}, UsageTime: ""}},
	}

	valid, excluded := NormalizeAppliances(set)
	require.Len(t, valid, 1)
	lights := valid[0]
	require.Equal(t, "Lights", lights.Name)
	require.Equal(t, []Weekday{"Monday", "Friday"}, lights.UsageDays)
	require.Equal(t, []TimeBucket{BucketMorning, BucketNight}, lights.UsageTimesByDay["Monday"])
	require.Equal(t, []TimeBucket{BucketEvening}, lights.UsageTimesByDay["Friday"])
	require.Equal(t, 300, lights.TotalUsageMinutes)
	require.Equal(t, 5.0, lights.UsageHours())

	names := make([]string, 0, len(excluded))
	for _, ex := range excluded {
		names = append(names, ex.Name)
		require.NotEmpty(t, ex.Reason)
	}
	require.Equal(t, []string{"Heater", "Microwave", "Pump", "Kettle", "lights", "Chimney", "TV", "Dishwasher"}, names)
	require.Equal(t, "duplicate appliance name", excluded[4].Reason)
}

func TestParseUsageDuration(t *testing.T) {
	cases := map[string]int{
		"2h30m":       150,
		"2h":          120,
		"90m":         90,
		"90 mins":     90,
		"1.5 hours":   90,
		"2":           120,
		"0.25":        15,
		"1 hr 15 min": 75,
		"168h":        maxUsageMinutes,
	}
	for input, want := range cases {
		got, err := ParseUsageDuration(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	for _, input := range []string{"", "soon", "0", "-1h", "0h0m", "1e300", "169h", "NaN", "+Inf"} {
		_, err := ParseUsageDuration(input)
		require.Error(t, err, input)
	}
}

func TestParseWeekday(t *testing.T) {
	day, ok := ParseWeekday(" wed ")
	require.True(t, ok)
	require.Equal(t, Weekday("Wednesday"), day)
	_, ok = ParseWeekday("Wedn")
	require.False(t, ok)
}
