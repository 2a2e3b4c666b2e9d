package schema

// Integration is the identifier the platform knows this integration by.
const Integration = "wemo"

// Service names exposed by the integration.
const (
	ServiceSetHumidity            = "set_humidity"
	ServiceResetFilterLife        = "reset_filter_life"
	ServiceCrockpotUpdateSettings = "crockpot_update_settings"
)

// Wemo returns the integration's service table. The table is rebuilt
// on each call so callers can never alias each other's definitions;
// the contents are identical every time.
func Wemo() *Table {
	return NewTable(
		&Definition{
			Service:     ServiceSetHumidity,
			Name:        "Set humidity",
			Description: "Set the target relative humidity of a WeMo humidifier.",
			Target:      Target{Integration: Integration, Domain: "fan"},
			Fields: []Field{
				{
					Key:         "target_humidity",
					Name:        "Target humidity",
					Description: "Desired relative humidity.",
					Required:    true,
					Selector: &NumberSelector{
						Min:  0,
						Max:  100,
						Step: 5,
						Unit: "%",
					},
				},
			},
		},
		&Definition{
			Service:     ServiceResetFilterLife,
			Name:        "Reset filter life",
			Description: "Reset the humidifier filter life counter to 100%.",
			Target:      Target{Integration: Integration, Domain: "fan"},
		},
		&Definition{
			Service:     ServiceCrockpotUpdateSettings,
			Name:        "Update crockpot settings",
			Description: "Update the cooking mode and time of a WeMo crockpot.",
			Target:      Target{Integration: Integration, Domain: "switch"},
			Fields: []Field{
				{
					Key:         "mode",
					Description: "Cooking mode to switch the crockpot to.",
					Example:     "50",
				},
				{
					Key:         "time",
					Description: "Cooking time, in minutes.",
					Example:     "300",
				},
			},
		},
	)
}
