package camera

import "time"

// Preset names for common lighting conditions
const (
	PresetDefault     = "default"
	PresetDaylight    = "daylight"
	PresetCloudy      = "cloudy"
	PresetTungsten    = "tungsten"
	PresetFluorescent = "fluorescent"
	PresetNight       = "night"
	PresetSports      = "sports"
)

// Presets returns all available manual presets.
func Presets() map[string]ManualSettings {
	return map[string]ManualSettings{
		PresetDefault:     DefaultManualSettings(),
		PresetDaylight:    DaylightSettings(),
		PresetCloudy:      CloudySettings(),
		PresetTungsten:    TungstenSettings(),
		PresetFluorescent: FluorescentSettings(),
		PresetNight:       NightSettings(),
		PresetSports:      SportsSettings(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetDaylight,
		PresetCloudy,
		PresetTungsten,
		PresetFluorescent,
		PresetNight,
		PresetSports,
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *ManualSettings {
	if s, ok := Presets()[name]; ok {
		return &s
	}
	return nil
}

// DaylightSettings is direct sun: short exposure, base ISO.
func DaylightSettings() ManualSettings {
	return ManualSettings{
		ExposureDuration: 4 * time.Millisecond,
		ISO:              100,
		Temperature:      5500,
	}
}

// CloudySettings is overcast sky, slightly bluer light.
func CloudySettings() ManualSettings {
	return ManualSettings{
		ExposureDuration: 8 * time.Millisecond,
		ISO:              200,
		Temperature:      6500,
	}
}

// TungstenSettings is incandescent indoor light.
func TungstenSettings() ManualSettings {
	return ManualSettings{
		ExposureDuration: time.Second / 60,
		ISO:              400,
		Temperature:      3200,
	}
}

// FluorescentSettings compensates the green cast of tube lighting.
func FluorescentSettings() ManualSettings {
	return ManualSettings{
		ExposureDuration: time.Second / 60,
		ISO:              400,
		Temperature:      4000,
		Tint:             10,
	}
}

// NightSettings trades motion blur for signal.
func NightSettings() ManualSettings {
	return ManualSettings{
		ExposureDuration: time.Second / 15,
		ISO:              1600,
		Temperature:      4500,
	}
}

// SportsSettings freezes motion.
func SportsSettings() ManualSettings {
	return ManualSettings{
		ExposureDuration: time.Millisecond,
		ISO:              800,
		Temperature:      5500,
	}
}
