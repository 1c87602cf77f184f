package catalog

import "strings"

// FromConditionID maps an OpenWeather condition id onto a category.
//
//	200-299 thunderstorm  -> stormy
//	300-599 drizzle, rain -> rainy
//	600-699 snow          -> snowy
//	700-799 atmosphere    -> foggy
//	800     clear         -> clear
//	801+    clouds        -> cloudy
//
// Ids below 200 are not assigned by the provider and report ok=false so the
// caller can fall back to FromConditionName.
func FromConditionID(id int) (Category, bool) {
	switch {
	case id < 200:
		return "", false
	case id < 300:
		return Stormy, true
	case id < 600:
		return Rainy, true
	case id < 700:
		return Snowy, true
	case id < 800:
		return Foggy, true
	case id == 800:
		return Clear, true
	default:
		return Cloudy, true
	}
}

// FromConditionName maps a provider's condition group name ("Rain",
// "Clouds", ...) onto a category. Unknown names map to clear.
func FromConditionName(main string) Category {
	switch strings.ToLower(strings.TrimSpace(main)) {
	case "thunderstorm", "storm", "squall", "tornado":
		return Stormy
	case "drizzle", "rain", "shower", "showers":
		return Rainy
	case "snow", "sleet":
		return Snowy
	case "mist", "fog", "haze", "smoke", "dust", "sand", "ash":
		return Foggy
	case "clouds", "cloudy", "overcast":
		return Cloudy
	default:
		return Clear
	}
}

// FromCondition prefers the numeric id and falls back to the group name.
func FromCondition(id int, main string) Category {
	if c, ok := FromConditionID(id); ok {
		return c
	}
	return FromConditionName(main)
}

// FromWMOCode maps an Open-Meteo WMO weather code onto a category.
func FromWMOCode(code int) Category {
	switch {
	case code == 0:
		return Clear
	case code >= 1 && code <= 3:
		return Cloudy
	case code == 45 || code == 48:
		return Foggy
	case code >= 51 && code <= 67:
		return Rainy
	case code >= 71 && code <= 77:
		return Snowy
	case code >= 80 && code <= 82:
		return Rainy
	case code == 85 || code == 86:
		return Snowy
	case code >= 95 && code <= 99:
		return Stormy
	default:
		return Clear
	}
}

// WMODescription gives a short English label for a WMO code.
func WMODescription(code int) (main, description string) {
	switch {
	case code == 0:
		return "Clear", "clear sky"
	case code == 1:
		return "Clouds", "mainly clear"
	case code == 2:
		return "Clouds", "partly cloudy"
	case code == 3:
		return "Clouds", "overcast"
	case code == 45 || code == 48:
		return "Fog", "fog"
	case code >= 51 && code <= 57:
		return "Drizzle", "drizzle"
	case code >= 61 && code <= 67:
		return "Rain", "rain"
	case code >= 71 && code <= 77:
		return "Snow", "snow"
	case code >= 80 && code <= 82:
		return "Rain", "rain showers"
	case code == 85 || code == 86:
		return "Snow", "snow showers"
	case code == 95:
		return "Thunderstorm", "thunderstorm"
	case code == 96 || code == 99:
		return "Thunderstorm", "thunderstorm with hail"
	default:
		return "Unknown", "unknown conditions"
	}
}
