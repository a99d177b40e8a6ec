// Package explain строит человекочитаемые пояснения к прогнозам.
// Каждое правило проверяется независимо и добавляет не больше одной строки,
// порядок строк фиксирован.
package explain

import (
	"fmt"
	"strings"

	"traffic-predictor-go/pkg/models"
)

// IncidentThreshold порог вероятности, с которого инцидент считается вероятным
const IncidentThreshold = 0.5

var adverseWeather = map[string]struct{}{
	"rainy":                 {},
	"snowy":                 {},
	"electromagnetic storm": {},
	"solar flare":           {},
}

// IsAdverseWeather сообщает, относится ли погода к неблагоприятной (без учета регистра)
func IsAdverseWeather(weather string) bool {
	_, ok := adverseWeather[normalize(weather)]
	return ok
}

// IncidentLabel возвращает метку класса для вероятности инцидента
func IncidentLabel(probability float64) int {
	if probability >= IncidentThreshold {
		return 1
	}
	return 0
}

// LabelText возвращает текст метки класса
func LabelText(label int) string {
	if label == 1 {
		return "Likely"
	}
	return "Unlikely"
}

// Density пояснение к прогнозу плотности трафика
func Density(f models.DensityFeatures, predicted float64) []string {
	var notes []string

	if f.IsPeakHour {
		notes = append(notes, "Peak hour: more vehicles on the road increase congestion.")
	}

	if f.RandomEventOccurred == 1 {
		notes = append(notes, "A random event (accident, festival or roadwork) is likely causing a spike in density.")
	}

	weather := normalize(f.Weather)
	if IsAdverseWeather(weather) {
		notes = append(notes, fmt.Sprintf("%s weather slows traffic down, which raises density.", f.Weather))
	} else if weather == "clear" {
		notes = append(notes, "Clear weather keeps traffic moving, which lowers density.")
	}

	if f.Speed <= 40 {
		notes = append(notes, fmt.Sprintf("Low average speed (%.1f km/h) indicates congestion.", f.Speed))
	} else if f.Speed >= 90 {
		notes = append(notes, fmt.Sprintf("High average speed (%.1f km/h) suggests free-flowing traffic.", f.Speed))
	}

	if isRushHour(f.HourOfDay) {
		notes = append(notes, fmt.Sprintf("Hour %d falls within rush hour, when density is usually elevated.", f.HourOfDay))
	}

	if f.EconomicCondition == "Recession" {
		notes = append(notes, "Recession conditions make travel demand more variable.")
	}

	if len(notes) == 0 {
		notes = append(notes, "No strong congestion signals: expect moderate traffic flow.")
	}

	header := fmt.Sprintf("Estimated density: %.4f (predicted by the traffic density model)", predicted)
	return append([]string{header}, notes...)
}

// Incident пояснение к прогнозу вероятности инцидента
func Incident(f models.IncidentFeatures, probability float64, label int) []string {
	var notes []string

	if f.IsPeakHour {
		notes = append(notes, "Peak hour exposure: heavier traffic raises the chance of an incident.")
	}

	if IsAdverseWeather(f.Weather) {
		notes = append(notes, fmt.Sprintf("%s weather increases accident risk.", f.Weather))
	}

	if f.Speed >= 100 {
		notes = append(notes, fmt.Sprintf("High speed (%.1f km/h) increases both the likelihood and severity of incidents.", f.Speed))
	} else if f.Speed <= 25 {
		notes = append(notes, fmt.Sprintf("Very low speed (%.1f km/h) points to stop-and-go traffic or an existing disruption.", f.Speed))
	}

	if f.HourOfDay >= 22 || f.HourOfDay <= 5 {
		notes = append(notes, "Late-night hours carry elevated risk from fatigue and reduced visibility.")
	}

	if len(notes) == 0 {
		notes = append(notes, "No major risk factors detected in the submitted conditions.")
	}

	header := fmt.Sprintf("Incident probability: %.2f%% (%s)", probability*100, LabelText(label))
	return append([]string{header}, notes...)
}

func isRushHour(hour int) bool {
	return (hour >= 7 && hour <= 10) || (hour >= 17 && hour <= 20)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
