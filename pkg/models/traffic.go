package models

// Имена колонок в точности такие, с какими обучались пайплайны.
const (
	ColCity                = "City"
	ColVehicleType         = "Vehicle Type"
	ColWeather             = "Weather"
	ColEconomicCondition   = "Economic Condition"
	ColDayOfWeek           = "Day Of Week"
	ColHourOfDay           = "Hour Of Day"
	ColSpeed               = "Speed"
	ColIsPeakHour          = "Is Peak Hour"
	ColRandomEventOccurred = "Random Event Occurred"
	ColEnergyConsumption   = "Energy Consumption"
	ColTrafficDensity      = "Traffic Density"
)

// ModelKind идентифицирует слот модели
type ModelKind string

const (
	KindDensity  ModelKind = "density"
	KindIncident ModelKind = "incident"
	KindLegacy   ModelKind = "legacy"
)

// DensityColumns схема записи для регрессора плотности
var DensityColumns = []string{
	ColCity, ColVehicleType, ColWeather, ColEconomicCondition, ColDayOfWeek,
	ColHourOfDay, ColSpeed, ColIsPeakHour, ColRandomEventOccurred, ColEnergyConsumption,
}

// IncidentColumns схема записи для классификатора инцидентов
var IncidentColumns = []string{
	ColCity, ColVehicleType, ColWeather, ColEconomicCondition, ColDayOfWeek,
	ColHourOfDay, ColSpeed, ColIsPeakHour, ColEnergyConsumption, ColTrafficDensity,
}

// Columns возвращает схему записи для слота модели
func Columns(kind ModelKind) []string {
	switch kind {
	case KindIncident:
		return IncidentColumns
	case KindDensity, KindLegacy:
		return DensityColumns
	}
	return nil
}

// Row одна строка признаков: имя колонки -> значение (string, int или float64)
type Row map[string]interface{}

// DensityFeatures запись признаков для прогноза плотности трафика
type DensityFeatures struct {
	City                string  `json:"City"`
	VehicleType         string  `json:"Vehicle Type"`
	Weather             string  `json:"Weather"`
	EconomicCondition   string  `json:"Economic Condition"`
	DayOfWeek           string  `json:"Day Of Week"`
	HourOfDay           int     `json:"Hour Of Day"`
	Speed               float64 `json:"Speed"`
	IsPeakHour          bool    `json:"Is Peak Hour"`
	RandomEventOccurred int     `json:"Random Event Occurred"`
	EnergyConsumption   float64 `json:"Energy Consumption"`
}

// Row преобразует запись в строку для пайплайна
func (f DensityFeatures) Row() Row {
	return Row{
		ColCity:                f.City,
		ColVehicleType:         f.VehicleType,
		ColWeather:             f.Weather,
		ColEconomicCondition:   f.EconomicCondition,
		ColDayOfWeek:           f.DayOfWeek,
		ColHourOfDay:           f.HourOfDay,
		ColSpeed:               f.Speed,
		ColIsPeakHour:          boolToInt(f.IsPeakHour),
		ColRandomEventOccurred: f.RandomEventOccurred,
		ColEnergyConsumption:   f.EnergyConsumption,
	}
}

// IncidentFeatures запись признаков для классификатора инцидентов
type IncidentFeatures struct {
	City              string  `json:"City"`
	VehicleType       string  `json:"Vehicle Type"`
	Weather           string  `json:"Weather"`
	EconomicCondition string  `json:"Economic Condition"`
	DayOfWeek         string  `json:"Day Of Week"`
	HourOfDay         int     `json:"Hour Of Day"`
	Speed             float64 `json:"Speed"`
	IsPeakHour        bool    `json:"Is Peak Hour"`
}

// Row преобразует запись в строку для пайплайна.
// Energy Consumption и Traffic Density пайплайн ожидает, но форма их не содержит.
func (f IncidentFeatures) Row() Row {
	return Row{
		ColCity:              f.City,
		ColVehicleType:       f.VehicleType,
		ColWeather:           f.Weather,
		ColEconomicCondition: f.EconomicCondition,
		ColDayOfWeek:         f.DayOfWeek,
		ColHourOfDay:         f.HourOfDay,
		ColSpeed:             f.Speed,
		ColIsPeakHour:        boolToInt(f.IsPeakHour),
		ColEnergyConsumption: 0.0,
		ColTrafficDensity:    0.0,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
