package features

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"traffic-predictor-go/pkg/models"
)

// ErrNotFinite число разобрано, но это NaN или бесконечность
var ErrNotFinite = errors.New("value must be a finite number")

// checkboxOn значение, которое браузер отправляет для отмеченного чекбокса
const checkboxOn = "on"

// FieldError ошибка преобразования поля формы
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// BuildDensity собирает запись признаков плотности из значений формы
func BuildDensity(form url.Values) (models.DensityFeatures, error) {
	var f models.DensityFeatures
	var err error

	f.City = text(form, models.ColCity)
	f.VehicleType = text(form, models.ColVehicleType)
	f.Weather = text(form, models.ColWeather)
	f.EconomicCondition = text(form, models.ColEconomicCondition)
	f.DayOfWeek = text(form, models.ColDayOfWeek)
	f.IsPeakHour = checked(form, models.ColIsPeakHour)

	if f.HourOfDay, err = integer(form, models.ColHourOfDay); err != nil {
		return f, err
	}
	if f.Speed, err = float(form, models.ColSpeed); err != nil {
		return f, err
	}
	if f.RandomEventOccurred, err = integer(form, models.ColRandomEventOccurred); err != nil {
		return f, err
	}
	if f.EnergyConsumption, err = float(form, models.ColEnergyConsumption); err != nil {
		return f, err
	}

	return f, nil
}

// BuildIncident собирает запись признаков инцидента из значений формы
func BuildIncident(form url.Values) (models.IncidentFeatures, error) {
	var f models.IncidentFeatures
	var err error

	f.City = text(form, models.ColCity)
	f.VehicleType = text(form, models.ColVehicleType)
	f.Weather = text(form, models.ColWeather)
	f.EconomicCondition = text(form, models.ColEconomicCondition)
	f.DayOfWeek = text(form, models.ColDayOfWeek)
	f.IsPeakHour = checked(form, models.ColIsPeakHour)

	if f.HourOfDay, err = integer(form, models.ColHourOfDay); err != nil {
		return f, err
	}
	if f.Speed, err = float(form, models.ColSpeed); err != nil {
		return f, err
	}

	return f, nil
}

func text(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

func checked(form url.Values, key string) bool {
	return form.Get(key) == checkboxOn
}

// raw возвращает значение поля и false, если поле отсутствует или пустое
func raw(form url.Values, key string) (string, bool) {
	value := strings.TrimSpace(form.Get(key))
	return value, value != ""
}

func integer(form url.Values, key string) (int, error) {
	value, ok := raw(form, key)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &FieldError{Field: key, Value: form.Get(key), Err: err}
	}
	return n, nil
}

func float(form url.Values, key string) (float64, error) {
	value, ok := raw(form, key)
	if !ok {
		return 0, nil
	}
	x, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &FieldError{Field: key, Value: form.Get(key), Err: err}
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, &FieldError{Field: key, Value: form.Get(key), Err: ErrNotFinite}
	}
	return x, nil
}
