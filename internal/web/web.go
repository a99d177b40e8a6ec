// Package web содержит HTML шаблоны и статику веб-интерфейса.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"traffic-predictor-go/internal/service"
	"traffic-predictor-go/pkg/models"
)

//go:embed templates/*.html static/*
var content embed.FS

// Page данные для рендеринга любой страницы
type Page struct {
	Title        string
	User         string
	LoginEnabled bool
	Form         map[string]string
	Result       *service.PredictionResult
	Error        string
	Next         string
}

// Options подсказки для категориальных полей формы
var Options = map[string][]string{
	models.ColCity:              {"AquaCity", "Ecoopolis", "MetropolisX", "Neo Tokyo", "SolarisVille", "TechHaven"},
	models.ColVehicleType:       {"Autonomous Vehicle", "Bus", "Car", "Drone", "Flying Car", "Truck"},
	models.ColWeather:           {"Clear", "Rainy", "Snowy", "Electromagnetic Storm", "Solar Flare"},
	models.ColEconomicCondition: {"Booming", "Stable", "Recession"},
	models.ColDayOfWeek:         {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
}

// Templates разбирает встроенные шаблоны
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap()).ParseFS(content, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// Static файловая система со статикой для gin StaticFS
func Static() http.FileSystem {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// каталог встроен при компиляции
		panic(err)
	}
	return http.FS(sub)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"options": func(column string) []string {
			return Options[column]
		},
		"field": func(form map[string]string, key string) string {
			return form[key]
		},
		"dict": func(pairs ...interface{}) (map[string]interface{}, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict expects key/value pairs, got %d arguments", len(pairs))
			}
			m := make(map[string]interface{}, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
				}
				m[key] = pairs[i+1]
			}
			return m, nil
		},
		"slug": func(name string) string {
			return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
		},
		"percent": func(p *float64) string {
			if p == nil {
				return ""
			}
			return fmt.Sprintf("%.2f%%", *p*100)
		},
	}
}
