package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = strings.TrimRight(os.Args[1], "/")
	}

	client := &http.Client{Timeout: 30 * time.Second}

	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	if err := show(client.Get(baseURL + "/api/v1/health")); err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}

	// Форма плотности трафика
	fmt.Println("Отправляем форму прогноза плотности...")
	form := url.Values{
		"City":                  {"Neo Tokyo"},
		"Vehicle Type":          {"Car"},
		"Weather":               {"Rainy"},
		"Economic Condition":    {"Recession"},
		"Day Of Week":           {"Monday"},
		"Hour Of Day":           {"8"},
		"Speed":                 {"30"},
		"Is Peak Hour":          {"on"},
		"Random Event Occurred": {"1"},
		"Energy Consumption":    {"5.0"},
	}
	resp, err := client.PostForm(baseURL+"/predict/density", form)
	if err != nil {
		fmt.Printf("Ошибка отправки формы: %v\n", err)
		return
	}
	resp.Body.Close()
	fmt.Printf("Форма плотности: статус %d\n\n", resp.StatusCode)

	// JSON прогноз инцидента
	fmt.Println("Отправляем JSON прогноз инцидента...")
	payload, err := json.Marshal(map[string]string{
		"Speed":        "120",
		"Hour Of Day":  "3",
		"Weather":      "Clear",
		"Is Peak Hour": "off",
	})
	if err != nil {
		fmt.Printf("Ошибка сериализации запроса: %v\n", err)
		return
	}
	if err := show(client.Post(baseURL+"/api/v1/predict/incident", "application/json", bytes.NewReader(payload))); err != nil {
		fmt.Printf("Ошибка прогноза инцидента: %v\n", err)
	}
}

func show(resp *http.Response, err error) error {
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	fmt.Printf("Ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))
	return nil
}
