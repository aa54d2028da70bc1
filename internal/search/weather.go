package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aide-chat/aide/internal/httpkit"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// WeatherClient fetches current conditions from the OpenWeather API.
type WeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewWeatherClient creates a weather client. A nil return means no API
// key is configured and the weather tool is unavailable.
func NewWeatherClient(apiKey string) *WeatherClient {
	if apiKey == "" {
		return nil
	}
	return &WeatherClient{
		apiKey:  apiKey,
		baseURL: openWeatherURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(10 * time.Second),
		),
	}
}

// Weather is the current-conditions summary for one city.
type Weather struct {
	City        string  `json:"city"`
	Description string  `json:"description"`
	TempC       float64 `json:"temp_c"`
	FeelsLikeC  float64 `json:"feels_like_c"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

type openWeatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Message string `json:"message"`
}

// Current fetches the current weather for a city, in metric units.
func (w *WeatherClient) Current(ctx context.Context, city string) (*Weather, error) {
	params := url.Values{
		"q":     {city},
		"appid": {w.apiKey},
		"units": {"metric"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	var ow openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&ow); err != nil {
		return nil, fmt.Errorf("weather: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ow.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("weather: %s", msg)
	}

	out := &Weather{
		City:       city,
		TempC:      ow.Main.Temp,
		FeelsLikeC: ow.Main.FeelsLike,
		Humidity:   ow.Main.Humidity,
		WindSpeed:  ow.Wind.Speed,
	}
	if len(ow.Weather) > 0 {
		out.Description = ow.Weather[0].Description
	}
	return out, nil
}

// String formats the weather as the one-line summary handed to the
// model.
func (w *Weather) String() string {
	return fmt.Sprintf("Weather in %s: %s, %.1f°C (feels like %.1f°C), humidity %d%%, wind %.1f m/s",
		w.City, w.Description, w.TempC, w.FeelsLikeC, w.Humidity, w.WindSpeed)
}
