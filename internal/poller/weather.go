package poller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/hub"
	"github.com/rejdysan/home-hub/internal/models"
)

const openMeteoURL = "https://api.open-meteo.com"

// weatherDescriptions WMO 天气代码 → 可读描述
var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// openMeteoResponse Open-Meteo 响应的相关子集
type openMeteoResponse struct {
	Current struct {
		Temperature2m       float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		IsDay               int     `json:"is_day"`
		WeatherCode         int     `json:"weather_code"`
		WindSpeed10m        float64 `json:"wind_speed_10m"`
		RelativeHumidity2m  float64 `json:"relative_humidity_2m"`
		PressureMsl         float64 `json:"pressure_msl"`
		UVIndex             float64 `json:"uv_index"`
		CloudCover          float64 `json:"cloud_cover"`
		Visibility          float64 `json:"visibility"`
	} `json:"current"`
	Daily struct {
		Time             []string  `json:"time"`
		Temperature2mMax []float64 `json:"temperature_2m_max"`
		Temperature2mMin []float64 `json:"temperature_2m_min"`
		WeatherCode      []int     `json:"weather_code"`
	} `json:"daily"`
}

// WeatherPoller Open-Meteo 天气轮询器
type WeatherPoller struct {
	client    *resty.Client
	hub       Broadcaster
	latitude  string
	longitude string
	interval  time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	latest *models.CurrentWeather
}

// NewWeatherPoller 创建天气轮询器
func NewWeatherPoller(hub Broadcaster, latitude, longitude string, interval time.Duration, logger *zap.Logger) *WeatherPoller {
	return &WeatherPoller{
		client:    newHTTPClient(openMeteoURL),
		hub:       hub,
		latitude:  latitude,
		longitude: longitude,
		interval:  interval,
		logger:    logger,
	}
}

// Latest 返回最近一次成功获取的天气（供 initial 消息使用）
func (p *WeatherPoller) Latest() *models.CurrentWeather {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Run 运行到 ctx 取消为止
func (p *WeatherPoller) Run(ctx context.Context) {
	runLoop(ctx, p.interval, p.poll)
}

// poll 拉取一次天气，数据变化时广播
func (p *WeatherPoller) poll(ctx context.Context) {
	weather, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("Failed to fetch weather", zap.Error(err))
		return
	}

	p.mu.Lock()
	changed := p.latest == nil || !p.latest.EqualsIgnoringUpdated(*weather)
	p.latest = weather
	p.mu.Unlock()

	if changed {
		p.hub.Broadcast(hub.WeatherMessage{Weather: *weather})
	}
}

// fetch 调用 Open-Meteo API 并映射到内部模型
func (p *WeatherPoller) fetch(ctx context.Context) (*models.CurrentWeather, error) {
	var response openMeteoResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":      p.latitude,
			"longitude":     p.longitude,
			"current":       "temperature_2m,apparent_temperature,is_day,weather_code,wind_speed_10m,relative_humidity_2m,pressure_msl,uv_index,cloud_cover,visibility",
			"daily":         "temperature_2m_max,temperature_2m_min,weather_code",
			"timezone":      "auto",
			"forecast_days": "7",
		}).
		SetResult(&response).
		Get("/v1/forecast")
	if err != nil {
		return nil, fmt.Errorf("failed to call Open-Meteo API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("Open-Meteo API returned status %d", resp.StatusCode())
	}

	current := response.Current
	weather := &models.CurrentWeather{
		Updated: time.Now().Format(time.RFC3339),
		Temp:    int(math.Round(current.Temperature2m)),
		Feels:   int(math.Round(current.ApparentTemperature)),
		IsDay:   current.IsDay != 0,
		Code:    current.WeatherCode,
		Desc:    describeWeatherCode(current.WeatherCode),
		Wind:    int(math.Round(current.WindSpeed10m)),
		Hum:     int(math.Round(current.RelativeHumidity2m)),
		Pres:    int(math.Round(current.PressureMsl)),
		Vis:     int(math.Round(current.Visibility)),
		UV:      int(math.Round(current.UVIndex)),
		Cloud:   int(math.Round(current.CloudCover)),
		Forecast: map[string]any{
			"time": response.Daily.Time,
			"max":  response.Daily.Temperature2mMax,
			"min":  response.Daily.Temperature2mMin,
			"code": response.Daily.WeatherCode,
		},
	}
	return weather, nil
}

func describeWeatherCode(code int) string {
	if desc, ok := weatherDescriptions[code]; ok {
		return desc
	}
	return "Unknown"
}
