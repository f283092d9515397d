package models

import "reflect"

// CurrentWeather 当前天气数据（来自 Open-Meteo）
type CurrentWeather struct {
	Updated  string         `json:"updated"`
	Temp     int            `json:"temp"`
	Feels    int            `json:"feels"`
	IsDay    bool           `json:"is_day"`
	Code     int            `json:"code"`
	Desc     string         `json:"desc"`
	Wind     int            `json:"wind"`
	Hum      int            `json:"hum"`
	Pres     int            `json:"pres"`
	Vis      int            `json:"vis"`
	UV       int            `json:"uv"`
	Cloud    int            `json:"cloud"`
	Forecast map[string]any `json:"forecast"`
}

// EqualsIgnoringUpdated 比较天气数据，忽略 updated 时间戳
func (w CurrentWeather) EqualsIgnoringUpdated(other CurrentWeather) bool {
	if w.Temp != other.Temp || w.Feels != other.Feels || w.IsDay != other.IsDay ||
		w.Code != other.Code || w.Desc != other.Desc || w.Wind != other.Wind ||
		w.Hum != other.Hum || w.Pres != other.Pres || w.Vis != other.Vis ||
		w.UV != other.UV || w.Cloud != other.Cloud {
		return false
	}
	return reflect.DeepEqual(w.Forecast, other.Forecast)
}

// BusDeparture 单条公交发车信息
type BusDeparture struct {
	Line          string `json:"line"`
	Direction     string `json:"direction"`
	Mins          int    `json:"mins"`
	TimeScheduled string `json:"time_scheduled"`
	TimePredicted string `json:"time_predicted"`
	DelayMinutes  int    `json:"delay_minutes"`
	DelaySeconds  int    `json:"delay_seconds"`
}

// BusDepartures 两个站点的公交发车列表
type BusDepartures struct {
	Malesicka []BusDeparture `json:"malesicka"`
	Olgy      []BusDeparture `json:"olgy"`
}

// Equal 比较两组发车数据
func (b BusDepartures) Equal(other BusDepartures) bool {
	if len(b.Malesicka) != len(other.Malesicka) || len(b.Olgy) != len(other.Olgy) {
		return false
	}
	for i := range b.Malesicka {
		if b.Malesicka[i] != other.Malesicka[i] {
			return false
		}
	}
	for i := range b.Olgy {
		if b.Olgy[i] != other.Olgy[i] {
			return false
		}
	}
	return true
}

// TodoistTask 单条 Todoist 任务
type TodoistTask struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	IsCompleted bool   `json:"is_completed"`
	Priority    int    `json:"priority"`
	Order       int    `json:"order"`
	ProjectID   string `json:"project_id"`
}

// TodoistProject Todoist 项目及其任务
type TodoistProject struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Tasks []TodoistTask `json:"tasks"`
}

// TodoistData Todoist 项目集合
type TodoistData struct {
	Projects []TodoistProject `json:"projects"`
}

// Equal 比较两组 Todoist 数据
func (t TodoistData) Equal(other TodoistData) bool {
	if len(t.Projects) != len(other.Projects) {
		return false
	}
	for i, p := range t.Projects {
		op := other.Projects[i]
		if p.ID != op.ID || p.Name != op.Name || len(p.Tasks) != len(op.Tasks) {
			return false
		}
		for j := range p.Tasks {
			if p.Tasks[j] != op.Tasks[j] {
				return false
			}
		}
	}
	return true
}

// CalendarEvent 单条日历事件
type CalendarEvent struct {
	Summary  string `json:"summary"`
	Start    string `json:"start"`
	End      string `json:"end"`
	AllDay   bool   `json:"all_day"`
	Calendar string `json:"calendar"`
}

// CalendarData 日历事件集合
type CalendarData struct {
	Events []CalendarEvent `json:"events"`
}

// Equal 比较两组日历数据
func (c CalendarData) Equal(other CalendarData) bool {
	if len(c.Events) != len(other.Events) {
		return false
	}
	for i := range c.Events {
		if c.Events[i] != other.Events[i] {
			return false
		}
	}
	return true
}
