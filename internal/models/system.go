package models

// SystemStats 主机资源统计
type SystemStats struct {
	CPU       float64  `json:"cpu"`
	RAMPct    float64  `json:"ram_pct"`
	RAMUsed   float64  `json:"ram_used"`
	RAMTotal  float64  `json:"ram_total"`
	DiskPct   float64  `json:"disk_pct"`
	DiskUsed  float64  `json:"disk_used"`
	DiskTotal float64  `json:"disk_total"`
	NetSent   float64  `json:"net_sent"`
	NetRecv   float64  `json:"net_recv"`
	CPUTemp   *float64 `json:"cpu_temp"`
}

// SystemHealth 系统健康状态（随 initial 消息下发）
type SystemHealth struct {
	MQTT     bool `json:"mqtt"`
	Database bool `json:"database"`
	Network  bool `json:"wifi"`
}
