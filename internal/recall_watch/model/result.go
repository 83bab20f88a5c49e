package model

// SweepResult 一次召回匹配任务的汇总结果，返回给触发方做日志/告警
type SweepResult struct {
	Success           bool   `json:"success"`
	RecallsChecked    int    `json:"recalls_checked"`
	ProductsScanned   int    `json:"products_scanned"`
	ProductsUpdated   int    `json:"products_updated"`
	NotificationsSent int    `json:"notifications_sent"`
	Error             string `json:"error,omitempty"`
}

// PurgeResult 一次保留期清理任务的结果
type PurgeResult struct {
	Deleted int `json:"deleted"`
}
