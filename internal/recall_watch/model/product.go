package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecallStatus 召回状态，单向：一旦 recalled 不会被本服务回退
type RecallStatus string

const StatusRecalled RecallStatus = "recalled"

// ScannedProduct 用户扫描过的商品记录，存于 scans 集合
type ScannedProduct struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Brand           string             `bson:"brand,omitempty" json:"brand,omitempty"`
	LotNumber       string             `bson:"lotNumber,omitempty" json:"lot_number,omitempty"`
	ScannedAt       time.Time          `bson:"scannedAt" json:"scanned_at"`
	RecallStatus    RecallStatus       `bson:"recallStatus,omitempty" json:"recall_status,omitempty"`
	RecallReference string             `bson:"recallReference,omitempty" json:"recall_reference,omitempty"` // 触发状态变更的 Recall.ID
	LastCheckedAt   time.Time          `bson:"lastCheckedAt,omitempty" json:"last_checked_at,omitempty"`
	FCMToken        string             `bson:"fcmToken,omitempty" json:"-"` // 推送 token，为空则跳过直推
}

// Recalled 是否已被标记召回
func (p ScannedProduct) Recalled() bool {
	return p.RecallStatus == StatusRecalled
}
