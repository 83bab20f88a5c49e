package scheduler

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"recall-watch/internal/recall_watch/model"
)

// RunPurge 保留期清理循环，与 sweep 共用触发模型但相互独立
func (w *Worker) RunPurge(ctx context.Context) {
	for {
		timer := time.NewTimer(w.PurgeInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			res, err := w.PurgeOldScans(ctx)
			if err != nil {
				w.Log.Error("Retention purge failed", zap.Error(err))
				continue
			}
			w.Log.Info("Retention purge completed", zap.Int("deleted", res.Deleted))
		}
	}
}

// PurgeOldScans 删除扫描时间距今满 RetentionMonths 个整日历月的记录。
// 月差按 年*12+月 计算，忽略几号；缺失时间戳的记录视为未过期，永不删除。
// 所有过期记录在一个批量删除内提交；无过期记录则不提交。
func (w *Worker) PurgeOldScans(ctx context.Context) (model.PurgeResult, error) {
	products, err := w.Store.FindAll(ctx)
	if err != nil {
		return model.PurgeResult{}, err
	}

	now := time.Now()
	var expired []primitive.ObjectID
	for _, p := range products {
		if p.ScannedAt.IsZero() {
			continue
		}
		if monthsBetween(p.ScannedAt, now) >= w.RetentionMonths {
			expired = append(expired, p.ID)
		}
	}

	if len(expired) == 0 {
		return model.PurgeResult{}, nil
	}

	deleted, err := w.Store.DeleteByIDs(ctx, expired)
	if err != nil {
		return model.PurgeResult{}, err
	}
	return model.PurgeResult{Deleted: int(deleted)}, nil
}

// monthsBetween 整日历月差：(年*12+月) 相减
func monthsBetween(from, to time.Time) int {
	return (to.Year()*12 + int(to.Month())) - (from.Year()*12 + int(from.Month()))
}
