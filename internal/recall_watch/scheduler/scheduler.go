package scheduler

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"recall-watch/internal/recall_watch/matcher"
	"recall-watch/internal/recall_watch/model"
	"recall-watch/internal/recall_watch/notify"
)

// RecallSource 提供当前有效的召回记录（见 feed.Client）
type RecallSource interface {
	FetchRecalls(ctx context.Context) ([]model.Recall, error)
}

// ProductStore 商品数据库操作子集（见 store.Stores）
type ProductStore interface {
	FindAll(ctx context.Context) ([]model.ScannedProduct, error)
	MarkRecalled(ctx context.Context, id primitive.ObjectID, recallID string, at time.Time) error
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// Notifier 直推通道（见 notify.Client）
type Notifier interface {
	SendToToken(ctx context.Context, token string, msg notify.Message) error
}

// Worker 周期任务：召回匹配 sweep 与保留期清理
type Worker struct {
	Log      *zap.Logger
	Store    ProductStore
	Feed     RecallSource
	Notifier Notifier

	SweepInterval   time.Duration
	PurgeInterval   time.Duration
	RetentionMonths int
}

// Run 主循环：启动立即跑一次 sweep，之后按固定间隔执行
func (w *Worker) Run(ctx context.Context) {
	w.logSweep(w.RunSweep(ctx))

	for {
		timer := time.NewTimer(w.SweepInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.logSweep(w.RunSweep(ctx))
		}
	}
}

// RunSweep 执行一次完整的召回匹配。不向外抛错：任何内部失败都折叠进
// SweepResult（保留已完成部分的计数），触发方永远看到正常返回。
func (w *Worker) RunSweep(ctx context.Context) model.SweepResult {
	var res model.SweepResult

	recalls, err := w.Feed.FetchRecalls(ctx)
	if err != nil {
		// 源不可用对本次 sweep 是终止性的，不触达数据库
		w.Log.Error("Failed to fetch recall feed", zap.Error(err))
		res.Error = err.Error()
		return res
	}
	res.RecallsChecked = len(recalls)

	products, err := w.Store.FindAll(ctx)
	if err != nil {
		w.Log.Error("Failed to load scanned products", zap.Error(err))
		res.Error = err.Error()
		return res
	}
	res.ProductsScanned = len(products)

	for _, p := range products {
		// 已召回的记录不再参与匹配
		if p.Recalled() {
			continue
		}
		for _, r := range recalls {
			// 按源端顺序取第一条命中的召回，不做评分排序
			if !matcher.Matches(p, r) {
				continue
			}
			if err := w.Store.MarkRecalled(ctx, p.ID, r.ID, time.Now().UTC()); err != nil {
				w.Log.Error("Failed to mark product recalled",
					zap.String("product", p.ID.Hex()),
					zap.String("recall", r.ID),
					zap.Error(err),
				)
				res.Error = err.Error()
				return res
			}
			res.ProductsUpdated++

			if p.FCMToken != "" {
				// 单个设备推送失败只记日志，不中断 sweep、不回滚状态
				if err := w.Notifier.SendToToken(ctx, p.FCMToken, recallMessage(p, r)); err != nil {
					w.Log.Warn("Failed to send recall notification",
						zap.String("product", p.ID.Hex()),
						zap.String("recall", r.ID),
						zap.Error(err),
					)
				} else {
					res.NotificationsSent++
				}
			}
			break
		}
	}

	res.Success = true
	return res
}

func recallMessage(p model.ScannedProduct, r model.Recall) notify.Message {
	return notify.Message{
		Title:        "Rappel produit",
		Body:         r.Title,
		HighPriority: true,
		Data: map[string]string{
			"productId": p.ID.Hex(),
			"recallId":  r.ID,
			"brand":     r.Brand,
			"lotNumber": p.LotNumber,
		},
	}
}

func (w *Worker) logSweep(res model.SweepResult) {
	if !res.Success {
		w.Log.Error("Recall sweep failed",
			zap.String("error", res.Error),
			zap.Int("recallsChecked", res.RecallsChecked),
			zap.Int("productsScanned", res.ProductsScanned),
			zap.Int("productsUpdated", res.ProductsUpdated),
		)
		return
	}
	w.Log.Info("Recall sweep completed",
		zap.Int("recallsChecked", res.RecallsChecked),
		zap.Int("productsScanned", res.ProductsScanned),
		zap.Int("productsUpdated", res.ProductsUpdated),
		zap.Int("notificationsSent", res.NotificationsSent),
	)
}
