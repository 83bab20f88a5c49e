package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"recall-watch/internal/recall_watch/model"
	"recall-watch/internal/recall_watch/notify"
	"recall-watch/internal/recall_watch/store"
)

// ProductStore 商品数据库操作子集（见 store.Stores）
type ProductStore interface {
	FindAll(ctx context.Context) ([]model.ScannedProduct, error)
	FindByID(ctx context.Context, id string) (*model.ScannedProduct, error)
	MarkRecalled(ctx context.Context, id primitive.ObjectID, recallID string, at time.Time) error
}

// Notifier 广播通道（见 notify.Client）
type Notifier interface {
	SendToTopic(ctx context.Context, topic string, msg notify.Message) error
}

// RecallSource 当前召回列表（见 feed.Client）
type RecallSource interface {
	FetchRecalls(ctx context.Context) ([]model.Recall, error)
}

type Server struct {
	Log      *zap.Logger
	Store    ProductStore
	Feed     RecallSource
	Notifier Notifier
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.GET("/products", s.listProducts)
	r.GET("/recalls", s.listRecalls)
	r.POST("/products/:id/acknowledge-recall", s.acknowledgeRecall)
	return r
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.Store.FindAll(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products, "total": len(products)})
}

// listRecalls 透出当前归一化后的召回列表，便于排查匹配问题
func (s *Server) listRecalls(c *gin.Context) {
	recalls, err := s.Feed.FetchRecalls(c)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recalls, "total": len(recalls)})
}

type acknowledgeRequest struct {
	Recall struct {
		ID    string `json:"id" binding:"required"`
		Title string `json:"title"`
	} `json:"recall" binding:"required"`
}

// acknowledgeRecall 同步把指定商品标记为已召回并按召回 id 做 topic 广播。
// 与 sweep 不同：不检查当前状态直接覆盖，推送失败原样上抛给调用方。
func (s *Server) acknowledgeRecall(c *gin.Context) {
	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.Store.FindByID(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.Store.MarkRecalled(c, p.ID, req.Recall.ID, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	msg := notify.Message{
		Title: "Rappel produit",
		Body:  req.Recall.Title,
		Data: map[string]string{
			"productId": p.ID.Hex(),
			"recallId":  req.Recall.ID,
		},
	}
	if err := s.Notifier.SendToTopic(c, "recall-"+req.Recall.ID, msg); err != nil {
		s.Log.Error("Failed to broadcast recall acknowledgement",
			zap.String("product", p.ID.Hex()),
			zap.String("recall", req.Recall.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
