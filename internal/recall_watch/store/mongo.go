package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"recall-watch/internal/recall_watch/model"
)

// ErrNotFound 商品 id 不存在（或不是合法 id）
var ErrNotFound = errors.New("product not found")

// Stores 持有商品数据库句柄
type Stores struct {
	DB    *mongo.Database
	Scans *mongo.Collection // 固定集合：scans
}

func MustMongo(ctx context.Context, host, dbname, username, password, authSource string) *Stores {
	clientOpts := options.Client().ApplyURI("mongodb://" + host)
	if username != "" {
		clientOpts = clientOpts.SetAuth(options.Credential{
			Username:   username,
			Password:   password,
			AuthSource: authSource,
		})
	}

	cli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		panic(err)
	}
	if err = cli.Ping(ctx, nil); err != nil {
		panic(err)
	}

	db := cli.Database(dbname)
	s := &Stores{
		DB:    db,
		Scans: db.Collection("scans"),
	}
	ensureIndexes(ctx, s)
	return s
}

func ensureIndexes(ctx context.Context, s *Stores) {
	// scans: sweep 全量扫描按状态跳过、保留期清理按时间筛选
	_, _ = s.Scans.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recallStatus", Value: 1}}},
		{Keys: bson.D{{Key: "scannedAt", Value: 1}}},
	})
}

// FindAll 全量读取扫描记录，保持数据库迭代顺序
func (s *Stores) FindAll(ctx context.Context) ([]model.ScannedProduct, error) {
	cur, err := s.Scans.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	var out []model.ScannedProduct
	for cur.Next(ctx) {
		var p model.ScannedProduct
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

// FindByID 按 id（hex 字符串）读取单条记录
func (s *Stores) FindByID(ctx context.Context, id string) (*model.ScannedProduct, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var p model.ScannedProduct
	if err := s.Scans.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkRecalled 部分更新：置召回状态、关联召回 id、刷新检查时间。
// 同一 id 重复执行效果幂等。
func (s *Stores) MarkRecalled(ctx context.Context, id primitive.ObjectID, recallID string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"recallStatus":    model.StatusRecalled,
		"recallReference": recallID,
		"lastCheckedAt":   at,
	}}
	_, err := s.Scans.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// DeleteByIDs 单次批量删除本轮所有过期记录
func (s *Stores) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.Scans.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Insert 写入一条扫描记录（扫描流程归属外部，这里主要供种子数据与测试使用）
func (s *Stores) Insert(ctx context.Context, p *model.ScannedProduct) error {
	res, err := s.Scans.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}
