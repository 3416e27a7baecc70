package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yunn234/yunn-shoppingmall/internal/dao"
	"github.com/yunn234/yunn-shoppingmall/internal/dao/mysql"
	redisinit "github.com/yunn234/yunn-shoppingmall/internal/dao/redis"
	"github.com/yunn234/yunn-shoppingmall/internal/mq"
	"github.com/yunn234/yunn-shoppingmall/pkg/app"
	"github.com/yunn234/yunn-shoppingmall/pkg/logger"
)

// OrderCreatedMessage order.created事件载荷
type OrderCreatedMessage struct {
	EventID     string  `json:"event_id"`
	UserID      int64   `json:"user_id"`
	OrderID     int64   `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	CartItemIDs []int64 `json:"cart_item_ids"`
}

const (
	// 只绑定 order.created，取消事件不影响购物车
	cartCleanupQueue = "cart.cleanup"
	cartCleanupKey   = "order.created"
)

// 下单主流程清理购物车失败时订单已经落库，这里按事件重放删除，
// 删除本身幂等，重复消费不会产生副作用
func main() {
	cfg := app.BootstrapApp()

	db, err := mysql.InitDB(&cfg.Database.Mysql)
	if err != nil {
		logger.Fatal("连接Mysql数据库失败", "err", err)
	}

	rdb, err := redisinit.InitRedis(&cfg.Database.Redis)
	if err != nil {
		logger.Fatal("连接Redis失败", "err", err)
	}

	cartDao := dao.NewCartDao(db)

	conn, consumerCh, msgs, err := mq.NewConsumerChannel(&cfg.MQ, cartCleanupQueue, cartCleanupKey, mq.Exchange, true, cfg.MQ.ConsumerPrefetch)
	if err != nil {
		logger.Fatal("init consumer channel failed", "err", err)
	}
	defer mq.CloseConsumer(conn, consumerCh)

	logger.Info("Cart Reconciler started", "queue", cartCleanupQueue)

	for d := range msgs {
		key := "cart:msg:done:" + d.MessageId
		// 幂等：MessageId已处理过则直接ACK
		if d.MessageId != "" {
			added, _ := rdb.SetNX(context.Background(), key, 1, 30*time.Minute).Result()
			if !added {
				logger.Warn("Duplicate message detected, skipping", "message_id", d.MessageId)
				_ = d.Ack(false)
				continue
			}
		}

		var m OrderCreatedMessage
		if err := json.Unmarshal(d.Body, &m); err != nil {
			logger.Error("订单创建消息解析失败", "err", err)
			_ = d.Nack(false, false)
			continue
		}
		if len(m.CartItemIDs) == 0 {
			_ = d.Ack(false)
			continue
		}

		if err := cartDao.RemoveItemsByID(context.Background(), m.UserID, m.CartItemIDs); err != nil {
			logger.Error("购物车对账清理失败",
				"user_id", m.UserID, "order_number", m.OrderNumber, "err", err)
			_ = d.Nack(false, true)
			rdb.Del(context.Background(), key)
			continue
		}

		logger.Info("购物车行清理完成",
			"user_id", m.UserID, "order_number", m.OrderNumber, "items", len(m.CartItemIDs))
		_ = d.Ack(false)
	}
}
