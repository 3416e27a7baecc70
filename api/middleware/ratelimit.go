package middleware

import (
	"net/http"
	"sync"

	"github.com/yunn234/yunn-shoppingmall/config"
	"github.com/yunn234/yunn-shoppingmall/pkg/e"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter IP限流器，为每个IP维护独立的令牌桶
type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  *sync.RWMutex
	r   rate.Limit // 每秒生成多少令牌
	b   int        // 令牌桶最多存多少令牌
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		mu:  &sync.RWMutex{},
		r:   r,
		b:   b,
	}
}

// AddIP 为IP创建限流器
func (i *IPRateLimiter) AddIP(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	// 双重检查 防止竞态
	if limiter, exists := i.ips[ip]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(i.r, i.b)
	i.ips[ip] = limiter

	return limiter
}

// GetLimiter 获取该IP的限流器 没有则创建
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.ips[ip]
	i.mu.RUnlock()

	if !exists {
		return i.AddIP(ip)
	}
	return limiter
}

// RateLimitMiddleware 基于IP的限流中间件
// r: 每秒允许的请求数
// b: 令牌桶容量（允许的突发流量）
func RateLimitMiddleware(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiterForIP := limiter.GetLimiter(ip)

		if !limiterForIP.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "请求过于频繁，请稍后再试",
				"error":   e.ERROR,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GlobalRateLimit 全局限流
func GlobalRateLimit(cfg *config.Config) gin.HandlerFunc {
	return RateLimitMiddleware(rate.Limit(cfg.RateLimits.Global.RPS), cfg.RateLimits.Global.Burst)
}

// OrderRateLimit 下单接口专用限流（更严格）
func OrderRateLimit(cfg *config.Config) gin.HandlerFunc {
	return RateLimitMiddleware(rate.Limit(cfg.RateLimits.Order.RPS), cfg.RateLimits.Order.Burst)
}
