package handler

import (
	"log"
	"strconv"
	"time"

	"remitsystem/internal/model"
	"remitsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

const actorContextKey = "actor"

// ActorMiddleware 解析已认证操作者
// 认证由外部网关完成，这里只信任网关注入的身份头：
// X-Actor-ID / X-Actor-Role，商户请求额外带 X-Admin-ID（所属管理员）
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, err := strconv.ParseInt(c.GetHeader("X-Actor-ID"), 10, 64)
		if err != nil {
			response.Error(c, response.CodeUnauthorized, "缺少操作者身份")
			c.Abort()
			return
		}

		role := c.GetHeader("X-Actor-Role")
		switch role {
		case model.RoleVendor, model.RoleAdminDestination, model.RoleAdminOrigin:
		default:
			response.Error(c, response.CodeUnauthorized, "未知的操作者角色")
			c.Abort()
			return
		}

		actor := model.Actor{ID: actorID, Role: role}
		if role == model.RoleVendor {
			adminID, err := strconv.ParseInt(c.GetHeader("X-Admin-ID"), 10, 64)
			if err != nil {
				response.Error(c, response.CodeUnauthorized, "商户请求缺少所属管理员标识")
				c.Abort()
				return
			}
			actor.AdminID = adminID
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// GetActor 从请求上下文取出操作者
func GetActor(c *gin.Context) model.Actor {
	actor, _ := c.Get(actorContextKey)
	return actor.(model.Actor)
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Actor-ID, X-Actor-Role, X-Admin-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
