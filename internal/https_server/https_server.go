// Package https_server 提供 HTTP/HTTPS 服务器的初始化和配置
// 负责创建 Gin 引擎实例并配置中间件、静态资源和路由
package https_server

import (
	"raft_chat_server/internal/config"
	"raft_chat_server/internal/handler"
	"raft_chat_server/internal/infrastructure/logger"
	"raft_chat_server/internal/infrastructure/middleware"
	"raft_chat_server/internal/router"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Init 初始化 HTTP/HTTPS 服务器并返回 Gin 引擎实例
// 配置顺序：
//  1. 创建 Gin 引擎（空白，不含默认中间件）
//  2. 注册日志和恢复中间件
//  3. 配置 CORS 跨域规则
//  4. 映射已审核文件的静态目录
//  5. 注册业务路由
func Init(handlers *handler.Handlers, conf *config.Config) *gin.Engine {
	if conf.MainConfig.Mode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	engine.Use(logger.GinLogger())
	engine.Use(logger.GinRecovery(true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // 生产环境应指定具体域名
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	// 由 Nginx 终止 SSL 时保持关闭
	if conf.MainConfig.TLS {
		engine.Use(middleware.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	// 只映射公开目录，待审核与被拒绝的文件留在暂存目录
	engine.Static(conf.StaticSrcConfig.PublicBaseUrl, conf.StaticSrcConfig.StaticFilePath)

	router.NewRouter(handlers).RegisterRoutes(engine)
	return engine
}
