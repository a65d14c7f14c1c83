package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"adfilter/adblock"
	"adfilter/config"
	"adfilter/logger"
)

// APIResponse 统一的 API 响应格式
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server Web API 服务器
type Server struct {
	cfg        *config.Config
	adblockMgr *adblock.AdBlockManager
	listener   *http.Server
	configPath string

	cfgMutex         sync.Mutex
	customRulesMutex sync.RWMutex

	// 同一时间只允许一个手动更新
	adblockMutex  sync.Mutex
	isAdblockBusy bool
}

// NewServer 创建新的 Web API 服务器
func NewServer(cfg *config.Config, adblockMgr *adblock.AdBlockManager, configPath string) *Server {
	return &Server{
		cfg:        cfg,
		adblockMgr: adblockMgr,
		configPath: configPath,
	}
}

// Handler 返回注册了全部路由的 handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/cache/clear", s.handleClearCache)

	mux.HandleFunc("/api/adblock/status", s.handleAdBlockStatus)
	mux.HandleFunc("/api/adblock/sources", s.handleAdBlockSources) // GET list, POST add, PUT toggle, DELETE remove
	mux.HandleFunc("/api/adblock/update", s.handleAdBlockUpdate)
	mux.HandleFunc("/api/adblock/toggle", s.handleAdBlockToggle)
	mux.HandleFunc("/api/adblock/test", s.handleAdBlockTest)
	mux.HandleFunc("/api/adblock/parse", s.handleAdBlockParse)
	mux.HandleFunc("/api/adblock/custom", s.handleCustomRules)

	return s.corsMiddleware(mux)
}

// Start 启动 Web API 服务，阻塞直到服务关闭
func (s *Server) Start() error {
	if !s.cfg.WebUI.Enabled {
		logger.Info("[WebAPI] WebAPI is disabled")
		return nil
	}

	s.listener = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.WebUI.ListenPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Infof("[WebAPI] Web API server started on http://localhost:%d", s.cfg.WebUI.ListenPort)
	if err := s.listener.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Shutdown(ctx)
}
