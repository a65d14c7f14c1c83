package webapi

import (
	"encoding/json"
	"net/http"

	"adfilter/config"
	"adfilter/logger"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleCacheStats 返回解析结果缓存统计
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSONSuccess(w, "Cache stats retrieved", s.adblockMgr.CacheStats())
}

// handleClearCache 清空解析结果缓存
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	s.adblockMgr.ClearCache()
	logger.Info("[WebAPI] Filter list cache cleared")
	s.writeJSONSuccess(w, "Cache cleared", nil)
}

// handleConfig GET 返回当前配置，POST 校验后写入配置文件，重启后生效
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.cfgMutex.Lock()
		defer s.cfgMutex.Unlock()
		s.writeJSONSuccess(w, "Config retrieved", s.cfg)

	case http.MethodPost:
		newCfg := &config.Config{}
		if !s.decodeJSON(w, r, newCfg) {
			return
		}
		if err := newCfg.Validate(); err != nil {
			s.writeJSONError(w, "Configuration validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
		if s.configPath == "" {
			s.writeJSONError(w, "No config file to write", http.StatusConflict)
			return
		}

		s.cfgMutex.Lock()
		err := config.SaveConfig(s.configPath, newCfg)
		s.cfgMutex.Unlock()
		if err != nil {
			s.writeJSONError(w, "Failed to write config file: "+err.Error(), http.StatusInternalServerError)
			return
		}

		logger.Infof("[WebAPI] Configuration written to %s", s.configPath)
		s.writeJSONSuccess(w, "Configuration saved, restart to apply", nil)

	default:
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}
