package webapi

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"adfilter/adblock"
	"adfilter/config"
	"adfilter/logger"
)

// handleAdBlockStatus 处理广告拦截状态请求
func (s *Server) handleAdBlockStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSONSuccess(w, "AdBlock status retrieved successfully", s.adblockMgr.GetStats())
}

type sourcePayload struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// handleAdBlockSources 处理广告拦截源请求
func (s *Server) handleAdBlockSources(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.writeJSONSuccess(w, "AdBlock sources retrieved successfully", s.adblockMgr.GetSources())
		return
	}

	var payload sourcePayload
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if payload.URL == "" {
		s.writeJSONError(w, "URL cannot be empty", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := s.adblockMgr.AddSource(payload.URL); err != nil {
			logger.Errorf("[AdBlock] Failed to add source %s: %v", payload.URL, err)
			s.writeJSONError(w, "Failed to add source: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := s.addSourceToConfig(payload.URL); err != nil {
			logger.Warnf("[AdBlock] Failed to add source to config: %v", err)
		}

		go func() {
			logger.Infof("[AdBlock] Auto-updating rules after adding new source: %s", payload.URL)
			if _, err := s.adblockMgr.UpdateRules(context.Background(), false); err != nil {
				logger.Errorf("[AdBlock] Auto-update failed after adding source: %v", err)
			}
		}()

		s.writeJSONSuccess(w, "AdBlock source added successfully, update started.", nil)

	case http.MethodPut:
		if err := s.adblockMgr.SetSourceEnabled(r.Context(), payload.URL, payload.Enabled); err != nil {
			logger.Errorf("[AdBlock] Failed to set source %s enabled to %v: %v", payload.URL, payload.Enabled, err)
			s.writeJSONError(w, "Failed to update source: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.writeJSONSuccess(w, "AdBlock source status updated successfully", nil)

	case http.MethodDelete:
		if err := s.adblockMgr.RemoveSource(r.Context(), payload.URL); err != nil {
			logger.Errorf("[AdBlock] Failed to remove source %s: %v", payload.URL, err)
			s.writeJSONError(w, "Failed to remove source: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := s.removeSourceFromConfig(payload.URL); err != nil {
			logger.Warnf("[AdBlock] Failed to remove source from config: %v", err)
		}
		s.writeJSONSuccess(w, "AdBlock source removed successfully", nil)

	default:
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}

// handleAdBlockUpdate 处理广告拦截规则更新请求
// 默认在后台执行，?wait=1 时等待结果并返回
func (s *Server) handleAdBlockUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	// 检查是否有更新正在进行中
	s.adblockMutex.Lock()
	if s.isAdblockBusy {
		s.adblockMutex.Unlock()
		s.writeJSONError(w, "AdBlock update is already in progress, please wait", http.StatusConflict)
		return
	}
	s.isAdblockBusy = true
	s.adblockMutex.Unlock()

	update := func(ctx context.Context) (adblock.UpdateResult, error) {
		defer func() {
			s.adblockMutex.Lock()
			s.isAdblockBusy = false
			s.adblockMutex.Unlock()
		}()
		return s.adblockMgr.UpdateRules(ctx, true)
	}

	if r.URL.Query().Get("wait") == "1" {
		result, err := update(r.Context())
		if err != nil {
			s.writeJSONError(w, "AdBlock update failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeJSONSuccess(w, "AdBlock rules updated", result)
		return
	}

	go func() {
		result, err := update(context.Background())
		if err != nil {
			logger.Errorf("[AdBlock] Manual update failed: %v", err)
			return
		}
		logger.Infof("[AdBlock] Manual update completed: %+v", result)
	}()

	s.writeJSONSuccess(w, "AdBlock rule update started", nil)
}

// handleAdBlockToggle 处理广告拦截开关请求
func (s *Server) handleAdBlockToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if !s.decodeJSON(w, r, &payload) {
		return
	}

	s.adblockMgr.SetEnabled(payload.Enabled)
	if err := s.updateConfigFile(func(cfg *config.Config) { cfg.AdBlock.Enable = payload.Enabled }); err != nil {
		logger.Errorf("[AdBlock] Failed to persist toggle: %v", err)
		s.writeJSONError(w, "Failed to write config file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Infof("[AdBlock] Status toggled to: %v", payload.Enabled)
	s.writeJSONSuccess(w, "AdBlock status updated successfully", nil)
}

// handleAdBlockTest 处理广告拦截测试请求
func (s *Server) handleAdBlockTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		URL           string `json:"url"`
		CurrentDomain string `json:"current_domain"`
		ThirdParty    *bool  `json:"third_party"`
	}
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if payload.URL == "" {
		s.writeJSONError(w, "URL cannot be empty", http.StatusBadRequest)
		return
	}

	result := s.adblockMgr.CheckURL(payload.URL, adblock.MatchContext{
		CurrentDomain: payload.CurrentDomain,
		IsThirdParty:  payload.ThirdParty,
	})
	s.writeJSONSuccess(w, "URL test complete", result)
}

// ParseSummary parse 接口返回的摘要
type ParseSummary struct {
	Metadata       adblock.Metadata `json:"metadata"`
	CacheKey       string           `json:"cache_key"`
	BlockRules     []adblock.Rule   `json:"block_rules,omitempty"`
	ExceptionRules []adblock.Rule   `json:"exception_rules,omitempty"`
}

// handleAdBlockParse 解析提交的规则文本，不影响已加载的规则
func (s *Server) handleAdBlockParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Content      string `json:"content"`
		IncludeRules bool   `json:"include_rules"`
	}
	if !s.decodeJSON(w, r, &payload) {
		return
	}

	rs := s.adblockMgr.ParseText(payload.Content)
	summary := ParseSummary{
		Metadata: rs.Metadata,
		CacheKey: s.adblockMgr.CacheKey(payload.Content),
	}
	if payload.IncludeRules {
		summary.BlockRules = rs.BlockRules
		summary.ExceptionRules = rs.ExceptionRules
	}
	s.writeJSONSuccess(w, "Filter list parsed", summary)
}

// handleCustomRules 读写自定义规则文件，保存后重新加载规则
func (s *Server) handleCustomRules(w http.ResponseWriter, r *http.Request) {
	customRulesFile := s.cfg.AdBlock.CustomRulesFile
	if customRulesFile == "" {
		s.writeJSONError(w, "Custom rules file is not configured", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.customRulesMutex.RLock()
		defer s.customRulesMutex.RUnlock()

		content, err := os.ReadFile(customRulesFile)
		if err != nil && !os.IsNotExist(err) {
			s.writeJSONError(w, "Failed to read custom rules file: "+err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeJSONSuccess(w, "Custom rules retrieved", map[string]string{"content": string(content)})

	case http.MethodPost:
		var payload struct {
			Content string `json:"content"`
		}
		if !s.decodeJSON(w, r, &payload) {
			return
		}

		s.customRulesMutex.Lock()
		err := os.MkdirAll(filepath.Dir(customRulesFile), 0755)
		if err == nil {
			err = os.WriteFile(customRulesFile, []byte(payload.Content), 0644)
		}
		s.customRulesMutex.Unlock()
		if err != nil {
			s.writeJSONError(w, "Failed to write custom rules file: "+err.Error(), http.StatusInternalServerError)
			return
		}

		if _, err := s.adblockMgr.Reload(r.Context()); err != nil {
			s.writeJSONError(w, "Saved but failed to reload rules: "+err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeJSONSuccess(w, "Custom rules saved and reloaded", nil)

	default:
		s.writeJSONError(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}
