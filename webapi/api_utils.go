package webapi

import (
	"encoding/json"
	"net/http"
	"slices"

	"adfilter/config"
)

// maxBodyBytes 请求体上限，parse 接口需要容纳完整的规则列表
const maxBodyBytes = 8 << 20

func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Message: message,
	})
}

func (s *Server) writeJSONSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// updateConfigFile 读取配置文件，修改后写回。configPath 为空时只改内存配置
func (s *Server) updateConfigFile(mutate func(cfg *config.Config)) error {
	s.cfgMutex.Lock()
	defer s.cfgMutex.Unlock()

	mutate(s.cfg)
	if s.configPath == "" {
		return nil
	}

	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}
	mutate(cfg)
	return config.SaveConfig(s.configPath, cfg)
}

// addSourceToConfig 添加源到配置文件
func (s *Server) addSourceToConfig(url string) error {
	return s.updateConfigFile(func(cfg *config.Config) {
		if !slices.Contains(cfg.AdBlock.RuleURLs, url) {
			cfg.AdBlock.RuleURLs = append(cfg.AdBlock.RuleURLs, url)
		}
	})
}

// removeSourceFromConfig 从配置文件中移除源
func (s *Server) removeSourceFromConfig(url string) error {
	return s.updateConfigFile(func(cfg *config.Config) {
		cfg.AdBlock.RuleURLs = slices.DeleteFunc(slices.Clone(cfg.AdBlock.RuleURLs), func(u string) bool {
			return u == url
		})
		if cfg.AdBlock.CustomRulesFile == url {
			cfg.AdBlock.CustomRulesFile = ""
		}
	})
}
