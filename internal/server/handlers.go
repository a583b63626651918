package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
	"github.com/hollyai/holly-voice/internal/voice"
)

const maxBodyBytes = 1 << 20

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice,omitempty"`
	UseCache *bool  `json:"use_cache,omitempty"`
}

// ErrorResponse carries a human-readable failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Model       string `json:"model"`
	Voice       string `json:"voice"`
	Device      string `json:"device"`
}

// CacheStatsResponse is the body of GET /cache/stats.
type CacheStatsResponse struct {
	CachedPhrases int     `json:"cached_phrases"`
	TotalSizeMB   float64 `json:"total_size_mb"`
	CacheDir      string  `json:"cache_dir"`
}

// ClearResponse is the body of POST /cache/clear.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ServiceInfo is the body of GET /.
type ServiceInfo struct {
	Service     string            `json:"service"`
	Model       string            `json:"model"`
	Version     string            `json:"version"`
	Voice       string            `json:"voice"`
	Description string            `json:"description"`
	Features    []string          `json:"features"`
	Endpoints   map[string]string `json:"endpoints"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// handleRoot handles GET / requests.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ServiceInfo{
		Service:     "HOLLY Voice TTS API",
		Model:       s.gen.Engine(),
		Version:     s.opts.Version,
		Voice:       "HOLLY (Female, 30s, American, confident, intelligent, warm)",
		Description: voice.Description,
		Features: []string{
			"Pluggable synthesis engines",
			"Mono 16-bit PCM WAV output",
			"Voice caching for instant repeats",
			"Professional female voice",
		},
		Endpoints: map[string]string{
			"generate":    "POST /generate - Generate TTS",
			"health":      "GET /health - Health check",
			"cache_stats": "GET /cache/stats - Cache statistics",
			"cache_clear": "POST /cache/clear - Clear cache",
			"metrics":     "GET /metrics - Prometheus metrics",
		},
	})
}

// handleHealth handles GET /health requests. It builds the backend if
// needed, so the first call may be slow.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info, err := s.gen.Health(r.Context())
	if err != nil {
		s.logger.Warn("Health check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "Service unhealthy: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: s.gen.Loaded(),
		Model:       info.Name,
		Voice:       "HOLLY",
		Device:      info.Device,
	})
}

// handleGenerate handles POST /generate requests.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body: "+err.Error())
		return
	}
	if err := tts.ValidateText(req.Text, tts.MaxTextLength); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := tts.ValidateVoice(req.Voice); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	useCache := req.UseCache == nil || *req.UseCache

	res, err := s.gen.Generate(r.Context(), req.Text, req.Voice, useCache)
	if err != nil {
		status := http.StatusInternalServerError
		if tts.CodeOf(err) == tts.CodeInvalidInput {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Error("Generation failed", "err", err, "request_id", requestIDFrom(r.Context()))
		writeError(w, status, err.Error())
		return
	}

	body, err := audio.WAVBytes(res.Audio)
	if err != nil {
		s.logger.Error("Could not encode WAV", "err", err)
		writeError(w, http.StatusInternalServerError, "could not encode audio: "+err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", "audio/wav")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("X-Duration", formatSeconds(res.Elapsed.Seconds()))
	h.Set("X-Sample-Rate", strconv.Itoa(res.Audio.SampleRate))
	h.Set("X-Audio-Length", formatSeconds(res.Audio.Seconds()))
	if res.Cached {
		h.Set("X-Cache", "hit")
	} else {
		h.Set("X-Cache", "miss")
	}
	if res.Fallback {
		h.Set("X-Fallback", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)

	s.logger.Info("Generated audio", "seconds", res.Audio.Seconds(), "elapsed", res.Elapsed, "cached", res.Cached)
}

// handleCacheStats handles GET /cache/stats requests.
func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.gen.CacheStats()
	writeJSON(w, http.StatusOK, CacheStatsResponse{
		CachedPhrases: stats.EntryCount,
		TotalSizeMB:   math.Round(stats.TotalSizeMB()*100) / 100,
		CacheDir:      stats.Location,
	})
}

// handleCacheClear handles POST /cache/clear requests.
func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	if err := s.gen.ClearCache(); err != nil {
		s.logger.Error("Could not clear cache", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Success: true, Message: "Cache cleared"})
}
