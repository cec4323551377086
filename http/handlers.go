package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"vwlab/db"
	"vwlab/logging"
	"vwlab/ml"
)

// ErrNoModel 当前没有可用的预测会话
var ErrNoModel = errors.New("no model loaded")

// PredictorOpener 打开一个只读预测会话(通常是 vw -i model -t)
type PredictorOpener func(ctx context.Context) (ml.Learner, error)

// ServiceConfig 预测服务配置
type ServiceConfig struct {
	Schema       *ml.Schema[ml.Document]
	Preprocessor *ml.Preprocessor
	Weighting    ml.Weighting
	Open         PredictorOpener
	ModelPath    string
	Precision    int
	// RecordPredictions 为 true 时带 ID 的文档预测结果写入数据库
	RecordPredictions bool
	Metrics           *Metrics
	Logger            *zap.Logger
}

// Service 预测服务, 持有可替换的预测会话
type Service struct {
	cfg    ServiceConfig
	logger *zap.Logger

	mu        sync.RWMutex
	predictor ml.Learner
	loadedAt  time.Time

	trainMu  sync.Mutex
	training *TrainingConfig
}

// NewService 创建预测服务; 预测会话需要通过 Reload 或 SetPredictor 加载
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Schema == nil {
		return nil, errors.New("schema is required")
	}
	if cfg.Preprocessor == nil {
		pre, err := ml.NewPreprocessor(nil, 0)
		if err != nil {
			return nil, err
		}
		cfg.Preprocessor = pre
	}
	if cfg.Weighting == "" {
		cfg.Weighting = ml.RawCount
	}
	logger := logging.OrNop(cfg.Logger)
	return &Service{cfg: cfg, logger: logger}, nil
}

// SetPredictor 替换预测会话并关闭旧会话
func (s *Service) SetPredictor(predictor ml.Learner) error {
	s.mu.Lock()
	old := s.predictor
	s.predictor = predictor
	s.loadedAt = time.Now()
	s.mu.Unlock()

	if old != nil && old != predictor {
		if err := old.Close(); err != nil {
			return fmt.Errorf("close previous predictor: %w", err)
		}
	}
	return nil
}

// Reload 通过 Open 打开新的预测会话并替换当前会话
func (s *Service) Reload(ctx context.Context) error {
	if s.cfg.Open == nil {
		return errors.New("no predictor opener configured")
	}
	predictor, err := s.cfg.Open(ctx)
	s.cfg.Metrics.RecordReload(err)
	if err != nil {
		return err
	}
	s.logger.Info("prediction session loaded", zap.String("model", s.cfg.ModelPath))
	return s.SetPredictor(predictor)
}

// Loaded 是否已加载预测会话
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.predictor != nil
}

// Close 关闭当前预测会话
func (s *Service) Close() error {
	return s.SetPredictor(nil)
}

// Predict 预测单个文档
func (s *Service) Predict(ctx context.Context, doc ml.Document) (float64, error) {
	start := time.Now()
	prediction, err := s.predict(ctx, doc)
	s.cfg.Metrics.RecordPrediction(time.Since(start), err)
	return prediction, err
}

func (s *Service) predict(ctx context.Context, doc ml.Document) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.predictor == nil {
		return 0, ErrNoModel
	}
	return ml.PredictDocument(ctx, s.predictor, s.cfg.Schema, doc)
}

// RegisterHandlers 注册所有处理器
func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/features", s.handleFeatures)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("POST /api/train", s.handleTrain)
	mux.HandleFunc("GET /api/training/latest", s.handleLatestTraining)
	mux.HandleFunc("GET /api/documents", s.handleDocuments)
	mux.HandleFunc("GET /api/documents/{id}/features", s.handleDocumentFeatures)
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status      string     `json:"status"`
	ModelLoaded bool       `json:"model_loaded"`
	ModelPath   string     `json:"model_path,omitempty"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := HealthResponse{Status: "ok", ModelLoaded: s.predictor != nil, ModelPath: s.cfg.ModelPath}
	if s.predictor != nil {
		loadedAt := s.loadedAt
		resp.LoadedAt = &loadedAt
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

// FeaturesRequest 特征提取请求
type FeaturesRequest struct {
	Text string `json:"text"`
}

// FeaturesResponse 特征提取响应
type FeaturesResponse struct {
	Tokens   []ml.Token   `json:"tokens"`
	Features []ml.Feature `json:"features"`
	Total    int          `json:"total"`
}

func (s *Service) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req FeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tokens := s.cfg.Preprocessor.Tokenize(req.Text)
	frequencies := s.cfg.Preprocessor.Extract(req.Text)
	writeJSON(w, http.StatusOK, FeaturesResponse{
		Tokens:   tokens,
		Features: frequencies.Features(s.cfg.Weighting),
		Total:    frequencies.Total(),
	})
}

// PredictResponse 预测响应
type PredictResponse struct {
	ID         string  `json:"id,omitempty"`
	Prediction float64 `json:"prediction"`
	Label      float64 `json:"label"`
}

func (s *Service) handlePredict(w http.ResponseWriter, r *http.Request) {
	var doc ml.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	prediction, err := s.Predict(r.Context(), doc)
	if err != nil {
		s.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	if s.cfg.RecordPredictions && doc.ID != "" {
		if err := db.SavePrediction(doc.ID, s.cfg.ModelPath, prediction); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		ID:         doc.ID,
		Prediction: prediction,
		Label:      ml.Round(prediction, s.cfg.Precision),
	})
}

func (s *Service) handleLatestTraining(w http.ResponseWriter, r *http.Request) {
	log, err := db.LatestTrainingLog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if log == nil {
		writeError(w, http.StatusNotFound, "no training runs recorded")
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Service) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := db.LoadDocuments()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// DocumentFeaturesResponse 已入库文档的词频
type DocumentFeaturesResponse struct {
	ID       string       `json:"id"`
	Features []ml.Feature `json:"features"`
	Total    int          `json:"total"`
}

func (s *Service) handleDocumentFeatures(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	frequencies, err := db.LoadFeatures(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(frequencies) == 0 {
		writeError(w, http.StatusNotFound, "no features stored for "+id)
		return
	}
	writeJSON(w, http.StatusOK, DocumentFeaturesResponse{
		ID:       id,
		Features: frequencies.Features(s.cfg.Weighting),
		Total:    frequencies.Total(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ml.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoModel), errors.Is(err, ml.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
