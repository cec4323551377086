package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"vwlab/pipeline"
)

// TrainingConfig 在线训练配置
type TrainingConfig struct {
	Options pipeline.TrainingOptions
}

// EnableTraining 开启 POST /api/train; 训练完成后重新加载预测会话
func (s *Service) EnableTraining(cfg TrainingConfig) {
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = s.logger
	}
	if cfg.Options.Preprocessor == nil {
		cfg.Options.Preprocessor = s.cfg.Preprocessor
	}
	s.trainMu.Lock()
	s.training = &cfg
	s.trainMu.Unlock()
}

func (s *Service) handleTrain(w http.ResponseWriter, r *http.Request) {
	if !s.trainMu.TryLock() {
		writeError(w, http.StatusConflict, "training already in progress")
		return
	}
	defer s.trainMu.Unlock()
	if s.training == nil {
		writeError(w, http.StatusNotImplemented, "training is disabled")
		return
	}

	var dataset pipeline.Dataset
	if err := json.NewDecoder(r.Body).Decode(&dataset); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(dataset.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "dataset has no documents")
		return
	}
	dataset.AssignIDs()

	result, err := pipeline.Train(r.Context(), s.training.Options, s.cfg.Schema, &dataset)
	if err != nil {
		s.logger.Error("training failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}

	if s.cfg.Open != nil {
		if err := s.Reload(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "reload after training: "+err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, result)
}
