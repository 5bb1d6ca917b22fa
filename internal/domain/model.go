package domain

const (
	RetrainingReady    RetrainingState = "ready"
	RetrainingTraining RetrainingState = "training"
	RetrainingError    RetrainingState = "error"
)

const (
	WatchCompleted WatchOutcome = "completed" // The model training date changed while polling.
	WatchTimedOut  WatchOutcome = "timed_out" // The safety timer fired before the date changed. Not a failure.
)

// RetrainingState is the backend-reported state of the retraining job.
type RetrainingState string

// UnmarshalText normalizes unknown states to RetrainingError.
func (s *RetrainingState) UnmarshalText(text []byte) error {
	switch state := RetrainingState(text); state {
	case RetrainingReady, RetrainingTraining, RetrainingError:
		*s = state
	default:
		*s = RetrainingError
	}

	return nil
}

// WatchOutcome describes how a retraining watch ended.
type WatchOutcome string

// RetrainingStatus is the backend view of the retraining job.
type RetrainingStatus struct {
	LastTraining     string          `json:"last_training"`
	NextScheduled    string          `json:"next_scheduled"`
	AvailableMetrics int             `json:"available_metrics"`
	MinRequired      int             `json:"min_required"`
	CanRetrainFlag   bool            `json:"can_retrain"`
	Status           RetrainingState `json:"status"`
}

// CanRetrain reports whether enough metrics have accumulated to retrain the model.
// It is computed from the counts rather than trusted from the backend flag.
func (s *RetrainingStatus) CanRetrain() bool {
	if s == nil {
		return false
	}

	return s.AvailableMetrics >= s.MinRequired
}

type MLServiceInfo struct {
	Type          string   `json:"type"`
	FeaturesCount int      `json:"features_count"`
	Features      []string `json:"features"`
}

type TrainingInfo struct {
	Samples   int    `json:"samples"`
	Date      string `json:"date"`
	Algorithm string `json:"algorithm,omitempty"`
}

type QualityMetrics struct {
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Precision *float64 `json:"precision,omitempty"`
	Recall    *float64 `json:"recall,omitempty"`
	F1Score   *float64 `json:"f1_score,omitempty"`
}

// ModelInfo describes the currently deployed fatigue-classification model.
type ModelInfo struct {
	ModelExists    bool           `json:"model_exists"`
	ModelSizeMb    float64        `json:"model_size_mb"`
	MLService      MLServiceInfo  `json:"ml_service"`
	Training       TrainingInfo   `json:"training"`
	QualityMetrics QualityMetrics `json:"quality_metrics"`
}

type PredictionSummary struct {
	Total          int     `json:"total"`
	Last24h        int     `json:"last_24h"`
	AverageFatigue float64 `json:"average_fatigue"`
}

type FatigueDistribution struct {
	Normal   int `json:"normal"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
}

// Statistics aggregates the predictions made by the deployed model.
type Statistics struct {
	Predictions         PredictionSummary   `json:"predictions"`
	FatigueDistribution FatigueDistribution `json:"fatigue_distribution"`
}

type Prediction struct {
	Id             int     `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Device         string  `json:"device"`
	Employee       string  `json:"employee"`
	FatigueIndex   float64 `json:"fatigue_index"`
	HrAvg          float64 `json:"hr_avg"`
	Spo2Avg        float64 `json:"spo2_avg"`
	Classification string  `json:"classification"`
}

type PredictionHistory struct {
	Count       int          `json:"count"`
	Predictions []Prediction `json:"predictions"`
}

type StartRetrainingRequest struct {
	Force bool `json:"force,omitempty"`
}

type StartRetrainingResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	EstimatedTime string `json:"estimated_time,omitempty"`
}

// RetrainingView is the snapshot of everything the retraining monitor knows.
type RetrainingView struct {
	InProgress  bool               `json:"in_progress"`
	Job         *RetrainingStatus  `json:"job,omitempty"`
	ModelInfo   *ModelInfo         `json:"model_info,omitempty"`
	Statistics  *Statistics        `json:"statistics,omitempty"`
	History     *PredictionHistory `json:"history,omitempty"`
	LastOutcome WatchOutcome       `json:"last_outcome,omitempty"`
}
