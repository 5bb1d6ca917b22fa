package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

func (c *Client) GetModelInfo(ctx context.Context) (*domain.ModelInfo, error) {
	var info domain.ModelInfo
	if err := c.doJSON(ctx, &request{operation: "get-model-info", method: http.MethodGet, path: "/ml/model-info/"}, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *Client) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	var stats domain.Statistics
	if err := c.doJSON(ctx, &request{operation: "get-statistics", method: http.MethodGet, path: "/ml/statistics/"}, &stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (c *Client) GetRetrainingStatus(ctx context.Context) (*domain.RetrainingStatus, error) {
	var status domain.RetrainingStatus
	if err := c.doJSON(ctx, &request{operation: "get-retraining-status", method: http.MethodGet, path: "/ml/retraining/"}, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

func (c *Client) StartRetraining(ctx context.Context, req *domain.StartRetrainingRequest) (*domain.StartRetrainingResponse, error) {
	if req == nil {
		req = &domain.StartRetrainingRequest{}
	}

	var resp domain.StartRetrainingResponse
	if err := c.doJSON(ctx, &request{operation: "start-retraining", method: http.MethodPost, path: "/ml/retraining/", body: req}, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) GetPredictionHistory(ctx context.Context, limit int) (*domain.PredictionHistory, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var history domain.PredictionHistory
	if err := c.doJSON(ctx, &request{operation: "get-prediction-history", method: http.MethodGet, path: "/ml/predictions/history/", query: query}, &history); err != nil {
		return nil, err
	}

	return &history, nil
}
