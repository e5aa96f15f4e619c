// Package transport defines the wire DTOs of the referral module.
package transport

import (
	"referral_backend/internal/metrics"
	"referral_backend/internal/reconcile"
)

// UploadResponse is returned by POST /uploads.
type UploadResponse struct {
	UploadID  string            `json:"uploadId"`
	Processed int               `json:"processed"`
	Referrals int               `json:"referrals"`
	Metrics   metrics.Aggregate `json:"metrics"`
}

// ListReferralsResponse is returned by GET /referrals.
type ListReferralsResponse struct {
	Referrals []*reconcile.ReferralState `json:"referrals"`
}

// MetricsResponse is returned by GET /metrics/latest.
type MetricsResponse struct {
	UploadID  string                `json:"uploadId"`
	Aggregate metrics.Aggregate     `json:"aggregate"`
	Quality   metrics.QualityReport `json:"quality"`
}
