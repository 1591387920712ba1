// Package report handles field reports submitted against a disaster.
package report

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "beacon/pkg/domain-errors"
)

// VerificationStatus is the moderation state of a report's attached image.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "pending"
	StatusVerified VerificationStatus = "verified"
	StatusRejected VerificationStatus = "rejected"
)

func ParseStatus(s string) (VerificationStatus, error) {
	switch VerificationStatus(s) {
	case StatusPending, StatusVerified, StatusRejected:
		return VerificationStatus(s), nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown verification status: "+s)
	}
}

// Report is a citizen field report attached to a disaster.
type Report struct {
	ID                 uuid.UUID          `json:"id"`
	DisasterID         uuid.UUID          `json:"disaster_id"`
	UserID             string             `json:"user_id"`
	Content            string             `json:"content"`
	ImageURL           string             `json:"image_url,omitempty"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	CreatedAt          time.Time          `json:"created_at"`
}

// NewReport validates required fields; new reports always start pending.
func NewReport(disasterID uuid.UUID, userID, content, imageURL string, now time.Time) (*Report, error) {
	if strings.TrimSpace(content) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "content is required")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	return &Report{
		ID:                 uuid.New(),
		DisasterID:         disasterID,
		UserID:             userID,
		Content:            content,
		ImageURL:           imageURL,
		VerificationStatus: StatusPending,
		CreatedAt:          now,
	}, nil
}
