package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kaupskip/email-service/internal/core/domain/verification"
	"github.com/kaupskip/email-service/internal/core/ports"
)

type VerificationService struct {
	store          ports.VerificationStore
	publisher      ports.EventPublisher
	confirmChannel string
	expiry         time.Duration
	logger         *logrus.Logger
}

func NewVerificationService(store ports.VerificationStore, publisher ports.EventPublisher, confirmChannel string, expiry time.Duration, logger *logrus.Logger) ports.VerificationService {
	return &VerificationService{
		store:          store,
		publisher:      publisher,
		confirmChannel: confirmChannel,
		expiry:         expiry,
		logger:         logger,
	}
}

// generateCode produces a URL-safe random code with 256 bits of entropy.
func (s *VerificationService) generateCode() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func (s *VerificationService) Issue(ctx context.Context, userID, email string) (string, error) {
	code, err := s.generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	rec := &verification.Record{
		Code:      code,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Put(ctx, userID, rec, s.expiry); err != nil {
		return "", fmt.Errorf("failed to store verification record: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "email": email, "expiry": s.expiry}).Info("verification code issued")
	}
	return code, nil
}

func (s *VerificationService) Confirm(ctx context.Context, userID, code string) (bool, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load verification record: %w", err)
	}

	// Wrong code: keep the record so the user can retry within the TTL window.
	if rec.Code != code {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": userID}).Warn("verification code mismatch")
		}
		return false, nil
	}

	confirmation := &verification.Confirmation{
		UserID:     userID,
		Verified:   true,
		Email:      rec.Email,
		VerifiedAt: time.Now().UTC(),
	}

	// Publish before delete: if the publish fails the record stays confirmable
	// and the caller can retry; a crash between the two can only re-confirm.
	if err := s.publisher.Publish(ctx, s.confirmChannel, confirmation); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"user_id": userID, "channel": s.confirmChannel}).WithError(err).Error("failed to publish confirmation event")
		}
		return false, fmt.Errorf("failed to publish confirmation event: %w", err)
	}

	if err := s.store.Delete(ctx, userID); err != nil {
		return false, fmt.Errorf("failed to delete verification record: %w", err)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": userID, "email": rec.Email}).Info("email verified")
	}
	return true, nil
}
