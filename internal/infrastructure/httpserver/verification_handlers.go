package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kaupskip/email-service/internal/core/ports"
)

// RequestVerificationRequest is the body for manually triggering a
// verification email from the upstream API.
type RequestVerificationRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

func (s *Server) requestVerification(c echo.Context) error {
	var req RequestVerificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	code, err := s.verificationSvc.Issue(c.Request().Context(), req.UserID, req.Email)
	if err != nil {
		if errors.Is(err, ports.ErrStoreUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"success": false,
				"error":   "store_unavailable",
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue verification code")
	}

	res := s.mailer.Send(c.Request().Context(), ports.NotificationIntent{
		Kind:      ports.KindVerification,
		Recipient: req.Email,
		Data: map[string]interface{}{
			"token": code,
			"url":   fmt.Sprintf("%s/verify?token=%s", s.config.SiteURL, code),
		},
	})
	if !res.Delivered {
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error":   "delivery_failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Verification email sent successfully",
	})
}

func (s *Server) checkVerification(c echo.Context) error {
	userID := c.Param("user_id")
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code query parameter is required")
	}

	verified, err := s.verificationSvc.Confirm(c.Request().Context(), userID, code)
	if err != nil {
		kind := "confirmation_failed"
		if errors.Is(err, ports.ErrStoreUnavailable) {
			kind = "store_unavailable"
		}
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"verified": false,
			"error":    kind,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"verified": verified})
}
