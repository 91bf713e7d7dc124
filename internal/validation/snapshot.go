package validation

import (
	"strings"
	"time"

	"github.com/fundshare/exchange-backend/internal/api/request"
)

func ValidateTriggerSnapshot(req request.TriggerSnapshotRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.TargetDate) == "" {
		errors["targetDate"] = "target date is required"
	} else if _, err := time.Parse("2006-01-02", req.TargetDate); err != nil {
		errors["targetDate"] = err.Error()
	}

	for _, id := range req.TradingAccountIDs {
		if err := ValidateUUID(id); err != nil {
			errors["tradingAccountIds"] = err.Error()
			break
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateRecalculateDistribution(req request.RecalculateDistributionRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.TradingAccountID) == "" {
		errors["tradingAccountId"] = "trading account ID is required"
	} else if err := ValidateUUID(req.TradingAccountID); err != nil {
		errors["tradingAccountId"] = err.Error()
	}

	if strings.TrimSpace(req.SnapshotDate) == "" {
		errors["snapshotDate"] = "snapshot date is required"
	} else if _, err := time.Parse("2006-01-02", req.SnapshotDate); err != nil {
		errors["snapshotDate"] = err.Error()
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
