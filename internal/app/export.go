package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"riskTracker/internal/domain"
	"riskTracker/internal/ports"
)

// BundleVersion stamps export bundles for forward migration.
const BundleVersion = "1.0.0"

// ExportMetadata describes the origin of an export bundle.
type ExportMetadata struct {
	Platform   string `json:"platform"`
	TradeCount int    `json:"tradeCount"`
}

// ExportBundle is the JSON document produced by ExportData and consumed by
// ImportData. RiskSettings is null when no policy configuration is included.
type ExportBundle struct {
	Version      string               `json:"version"`
	ExportDate   time.Time            `json:"exportDate"`
	RiskSettings *domain.RiskSettings `json:"riskSettings"`
	Trades       []ports.TradeRecord  `json:"trades"`
	Metadata     ExportMetadata       `json:"metadata"`
}

// ExportData serializes the full trade history and the current policy
// configuration into a portable JSON bundle.
func (s *RiskService) ExportData(ctx context.Context) ([]byte, error) {
	recs, err := s.store.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("exportData: %w", err)
	}

	settings := s.policy.Settings()
	bundle := ExportBundle{
		Version:      BundleVersion,
		ExportDate:   time.Now(),
		RiskSettings: &settings,
		Trades:       recs,
		Metadata: ExportMetadata{
			Platform:   s.store.Name(),
			TradeCount: len(recs),
		},
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("exportData: failed to encode bundle: %w", err)
	}
	s.logger.Info(ctx, "Data exported", map[string]interface{}{
		"trades": len(recs), "platform": bundle.Metadata.Platform,
	})
	return data, nil
}

// ImportData validates and loads an export bundle, replacing the stored
// trades and, when settings are included, the persisted configuration and
// the in-memory policy. Ids are re-assigned by the backend.
func (s *RiskService) ImportData(ctx context.Context, data []byte) error {
	if err := validateBundle(data); err != nil {
		return err
	}

	var bundle ExportBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("%w: failed to decode import bundle: %v", ports.ErrValidation, err)
	}

	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("importData: %w", err)
	}
	if err := s.store.Import(ctx, bundle.Trades); err != nil {
		return fmt.Errorf("importData: %w", err)
	}

	if bundle.RiskSettings != nil {
		if err := s.UpdateRiskSettings(ctx, *bundle.RiskSettings); err != nil {
			return fmt.Errorf("importData: %w", err)
		}
	}
	if err := s.InitializeCurrentBalance(ctx); err != nil {
		return fmt.Errorf("importData: %w", err)
	}

	s.logger.Info(ctx, "Data imported", map[string]interface{}{
		"trades": len(bundle.Trades), "version": bundle.Version,
	})
	return nil
}

// validateBundle checks the structural requirements of an import bundle:
// every trade entry must carry result and timestamp, and riskSettings, when
// present, must carry its three required keys.
func validateBundle(data []byte) error {
	var raw struct {
		RiskSettings map[string]json.RawMessage   `json:"riskSettings"`
		Trades       []map[string]json.RawMessage `json:"trades"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: import bundle is not valid JSON: %v", ports.ErrValidation, err)
	}

	for i, trade := range raw.Trades {
		if _, ok := trade["result"]; !ok {
			return fmt.Errorf("%w: trade entry %d is missing 'result'", ports.ErrValidation, i)
		}
		if _, ok := trade["timestamp"]; !ok {
			return fmt.Errorf("%w: trade entry %d is missing 'timestamp'", ports.ErrValidation, i)
		}
	}

	if raw.RiskSettings != nil {
		for _, key := range []string{"maxDrawdown", "lossPerTradePercentage", "accountBalance"} {
			if _, ok := raw.RiskSettings[key]; !ok {
				return fmt.Errorf("%w: riskSettings is missing '%s'", ports.ErrValidation, key)
			}
		}
	}
	return nil
}
