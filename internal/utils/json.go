package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"liquidationMap/internal/domain"
)

// LoadLiquidationMapJSON reads a saved liquidation map response and validates it.
func LoadLiquidationMapJSON(path string) (*domain.LiquidationMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m domain.LiquidationMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing liquidation map %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("liquidation map %s: %w", path, err)
	}
	return &m, nil
}
