package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rpattn/candh/internal/candh"
)

// Entity type names as recorded in history.
const (
	EntityUser           = "User"
	EntityCostAssignment = "CostAssignment"
)

// NewRegistry builds the handler registry for the application entities.
func NewRegistry(logger *zap.Logger) (*candh.Registry, error) {
	reg, err := candh.NewRegistryBuilder().
		Logger(logger).
		Schema(UserSchema()).
		Schema(CostAssignmentSchema()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build entity registry: %w", err)
	}
	return reg, nil
}
