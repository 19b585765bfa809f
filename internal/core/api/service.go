// Package api provides the gRPC condition sync service.
//
// The service is described by hand on top of the protobuf well-known types,
// so clients need no generated code: condition names travel as StringValue,
// encoded trees as BytesValue and listings as ListValue of Structs.
package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/store"
)

// Conditions is the storage consumed by the service.
type Conditions interface {
	Get(ctx context.Context, name string) (store.Entry, error)
	List(ctx context.Context) ([]store.Entry, error)
}

var _ Conditions = (*store.Store)(nil)

// ConditionSyncService implements ConditionSyncServer.
// Thin orchestration layer delegating to the store and conditions packages.
type ConditionSyncService struct {
	conditions Conditions
	logger     *slog.Logger
	trees      []conditions.Option
}

// Option configures a ConditionSyncService.
type Option func(*ConditionSyncService)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *ConditionSyncService) { s.logger = logger }
}

// WithTreeOptions sets the options of the trees CheckCondition decodes into.
func WithTreeOptions(opts ...conditions.Option) Option {
	return func(s *ConditionSyncService) { s.trees = opts }
}

// NewConditionSyncService creates service instance with dependencies.
func NewConditionSyncService(c Conditions, opts ...Option) (*ConditionSyncService, error) {
	if c == nil {
		return nil, fmt.Errorf("conditions cannot be nil")
	}
	s := &ConditionSyncService{conditions: c, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
