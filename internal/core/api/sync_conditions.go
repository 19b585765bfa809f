package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/filterkeeper/internal/conditions"
)

var _ ConditionSyncServer = (*ConditionSyncService)(nil)

// GetCondition returns the encoded tree stored under the requested name.
// The etag travels as response header so clients can skip unchanged trees.
func (s *ConditionSyncService) GetCondition(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	name := req.GetValue()
	if strings.TrimSpace(name) == "" {
		return nil, status.Error(codes.InvalidArgument, "condition name required")
	}

	e, err := s.conditions.Get(ctx, name)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(ETagHeader, e.ETag)); err != nil {
		s.logger.Warn("failed to set etag header", slog.String("condition", name), slog.Any("error", err))
	}
	return wrapperspb.Bytes(e.Body), nil
}

// ListConditions returns every stored condition, ordered by name.
func (s *ConditionSyncService) ListConditions(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	entries, err := s.conditions.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	values := make([]*structpb.Value, 0, len(entries))
	for _, e := range entries {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name":       structpb.NewStringValue(e.Name),
			"etag":       structpb.NewStringValue(e.ETag),
			"nodes":      structpb.NewNumberValue(float64(e.Nodes)),
			"updated_at": structpb.NewStringValue(e.UpdatedAt.UTC().Format(time.RFC3339)),
		}}))
	}
	return &structpb.ListValue{Values: values}, nil
}

// CheckCondition decodes an encoded tree and reports whether it is valid,
// with the problems of every invalid node.
func (s *ConditionSyncService) CheckCondition(_ context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	tree := conditions.New(s.trees...)
	if err := conditions.Decode(req.GetValue(), tree); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var invalid []*structpb.Value
	for _, h := range tree.FindInvalid() {
		n := tree.Node(h)
		var problems []*structpb.Value
		for _, p := range n.Problems() {
			problems = append(problems, structpb.NewStringValue(p.String()))
		}
		invalid = append(invalid, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":       structpb.NewStringValue(n.ID),
			"kind":     structpb.NewStringValue(n.Kind.String()),
			"problems": structpb.NewListValue(&structpb.ListValue{Values: problems}),
		}}))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"valid":   structpb.NewBoolValue(len(invalid) == 0),
		"nodes":   structpb.NewNumberValue(float64(tree.Len())),
		"invalid": structpb.NewListValue(&structpb.ListValue{Values: invalid}),
	}}, nil
}
