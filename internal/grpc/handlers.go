package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/ila-server/internal/service"
	"github.com/godilite/ila-server/internal/transport/api"
)

const defaultGRPCTimeout = 2 * time.Minute

type GRPCHandlers struct {
	runner  api.Runner
	logger  *zap.Logger
	timeout time.Duration
}

var _ AttractionIndexServer = (*GRPCHandlers)(nil)

// NewGRPCHandlers initializes the gRPC handlers. A non-positive timeout uses the default.
func NewGRPCHandlers(runner api.Runner, logger *zap.Logger, timeout time.Duration) *GRPCHandlers {
	if runner == nil {
		panic("nil Runner provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultGRPCTimeout
	}
	return &GRPCHandlers{
		runner:  runner,
		logger:  logger.Named("grpc-handler"),
		timeout: timeout,
	}
}

type historyRequest struct {
	BusinessID string `json:"businessId"`
	Limit      int    `json:"limit,omitempty"`
}

// Calculate accepts {businessId?, batchMode?} and returns the same document as POST /v1/ila/calculate.
func (s *GRPCHandlers) Calculate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.CalculateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, s.handleError(ctx, "Calculate", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := api.Calculate(ctx, s.runner, req)
	if err != nil {
		return nil, s.handleError(ctx, "Calculate", err)
	}
	return s.encode("Calculate", resp)
}

// History accepts {businessId, limit?} and returns {businessId, history}.
func (s *GRPCHandlers) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req historyRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, s.handleError(ctx, "History", err)
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.runner.History(ctx, req.BusinessID, req.Limit)
	if err != nil {
		return nil, s.handleError(ctx, "History", err)
	}
	return s.encode("History", api.HistoryResponse{BusinessID: req.BusinessID, History: entries})
}

func (s *GRPCHandlers) encode(op string, v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		s.logger.Error("encode response", zap.String("op", op), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	kind, resp := api.Classify(err)
	switch kind {
	case api.KindMalformed:
		s.logger.Info("invalid request", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, resp.Details)
	case api.KindNotFound:
		s.logger.Info("business not found", zap.String("op", op), zap.Error(err))
		return status.Error(codes.NotFound, resp.Details)
	case api.KindCanceled:
		return status.Error(codes.Canceled, "request canceled")
	case api.KindDeadline:
		return status.Error(codes.DeadlineExceeded, "request timed out")
	default:
		s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %s", op, resp.Error)
	}
}

// fromStruct decodes a Struct through its JSON form so both transports share one schema.
func fromStruct(in *structpb.Struct, dest any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformedInput, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: invalid request: %v", service.ErrMalformedInput, err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
