package simd

import (
	"context"
	"errors"
	"strings"

	"github.com/msdbook/msdsim/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// FisheryGRPCServer implements FisheryServiceServer on top of a RunStore
// and an Evaluator.
type FisheryGRPCServer struct {
	store     *RunStore
	evaluator *Evaluator
	validator *requestValidator
	Executor  *RunExecutor
}

// NewFisheryGRPCServer creates a server sharing store and executor with the
// HTTP API.
func NewFisheryGRPCServer(store *RunStore, executor *RunExecutor, evaluator *Evaluator) (*FisheryGRPCServer, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	return &FisheryGRPCServer{
		store:     store,
		evaluator: evaluator,
		validator: v,
		Executor:  executor,
	}, nil
}

var _ FisheryServiceServer = (*FisheryGRPCServer)(nil)

func (s *FisheryGRPCServer) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in EvaluationInput
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.evaluator.Validate(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ev, archived, err := s.evaluator.Evaluate(ctx, "", in, nil, 0)
	if err != nil && ev == nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s.encode(newEvaluateReply(ev.Objectives, "", archived))
}

func (s *FisheryGRPCServer) CreateRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in CreateRunRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}
	if err := s.evaluator.Validate(in.Input.EvaluationInput); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rec, err := s.store.Create(in.RunID, in.Input)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil, status.Error(codes.AlreadyExists, err.Error())
		}
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	started, err := s.Executor.Start(rec.Run.ID)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	logger.Info("run created", "run_id", started.Run.ID)
	return s.encode(RunReply{Run: started.Run})
}

func (s *FisheryGRPCServer) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in RunRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}
	rec, ok := s.store.Get(in.RunID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	return s.encode(newRunReply(rec))
}

func (s *FisheryGRPCServer) StopRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in RunRequest
	if err := s.decode(req, &in); err != nil {
		return nil, err
	}

	updated, err := s.Executor.Stop(in.RunID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			return nil, status.Error(codes.NotFound, err.Error())
		case errors.Is(err, ErrRunTerminal):
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	logger.Info("run cancelled", "run_id", in.RunID)
	return s.encode(RunReply{Run: updated.Run})
}

func (s *FisheryGRPCServer) decode(req *structpb.Struct, v any) error {
	if req == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	if err := fromStruct(req, v, true); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.validator.Struct(v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func (s *FisheryGRPCServer) encode(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
