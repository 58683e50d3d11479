package simd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/internal/storage"
	"github.com/msdbook/msdsim/pkg/models"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// FisheryServiceName is the fully qualified gRPC service name.
const FisheryServiceName = "msdsim.fishery.v1.FisheryService"

// Full method names.
const (
	FisheryService_Evaluate_FullMethodName  = "/" + FisheryServiceName + "/Evaluate"
	FisheryService_CreateRun_FullMethodName = "/" + FisheryServiceName + "/CreateRun"
	FisheryService_GetRun_FullMethodName    = "/" + FisheryServiceName + "/GetRun"
	FisheryService_StopRun_FullMethodName   = "/" + FisheryServiceName + "/StopRun"
)

// CreateRunRequest creates and starts an asynchronous evaluation.
type CreateRunRequest struct {
	RunID string    `json:"run_id,omitempty" validate:"omitempty,max=128"`
	Input *RunInput `json:"input" validate:"required"`
}

// RunRequest addresses an existing run.
type RunRequest struct {
	RunID string `json:"run_id" validate:"required"`
}

// RunReply carries a run and, once it completed, its objectives.
type RunReply struct {
	Run        *models.Run         `json:"run"`
	Objectives *fishery.Objectives `json:"objectives,omitempty"`
}

func newRunReply(rec *RunRecord) RunReply {
	reply := RunReply{Run: rec.Run}
	if rec.Evaluation != nil {
		objs := rec.Evaluation.Objectives
		reply.Objectives = &objs
	}
	return reply
}

// EvaluateReply is the result of a fitness evaluation. Objs and Constraints
// are the optimiser-facing vectors.
type EvaluateReply struct {
	RunID        string             `json:"run_id,omitempty"`
	EvaluationID string             `json:"evaluation_id,omitempty"`
	Objectives   fishery.Objectives `json:"objectives"`
	Objs         []float64          `json:"objs"`
	Constraints  []float64          `json:"constraints"`
}

func newEvaluateReply(o fishery.Objectives, runID string, archived *storage.EvaluationRecord) EvaluateReply {
	reply := EvaluateReply{
		RunID:       runID,
		Objectives:  o,
		Objs:        o.Objs(),
		Constraints: o.Cnstr(),
	}
	if archived != nil {
		reply.EvaluationID = archived.ID
	}
	return reply
}

// FisheryServiceServer is the server API for the fishery service. Messages
// are google.protobuf.Struct values holding the JSON request and reply
// shapes of the HTTP API.
type FisheryServiceServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// FisheryService_ServiceDesc is the grpc.ServiceDesc for the fishery service.
var FisheryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: FisheryServiceName,
	HandlerType: (*FisheryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Evaluate",
			Handler: unaryHandler(FisheryService_Evaluate_FullMethodName, func(srv FisheryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.Evaluate(ctx, in)
			}),
		},
		{
			MethodName: "CreateRun",
			Handler: unaryHandler(FisheryService_CreateRun_FullMethodName, func(srv FisheryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.CreateRun(ctx, in)
			}),
		},
		{
			MethodName: "GetRun",
			Handler: unaryHandler(FisheryService_GetRun_FullMethodName, func(srv FisheryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetRun(ctx, in)
			}),
		},
		{
			MethodName: "StopRun",
			Handler: unaryHandler(FisheryService_StopRun_FullMethodName, func(srv FisheryServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.StopRun(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "msdsim/fishery/v1/fishery.proto",
}

// RegisterFisheryServiceServer registers srv on s.
func RegisterFisheryServiceServer(s grpc.ServiceRegistrar, srv FisheryServiceServer) {
	s.RegisterService(&FisheryService_ServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(FisheryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FisheryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FisheryServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FisheryClient is a typed client for the fishery service.
type FisheryClient struct {
	cc grpc.ClientConnInterface
}

func NewFisheryClient(cc grpc.ClientConnInterface) *FisheryClient {
	return &FisheryClient{cc: cc}
}

func (c *FisheryClient) Evaluate(ctx context.Context, in EvaluationInput, opts ...grpc.CallOption) (*EvaluateReply, error) {
	out := new(EvaluateReply)
	if err := c.invoke(ctx, FisheryService_Evaluate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FisheryClient) CreateRun(ctx context.Context, in CreateRunRequest, opts ...grpc.CallOption) (*RunReply, error) {
	out := new(RunReply)
	if err := c.invoke(ctx, FisheryService_CreateRun_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FisheryClient) GetRun(ctx context.Context, runID string, opts ...grpc.CallOption) (*RunReply, error) {
	out := new(RunReply)
	if err := c.invoke(ctx, FisheryService_GetRun_FullMethodName, RunRequest{RunID: runID}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FisheryClient) StopRun(ctx context.Context, runID string, opts ...grpc.CallOption) (*RunReply, error) {
	out := new(RunReply)
	if err := c.invoke(ctx, FisheryService_StopRun_FullMethodName, RunRequest{RunID: runID}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FisheryClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := toStruct(in)
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, reply, opts...); err != nil {
		return err
	}
	return fromStruct(reply, out, false)
}

// toStruct converts a JSON-encodable value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(s *structpb.Struct, v any, strict bool) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
