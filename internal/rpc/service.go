// Package rpc exposes the trajectory query over gRPC. Messages use the
// protobuf well-known types, so no generated code is needed: the label is a
// StringValue and records travel as a Struct.
package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

const (
	ServiceName   = "bhtraj.v1.TrajectoryQuery"
	QueryMethod   = "/" + ServiceName + "/Query"
	LabelsMethod  = "/" + ServiceName + "/Labels"
	maxMsgSize    = 64 * 1024 * 1024
	protoMetadata = "bhtraj/v1/trajectory_query.proto"
)

// Store is the read side of the trajectory store served over gRPC.
type Store interface {
	Query(label string) ([]*trajectory.Record, error)
	Labels() ([]db.LabelSummary, error)
}

// TrajectoryQueryServer is the server API for the TrajectoryQuery service.
type TrajectoryQueryServer interface {
	Query(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Labels(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Server implements TrajectoryQueryServer on top of a Store.
type Server struct {
	store Store
}

func NewServer(store Store) *Server {
	return &Server{store: store}
}

// Query returns {"label": ..., "records": [...]} for the requested label.
func (s *Server) Query(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	label := req.GetValue()
	if label == "" {
		return nil, status.Error(codes.InvalidArgument, "label is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	records, err := s.store.Query(label)
	if err != nil {
		return nil, storeStatus(err)
	}
	out, err := EncodeRecords(label, records)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode records: %v", err)
	}
	return out, nil
}

// Labels returns {"labels": [{"label", "runs", "best_final_energy"}, ...]}.
func (s *Server) Labels(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	labels, err := s.store.Labels()
	if err != nil {
		return nil, storeStatus(err)
	}
	list := make([]interface{}, len(labels))
	for i, l := range labels {
		list[i] = map[string]interface{}{
			"label":             l.Label,
			"runs":              l.Runs,
			"best_final_energy": l.BestFinalEnergy,
		}
	}
	out, err := structpb.NewStruct(map[string]interface{}{"labels": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode labels: %v", err)
	}
	return out, nil
}

func storeStatus(err error) error {
	switch {
	case errors.Is(err, db.ErrStoreClosed), errors.Is(err, db.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, db.ErrRecordNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ServiceDesc describes the TrajectoryQuery service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TrajectoryQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: queryHandler},
		{MethodName: "Labels", Handler: labelsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoMetadata,
}

// Register adds the TrajectoryQuery service backed by srv to s.
func Register(s grpc.ServiceRegistrar, srv TrajectoryQueryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func queryHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrajectoryQueryServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: QueryMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TrajectoryQueryServer).Query(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func labelsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrajectoryQueryServer).Labels(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LabelsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TrajectoryQueryServer).Labels(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
