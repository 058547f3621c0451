package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/bhtraj/internal/monitoring"
)

// NewGRPCServer returns a grpc.Server with the TrajectoryQuery service
// registered and every call logged.
func NewGRPCServer(store Store, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
		grpc.UnaryInterceptor(loggingInterceptor),
	}, opts...)
	s := grpc.NewServer(opts...)
	Register(s, NewServer(store))
	return s
}

// Serve serves store on lis until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, lis net.Listener, store Store) error {
	s := NewGRPCServer(store)

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("gRPC server listening on %s", lis.Addr())
		errc <- s.Serve(lis)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("grpc serve: %w", err)
	case <-ctx.Done():
		s.GracefulStop()
		if err := <-errc; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		monitoring.Logf("gRPC server stopped")
		return nil
	}
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	monitoring.Logf("[grpc] %s %s %vms", info.FullMethod, status.Code(err), float64(time.Since(start).Nanoseconds())/1e6)
	return resp, err
}
