package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// Client calls the TrajectoryQuery service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to a TrajectoryQuery server at target without transport
// security. The caller closes the returned connection.
func Dial(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxMsgSize)),
	}, opts...)
	return grpc.NewClient(target, opts...)
}

// Query fetches every record stored under label.
func (c *Client) Query(ctx context.Context, label string) ([]*trajectory.Record, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, QueryMethod, wrapperspb.String(label), out); err != nil {
		return nil, err
	}
	return DecodeRecords(out)
}

// Labels fetches the per-label summaries.
func (c *Client) Labels(ctx context.Context) ([]db.LabelSummary, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LabelsMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	list := out.GetFields()["labels"].GetListValue().GetValues()
	labels := make([]db.LabelSummary, len(list))
	for i, v := range list {
		f := v.GetStructValue().GetFields()
		labels[i] = db.LabelSummary{
			Label:           f["label"].GetStringValue(),
			Runs:            int(f["runs"].GetNumberValue()),
			BestFinalEnergy: f["best_final_energy"].GetNumberValue(),
		}
	}
	return labels, nil
}
