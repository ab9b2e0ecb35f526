package adapter

import (
	"context"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// tradeStreamDesc/quoteStreamDesc/poolStreamDesc describe the
// collector's server-streaming RPCs. There is no generated stub for the
// collector's service (it is an external process outside this module's
// scope, §6.5) — the client dials the method by name and exchanges
// google.protobuf.Struct documents, the same approach gRPC's own
// reflection and dynamic clients use against a service with no local
// generated code.
var (
	tradeStreamDesc = &grpc.StreamDesc{StreamName: "SubscribeTrades", ServerStreams: true}
	quoteStreamDesc = &grpc.StreamDesc{StreamName: "SubscribeQuotes", ServerStreams: true}
	poolStreamDesc  = &grpc.StreamDesc{StreamName: "SubscribePoolEvents", ServerStreams: true}
)

const feedServicePath = "/tradeplane.adapter.v1.MarketFeed/"

// FeedClient is a gRPC client for one upstream collector adapter process.
type FeedClient struct {
	conn *grpc.ClientConn
}

// NewFeedClient dials addr and returns a client ready to subscribe.
func NewFeedClient(addr string) (*FeedClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("adapter: connect %s: %w", addr, err)
	}
	return &FeedClient{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *FeedClient) Close() error {
	return c.conn.Close()
}

func subscribeRequest(symbols []string) (*structpb.Struct, error) {
	values := make([]interface{}, len(symbols))
	for i, s := range symbols {
		values[i] = s
	}
	return structpb.NewStruct(map[string]interface{}{"symbols": values})
}

// SubscribeTrades opens a server-streaming RPC for symbols' trade prints.
func (c *FeedClient) SubscribeTrades(ctx context.Context, symbols []string) (*TradeStream, error) {
	req, err := subscribeRequest(symbols)
	if err != nil {
		return nil, fmt.Errorf("adapter: build subscribe request: %w", err)
	}
	stream, err := c.conn.NewStream(ctx, tradeStreamDesc, feedServicePath+tradeStreamDesc.StreamName)
	if err != nil {
		return nil, fmt.Errorf("adapter: open trade stream: %w", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("adapter: send subscribe request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("adapter: close subscribe request: %w", err)
	}
	return &TradeStream{stream: stream}, nil
}

// TradeStream yields normalized trades from an open subscription.
type TradeStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next trade. It returns io.EOF when the collector
// closes the stream.
func (s *TradeStream) Recv() (*Trade, error) {
	msg := &structpb.Struct{}
	if err := s.stream.RecvMsg(msg); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("adapter: trade stream recv: %w", err)
	}
	return tradeFromStruct(msg), nil
}

func tradeFromStruct(s *structpb.Struct) *Trade {
	f := s.GetFields()
	return &Trade{
		Symbol:         f["symbol"].GetStringValue(),
		PriceMantissa:  int64(f["price_mantissa"].GetNumberValue()),
		VolumeMantissa: int64(f["volume_mantissa"].GetNumberValue()),
		TimestampNs:    uint64(f["timestamp_ns"].GetNumberValue()),
		Side:           uint8(f["side"].GetNumberValue()),
	}
}
