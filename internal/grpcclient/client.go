// Package grpcclient provides a client for the classifier inference gRPC
// server.
package grpcclient

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	apperrors "github.com/sightveil/platform/internal/errors"
	"github.com/sightveil/platform/internal/resilience"
	"github.com/sightveil/platform/internal/trace"
	pb "github.com/sightveil/platform/pkg/pb"
)

// Client wraps the classifier inference connection. It satisfies the detect
// package's model scorer contract.
type Client struct {
	conn  *grpc.ClientConn
	retry resilience.RetryConfig
}

// New creates a classifier client. The connection is established lazily on
// the first call.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeModelUnavailable, "creating classifier connection")
	}

	return &Client{
		conn:  conn,
		retry: resilience.ClassifierRetryConfig(),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Classify sends one encoded image and returns the raw verdict.
func (c *Client) Classify(ctx context.Context, req *pb.ClassifyRequest) (*pb.ClassifyResponse, error) {
	resp := &pb.ClassifyResponse{}
	err := resilience.Retry(ctx, c.retry, func() error {
		resp.Reset()
		return c.conn.Invoke(ctx, ClassifyMethod, req, resp)
	})
	if err != nil {
		return nil, apperrors.FromGRPCError(err)
	}
	return resp, nil
}

// Score encodes a tile and returns the classifier's confidence for it.
func (c *Client) Score(ctx context.Context, tile *image.RGBA) (float64, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, tile, &jpeg.Options{Quality: TileJPEGQuality}); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInvalidFrame, "encoding tile for inference")
	}

	b := tile.Bounds()
	resp, err := c.Classify(ctx, &pb.ClassifyRequest{
		ImageData: buf.Bytes(),
		Width:     int32(b.Dx()),
		Height:    int32(b.Dy()),
		Format:    "jpeg",
	})
	if err != nil {
		return 0, err
	}
	return float64(resp.Confidence), nil
}
