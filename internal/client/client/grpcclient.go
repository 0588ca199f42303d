// Package client is the gRPC client of the account service.
package client

import (
	"context"
	"fmt"

	pb "github.com/dmitrijs2005/miretia/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
}

// NewGRPCClient creates a client for endpoint. The connection is established
// lazily on the first call. Extra dial options are appended after the
// defaults.
func NewGRPCClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}
	return &GRPCClient{endpointURL: endpoint, conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Register sends the password as given; the caller owns and wipes the slice.
func (c *GRPCClient) Register(ctx context.Context, username, email string, password []byte) (*pb.Response, error) {
	return c.call(ctx, pb.MethodRegister, map[string]string{
		pb.FieldUsername: username,
		pb.FieldEmail:    email,
		pb.FieldPassword: string(password),
	})
}

func (c *GRPCClient) LookupByID(ctx context.Context, id string) (*pb.Response, error) {
	return c.call(ctx, pb.MethodLookupByID, map[string]string{pb.FieldID: id})
}

func (c *GRPCClient) LookupByEmail(ctx context.Context, email string) (*pb.Response, error) {
	return c.call(ctx, pb.MethodLookupByEmail, map[string]string{pb.FieldEmail: email})
}

func (c *GRPCClient) LookupByUsername(ctx context.Context, username string) (*pb.Response, error) {
	return c.call(ctx, pb.MethodLookupByUsername, map[string]string{pb.FieldUsername: username})
}

func (c *GRPCClient) List(ctx context.Context) (*pb.Response, error) {
	return c.call(ctx, pb.MethodListAccounts, nil)
}

func (c *GRPCClient) Delete(ctx context.Context, id string) (*pb.Response, error) {
	return c.call(ctx, pb.MethodDeleteAccount, map[string]string{pb.FieldID: id})
}

func (c *GRPCClient) call(ctx context.Context, method string, fields map[string]string) (*pb.Response, error) {
	req, err := pb.NewRequest(fields)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, pb.FullMethod(method), req, out); err != nil {
		return nil, err
	}
	return pb.ParseResponse(out)
}
