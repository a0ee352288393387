// Package grpcremote implements remote collaborators over the gRPC record
// service.
package grpcremote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/remote"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

type Client struct {
	conn   *grpc.ClientConn
	client *rpc.RecordServiceClient

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.Token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// New dials endpoint lazily; extra options are appended after the defaults.
func New(endpoint string, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewRecordServiceClient(conn)
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return mapError(err)
	}
	if resp.GetValue() != rpc.PingOK {
		return common.ErrUnavailable
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	_, err := c.client.Register(ctx, rpc.CredentialsRequest(username, password))
	return mapError(err)
}

// Login stores the returned access token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.client.Login(ctx, rpc.CredentialsRequest(username, password))
	if err != nil {
		return mapError(err)
	}
	c.SetToken(resp.GetValue())
	return nil
}

// Collaborator returns the collaborator for one record entity.
func (c *Client) Collaborator(entity models.Entity) remote.Collaborator {
	return &collaborator{c: c, entity: entity}
}

// Collaborators returns one collaborator per entity, ready for remote.NewRegistry.
func (c *Client) Collaborators(entities ...models.Entity) map[models.Entity]remote.Collaborator {
	out := make(map[models.Entity]remote.Collaborator, len(entities))
	for _, e := range entities {
		out[e] = c.Collaborator(e)
	}
	return out
}

type collaborator struct {
	c      *Client
	entity models.Entity
}

func (r *collaborator) Create(ctx context.Context, data map[string]any) (models.Record, error) {
	id, _ := data["id"].(string)
	req, err := rpc.RecordRequest(string(r.entity), id, data)
	if err != nil {
		return nil, err
	}
	resp, err := r.c.client.Create(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return models.Record(resp.AsMap()), nil
}

func (r *collaborator) Update(ctx context.Context, id string, data map[string]any) (models.Record, error) {
	req, err := rpc.RecordRequest(string(r.entity), id, data)
	if err != nil {
		return nil, err
	}
	resp, err := r.c.client.Update(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return models.Record(resp.AsMap()), nil
}

// Delete treats an already missing record as deleted.
func (r *collaborator) Delete(ctx context.Context, id string) error {
	req, err := rpc.RecordRequest(string(r.entity), id, nil)
	if err != nil {
		return err
	}
	_, err = r.c.client.Delete(ctx, req)
	if err = mapError(err); errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	case codes.NotFound:
		return common.ErrNotFound
	case codes.AlreadyExists:
		return common.ErrAlreadyExists
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
