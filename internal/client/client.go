package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/storechat/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a typed client for storechat.v1.ChatService.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// NewFromConn wraps an existing connection. The connection must request the
// api.CodecName content-subtype.
func NewFromConn(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, api.FullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context) (*api.StatusResponse, error) {
	return invoke[api.StatusResponse](ctx, c, api.MethodGetStatus, &api.StatusRequest{})
}

func (c *Client) ListRooms(ctx context.Context) (*api.ListRoomsResponse, error) {
	return invoke[api.ListRoomsResponse](ctx, c, api.MethodListRooms, &api.ListRoomsRequest{})
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (*api.GetRoomResponse, error) {
	return invoke[api.GetRoomResponse](ctx, c, api.MethodGetRoom, &api.RoomRequest{RoomID: roomID})
}

func (c *Client) SendMessage(ctx context.Context, roomID, text string) (*api.SendMessageResponse, error) {
	return invoke[api.SendMessageResponse](ctx, c, api.MethodSendMessage, &api.SendMessageRequest{RoomID: roomID, Text: text})
}

func (c *Client) MarkAsRead(ctx context.Context, roomID string) (*api.AckResponse, error) {
	return invoke[api.AckResponse](ctx, c, api.MethodMarkAsRead, &api.RoomRequest{RoomID: roomID})
}

func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool) (*api.AckResponse, error) {
	return invoke[api.AckResponse](ctx, c, api.MethodSetTyping, &api.SetTypingRequest{RoomID: roomID, Typing: typing})
}

func (c *Client) OpenWindow(ctx context.Context, roomID string) (*api.LayoutResponse, error) {
	return invoke[api.LayoutResponse](ctx, c, api.MethodOpenWindow, &api.RoomRequest{RoomID: roomID})
}

func (c *Client) CloseWindow(ctx context.Context, roomID string) (*api.LayoutResponse, error) {
	return invoke[api.LayoutResponse](ctx, c, api.MethodCloseWindow, &api.RoomRequest{RoomID: roomID})
}

func (c *Client) MinimizeWindow(ctx context.Context, roomID string) (*api.LayoutResponse, error) {
	return invoke[api.LayoutResponse](ctx, c, api.MethodMinimizeWindow, &api.RoomRequest{RoomID: roomID})
}

func (c *Client) MaximizeWindow(ctx context.Context, roomID string) (*api.LayoutResponse, error) {
	return invoke[api.LayoutResponse](ctx, c, api.MethodMaximizeWindow, &api.RoomRequest{RoomID: roomID})
}

func (c *Client) SetMainPage(ctx context.Context, mainPage bool, roomID string) (*api.LayoutResponse, error) {
	return invoke[api.LayoutResponse](ctx, c, api.MethodSetMainPage, &api.SetMainPageRequest{MainPage: mainPage, RoomID: roomID})
}

func (c *Client) GetLayout(ctx context.Context) (*api.LayoutResponse, error) {
	return invoke[api.LayoutResponse](ctx, c, api.MethodGetLayout, &api.LayoutRequest{})
}

func (c *Client) SearchArchive(ctx context.Context, query, roomID string, limit int) (*api.SearchResponse, error) {
	return invoke[api.SearchResponse](ctx, c, api.MethodSearchArchive, &api.SearchRequest{Query: query, RoomID: roomID, Limit: limit})
}

func (c *Client) ListArchivedMessages(ctx context.Context, roomID string, beforeMs int64, limit int) (*api.HistoryResponse, error) {
	return invoke[api.HistoryResponse](ctx, c, api.MethodListHistory, &api.HistoryRequest{RoomID: roomID, BeforeMs: beforeMs, Limit: limit})
}

// Events receives a WatchEvents stream.
type Events struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event. It returns io.EOF when the server ends the stream.
func (e *Events) Recv() (*api.Event, error) {
	evt := new(api.Event)
	if err := e.stream.RecvMsg(evt); err != nil {
		return nil, err
	}
	return evt, nil
}

// WatchEvents streams events whose kind starts with namespace. Cancel ctx to stop.
func (c *Client) WatchEvents(ctx context.Context, namespace string) (*Events, error) {
	desc := &api.ServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, api.FullMethod(api.MethodWatchEvents))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&api.WatchRequest{Namespace: namespace}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Events{stream: stream}, nil
}
