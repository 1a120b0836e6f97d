package api

import (
	"context"

	"github.com/matheus3301/storechat/internal/bus"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "storechat.v1.ChatService"

// Method names, usable with grpc.ClientConn.Invoke as "/" + ServiceName + "/" + name.
const (
	MethodGetStatus      = "GetStatus"
	MethodListRooms      = "ListRooms"
	MethodGetRoom        = "GetRoom"
	MethodSendMessage    = "SendMessage"
	MethodMarkAsRead     = "MarkAsRead"
	MethodSetTyping      = "SetTyping"
	MethodOpenWindow     = "OpenWindow"
	MethodCloseWindow    = "CloseWindow"
	MethodMinimizeWindow = "MinimizeWindow"
	MethodMaximizeWindow = "MaximizeWindow"
	MethodSetMainPage    = "SetMainPage"
	MethodGetLayout      = "GetLayout"
	MethodSearchArchive  = "SearchArchive"
	MethodListHistory    = "ListArchivedMessages"
	MethodWatchEvents    = "WatchEvents"
)

// FullMethod returns the wire path of a method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ChatServer is the server side of storechat.v1.ChatService.
type ChatServer interface {
	GetStatus(context.Context, *StatusRequest) (*StatusResponse, error)
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	GetRoom(context.Context, *RoomRequest) (*GetRoomResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	MarkAsRead(context.Context, *RoomRequest) (*AckResponse, error)
	SetTyping(context.Context, *SetTypingRequest) (*AckResponse, error)
	OpenWindow(context.Context, *RoomRequest) (*LayoutResponse, error)
	CloseWindow(context.Context, *RoomRequest) (*LayoutResponse, error)
	MinimizeWindow(context.Context, *RoomRequest) (*LayoutResponse, error)
	MaximizeWindow(context.Context, *RoomRequest) (*LayoutResponse, error)
	SetMainPage(context.Context, *SetMainPageRequest) (*LayoutResponse, error)
	GetLayout(context.Context, *LayoutRequest) (*LayoutResponse, error)
	SearchArchive(context.Context, *SearchRequest) (*SearchResponse, error)
	ListArchivedMessages(context.Context, *HistoryRequest) (*HistoryResponse, error)
	WatchEvents(*WatchRequest, EventStream) error
}

// EventStream is the server half of a WatchEvents call.
type EventStream interface {
	Send(*bus.Envelope) error
	grpc.ServerStream
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(env *bus.Envelope) error {
	return s.ServerStream.SendMsg(env)
}

// ServiceDesc describes storechat.v1.ChatService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetStatus, ChatServer.GetStatus),
		unary(MethodListRooms, ChatServer.ListRooms),
		unary(MethodGetRoom, ChatServer.GetRoom),
		unary(MethodSendMessage, ChatServer.SendMessage),
		unary(MethodMarkAsRead, ChatServer.MarkAsRead),
		unary(MethodSetTyping, ChatServer.SetTyping),
		unary(MethodOpenWindow, ChatServer.OpenWindow),
		unary(MethodCloseWindow, ChatServer.CloseWindow),
		unary(MethodMinimizeWindow, ChatServer.MinimizeWindow),
		unary(MethodMaximizeWindow, ChatServer.MaximizeWindow),
		unary(MethodSetMainPage, ChatServer.SetMainPage),
		unary(MethodGetLayout, ChatServer.GetLayout),
		unary(MethodSearchArchive, ChatServer.SearchArchive),
		unary(MethodListHistory, ChatServer.ListArchivedMessages),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchEvents,
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "storechat/v1/chat.proto",
}

// RegisterChatServer registers srv on s.
func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(ChatServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ChatServer).WatchEvents(in, &eventStream{stream})
}
