package events

import (
	"context"

	"google.golang.org/grpc"

	platformgrpc "github.com/powderhound/powderhound/internal/platform/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "powderhound.events.v1.EventService"

// EventServiceServer is the server API for EventService.
type EventServiceServer interface {
	SubmitRSVP(context.Context, *SubmitRSVPRequest) (*SubmitRSVPResponse, error)
	WithdrawRSVP(context.Context, *WithdrawRSVPRequest) (*WithdrawRSVPResponse, error)
	CreateSeries(context.Context, *CreateSeriesRequest) (*CreateSeriesResponse, error)
	UpdateSeries(context.Context, *UpdateSeriesRequest) (*UpdateSeriesResponse, error)
	CancelSeries(context.Context, *CancelSeriesRequest) (*CancelSeriesResponse, error)
	MaterializeSeries(context.Context, *MaterializeSeriesRequest) (*MaterializeSeriesResponse, error)
	UpdateInstance(context.Context, *UpdateInstanceRequest) (*UpdateInstanceResponse, error)
	CreateEvent(context.Context, *CreateEventRequest) (*EventResponse, error)
	GetEvent(context.Context, *EventRequest) (*EventResponse, error)
	ListAttendance(context.Context, *ListAttendanceRequest) (*ListAttendanceResponse, error)
	CancelEvent(context.Context, *EventRequest) (*EventResponse, error)
	ReactivateEvent(context.Context, *EventRequest) (*EventResponse, error)
	CompleteEvent(context.Context, *EventRequest) (*EventResponse, error)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(EventServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EventServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EventServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes EventService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitRSVP", Handler: unaryHandler("SubmitRSVP", EventServiceServer.SubmitRSVP)},
		{MethodName: "WithdrawRSVP", Handler: unaryHandler("WithdrawRSVP", EventServiceServer.WithdrawRSVP)},
		{MethodName: "CreateSeries", Handler: unaryHandler("CreateSeries", EventServiceServer.CreateSeries)},
		{MethodName: "UpdateSeries", Handler: unaryHandler("UpdateSeries", EventServiceServer.UpdateSeries)},
		{MethodName: "CancelSeries", Handler: unaryHandler("CancelSeries", EventServiceServer.CancelSeries)},
		{MethodName: "MaterializeSeries", Handler: unaryHandler("MaterializeSeries", EventServiceServer.MaterializeSeries)},
		{MethodName: "UpdateInstance", Handler: unaryHandler("UpdateInstance", EventServiceServer.UpdateInstance)},
		{MethodName: "CreateEvent", Handler: unaryHandler("CreateEvent", EventServiceServer.CreateEvent)},
		{MethodName: "GetEvent", Handler: unaryHandler("GetEvent", EventServiceServer.GetEvent)},
		{MethodName: "ListAttendance", Handler: unaryHandler("ListAttendance", EventServiceServer.ListAttendance)},
		{MethodName: "CancelEvent", Handler: unaryHandler("CancelEvent", EventServiceServer.CancelEvent)},
		{MethodName: "ReactivateEvent", Handler: unaryHandler("ReactivateEvent", EventServiceServer.ReactivateEvent)},
		{MethodName: "CompleteEvent", Handler: unaryHandler("CompleteEvent", EventServiceServer.CompleteEvent)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterEventServiceServer registers srv on registrar.
func RegisterEventServiceServer(registrar grpc.ServiceRegistrar, srv EventServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// Client calls EventService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *Client, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(platformgrpc.CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitRSVP(ctx context.Context, in *SubmitRSVPRequest, opts ...grpc.CallOption) (*SubmitRSVPResponse, error) {
	return invoke[SubmitRSVPRequest, SubmitRSVPResponse](ctx, c, "SubmitRSVP", in, opts)
}

func (c *Client) WithdrawRSVP(ctx context.Context, in *WithdrawRSVPRequest, opts ...grpc.CallOption) (*WithdrawRSVPResponse, error) {
	return invoke[WithdrawRSVPRequest, WithdrawRSVPResponse](ctx, c, "WithdrawRSVP", in, opts)
}

func (c *Client) CreateSeries(ctx context.Context, in *CreateSeriesRequest, opts ...grpc.CallOption) (*CreateSeriesResponse, error) {
	return invoke[CreateSeriesRequest, CreateSeriesResponse](ctx, c, "CreateSeries", in, opts)
}

func (c *Client) UpdateSeries(ctx context.Context, in *UpdateSeriesRequest, opts ...grpc.CallOption) (*UpdateSeriesResponse, error) {
	return invoke[UpdateSeriesRequest, UpdateSeriesResponse](ctx, c, "UpdateSeries", in, opts)
}

func (c *Client) CancelSeries(ctx context.Context, in *CancelSeriesRequest, opts ...grpc.CallOption) (*CancelSeriesResponse, error) {
	return invoke[CancelSeriesRequest, CancelSeriesResponse](ctx, c, "CancelSeries", in, opts)
}

func (c *Client) MaterializeSeries(ctx context.Context, in *MaterializeSeriesRequest, opts ...grpc.CallOption) (*MaterializeSeriesResponse, error) {
	return invoke[MaterializeSeriesRequest, MaterializeSeriesResponse](ctx, c, "MaterializeSeries", in, opts)
}

func (c *Client) UpdateInstance(ctx context.Context, in *UpdateInstanceRequest, opts ...grpc.CallOption) (*UpdateInstanceResponse, error) {
	return invoke[UpdateInstanceRequest, UpdateInstanceResponse](ctx, c, "UpdateInstance", in, opts)
}

func (c *Client) CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[CreateEventRequest, EventResponse](ctx, c, "CreateEvent", in, opts)
}

func (c *Client) GetEvent(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventRequest, EventResponse](ctx, c, "GetEvent", in, opts)
}

func (c *Client) ListAttendance(ctx context.Context, in *ListAttendanceRequest, opts ...grpc.CallOption) (*ListAttendanceResponse, error) {
	return invoke[ListAttendanceRequest, ListAttendanceResponse](ctx, c, "ListAttendance", in, opts)
}

func (c *Client) CancelEvent(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventRequest, EventResponse](ctx, c, "CancelEvent", in, opts)
}

func (c *Client) ReactivateEvent(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventRequest, EventResponse](ctx, c, "ReactivateEvent", in, opts)
}

func (c *Client) CompleteEvent(ctx context.Context, in *EventRequest, opts ...grpc.CallOption) (*EventResponse, error) {
	return invoke[EventRequest, EventResponse](ctx, c, "CompleteEvent", in, opts)
}
