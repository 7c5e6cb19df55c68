package api

import (
	"context"

	"rentcars/internal/models"

	"google.golang.org/grpc"
)

const (
	ReservationServiceName = "rentcars.reservations.v1.ReservationService"

	methodCreateReservation    = "/" + ReservationServiceName + "/CreateReservation"
	methodListUserReservations = "/" + ReservationServiceName + "/ListUserReservations"
	methodListAvailableCars    = "/" + ReservationServiceName + "/ListAvailableCars"
)

type CreateReservationRequest struct {
	UserEmail string `json:"userEmail"`
	CarID     string `json:"carId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type CreateReservationResponse struct {
	Reservation *models.Reservation `json:"reservation"`
}

type ListUserReservationsRequest struct {
	UserEmail string `json:"userEmail"`
}

type ListUserReservationsResponse struct {
	Reservations []*models.Reservation `json:"reservations"`
}

type ListAvailableCarsRequest struct{}

type ListAvailableCarsResponse struct {
	Cars []*models.Car `json:"cars"`
}

// ReservationServiceServer is the server API of the reservation gRPC service.
type ReservationServiceServer interface {
	CreateReservation(context.Context, *CreateReservationRequest) (*CreateReservationResponse, error)
	ListUserReservations(context.Context, *ListUserReservationsRequest) (*ListUserReservationsResponse, error)
	ListAvailableCars(context.Context, *ListAvailableCarsRequest) (*ListAvailableCarsResponse, error)
}

func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&reservationServiceDesc, srv)
}

var reservationServiceDesc = grpc.ServiceDesc{
	ServiceName: ReservationServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateReservation", Handler: createReservationHandler},
		{MethodName: "ListUserReservations", Handler: listUserReservationsHandler},
		{MethodName: "ListAvailableCars", Handler: listAvailableCarsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rentcars/reservations/v1",
}

func createReservationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateReservationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReservationServiceServer).CreateReservation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCreateReservation}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReservationServiceServer).CreateReservation(ctx, req.(*CreateReservationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listUserReservationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListUserReservationsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReservationServiceServer).ListUserReservations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListUserReservations}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReservationServiceServer).ListUserReservations(ctx, req.(*ListUserReservationsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listAvailableCarsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListAvailableCarsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReservationServiceServer).ListAvailableCars(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListAvailableCars}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReservationServiceServer).ListAvailableCars(ctx, req.(*ListAvailableCarsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ReservationClient calls the reservation service with the JSON codec.
type ReservationClient struct {
	cc grpc.ClientConnInterface
}

func NewReservationClient(cc grpc.ClientConnInterface) *ReservationClient {
	return &ReservationClient{cc: cc}
}

func (c *ReservationClient) CreateReservation(ctx context.Context, in *CreateReservationRequest, opts ...grpc.CallOption) (*CreateReservationResponse, error) {
	out := new(CreateReservationResponse)
	if err := c.cc.Invoke(ctx, methodCreateReservation, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationClient) ListUserReservations(ctx context.Context, in *ListUserReservationsRequest, opts ...grpc.CallOption) (*ListUserReservationsResponse, error) {
	out := new(ListUserReservationsResponse)
	if err := c.cc.Invoke(ctx, methodListUserReservations, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationClient) ListAvailableCars(ctx context.Context, in *ListAvailableCarsRequest, opts ...grpc.CallOption) (*ListAvailableCarsResponse, error) {
	out := new(ListAvailableCarsResponse)
	if err := c.cc.Invoke(ctx, methodListAvailableCars, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
}
