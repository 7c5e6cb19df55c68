package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"rentcars/internal/config"
	"rentcars/internal/domain"
	"rentcars/internal/models"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// reservationService adapts the domain services to the gRPC surface.
type reservationService struct {
	reservations domain.ReservationService
	cars         domain.CarService
}

func (s *reservationService) CreateReservation(ctx context.Context, req *CreateReservationRequest) (*CreateReservationResponse, error) {
	reservation, err := s.reservations.CreateReservation(ctx, models.CreateReservationInput{
		UserEmail: req.UserEmail,
		CarID:     req.CarID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateReservationResponse{Reservation: reservation}, nil
}

func (s *reservationService) ListUserReservations(ctx context.Context, req *ListUserReservationsRequest) (*ListUserReservationsResponse, error) {
	reservations, err := s.reservations.ListReservationsForUser(ctx, req.UserEmail)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListUserReservationsResponse{Reservations: reservations}, nil
}

func (s *reservationService) ListAvailableCars(ctx context.Context, _ *ListAvailableCarsRequest) (*ListAvailableCarsResponse, error) {
	cars, err := s.cars.ListAvailableCars(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListAvailableCarsResponse{Cars: cars}, nil
}

type GRPCServer struct {
	cfg    config.APIConfig
	server *grpc.Server
	health *health.Server
	log    zerolog.Logger
}

func NewGRPCServer(
	cfg config.APIConfig,
	reservations domain.ReservationService,
	cars domain.CarService,
	logger *zerolog.Logger,
) *GRPCServer {
	unary := ChainUnaryInterceptors(
		LoggingUnaryInterceptor(logger),
		RecoveryUnaryInterceptor(logger),
		RateLimitUnaryInterceptor(newRateLimiter(cfg.RateLimit)),
	)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(unary))
	RegisterReservationServiceServer(grpcServer, &reservationService{reservations: reservations, cars: cars})

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ReservationServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	srv := &GRPCServer{
		cfg:    cfg,
		server: grpcServer,
		health: healthServer,
		log:    zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "grpc").Logger()
	}
	return srv
}

// ListenAndServe listens on the configured port and blocks until the server stops.
func (s *GRPCServer) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", addr, err)
	}
	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	s.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC API listening")
	return s.server.Serve(lis)
}

func (s *GRPCServer) Shutdown(ctx context.Context) {
	if s.server == nil {
		return
	}
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
	case <-time.After(10 * time.Second):
		s.log.Warn().Msg("gRPC graceful shutdown timed out; forcing stop")
		s.server.Stop()
	}
}
