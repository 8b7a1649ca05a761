package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BearBump/FieldTrack/internal/api/activityhttp"
	"github.com/BearBump/FieldTrack/internal/broker/kafka"
	"github.com/BearBump/FieldTrack/internal/broker/messages"
	"github.com/BearBump/FieldTrack/internal/services/activitylog"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthService = "fieldtrack.ActivityLog"

type activityAPIOpts struct {
	grpcAddr     string
	httpAddr     string
	grpcDialAddr string
	swaggerPath  string

	topic         string
	consumerGroup string

	onListen func(grpcAddr, httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error
}

type activityApplier interface {
	ApplyLogged(ctx context.Context, msg messages.ActivityLogged) error
}

func runActivityAPI(ctx context.Context, opts activityAPIOpts, svc *activitylog.Service, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	api := activityhttp.New(svc)

	grpcLis, err := net.Listen("tcp", opts.grpcAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	if opts.onListen != nil {
		opts.onListen(grpcLis.Addr().String(), httpLis.Addr().String())
	}

	dialAddr := opts.grpcDialAddr
	if dialAddr == "" || strings.HasSuffix(dialAddr, ":0") {
		dialAddr = grpcLis.Addr().String()
	}

	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- runGRPCServer(ctx, grpcLis)
	}()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runGatewayServer(ctx, httpLis, dialAddr, opts.swaggerPath, api)
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		runConsumer(ctx, consumer, handleActivityLogged(svc), time.Second)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-grpcErr:
		return err
	case err := <-httpErr:
		return err
	}
}

// runConsumer restarts Consume after failures until ctx is done; an
// uncommitted message is fetched again on restart.
func runConsumer(ctx context.Context, consumer kafkaConsumer, handler func(ctx context.Context, key, value []byte) error, retryDelay time.Duration) {
	for {
		err := consumer.Consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		slog.Error("kafka consumer stopped, restarting", "error", fmt.Sprint(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func handleActivityLogged(svc activityApplier) func(ctx context.Context, key, value []byte) error {
	return func(ctx context.Context, _ []byte, value []byte) error {
		var m messages.ActivityLogged
		if err := json.Unmarshal(value, &m); err != nil {
			return fmt.Errorf("%w: decode activity: %s", kafka.ErrSkipMessage, err.Error())
		}
		err := svc.ApplyLogged(ctx, m)
		if errors.Is(err, activitylog.ErrInvalidInput) {
			return fmt.Errorf("%w: %s", kafka.ErrSkipMessage, err.Error())
		}
		return err
	}
}

func runGRPCServer(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			s.Stop()
		}
		_ = lis.Close()
	}()

	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.Serve(lis)
}

func runGatewayServer(ctx context.Context, lis net.Listener, grpcAddr string, swaggerPath string, api *activityhttp.API) error {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	healthClient := healthpb.NewHealthClient(conn)

	r := chi.NewRouter()
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, swaggerPath)
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		resp, err := healthClient.Check(checkCtx, &healthpb.HealthCheckRequest{Service: healthService})
		if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not serving"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	api.Routes(r)

	mux := runtime.NewServeMux()
	if err := api.RegisterGateway(mux); err != nil {
		return err
	}
	r.Mount("/", mux)

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP gateway listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}
