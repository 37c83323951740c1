package grpcx

import (
	"context"
	"fmt"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReadyCheck probes the standard health service of a peer. It returns nil when
// addr is empty so readiness skips the dependency.
func HealthReadyCheck(addr, service string) func(context.Context) error {
	if addr == "" {
		return nil
	}
	return func(ctx context.Context) error {
		conn, err := Dial(ctx, addr, DialOptions{Timeout: 2 * time.Second})
		if err != nil {
			return err
		}
		defer conn.Close()

		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			return err
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("%s is %s", service, resp.GetStatus())
		}
		return nil
	}
}
