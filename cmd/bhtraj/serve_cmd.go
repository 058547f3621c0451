package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/bhtraj/internal/api"
	"github.com/banshee-data/bhtraj/internal/config"
	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/rpc"
	"github.com/banshee-data/bhtraj/internal/version"
)

func cmdServe(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	dbPath := fs.String("db", config.DefaultDBPath, "trajectory store path")
	listen := fs.String("listen", ":8080", "HTTP listen address")
	grpcAddr := fs.String("grpc-addr", ":50051", "gRPC listen address (empty disables gRPC)")
	assetsHost := fs.String("assets-host", "", "override the echarts assets host for HTML charts")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *listen == "" {
		return usagef("listen address is required")
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	apiServer := api.NewServer(store)
	apiServer.AssetsHost = *assetsHost
	mux := apiServer.ServeMux()
	// mount the admin debugging routes (accessible only locally or over Tailscale)
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}

	httpLis, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", *listen, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, 2)

	if *grpcAddr != "" {
		grpcLis, err := net.Listen("tcp", *grpcAddr)
		if err != nil {
			httpLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", *grpcAddr, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rpc.Serve(ctx, grpcLis, store); err != nil {
				errc <- err
				cancel()
			}
		}()
	}

	server := &http.Server{
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("http server: %w", err)
			cancel()
		}
	}()

	log.Printf("bhtraj %s serving %s on %s", version.String(), *dbPath, httpLis.Addr())
	fmt.Fprintf(stdout, "listening on %s\n", httpLis.Addr())

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	close(errc)
	if err, ok := <-errc; ok {
		return err
	}
	log.Printf("Graceful shutdown complete")
	return nil
}
