package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"xdao.co/streams-tangle/config"
	"xdao.co/streams-tangle/node/grpcnode"
	"xdao.co/streams-tangle/node/httpnode"
	"xdao.co/streams-tangle/node/registry"
	"xdao.co/streams-tangle/observability"

	_ "xdao.co/streams-tangle/node/memnode"
)

func main() {
	fs := pflag.NewFlagSet("tangle-noded", pflag.ExitOnError)
	listenGRPC := fs.String("listen-grpc", "127.0.0.1:7420", "gRPC listen address (empty disables)")
	listenHTTP := fs.String("listen-http", "127.0.0.1:14265", "REST listen address (empty disables)")
	backend := fs.String("backend", "mem://default", "Node URL to serve")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "console", "Log format (console, json)")
	logOutputs := fs.StringSlice("log-output", []string{"stderr"}, "Log outputs (stdout, stderr or file paths)")

	registry.RegisterFlags(fs, registry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	log, err := observability.SetupLogger(config.LogConfig{Level: *logLevel, Format: *logFormat, Outputs: *logOutputs})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("instance", uuid.NewString()))

	n, closeFn, err := registry.Open(*backend, registry.UsageDaemon)
	if err != nil {
		log.Error("open backend", zap.String("backend", *backend), zap.Error(err))
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}
	if *listenGRPC == "" && *listenHTTP == "" {
		log.Error("nothing to serve: both listeners disabled")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if *listenGRPC != "" {
		lis, err := net.Listen("tcp", *listenGRPC)
		if err != nil {
			log.Error("listen grpc", zap.Error(err))
			os.Exit(1)
		}
		s := grpc.NewServer()
		grpcnode.RegisterNodeServer(s, &grpcnode.Server{Node: n})
		log.Info("grpc listening", zap.String("addr", lis.Addr().String()), zap.String("backend", *backend))
		g.Go(func() error { return s.Serve(lis) })
		g.Go(func() error {
			<-gctx.Done()
			s.GracefulStop()
			return nil
		})
	}

	if *listenHTTP != "" {
		lis, err := net.Listen("tcp", *listenHTTP)
		if err != nil {
			log.Error("listen http", zap.Error(err))
			os.Exit(1)
		}
		srv := &http.Server{
			Handler:           httpnode.NewHandler(n, log.Named("http")),
			ReadHeaderTimeout: 10 * time.Second,
		}
		log.Info("http listening", zap.String("addr", lis.Addr().String()), zap.String("backend", *backend))
		g.Go(func() error {
			if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("serve", zap.Error(err))
		os.Exit(1)
	}
	log.Info("stopped")
}
