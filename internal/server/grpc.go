package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/clinical-extractor/internal/common"
	"github.com/joseph-ayodele/clinical-extractor/internal/runs"
)

const (
	ExtractorServiceName  = "clinicalextractor.v1.ExtractorService"
	ExtractDocumentMethod = "/" + ExtractorServiceName + "/ExtractDocument"
)

// ExtractorServer is the server API for the extractor service. Requests are
// {text, mode, source}; responses are {status, mode, summary, records}.
type ExtractorServer interface {
	ExtractDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterExtractorServer(s grpc.ServiceRegistrar, srv ExtractorServer) {
	s.RegisterService(&extractorServiceDesc, srv)
}

func extractDocumentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractorServer).ExtractDocument(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExtractDocumentMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExtractorServer).ExtractDocument(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var extractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractorServiceName,
	HandlerType: (*ExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractDocument", Handler: extractDocumentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinicalextractor/v1/extractor.proto",
}

// ExtractorClient calls the extractor service over cc.
type ExtractorClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractorClient(cc grpc.ClientConnInterface) *ExtractorClient {
	return &ExtractorClient{cc: cc}
}

func (c *ExtractorClient) ExtractDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractDocumentMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type ExtractorService struct {
	runs   *runs.Service
	logger *slog.Logger
}

func NewExtractorService(svc *runs.Service, logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractorService{runs: svc, logger: logger}
}

func (s *ExtractorService) ExtractDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	fields := in.GetFields()
	req := runs.Request{
		Text:   fields["text"].GetStringValue(),
		Mode:   fields["mode"].GetStringValue(),
		Source: fields["source"].GetStringValue(),
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, common.InvalidArgumentError("text is required")
	}

	res, err := s.runs.Extract(ctx, req)
	if err != nil {
		s.logger.Warn("grpc.extract.failed", "error", err)
		return nil, common.GRPCStatus(err)
	}
	mode := strings.ToLower(req.Mode)
	if mode == "" {
		mode = s.runs.DefaultMode()
	}
	data, err := json.Marshal(extractResponse{
		Status:  resultStatus(res),
		Mode:    mode,
		Summary: res.Summary,
		Records: res.Records,
	})
	if err != nil {
		return nil, common.InternalErrorf("marshal result: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, common.InternalErrorf("convert result: %v", err)
	}
	s.logger.Info("grpc.extract.ok",
		"reports", res.Summary.Reports,
		"percentage", res.Summary.Percentage,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// NewGRPCServer returns a server with the extractor, health and reflection
// services registered. The health server starts in SERVING state.
func NewGRPCServer(svc *runs.Service, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(loggingInterceptor(logger))}, opts...)
	srv := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ExtractorServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(srv)

	RegisterExtractorServer(srv, NewExtractorService(svc, logger))
	return srv, hs
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc.call", "method", info.FullMethod, "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		return resp, err
	}
}
