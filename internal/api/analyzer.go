package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "loglens.v1.Analyzer"

const (
	MethodRunAnalysis    = "/" + ServiceName + "/RunAnalysis"
	MethodGetAnalysis    = "/" + ServiceName + "/GetAnalysis"
	MethodQueryEntries   = "/" + ServiceName + "/QueryEntries"
	MethodExportAnalysis = "/" + ServiceName + "/ExportAnalysis"
)

// AnalyzerServer is the server side of the Analyzer service. Requests and
// responses are google.protobuf.Struct documents whose fields mirror the JSON
// shapes of RunRequest, AnalysisRef, QueryRequest and ExportRequest.
type AnalyzerServer interface {
	RunAnalysis(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAnalysis(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryEntries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportAnalysis(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAnalyzerServer attaches srv to the registrar.
func RegisterAnalyzerServer(s grpc.ServiceRegistrar, srv AnalyzerServer) {
	s.RegisterService(&AnalyzerServiceDesc, srv)
}

type unaryCall func(AnalyzerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalyzerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalyzerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AnalyzerServiceDesc describes the Analyzer service for grpc.Server.
var AnalyzerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunAnalysis", Handler: unaryHandler(MethodRunAnalysis, AnalyzerServer.RunAnalysis)},
		{MethodName: "GetAnalysis", Handler: unaryHandler(MethodGetAnalysis, AnalyzerServer.GetAnalysis)},
		{MethodName: "QueryEntries", Handler: unaryHandler(MethodQueryEntries, AnalyzerServer.QueryEntries)},
		{MethodName: "ExportAnalysis", Handler: unaryHandler(MethodExportAnalysis, AnalyzerServer.ExportAnalysis)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "loglens/v1/analyzer.proto",
}

// AnalyzerClient calls the Analyzer service over a client connection.
type AnalyzerClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalyzerClient wraps cc.
func NewAnalyzerClient(cc grpc.ClientConnInterface) *AnalyzerClient {
	return &AnalyzerClient{cc: cc}
}

func (c *AnalyzerClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnalyzerClient) RunAnalysis(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRunAnalysis, in, opts)
}

func (c *AnalyzerClient) GetAnalysis(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetAnalysis, in, opts)
}

func (c *AnalyzerClient) QueryEntries(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodQueryEntries, in, opts)
}

func (c *AnalyzerClient) ExportAnalysis(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodExportAnalysis, in, opts)
}
