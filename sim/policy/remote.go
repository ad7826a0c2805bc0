package policy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/flowshop-sim/flowshop-sim/sim"
)

// Wire contract. Both calls carry well-known protobuf messages so no
// generated code is needed on either side:
//
//	Decide(Struct{features: [number], machine_id: number}) -> Struct{product_type: number}
//	Train(Struct{examples: [Struct{features, history, label, reward, turn, order_id}]}) -> Empty
const (
	dispatchServiceName = "flowshop.v1.DispatchPolicy"
	decideMethod        = "/" + dispatchServiceName + "/Decide"
	trainMethod         = "/" + dispatchServiceName + "/Train"
)

// DefaultRemoteTimeout bounds each remote call when no timeout is given.
const DefaultRemoteTimeout = time.Second

// RemotePolicy forwards decisions and training batches to a policy server.
type RemotePolicy struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// DialRemotePolicy connects to a policy server at addr. Without options the
// connection uses insecure transport credentials.
func DialRemotePolicy(addr string, timeout time.Duration, opts ...grpc.DialOption) (*RemotePolicy, error) {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial policy server %s: %w", addr, err)
	}
	return &RemotePolicy{conn: conn, timeout: timeout}, nil
}

// Close releases the connection.
func (p *RemotePolicy) Close() error {
	return p.conn.Close()
}

func (p *RemotePolicy) Decide(features sim.FeatureVector, machineID int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"features":   vectorValue(features),
		"machine_id": structpb.NewNumberValue(float64(machineID)),
	}}
	resp := new(structpb.Struct)
	if err := p.conn.Invoke(ctx, decideMethod, req, resp); err != nil {
		return 0, err
	}
	return intField(resp, "product_type")
}

func (p *RemotePolicy) Train(examples []sim.TrainingExample) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	items := make([]*structpb.Value, len(examples))
	for i, ex := range examples {
		items[i] = structpb.NewStructValue(exampleStruct(ex))
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"examples": structpb.NewListValue(&structpb.ListValue{Values: items}),
	}}
	return p.conn.Invoke(ctx, trainMethod, req, new(emptypb.Empty))
}

// DispatchServer is the server side of the wire contract.
type DispatchServer interface {
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Train(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

var dispatchServiceDesc = grpc.ServiceDesc{
	ServiceName: dispatchServiceName,
	HandlerType: (*DispatchServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: decideHandler},
		{MethodName: "Train", Handler: trainHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flowshop/v1/dispatch.proto",
}

// RegisterDispatchServer exposes p on s. Calls into p are serialized.
func RegisterDispatchServer(s *grpc.Server, p sim.DispatchPolicy) {
	s.RegisterService(&dispatchServiceDesc, &policyServer{policy: p})
}

// ServePolicy serves p on lis until ctx is cancelled, then stops gracefully.
func ServePolicy(ctx context.Context, lis net.Listener, p sim.DispatchPolicy) error {
	s := grpc.NewServer()
	RegisterDispatchServer(s, p)

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("policy server listening on %s", lis.Addr())
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

type policyServer struct {
	mu     sync.Mutex
	policy sim.DispatchPolicy
}

func (s *policyServer) Decide(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	features, err := vectorField(req, "features")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	machineID, err := intField(req, "machine_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	choice, err := s.policy.Decide(features, machineID)
	s.mu.Unlock()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"product_type": structpb.NewNumberValue(float64(choice)),
	}}, nil
}

func (s *policyServer) Train(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	list := req.GetFields()["examples"].GetListValue()
	examples := make([]sim.TrainingExample, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		ex, err := exampleFrom(v.GetStructValue())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "example %d: %v", i, err)
		}
		examples = append(examples, ex)
	}

	s.mu.Lock()
	err := s.policy.Train(examples)
	s.mu.Unlock()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &emptypb.Empty{}, nil
}

func decideHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DispatchServer).Decide(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: decideMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DispatchServer).Decide(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func trainHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DispatchServer).Train(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: trainMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DispatchServer).Train(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func vectorValue(fv []float64) *structpb.Value {
	values := make([]*structpb.Value, len(fv))
	for i, f := range fv {
		values[i] = structpb.NewNumberValue(f)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func vectorFrom(v *structpb.Value) (sim.FeatureVector, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("expected a list of numbers")
	}
	fv := make(sim.FeatureVector, len(list.GetValues()))
	for i, item := range list.GetValues() {
		n, ok := item.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("entry %d is not a number", i)
		}
		fv[i] = n.NumberValue
	}
	return fv, nil
}

func vectorField(s *structpb.Struct, key string) (sim.FeatureVector, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil, fmt.Errorf("missing field %q", key)
	}
	fv, err := vectorFrom(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return fv, nil
}

func intField(s *structpb.Struct, key string) (int, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %q is not a number", key)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("field %q is not an integer: %v", key, n.NumberValue)
	}
	return int(n.NumberValue), nil
}

func exampleStruct(ex sim.TrainingExample) *structpb.Struct {
	history := make([]*structpb.Value, len(ex.History))
	for i, fv := range ex.History {
		history[i] = vectorValue(fv)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"features": vectorValue(ex.Features),
		"history":  structpb.NewListValue(&structpb.ListValue{Values: history}),
		"label":    structpb.NewStringValue(string(ex.Label)),
		"reward":   structpb.NewNumberValue(float64(ex.Reward)),
		"turn":     structpb.NewNumberValue(float64(ex.Turn)),
		"order_id": structpb.NewNumberValue(float64(ex.OrderID)),
	}}
}

func exampleFrom(s *structpb.Struct) (sim.TrainingExample, error) {
	var ex sim.TrainingExample
	if s == nil {
		return ex, fmt.Errorf("expected a struct")
	}
	var err error
	if ex.Features, err = vectorField(s, "features"); err != nil {
		return ex, err
	}
	for i, v := range s.GetFields()["history"].GetListValue().GetValues() {
		fv, err := vectorFrom(v)
		if err != nil {
			return ex, fmt.Errorf("history %d: %w", i, err)
		}
		ex.History = append(ex.History, fv)
	}
	switch label := sim.Label(s.GetFields()["label"].GetStringValue()); label {
	case sim.LabelGood, sim.LabelBad:
		ex.Label = label
	default:
		return ex, fmt.Errorf("unknown label %q", label)
	}
	if ex.Reward, err = intField(s, "reward"); err != nil {
		return ex, err
	}
	if ex.Turn, err = intField(s, "turn"); err != nil {
		return ex, err
	}
	if ex.OrderID, err = intField(s, "order_id"); err != nil {
		return ex, err
	}
	return ex, nil
}
