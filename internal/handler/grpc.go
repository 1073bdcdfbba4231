package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
)

const ServiceName = "petadopt.v1.Portal"

// Full method names, for interceptors.
const (
	MethodLogin              = "/" + ServiceName + "/Login"
	MethodMyRequests         = "/" + ServiceName + "/MyRequests"
	MethodManageRequests     = "/" + ServiceName + "/ManageRequests"
	MethodAdvanceAppointment = "/" + ServiceName + "/AdvanceAppointment"
)

// PortalService is the gRPC face of the portal. Messages are free-form
// structs carrying the same JSON shapes as the HTTP surface.
type PortalService interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MyRequests(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ManageRequests(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdvanceAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var portalServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PortalService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unary(MethodLogin, PortalService.Login)},
		{MethodName: "MyRequests", Handler: unary(MethodMyRequests, PortalService.MyRequests)},
		{MethodName: "ManageRequests", Handler: unary(MethodManageRequests, PortalService.ManageRequests)},
		{MethodName: "AdvanceAppointment", Handler: unary(MethodAdvanceAppointment, PortalService.AdvanceAppointment)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "petadopt/v1/portal.proto",
}

func unary(full string, call func(PortalService, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PortalService), ctx, req.(*structpb.Struct))
		}
		if ic == nil {
			return h(ctx, in)
		}
		return ic(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: full}, h)
	}
}

func RegisterPortalService(s grpc.ServiceRegistrar, srv PortalService) {
	s.RegisterService(&portalServiceDesc, srv)
}

type GRPCServer struct {
	svc *portal.Service
	log *zap.Logger
}

func NewGRPCServer(svc *portal.Service, log *zap.Logger) *GRPCServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &GRPCServer{svc: svc, log: log.Named("grpc")}
}

var _ PortalService = (*GRPCServer)(nil)

// Login starts a portal session. The returned token is what later calls
// send as "authorization: Bearer <token>".
func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var creds model.Credentials
	if err := fromStruct(req, &creds); err != nil {
		return nil, err
	}
	if creds.Email == "" || creds.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password required")
	}
	sess, _, err := s.svc.Login(ctx, uuid.NewString(), creds)
	if err != nil {
		return nil, grpcError(err)
	}
	s.log.Debug("grpc login", zap.String("email", sess.Identity.Email))
	v := viewOf(sess)
	return toStruct(struct {
		sessionView
		Token     string `json:"token"`
		SessionID string `json:"sessionId"`
	}{v, sess.Token, sess.Key})
}

type filterMsg struct {
	Status string `json:"status"`
	PetID  string `json:"petId"`
	UserID string `json:"userId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func parseFilterMsg(req *structpb.Struct) (lifecycle.Filter, error) {
	var m filterMsg
	if err := fromStruct(req, &m); err != nil {
		return lifecycle.Filter{}, err
	}
	f, err := lifecycle.ParseFilter(m.Status, m.PetID, m.UserID, m.From, m.To)
	if err != nil {
		return f, status.Error(codes.InvalidArgument, err.Error())
	}
	return f, nil
}

func (s *GRPCServer) MyRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := parseFilterMsg(req)
	if err != nil {
		return nil, err
	}
	page, err := s.svc.MyRequests(ctx, session.FromContext(ctx), f)
	if err != nil {
		return nil, grpcError(err)
	}
	return pageStruct(page)
}

func (s *GRPCServer) ManageRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := parseFilterMsg(req)
	if err != nil {
		return nil, err
	}
	page, err := s.svc.ManageRequests(ctx, session.FromContext(ctx), f)
	if err != nil {
		return nil, grpcError(err)
	}
	return pageStruct(page)
}

func (s *GRPCServer) AdvanceAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	to := model.AppointmentStatus(strings.ToUpper(in.Status))
	if in.ID <= 0 || !to.Valid() {
		return nil, status.Error(codes.InvalidArgument, "id and a known status required")
	}
	page, err := s.svc.AdvanceAppointment(ctx, session.FromContext(ctx), in.ID, to)
	if err != nil {
		return nil, grpcError(err)
	}
	return pageStruct(page)
}

// pageStruct encodes a requests page with its notices inline, since gRPC
// replies have no envelope.
func pageStruct(page portal.RequestsPage) (*structpb.Struct, error) {
	return toStruct(struct {
		portal.RequestsPage
		Notices []portal.Notice `json:"notices,omitempty"`
	}{page, page.Notices})
}

// fromStruct decodes req through its JSON form into v.
func fromStruct(req *structpb.Struct, v any) error {
	b, err := protojson.Marshal(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func grpcError(err error) error {
	msg := portal.NoticeFor(err, "internal error").Message
	var code codes.Code
	switch {
	case errors.Is(err, portal.ErrSignedOut), errors.Is(err, api.ErrUnauthorized):
		code = codes.Unauthenticated
	case errors.Is(err, portal.ErrForbidden), errors.Is(err, api.ErrForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, portal.ErrNotFound), errors.Is(err, api.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, portal.ErrInvalid), errors.Is(err, api.ErrRejected):
		code = codes.InvalidArgument
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, portal.ErrNotOffered),
		errors.Is(err, portal.ErrAmbiguous):
		code = codes.FailedPrecondition
	case errors.Is(err, api.ErrTransport), errors.Is(err, api.ErrUpstream):
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, msg)
}
