package grpc

import (
	"context"
	"errors"

	pb "github.com/dmitrijs2005/miretia/internal/proto"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// register: {username, email, password} -> {account} | {errors}
func (s *GRPCServer) register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in models.RegistrationInput
	if err := readFields(req, map[string]*string{
		pb.FieldUsername: &in.Username,
		pb.FieldEmail:    &in.Email,
		pb.FieldPassword: &in.Password,
	}); err != nil {
		return nil, err
	}

	res, err := s.accounts.Register(ctx, in)
	if err != nil {
		return nil, s.internal(ctx, pb.MethodRegister, err)
	}
	return s.accountResponse(ctx, pb.MethodRegister, res)
}

// lookupByID: {id} -> {account} | {errors}
func (s *GRPCServer) lookupByID(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.lookup(ctx, pb.MethodLookupByID, pb.FieldID, s.accounts.GetByID, req)
}

// lookupByEmail: {email} -> {account} | {errors}
func (s *GRPCServer) lookupByEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.lookup(ctx, pb.MethodLookupByEmail, pb.FieldEmail, s.accounts.GetByEmail, req)
}

// lookupByUsername: {username} -> {account} | {errors}
func (s *GRPCServer) lookupByUsername(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.lookup(ctx, pb.MethodLookupByUsername, pb.FieldUsername, s.accounts.GetByUsername, req)
}

func (s *GRPCServer) lookup(
	ctx context.Context,
	method, field string,
	get func(context.Context, string) (*models.AccountResult, error),
	req *structpb.Struct,
) (*structpb.Struct, error) {
	var key string
	if err := readFields(req, map[string]*string{field: &key}); err != nil {
		return nil, err
	}

	res, err := get(ctx, key)
	if err != nil {
		return nil, s.internal(ctx, method, err)
	}
	return s.accountResponse(ctx, method, res)
}

// listAccounts: {} -> {accounts}
func (s *GRPCServer) listAccounts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.accounts.List(ctx)
	if err != nil {
		return nil, s.internal(ctx, pb.MethodListAccounts, err)
	}

	out := make([]pb.Account, 0, len(list))
	for _, a := range list {
		out = append(out, toWire(a))
	}
	return s.encoded(ctx, pb.MethodListAccounts)(pb.NewAccountsResponse(out))
}

// deleteAccount: {id} -> {deleted: true} | {errors}
func (s *GRPCServer) deleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var id string
	if err := readFields(req, map[string]*string{pb.FieldID: &id}); err != nil {
		return nil, err
	}

	res, err := s.accounts.Delete(ctx, id)
	if err != nil {
		return nil, s.internal(ctx, pb.MethodDeleteAccount, err)
	}
	if len(res.Errors) > 0 {
		return s.encoded(ctx, pb.MethodDeleteAccount)(pb.NewErrorsResponse(toWireErrors(res.Errors)))
	}
	return s.encoded(ctx, pb.MethodDeleteAccount)(pb.NewDeletedResponse())
}

func (s *GRPCServer) accountResponse(ctx context.Context, method string, res *models.AccountResult) (*structpb.Struct, error) {
	if len(res.Errors) > 0 {
		return s.encoded(ctx, method)(pb.NewErrorsResponse(toWireErrors(res.Errors)))
	}
	if res.Account == nil {
		return nil, s.internal(ctx, method, errors.New("result holds neither account nor errors"))
	}
	return s.encoded(ctx, method)(pb.NewAccountResponse(toWire(*res.Account)))
}

// encoded maps a response encoding failure to an internal error.
func (s *GRPCServer) encoded(ctx context.Context, method string) func(*structpb.Struct, error) (*structpb.Struct, error) {
	return func(resp *structpb.Struct, err error) (*structpb.Struct, error) {
		if err != nil {
			return nil, s.internal(ctx, method, err)
		}
		return resp, nil
	}
}

// internal logs err and hides it from the caller.
func (s *GRPCServer) internal(ctx context.Context, method string, err error) error {
	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}

func readFields(req *structpb.Struct, dst map[string]*string) error {
	for name, p := range dst {
		v, err := pb.StringField(req, name)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		*p = v
	}
	return nil
}

func toWire(a models.Account) pb.Account {
	return pb.Account{
		ID:        a.ID,
		Email:     a.Email,
		Username:  a.Username,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toWireErrors(errs []models.FieldError) []pb.FieldError {
	out := make([]pb.FieldError, 0, len(errs))
	for _, e := range errs {
		out = append(out, pb.FieldError{Field: e.Field, Message: e.Message})
	}
	return out
}
