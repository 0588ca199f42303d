// Package proto describes the wire contract of the account service. Requests
// and responses are google.protobuf.Struct messages; this package names the
// service, its methods and fields, and converts between Structs and the
// typed values both sides work with.
package proto

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "miretia.accounts.v1.AccountService"

const (
	MethodRegister         = "Register"
	MethodLookupByID       = "LookupByID"
	MethodLookupByEmail    = "LookupByEmail"
	MethodLookupByUsername = "LookupByUsername"
	MethodListAccounts     = "ListAccounts"
	MethodDeleteAccount    = "DeleteAccount"
)

const (
	FieldID        = "id"
	FieldEmail     = "email"
	FieldUsername  = "username"
	FieldPassword  = "password"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"

	FieldAccount  = "account"
	FieldAccounts = "accounts"
	FieldDeleted  = "deleted"
	FieldErrors   = "errors"
	FieldField    = "field"
	FieldMessage  = "message"
)

// TimeLayout is RFC 3339 with optional fractional seconds.
const TimeLayout = time.RFC3339Nano

var ErrMalformed = errors.New("malformed message")

// FullMethod returns the gRPC method path, e.g. "/miretia.accounts.v1.AccountService/Register".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Account is the serialized account. It has no password hash field.
type Account struct {
	ID        string
	Email     string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FieldError struct {
	Field   string
	Message string
}

// Response is a decoded service response. Exactly one of its members is set.
type Response struct {
	Account  *Account
	Accounts []Account
	Deleted  bool
	Errors   []FieldError
}

// NewRequest builds a request with string-valued fields.
func NewRequest(fields map[string]string) (*structpb.Struct, error) {
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return structpb.NewStruct(m)
}

// StringField reads a string field. A missing or null field reads as "".
func StringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("%w: field %q must be a string", ErrMalformed, name)
	}
}

func accountValue(a Account) map[string]any {
	return map[string]any{
		FieldID:        a.ID,
		FieldEmail:     a.Email,
		FieldUsername:  a.Username,
		FieldCreatedAt: a.CreatedAt.UTC().Format(TimeLayout),
		FieldUpdatedAt: a.UpdatedAt.UTC().Format(TimeLayout),
	}
}

func NewAccountResponse(a Account) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{FieldAccount: accountValue(a)})
}

func NewAccountsResponse(list []Account) (*structpb.Struct, error) {
	items := make([]any, 0, len(list))
	for _, a := range list {
		items = append(items, accountValue(a))
	}
	return structpb.NewStruct(map[string]any{FieldAccounts: items})
}

func NewDeletedResponse() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{FieldDeleted: true})
}

func NewErrorsResponse(errs []FieldError) (*structpb.Struct, error) {
	items := make([]any, 0, len(errs))
	for _, e := range errs {
		items = append(items, map[string]any{FieldField: e.Field, FieldMessage: e.Message})
	}
	return structpb.NewStruct(map[string]any{FieldErrors: items})
}

// ParseResponse decodes any service response.
func ParseResponse(s *structpb.Struct) (*Response, error) {
	fields := s.GetFields()

	if v, ok := fields[FieldErrors]; ok {
		list := v.GetListValue()
		if list == nil {
			return nil, fmt.Errorf("%w: %q is not a list", ErrMalformed, FieldErrors)
		}
		errs := make([]FieldError, 0, len(list.GetValues()))
		for _, item := range list.GetValues() {
			st := item.GetStructValue()
			if st == nil {
				return nil, fmt.Errorf("%w: error entry is not an object", ErrMalformed)
			}
			field, _ := StringField(st, FieldField)
			message, _ := StringField(st, FieldMessage)
			errs = append(errs, FieldError{Field: field, Message: message})
		}
		return &Response{Errors: errs}, nil
	}

	if v, ok := fields[FieldAccount]; ok {
		a, err := parseAccount(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		return &Response{Account: a}, nil
	}

	if v, ok := fields[FieldAccounts]; ok {
		list := v.GetListValue()
		if list == nil {
			return nil, fmt.Errorf("%w: %q is not a list", ErrMalformed, FieldAccounts)
		}
		accounts := make([]Account, 0, len(list.GetValues()))
		for _, item := range list.GetValues() {
			a, err := parseAccount(item.GetStructValue())
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, *a)
		}
		return &Response{Accounts: accounts}, nil
	}

	if v, ok := fields[FieldDeleted]; ok {
		return &Response{Deleted: v.GetBoolValue()}, nil
	}

	return nil, fmt.Errorf("%w: unknown response shape", ErrMalformed)
}

func parseAccount(st *structpb.Struct) (*Account, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: account is not an object", ErrMalformed)
	}

	var (
		a   Account
		err error
	)
	for name, dst := range map[string]*string{
		FieldID:       &a.ID,
		FieldEmail:    &a.Email,
		FieldUsername: &a.Username,
	} {
		if *dst, err = StringField(st, name); err != nil {
			return nil, err
		}
	}

	if a.CreatedAt, err = timeField(st, FieldCreatedAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = timeField(st, FieldUpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func timeField(st *structpb.Struct, name string) (time.Time, error) {
	s, err := StringField(st, name)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %q: %v", ErrMalformed, name, err)
	}
	return t, nil
}
