// Package perr is the catalog's error taxonomy. It mirrors the teacher's
// convention of one light struct per HTTP-shaped error kind, each carrying
// an entity type, a stable code, and an optional wrapped cause, plus a
// translator that maps a sentinel business error into the right kind.
//
// On top of the teacher's shapes it adds the two kinds spec.md §7 calls out
// as catalog-specific: ConcurrentUpdateError (locally recoverable inside the
// commit pipeline, terminal once escaped) and AuthorizationCountMismatchError
// (a hard-fail contract violation by an Authorizer implementation).
package perr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// EntityNotFoundError records that an entity does not exist, or (per the
// authorization gate's no-existence-leak rule, spec.md §4.3/§7) that the
// actor may not see it. The two cases are indistinguishable on the wire;
// Reason carries the distinction for internal audit only.
type EntityNotFoundError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Reason     NotFoundReason
	Err        error
}

// NotFoundReason separates "truly absent" from "denied can-see" for audit
// logging without ever reaching the wire response.
type NotFoundReason string

const (
	ReasonResourceNotFound  NotFoundReason = "ResourceNotFound"
	ReasonCannotSeeResource NotFoundReason = "CannotSeeResource"
)

func (e EntityNotFoundError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}

	if strings.TrimSpace(e.EntityType) != "" {
		return fmt.Sprintf("%s not found", e.EntityType)
	}

	return "entity not found"
}

func (e EntityNotFoundError) Unwrap() error { return e.Err }

// EntityConflictError records a 409: name collision, protected-resource
// deletion, or an active-subresources conflict. ConcurrentUpdateError is a
// distinct kind (below), not a subtype of this one, because it is handled
// differently by callers (retried, not surfaced as a permanent failure).
type EntityConflictError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e EntityConflictError) Error() string {
	if e.Err != nil && strings.TrimSpace(e.Message) == "" {
		return e.Err.Error()
	}

	return e.Message
}

func (e EntityConflictError) Unwrap() error { return e.Err }

// ValidationError records a 400: malformed input, an invalid role
// identifier, an out-of-range namespace depth, and the like.
type ValidationError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e ValidationError) Error() string {
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("%s - %s", e.Code, e.Message)
	}

	return e.Message
}

func (e ValidationError) Unwrap() error { return e.Err }

// ForbiddenError records a 403: the actor can see the resource but lacks
// the requested action. Action/ResourceKind let the authorization gate
// (internal/authz) format a precise "<Resource>ActionForbidden" title.
type ForbiddenError struct {
	EntityType   string
	ResourceKind string
	Action       string
	Code         string
	Title        string
	Message      string
	Err          error
}

func (e ForbiddenError) Error() string { return e.Message }
func (e ForbiddenError) Unwrap() error { return e.Err }

// UnauthorizedError records a 401: no valid principal.
type UnauthorizedError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e UnauthorizedError) Error() string { return e.Message }
func (e UnauthorizedError) Unwrap() error { return e.Err }

// FailedPreconditionError records a 412: a TableRequirement/ViewRequirement
// did not hold, or an external I/O signaled a retryable upstream condition.
type FailedPreconditionError struct {
	EntityType      string
	RequirementType string
	Code            string
	Title           string
	Message         string
	Err             error
}

func (e FailedPreconditionError) Error() string { return e.Message }
func (e FailedPreconditionError) Unwrap() error { return e.Err }

// InternalServerError records a 500. The stack is stripped before this
// reaches a wire response; it is still logged in full (see ToResponse).
type InternalServerError struct {
	EntityType string
	Code       string
	Title      string
	Message    string
	Err        error
}

func (e InternalServerError) Error() string { return e.Message }
func (e InternalServerError) Unwrap() error { return e.Err }

// ConcurrentUpdateError is raised when a commit's compare-and-swap finds the
// tabular row has already moved. PostgresCommitStore keys that swap on the
// tabular row's version column, not on its previous metadata location. It
// is locally recoverable inside the commit pipeline's
// retry loop (spec.md §4.4); once the retry budget is exhausted it escapes
// to the caller as the terminal outcome (spec.md §7).
type ConcurrentUpdateError struct {
	EntityType       string
	WarehouseID      string
	TabularID        string
	ExpectedLocation string
	Err              error
}

func (e ConcurrentUpdateError) Error() string {
	return fmt.Sprintf("concurrent update on %s %s: metadata location no longer matches %s",
		e.EntityType, e.TabularID, e.ExpectedLocation)
}

func (e ConcurrentUpdateError) Unwrap() error { return e.Err }

// AuthorizationCountMismatchError is raised when an Authorizer's batched
// decision vector does not match the request vector's length. spec.md §4.3
// and §7 both call this a contract violation by the authorizer
// implementation, not a caller error: it is always a hard 500.
type AuthorizationCountMismatchError struct {
	Requested int
	Returned  int
}

func (e AuthorizationCountMismatchError) Error() string {
	return fmt.Sprintf("authorizer returned %d decisions for %d requests", e.Returned, e.Requested)
}

// WithStack returns a copy of err with message appended as a breadcrumb, if
// err is already a *Stacked; otherwise it wraps err in a new Stacked whose
// stack holds just message. Each layer
// on the call path that wants to contribute context calls this once.
func WithStack(err error, message string) error {
	if se, ok := err.(stacked); ok {
		return se.pushStack(message)
	}

	return &Stacked{Err: err, Stack: []string{message}}
}

type stacked interface {
	pushStack(string) *Stacked
}

// Stacked wraps any error with an accumulated breadcrumb trail plus a
// unique error id, matching the wire shape spec.md §6 requires: a UUIDv7
// error_id attached per response, with the full stack preserved for 4xx
// and reduced to just the error id for 5xx.
type Stacked struct {
	Err   error
	Stack []string
	id    uuid.UUID
}

func (s *Stacked) Error() string { return s.Err.Error() }
func (s *Stacked) Unwrap() error { return s.Err }

func (s *Stacked) pushStack(message string) *Stacked {
	return &Stacked{Err: s.Err, Stack: append(append([]string{}, s.Stack...), message), id: s.id}
}

// ErrorID lazily assigns and returns the UUIDv7 identifying this error
// occurrence for correlation between the client response and server logs.
func (s *Stacked) ErrorID() uuid.UUID {
	if s.id == uuid.Nil {
		s.id = uuid.Must(uuid.NewV7())
	}

	return s.id
}

// IcebergErrorResponse is the wire shape of every non-2xx response, per
// spec.md §6.
type IcebergErrorResponse struct {
	Error IcebergErrorModel `json:"error"`
}

type IcebergErrorModel struct {
	Message string   `json:"message"`
	Type    string   `json:"type"`
	Code    int      `json:"code"`
	Stack   []string `json:"stack,omitempty"`
}

// ToResponse renders err into the wire shape. For 5xx the stack is reduced
// to a single "Error ID: <uuid>" breadcrumb and the full chain must be
// logged separately by the caller; for 4xx the stack (if any) is preserved
// and the error id appended as its own line.
func ToResponse(err error) (status int, body IcebergErrorResponse) {
	status = ToHTTPStatus(err)
	errType, code, message := classify(err)

	var stack []string

	var id uuid.UUID

	var se *Stacked
	if asStacked(err, &se) {
		stack = se.Stack
		id = se.ErrorID()
	} else {
		id = uuid.Must(uuid.NewV7())
	}

	if status >= 500 {
		body = IcebergErrorResponse{Error: IcebergErrorModel{
			Message: message,
			Type:    errType,
			Code:    code,
			Stack:   []string{"Error ID: " + id.String()},
		}}

		return status, body
	}

	body = IcebergErrorResponse{Error: IcebergErrorModel{
		Message: message,
		Type:    errType,
		Code:    code,
		Stack:   append(append([]string{}, stack...), "Error ID: "+id.String()),
	}}

	return status, body
}

func asStacked(err error, out **Stacked) bool {
	for err != nil {
		if se, ok := err.(*Stacked); ok {
			*out = se
			return true
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = u.Unwrap()
	}

	return false
}

func classify(err error) (errType string, code int, message string) {
	unwrapped := err

	var se *Stacked
	if asStacked(err, &se) {
		unwrapped = se.Err
	}

	switch e := unwrapped.(type) {
	case EntityNotFoundError:
		return "NoSuchResourceException", http.StatusNotFound, e.Error()
	case EntityConflictError:
		return "AlreadyExistsException", http.StatusConflict, e.Error()
	case ConcurrentUpdateError:
		return "ConcurrentUpdateError", http.StatusConflict, e.Error()
	case ValidationError:
		return "BadRequestException", http.StatusBadRequest, e.Error()
	case ForbiddenError:
		if e.ResourceKind != "" && e.Action != "" {
			return fmt.Sprintf("%sActionForbidden", e.ResourceKind), http.StatusForbidden, e.Error()
		}

		return "ForbiddenException", http.StatusForbidden, e.Error()
	case UnauthorizedError:
		return "NotAuthorizedException", http.StatusUnauthorized, e.Error()
	case FailedPreconditionError:
		if e.RequirementType != "" {
			return e.RequirementType, http.StatusPreconditionFailed, e.Error()
		}

		return "PreconditionFailedException", http.StatusPreconditionFailed, e.Error()
	case AuthorizationCountMismatchError:
		return "AuthorizationCountMismatchError", http.StatusInternalServerError, e.Error()
	case InternalServerError:
		return "InternalServerError", http.StatusInternalServerError, e.Error()
	default:
		return "InternalServerError", http.StatusInternalServerError, "The server encountered an unexpected error."
	}
}

// ToHTTPStatus maps an error produced anywhere in the catalog core to the
// HTTP status the REST surface (out of scope here, but a required contract
// point per spec.md §6) must return.
func ToHTTPStatus(err error) int {
	_, code, _ := classify(err)
	return code
}
