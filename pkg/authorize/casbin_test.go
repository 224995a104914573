package authorize

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Alijeyrad/simorq_queue/pkg/reqctx"
)

func newTestAuth(t *testing.T) IAuthorization {
	t.Helper()
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}
	auth, err := NewAuthorization(e)
	if err != nil {
		t.Fatalf("failed to wrap enforcer: %v", err)
	}
	return auth
}

func TestNewAuthorization(t *testing.T) {
	t.Run("returns error for nil enforcer", func(t *testing.T) {
		_, err := NewAuthorization(nil)
		if !errors.Is(err, ErrInvalidArgs) {
			t.Errorf("expected ErrInvalidArgs, got %v", err)
		}
	})
}

func TestDefaultPolicies(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	tests := []struct {
		role     Role
		resource Resource
		action   Action
		want     bool
	}{
		{RoleViewer, ResourceQueue, ActionRead, true},
		{RoleViewer, ResourceClinic, ActionRead, true},
		{RoleViewer, ResourceQueue, ActionExecute, false},
		{RoleViewer, ResourceEntry, ActionCreate, false},

		{RoleStaff, ResourceQueue, ActionRead, true},
		{RoleStaff, ResourceQueue, ActionExecute, true},
		{RoleStaff, ResourceEntry, ActionCreate, true},
		{RoleStaff, ResourceEntry, ActionDelete, true},
		{RoleStaff, ResourceSettings, ActionUpdate, false},
		{RoleStaff, ResourceClinic, ActionCreate, false},

		{RoleAdmin, ResourceSettings, ActionUpdate, true},
		{RoleAdmin, ResourceClinic, ActionCreate, true},
		{RoleAdmin, ResourceSystem, ActionManage, true},

		{Role("janitor"), ResourceQueue, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.resource)+"/"+string(tt.action), func(t *testing.T) {
			got, err := auth.Enforce(ctx, tt.role, tt.resource, tt.action)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnforceRejectsBadArgs(t *testing.T) {
	auth := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.Enforce(ctx, "", ResourceQueue, ActionRead); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("empty role: got %v", err)
	}
	if _, err := auth.Enforce(ctx, RoleStaff, Resource("pizza"), ActionRead); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("unknown resource: got %v", err)
	}
	if _, err := auth.Enforce(ctx, RoleStaff, ResourceQueue, Action("dance")); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("unknown action: got %v", err)
	}
	if err := auth.MustEnforce(ctx, RoleViewer, ResourceEntry, ActionDelete); !errors.Is(err, ErrForbidden) {
		t.Errorf("MustEnforce: got %v", err)
	}
}

func TestPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	csv := "p, viewer, queue, execute, allow\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	e, err := NewEnforcer(path)
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}
	auth, _ := NewAuthorization(e)

	ok, err := auth.Enforce(context.Background(), RoleViewer, ResourceQueue, ActionExecute)
	if err != nil || !ok {
		t.Errorf("expected custom policy to allow, got %v %v", ok, err)
	}
	ok, _ = auth.Enforce(context.Background(), RoleViewer, ResourceQueue, ActionRead)
	if ok {
		t.Error("built-in policies should not apply when a policy file is given")
	}
}

func TestAuditedAuthorization(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	auth := NewAuditedAuthorization(newTestAuth(t), logger)

	ctx := reqctx.WithRequestMeta(context.Background(), &reqctx.RequestMeta{RequestID: "rid-1"})
	ctx = reqctx.WithClaims(ctx, roleClaims("viewer"))

	if err := auth.MustEnforce(ctx, RoleViewer, ResourceQueue, ActionExecute); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	out := buf.String()
	for _, want := range []string{"authz: denied", "request_id=rid-1", "subject=someone", "resource=queue"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit line missing %q: %q", want, out)
		}
	}

	buf.Reset()
	if err := auth.MustEnforce(ctx, RoleViewer, ResourceQueue, ActionRead); err != nil {
		t.Fatalf("expected grant, got %v", err)
	}
	if !strings.Contains(buf.String(), "authz: granted") {
		t.Errorf("missing grant line: %q", buf.String())
	}
}

type roleClaims string

func (r roleClaims) GetSubject() string { return "someone" }
func (r roleClaims) GetRole() string    { return string(r) }
func (r roleClaims) IsExpired() bool    { return false }

func TestRoleFromContext(t *testing.T) {
	if _, err := RoleFromContext(context.Background()); !errors.Is(err, ErrNoRoleInContext) {
		t.Errorf("expected ErrNoRoleInContext, got %v", err)
	}
	ctx := reqctx.WithClaims(context.Background(), roleClaims("staff"))
	role, err := RoleFromContext(ctx)
	if err != nil || role != RoleStaff {
		t.Errorf("got %q %v", role, err)
	}
}
