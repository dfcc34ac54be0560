package keys

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/attestly/attestly/internal/apperr"
	"github.com/attestly/attestly/internal/auth"
	"github.com/attestly/attestly/internal/model"
	"github.com/attestly/attestly/internal/store"
)

var (
	asAdmin     = auth.Result{KeyID: "admin_k", Role: model.RoleAdmin}
	asIssuer    = auth.Result{KeyID: "issuer_k", Role: model.RoleIssuer}
	asReader    = auth.Result{KeyID: "reader_k", Role: model.RoleReader}
	asBootstrap = auth.Result{KeyID: model.BootstrapKeyID, Role: model.RoleBootstrap}
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.New(store.Config{})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewManager(st), st
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func assertAppError(t *testing.T, err error, wantStatus int, wantMessage string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %d %q, got nil", wantStatus, wantMessage)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if appErr.Status != wantStatus {
		t.Errorf("status: got %d, want %d", appErr.Status, wantStatus)
	}
	if appErr.Message != wantMessage {
		t.Errorf("message: got %q, want %q", appErr.Message, wantMessage)
	}
}

func TestCreateGeneratesSecretAndID(t *testing.T) {
	m, _ := newTestManager(t)

	key, err := m.Create(context.Background(), asAdmin, CreateInput{
		Role:        "reader",
		IsActive:    boolPtr(true),
		Description: strPtr("CI Pipeline"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(key.ID, "ci_pipeline_") {
		t.Errorf("id: got %q, want ci_pipeline_ prefix", key.ID)
	}
	if len(key.Secret) != 43 {
		t.Errorf("secret: got %d chars, want 43", len(key.Secret))
	}
	if key.CreatedBy != "admin_k" {
		t.Errorf("createdBy: got %q", key.CreatedBy)
	}
}

func TestCreateMissingData(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, asAdmin, CreateInput{IsActive: boolPtr(true)})
	assertAppError(t, err, http.StatusBadRequest, MsgMissingKeyData)

	_, err = m.Create(ctx, asAdmin, CreateInput{Role: "reader"})
	assertAppError(t, err, http.StatusBadRequest, MsgMissingKeyData)
}

func TestCreateInvalidRole(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create(context.Background(), asAdmin, CreateInput{Role: "superuser", IsActive: boolPtr(true)})
	assertAppError(t, err, http.StatusBadRequest, MsgInvalidRole)
}

func TestCreateBootstrapRoleRejected(t *testing.T) {
	m, _ := newTestManager(t)

	// bootstrap is a pseudo-role, never storable.
	_, err := m.Create(context.Background(), asAdmin, CreateInput{Role: "bootstrap", IsActive: boolPtr(true)})
	assertAppError(t, err, http.StatusBadRequest, MsgInvalidRole)
}

func TestCreateEscalationPolicy(t *testing.T) {
	cases := []struct {
		name      string
		actor     auth.Result
		requested string
		allowed   bool
	}{
		{"bootstrap creates reader", asBootstrap, "reader", true},
		{"bootstrap creates issuer", asBootstrap, "issuer", false},
		{"bootstrap creates admin", asBootstrap, "admin", false},
		{"issuer creates reader", asIssuer, "reader", true},
		{"issuer creates issuer", asIssuer, "issuer", false},
		{"issuer creates admin", asIssuer, "admin", false},
		{"admin creates reader", asAdmin, "reader", true},
		{"admin creates issuer", asAdmin, "issuer", true},
		{"admin creates admin", asAdmin, "admin", true},
		{"reader creates reader", asReader, "reader", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			_, err := m.Create(context.Background(), tc.actor, CreateInput{
				Role:     tc.requested,
				IsActive: boolPtr(true),
			})
			if tc.allowed {
				if err != nil {
					t.Errorf("expected success, got %v", err)
				}
				return
			}
			assertAppError(t, err, http.StatusForbidden, auth.MsgRoleNotAuthorized(tc.actor.Role))
		})
	}
}

func TestCreateDescriptionTooShort(t *testing.T) {
	m, _ := newTestManager(t)

	// Whitespace does not count toward the minimum.
	_, err := m.Create(context.Background(), asAdmin, CreateInput{
		Role:        "reader",
		IsActive:    boolPtr(true),
		Description: strPtr("  ab  "),
	})
	assertAppError(t, err, http.StatusBadRequest, MsgDescriptionTooShort)
}

func TestCreateDuplicateDescription(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("build bot"),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "issuer", IsActive: boolPtr(true), Description: strPtr("build bot"),
	})
	assertAppError(t, err, http.StatusConflict, MsgDuplicateDescription)
}

func TestCreateDuplicateID(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	// Without a description the id derives from the role label, so a second
	// description-less reader key collides on id.
	if _, err := m.Create(ctx, asAdmin, CreateInput{Role: "reader", IsActive: boolPtr(true)}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := m.Create(ctx, asAdmin, CreateInput{Role: "reader", IsActive: boolPtr(true)})
	assertAppError(t, err, http.StatusConflict, MsgDuplicateID)
}

func TestCreateValidationLeavesStoreUntouched(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("ab"),
	})
	assertAppError(t, err, http.StatusBadRequest, MsgDescriptionTooShort)

	recs, err := st.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("store should be empty after failed validation, got %d records", len(recs))
	}
}

func TestCreateCallerSuppliedSecret(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	key, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("import"), Secret: "pre-shared",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored, err := st.GetKey(ctx, key.ID)
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if stored.Secret != "pre-shared" {
		t.Errorf("secret: got %q, want caller-supplied value", stored.Secret)
	}
}

func TestUpdatePartialPatch(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	key, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("ops bot"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	applied, err := m.Update(ctx, asAdmin, key.ID, UpdatePatch{Role: strPtr("issuer")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if applied["role"] != model.RoleIssuer {
		t.Errorf("applied: got %v", applied)
	}
	if _, ok := applied["isActive"]; ok {
		t.Error("isActive should not appear in applied fields for a role-only patch")
	}

	got, err := m.Get(ctx, key.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Role != model.RoleIssuer || !got.IsActive {
		t.Errorf("record after patch: %+v", got)
	}
	if got.UpdatedBy == nil || *got.UpdatedBy != "admin_k" {
		t.Errorf("updatedBy: got %v", got.UpdatedBy)
	}
}

func TestUpdateNoFields(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	key, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("ops bot"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = m.Update(ctx, asAdmin, key.ID, UpdatePatch{})
	assertAppError(t, err, http.StatusBadRequest, MsgNoFields)
}

func TestUpdateResolvesByDescription(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	key, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("staging probe"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := m.Update(ctx, asAdmin, "staging probe", UpdatePatch{IsActive: boolPtr(false)}); err != nil {
		t.Fatalf("Update by description: %v", err)
	}

	got, err := m.Get(ctx, key.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsActive {
		t.Error("expected key deactivated via description target")
	}
}

func TestUpdateTargetNotFound(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Update(context.Background(), asAdmin, "no-such-key", UpdatePatch{IsActive: boolPtr(false)})
	assertAppError(t, err, http.StatusNotFound, MsgKeyNotFound)
}

func TestUpdateAdminSelfProtection(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	self := &model.Key{ID: "admin_self", Secret: "s", Role: model.RoleAdmin, IsActive: true}
	if err := st.InsertKey(ctx, self); err != nil {
		t.Fatalf("InsertKey: %v", err)
	}
	actor := auth.Result{KeyID: "admin_self", Role: model.RoleAdmin}

	_, err := m.Update(ctx, actor, "admin_self", UpdatePatch{IsActive: boolPtr(false)})
	assertAppError(t, err, http.StatusBadRequest, MsgSelfDeactivate)

	_, err = m.Update(ctx, actor, "admin_self", UpdatePatch{Role: strPtr("reader")})
	assertAppError(t, err, http.StatusBadRequest, MsgSelfRoleChange)

	// Re-asserting the current role is not a change and passes.
	if _, err := m.Update(ctx, actor, "admin_self", UpdatePatch{Role: strPtr("admin")}); err != nil {
		t.Errorf("re-asserting admin role should succeed, got %v", err)
	}
}

func TestUpdateOtherAdminAllowed(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	other := &model.Key{ID: "admin_other", Secret: "s", Role: model.RoleAdmin, IsActive: true}
	if err := st.InsertKey(ctx, other); err != nil {
		t.Fatalf("InsertKey: %v", err)
	}

	if _, err := m.Update(ctx, asAdmin, "admin_other", UpdatePatch{IsActive: boolPtr(false)}); err != nil {
		t.Errorf("deactivating a different admin should succeed, got %v", err)
	}
}

func TestUpdateReactivation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	key, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("seasonal"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Deactivate(ctx, asAdmin, key.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	if _, err := m.Update(ctx, asAdmin, key.ID, UpdatePatch{IsActive: boolPtr(true)}); err != nil {
		t.Fatalf("reactivation: %v", err)
	}
	got, err := m.Get(ctx, key.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsActive {
		t.Error("expected key active after reactivation")
	}
}

func TestDeactivate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	key, err := m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("retiring"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := m.Deactivate(ctx, asAdmin, key.ID)
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if out.IsActive {
		t.Error("expected inactive")
	}
	if out.DeactivatedAt == nil || out.DeactivatedBy == nil || *out.DeactivatedBy != "admin_k" {
		t.Errorf("audit fields: %+v", out)
	}

	// Soft delete: the record stays and keeps its description reserved.
	if _, err := m.Get(ctx, key.ID); err != nil {
		t.Errorf("deactivated key should remain readable, got %v", err)
	}
	_, err = m.Create(ctx, asAdmin, CreateInput{
		Role: "reader", IsActive: boolPtr(true), Description: strPtr("retiring"),
	})
	assertAppError(t, err, http.StatusConflict, MsgDuplicateDescription)
}

func TestDeactivateSelf(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	self := &model.Key{ID: "admin_self", Secret: "s", Role: model.RoleAdmin, IsActive: true}
	if err := st.InsertKey(ctx, self); err != nil {
		t.Fatalf("InsertKey: %v", err)
	}

	_, err := m.Deactivate(ctx, auth.Result{KeyID: "admin_self", Role: model.RoleAdmin}, "admin_self")
	assertAppError(t, err, http.StatusBadRequest, MsgSelfDeactivate)
}

func TestResolveTargetIDWinsOverDescription(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	// A target that is both a valid id and another key's description must
	// resolve as the id.
	byID := &model.Key{ID: "alpha", Secret: "s", Role: model.RoleReader, IsActive: true}
	if err := st.InsertKey(ctx, byID); err != nil {
		t.Fatalf("InsertKey: %v", err)
	}
	desc := "alpha"
	byDesc := &model.Key{ID: "other", Secret: "s", Role: model.RoleReader, IsActive: true, Description: &desc}
	if err := st.InsertKey(ctx, byDesc); err != nil {
		t.Fatalf("InsertKey: %v", err)
	}

	got, err := m.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "alpha" {
		t.Errorf("resolved %q, want the id match", got.ID)
	}
}
