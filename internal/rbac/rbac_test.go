package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"candidate", PermSessionStart, true},
		{"candidate", PermSessionViewAll, false},
		{"candidate", PermBankImport, false},
		{"proctor", PermSessionViewAll, true},
		{"proctor", PermBankImport, true},
		{"admin", "anything:at-all", true},
		{"", PermSessionStart, false},
		{"ghost", PermBankView, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.Any("candidate", PermBankImport, PermBankView) || c.Any("candidate", PermBankImport, PermSessionViewAll) {
		t.Fatal("Any mismatch")
	}
}

func TestOwnerOrSkipsLookupForPrivilegedRoles(t *testing.T) {
	c := NewChecker(nil)
	var lookups int
	owner := func(result bool) func() bool {
		return func() bool { lookups++; return result }
	}
	if !c.OwnerOr("proctor", PermSessionViewAll, owner(false)) || lookups != 0 {
		t.Fatalf("proctor denied or looked up ownership (%d lookups)", lookups)
	}
	if !c.OwnerOr("candidate", PermSessionViewAll, owner(true)) || lookups != 1 {
		t.Fatal("owning candidate denied")
	}
	if c.OwnerOr("candidate", PermSessionViewAll, owner(false)) {
		t.Fatal("non-owner candidate allowed")
	}
	lookups = 0
	if c.OwnerOr("", PermSessionViewAll, owner(true)) || lookups != 0 {
		t.Fatal("anonymous caller allowed or looked up")
	}
}

func TestCustomGrants(t *testing.T) {
	c := NewChecker(map[string][]string{"auditor": {"result:*"}})
	if !c.Has("auditor", PermResultViewOwn) || c.Has("auditor", PermSessionStart) || c.Has("candidate", PermSessionStart) {
		t.Fatal("custom grants not isolated from defaults")
	}
}

func TestRequireOwnerOr(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	cases := []struct {
		role  string
		owner bool
		want  int
	}{
		{"candidate", true, http.StatusNoContent},
		{"candidate", false, http.StatusForbidden},
		{"proctor", false, http.StatusNoContent},
		{"", false, http.StatusForbidden},
	}
	for _, tc := range cases {
		h := RequireOwnerOr(PermSessionViewAll, func(*http.Request) bool { return tc.owner })(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), tc.role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("role %q owner %v: status %d want %d", tc.role, tc.owner, rec.Code, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	h := Require(PermBankImport)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "candidate")))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("candidate import: status %d", rec.Code)
	}
}
