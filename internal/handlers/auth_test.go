package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lib/pq"

	"invest/internal/auth"
	"invest/internal/models"
	"invest/internal/store"
)

func TestRegisterRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"garbage payload", "{"},
		{"short username", `{"username":"ab","email":"a@b.com","password":"longenough"}`},
		{"bad email", `{"username":"alice","email":"not-an-email","password":"longenough"}`},
		{"short password", `{"username":"alice","email":"a@b.com","password":"short"}`},
	}
	handler := newTestHandler(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			handler.Register(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestRegisterUnknownReferralCode(t *testing.T) {
	handler := newTestHandler(nil)
	body := `{"username":"alice","email":"a@b.com","password":"longenough","referral_code":"NOPE1234"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Register(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "unknown referral code") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestRegisterProvisionsWalletsAndLinksReferralChain(t *testing.T) {
	var created models.User
	var provisionedUser string
	var links []store.ReferralLink
	handler := newTestHandler(func(deps *Deps) {
		deps.Users = stubUserStore{
			createFn: func(_ context.Context, _ store.Execer, user models.User) error {
				created = user
				return nil
			},
			getByReferralCodeFn: func(_ context.Context, code string) (models.User, error) {
				if code != "REF12345" {
					t.Fatalf("unexpected referral code lookup: %s", code)
				}
				return models.User{ID: "referrer-1"}, nil
			},
		}
		deps.Ledger = stubLedgerService{
			provisionFn: func(_ context.Context, _ store.Execer, userID, currency string) error {
				provisionedUser = userID
				if currency != "USD" {
					t.Fatalf("unexpected currency %s", currency)
				}
				return nil
			},
		}
		deps.Referrals = stubReferralStore{
			ancestorsFn: func(_ context.Context, _ store.Selecter, userID string) ([]store.ReferralLink, error) {
				return []store.ReferralLink{{UserID: userID, AncestorID: "grandparent-1", Level: 1}}, nil
			},
			insertLinksFn: func(_ context.Context, _ store.Execer, got []store.ReferralLink) error {
				links = got
				return nil
			},
		}
	})
	body := `{"username":"alice","email":"a@b.com","password":"longenough","referral_code":"REF12345"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Register(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["token"] == "" {
		t.Fatal("expected a token in the response")
	}
	if created.Username != "alice" || !created.IsActive {
		t.Fatalf("unexpected user created: %+v", created)
	}
	if len(created.ReferralCode) != 8 {
		t.Fatalf("expected an 8-char referral code, got %q", created.ReferralCode)
	}
	if provisionedUser != created.ID {
		t.Fatalf("wallets provisioned for %s, user is %s", provisionedUser, created.ID)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 referral links, got %d", len(links))
	}
	if links[0].AncestorID != "referrer-1" || links[0].Level != 1 {
		t.Fatalf("unexpected direct link: %+v", links[0])
	}
	if links[1].AncestorID != "grandparent-1" || links[1].Level != 2 {
		t.Fatalf("unexpected chained link: %+v", links[1])
	}
}

func TestRegisterBootstrapsFirstAdmin(t *testing.T) {
	var grantedRole string
	handler := newTestHandler(func(deps *Deps) {
		deps.Staff = stubStaffStore{
			hasAnyStaffFn: func(context.Context) (bool, error) { return false, nil },
			grantRoleFn: func(_ context.Context, _ store.Execer, _, role string, grantedBy *string) error {
				grantedRole = role
				if grantedBy != nil {
					t.Fatal("bootstrap grant should have no granting admin")
				}
				return nil
			},
		}
	})
	body := `{"username":"alice","email":"a@b.com","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Register(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if grantedRole != models.RoleAdmin {
		t.Fatalf("expected admin bootstrap, got %q", grantedRole)
	}
}

func TestRegisterDuplicateUser(t *testing.T) {
	handler := newTestHandler(func(deps *Deps) {
		deps.Users = stubUserStore{
			createFn: func(context.Context, store.Execer, models.User) error {
				return &pq.Error{Code: "23505"}
			},
		}
	})
	body := `{"username":"alice","email":"a@b.com","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Register(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	hash, err := auth.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	handler := newTestHandler(func(deps *Deps) {
		deps.Users = stubUserStore{
			getByEmailFn: func(_ context.Context, email string) (models.User, error) {
				return models.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
			},
		}
	})
	body := `{"email":"a@b.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	handler := newTestHandler(nil)
	body := `{"email":"nobody@b.com","password":"whatever123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	hash, err := auth.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	var audited string
	handler := newTestHandler(func(deps *Deps) {
		deps.Users = stubUserStore{
			getByEmailFn: func(_ context.Context, email string) (models.User, error) {
				return models.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
			},
		}
		deps.Audit = stubAuditStore{
			logFn: func(_ context.Context, _ store.Execer, _, action, _, _, _ string) error {
				audited = action
				return nil
			},
		}
	})
	body := `{"email":"a@b.com","password":"correct-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	claims, err := auth.ParseToken("secret", resp["token"])
	if err != nil {
		t.Fatalf("token did not parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("token issued for %s", claims.UserID)
	}
	if audited != "login" {
		t.Fatalf("expected a login audit entry, got %q", audited)
	}
}

func TestMeReturnsProfileWithKYCStatus(t *testing.T) {
	handler := newTestHandler(func(deps *Deps) {
		deps.Users = stubUserStore{
			getByIDFn: func(_ context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Username: "alice", Email: "a@b.com", ReferralCode: "REF12345", IsActive: true}, nil
			},
		}
		deps.KYC = stubKYCStore{
			latestStatusFn: func(context.Context, string) (string, error) {
				return models.KYCStatusApproved, nil
			},
		}
	})
	rr := serveWithAuth(t, handler.Me, http.MethodGet, "/api/users/me", "", "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["id"] != "user-1" || resp["kyc_status"] != models.KYCStatusApproved {
		t.Fatalf("unexpected profile: %v", resp)
	}
	if resp["referral_code"] != "REF12345" {
		t.Fatalf("unexpected referral code: %v", resp["referral_code"])
	}
}

func TestMeRejectsMissingToken(t *testing.T) {
	handler := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rr := httptest.NewRecorder()
	handler.Me(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
