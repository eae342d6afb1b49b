package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitit/internal/auth"
	"github.com/mmynk/splitit/internal/ledger"
	"github.com/mmynk/splitit/internal/middleware"
	"github.com/mmynk/splitit/internal/models"
	"github.com/mmynk/splitit/internal/remote"
	"github.com/mmynk/splitit/internal/storage/sqlite"
	"github.com/mmynk/splitit/internal/syncer"
	"github.com/mmynk/splitit/pkg/logging"
)

type testServer struct {
	url   string
	store *sqlite.SQLiteStore
}

type serverOption func(*Deps)

// setupTestServer serves every service on a fresh temp database.
func setupTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := logging.Discard()
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	sessions := auth.NewSessionManager(authenticator, store, auth.NewJWTManager("test-secret", time.Hour), logger)

	deps := Deps{
		Ledger:        ledger.New(store, ledger.WithLogger(logger)),
		Authenticator: authenticator,
		Sessions:      sessions,
		Metrics:       middleware.NewRPCMetrics(prometheus.NewRegistry()),
		Logger:        logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	mux := http.NewServeMux()
	Mount(mux, deps)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testServer{url: server.URL, store: store}
}

// call invokes procedure with the given bearer token.
func call[Req, Res any](t *testing.T, s *testServer, procedure, token string, req *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](http.DefaultClient, s.url+procedure, ClientOptions()...)
	r := connect.NewRequest(req)
	if token != "" {
		r.Header().Set("Authorization", "Bearer "+token)
	}
	resp, err := client.CallUnary(context.Background(), r)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func register(t *testing.T, s *testServer, name string) *AuthResponse {
	t.Helper()
	resp, err := call[RegisterRequest, AuthResponse](t, s, RegisterProcedure, "", &RegisterRequest{
		Name:        name,
		DisplayName: "Display " + name,
		Email:       name + "@example.com",
		Password:    "password123",
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}
	return resp
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got success", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("code = %v, want %v (err %v)", got, code, err)
	}
}

func TestAuthFlow(t *testing.T) {
	s := setupTestServer(t)
	ada := register(t, s, "ada")

	if ada.Token == "" || ada.User.ID == "" {
		t.Fatalf("unexpected register response: %+v", ada)
	}

	me, err := call[Empty, UserResponse](t, s, MeProcedure, ada.Token, &Empty{})
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.User.Name != "ada" || me.User.DisplayName != "Display ada" {
		t.Errorf("unexpected profile: %+v", me.User)
	}

	t.Run("registration errors", func(t *testing.T) {
		_, err := call[RegisterRequest, AuthResponse](t, s, RegisterProcedure, "", &RegisterRequest{Name: "ADA", Password: "password123"})
		wantCode(t, err, connect.CodeAlreadyExists)

		_, err = call[RegisterRequest, AuthResponse](t, s, RegisterProcedure, "", &RegisterRequest{Name: "zed", Password: "short"})
		wantCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("login rotates the token", func(t *testing.T) {
		_, err := call[LoginRequest, AuthResponse](t, s, LoginProcedure, "", &LoginRequest{Identifier: "ada", Password: "wrong-password"})
		wantCode(t, err, connect.CodeUnauthenticated)

		again, err := call[LoginRequest, AuthResponse](t, s, LoginProcedure, "", &LoginRequest{Identifier: "ada@example.com", Password: "password123"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if again.User.LastLogin.IsZero() {
			t.Error("lastLogin not set")
		}

		_, err = call[Empty, UserResponse](t, s, MeProcedure, ada.Token, &Empty{})
		wantCode(t, err, connect.CodeUnauthenticated)

		if _, err := call[Empty, Empty](t, s, LogoutProcedure, again.Token, &Empty{}); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		_, err = call[Empty, UserResponse](t, s, MeProcedure, again.Token, &Empty{})
		wantCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("no token", func(t *testing.T) {
		_, err := call[Empty, UserResponse](t, s, MeProcedure, "", &Empty{})
		wantCode(t, err, connect.CodeUnauthenticated)
	})
}

func TestUpdateProfile(t *testing.T) {
	s := setupTestServer(t)
	ada := register(t, s, "ada")
	register(t, s, "bob")

	taken := "bob"
	_, err := call[ledger.ProfileUpdate, UserResponse](t, s, UpdateProfileProcedure, ada.Token, &ledger.ProfileUpdate{Name: &taken})
	wantCode(t, err, connect.CodeAlreadyExists)

	display := "Ada L."
	resp, err := call[ledger.ProfileUpdate, UserResponse](t, s, UpdateProfileProcedure, ada.Token, &ledger.ProfileUpdate{DisplayName: &display})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if resp.User.DisplayName != display {
		t.Errorf("display name = %q", resp.User.DisplayName)
	}
}

func TestLedgerFlow(t *testing.T) {
	s := setupTestServer(t)
	ada := register(t, s, "ada")
	bob := register(t, s, "bob")
	cha := register(t, s, "cha")

	if _, err := call[AddFriendRequest, FriendResponse](t, s, AddFriendProcedure, ada.Token, &AddFriendRequest{Name: "Bob"}); err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	_, err := call[AddFriendRequest, FriendResponse](t, s, AddFriendProcedure, ada.Token, &AddFriendRequest{Name: "ada"})
	wantCode(t, err, connect.CodeInvalidArgument)

	group, err := call[ledger.GroupInput, GroupResponse](t, s, CreateGroupProcedure, ada.Token, &ledger.GroupInput{
		Name:      "Flat",
		MemberIDs: []string{bob.User.ID},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	in := ledger.ExpenseInput{
		Title:  "Groceries",
		Amount: 80,
		PaidBy: ada.User.ID,
		Participants: []models.Participant{
			{ID: ada.User.ID},
			{ID: bob.User.ID},
		},
		GroupID: group.Group.ID,
	}
	created, err := call[ledger.ExpenseInput, ExpenseResponse](t, s, CreateExpenseProcedure, ada.Token, &in)
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if created.Expense.Synced || created.Expense.SplitMode != models.SplitEqual {
		t.Errorf("unexpected expense: %+v", created.Expense)
	}

	t.Run("errors map to codes", func(t *testing.T) {
		bad := in
		bad.Amount = 0
		_, err := call[ledger.ExpenseInput, ExpenseResponse](t, s, CreateExpenseProcedure, ada.Token, &bad)
		wantCode(t, err, connect.CodeInvalidArgument)

		_, err = call[IDRequest, ledger.ExpenseView](t, s, GetExpenseProcedure, cha.Token, &IDRequest{ID: created.Expense.ID})
		wantCode(t, err, connect.CodePermissionDenied)

		_, err = call[IDRequest, ledger.ExpenseView](t, s, GetExpenseProcedure, ada.Token, &IDRequest{ID: "missing"})
		wantCode(t, err, connect.CodeNotFound)

		_, err = call[ListActivityRequest, ListActivityResponse](t, s, ListActivityProcedure, ada.Token, &ListActivityRequest{Filter: "bogus"})
		wantCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("read views", func(t *testing.T) {
		view, err := call[IDRequest, ledger.ExpenseView](t, s, GetExpenseProcedure, bob.Token, &IDRequest{ID: created.Expense.ID})
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if view.GroupName != "Flat" || view.Net[bob.User.ID] != -40 {
			t.Errorf("unexpected view: %+v", view)
		}

		dash, err := call[DashboardRequest, ledger.Dashboard](t, s, GetDashboardProcedure, bob.Token, &DashboardRequest{})
		if err != nil {
			t.Fatalf("GetDashboard failed: %v", err)
		}
		if dash.TotalBalance != -40 || dash.Summary != "owes $40.00" {
			t.Errorf("bob's dashboard: %+v", dash)
		}

		friends, err := call[Empty, ListFriendsResponse](t, s, ListFriendsProcedure, ada.Token, &Empty{})
		if err != nil {
			t.Fatalf("ListFriends failed: %v", err)
		}
		if len(friends.Friends) != 1 || friends.Friends[0].Balance != 40 {
			t.Errorf("ada's friends: %+v", friends.Friends)
		}

		detail, err := call[IDRequest, ledger.GroupDetail](t, s, GetGroupDetailProcedure, bob.Token, &IDRequest{ID: group.Group.ID})
		if err != nil {
			t.Fatalf("GetGroupDetail failed: %v", err)
		}
		if detail.Total != 80 || len(detail.SettleUp) != 1 || detail.SettleUp[0].From != bob.User.ID {
			t.Errorf("unexpected detail: %+v", detail)
		}

		counts, err := call[Empty, ledger.UnsyncedCounts](t, s, GetUnsyncedCountsProcedure, ada.Token, &Empty{})
		if err != nil || counts.Expenses != 1 || counts.Groups != 1 {
			t.Errorf("unsynced counts = %+v, %v", counts, err)
		}
	})

	t.Run("delete group detaches its expenses", func(t *testing.T) {
		_, err := call[IDRequest, DeleteGroupResponse](t, s, DeleteGroupProcedure, bob.Token, &IDRequest{ID: group.Group.ID})
		wantCode(t, err, connect.CodePermissionDenied)

		resp, err := call[IDRequest, DeleteGroupResponse](t, s, DeleteGroupProcedure, ada.Token, &IDRequest{ID: group.Group.ID})
		if err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if resp.DetachedExpenses != 1 {
			t.Errorf("detached = %d, want 1", resp.DetachedExpenses)
		}

		items, err := call[ListActivityRequest, ListActivityResponse](t, s, ListActivityProcedure, ada.Token, &ListActivityRequest{Filter: "personal"})
		if err != nil {
			t.Fatal(err)
		}
		if len(items.Items) != 1 || items.Items[0].Expense.ID != created.Expense.ID {
			t.Errorf("detached expense not in the personal feed: %+v", items.Items)
		}
	})

	t.Run("export", func(t *testing.T) {
		snap, err := call[Empty, models.Snapshot](t, s, ExportProcedure, ada.Token, &Empty{})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if len(snap.Expenses) != 1 || len(snap.Users) != 2 || snap.ExportedAt.IsZero() {
			t.Errorf("unexpected snapshot: %d expenses, %d users", len(snap.Expenses), len(snap.Users))
		}
	})

	t.Run("clear expenses", func(t *testing.T) {
		resp, err := call[Empty, CountResponse](t, s, ClearExpensesProcedure, ada.Token, &Empty{})
		if err != nil || resp.Count != 1 {
			t.Fatalf("ClearExpenses = %+v, %v", resp, err)
		}
	})

	t.Run("sync disabled", func(t *testing.T) {
		_, err := call[Empty, SyncResponse](t, s, SyncNowProcedure, ada.Token, &Empty{})
		wantCode(t, err, connect.CodeFailedPrecondition)
	})
}

func TestSyncBetweenInstances(t *testing.T) {
	target := remote.NewMemory()
	peer := setupTestServer(t, func(d *Deps) {
		d.Target = target
		d.SyncToken = "peer-token"
	})

	var rec *syncer.Reconciler
	local := setupTestServer(t, func(d *Deps) {
		// The reconciler needs the store created by setupTestServer; it is
		// filled in below before any call reaches SyncNow.
		d.Sync = passerFunc(func(ctx context.Context) (*syncer.Report, error) { return rec.Pass(ctx) })
	})

	ada := register(t, local, "ada")
	bob := register(t, local, "bob")
	if _, err := call[AddFriendRequest, FriendResponse](t, local, AddFriendProcedure, ada.Token, &AddFriendRequest{Name: "bob"}); err != nil {
		t.Fatal(err)
	}
	if _, err := call[ledger.ExpenseInput, ExpenseResponse](t, local, CreateExpenseProcedure, ada.Token, &ledger.ExpenseInput{
		Title:        "Taxi",
		Amount:       30,
		PaidBy:       bob.User.ID,
		Participants: []models.Participant{{ID: ada.User.ID}, {ID: bob.User.ID}},
	}); err != nil {
		t.Fatal(err)
	}

	t.Run("wrong token keeps records dirty", func(t *testing.T) {
		rec = syncer.NewReconciler(local.store,
			remote.NewClient(peer.url, remote.WithToken("nope")),
			syncer.WithReconcilerLogger(logging.Discard()))

		_, err := call[Empty, SyncResponse](t, local, SyncNowProcedure, ada.Token, &Empty{})
		wantCode(t, err, connect.CodeUnavailable)
		if n, _, _ := local.store.CountUnsynced(context.Background()); n != 1 {
			t.Errorf("unsynced expenses = %d, want 1", n)
		}
	})

	rec = syncer.NewReconciler(local.store,
		remote.NewClient(peer.url, remote.WithToken("peer-token")),
		syncer.WithReconcilerLogger(logging.Discard()))

	resp, err := call[Empty, SyncResponse](t, local, SyncNowProcedure, ada.Token, &Empty{})
	if err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}
	if resp.Report.Confirmed != 1 {
		t.Errorf("confirmed = %d, want 1", resp.Report.Confirmed)
	}
	if target.Len() != 1 {
		t.Errorf("peer stored %d records, want 1", target.Len())
	}
	if n, _, _ := local.store.CountUnsynced(context.Background()); n != 0 {
		t.Errorf("unsynced expenses = %d, want 0", n)
	}
}

type passerFunc func(ctx context.Context) (*syncer.Report, error)

func (f passerFunc) Pass(ctx context.Context) (*syncer.Report, error) { return f(ctx) }
