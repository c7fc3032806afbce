package leave_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"leave-portal/internal/cache"
	"leave-portal/internal/domain"
	"leave-portal/internal/leave"
	leaveerrors "leave-portal/internal/leave/errors"
	"leave-portal/internal/shared/apperror"
	"leave-portal/internal/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var (
	mira = user.User{ID: uuid.New(), Name: "Mira", Email: "mira@example.com", Role: "manager", LeaveBalance: 20, TotalLeaveBalance: 20}
	eko  = user.User{ID: uuid.New(), Name: "Eko", Email: "eko@example.com", Role: "employee", LeaveBalance: 20, TotalLeaveBalance: 20}
	sari = user.User{ID: uuid.New(), Name: "Sari", Email: "sari@example.com", Role: "employee", LeaveBalance: 20, TotalLeaveBalance: 20}

	manager  = domain.Principal{ID: mira.ID.String(), Role: "manager", Name: "Mira"}
	employee = domain.Principal{ID: eko.ID.String(), Role: "employee", Name: "Eko"}
)

type leaveServiceDeps struct {
	sqlMock     sqlmock.Sqlmock
	service     leave.Service
	repo        *fakeLeaveRepository
	users       *fakeUserRepository
	store       *memStore
	invalidator *recordingInvalidator
}

func setupLeaveServiceTest(t *testing.T, users ...user.User) *leaveServiceDeps {
	t.Helper()

	if len(users) == 0 {
		users = []user.User{mira, eko, sari}
	}
	gdb, sqlMock := newGormMock(t)
	userRepo := newFakeUserRepository(users...)
	repo := newFakeLeaveRepository(userRepo)
	store := newMemStore()
	client := cache.NewClient(store)
	inv := &recordingInvalidator{client: client}

	svc := leave.NewService(gdb, repo, userRepo, leave.CacheOptions{Client: client, Invalidator: inv})

	return &leaveServiceDeps{
		sqlMock:     sqlMock,
		service:     svc,
		repo:        repo,
		users:       userRepo,
		store:       store,
		invalidator: inv,
	}
}

func annual(days int) leave.CreateLeaveRequest {
	return leave.CreateLeaveRequest{Type: leave.TypeAnnual, From: "2026-03-02", To: "2026-03-04", Days: days}
}

func TestLeaveService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("employee submits for self", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		resp, err := deps.service.Create(ctx, employee, annual(3))

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusPending, resp.Status)
		assert.Equal(t, eko.ID.String(), resp.UserID)
		assert.Equal(t, "2026-03-02", resp.From)
		assert.Equal(t, 3, resp.Days)
		if assert.NotNil(t, resp.Owner) {
			assert.Equal(t, "Eko", resp.Owner.Name)
		}
		assert.ElementsMatch(t,
			[]string{leave.KeyAllLeaves, leave.KeyLeavesFor(employee.ID), leave.KeyLeavesFor(employee.ID)},
			deps.invalidator.invalidated(),
		)
	})

	t.Run("employee target override is ignored", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		req := annual(2)
		req.UserID = sari.ID.String()

		resp, err := deps.service.Create(ctx, employee, req)

		assert.NoError(t, err)
		assert.Equal(t, eko.ID.String(), resp.UserID)
	})

	t.Run("manager submits on behalf of another user", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		req := annual(2)
		req.UserID = sari.ID.String()

		resp, err := deps.service.Create(ctx, manager, req)

		assert.NoError(t, err)
		assert.Equal(t, sari.ID.String(), resp.UserID)
		assert.Contains(t, deps.invalidator.invalidated(), leave.KeyLeavesFor(sari.ID.String()))
		assert.Contains(t, deps.invalidator.invalidated(), leave.KeyLeavesFor(manager.ID))
	})

	t.Run("uppercase owner id invalidates the canonical key", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		req := annual(2)
		req.UserID = strings.ToUpper(sari.ID.String())

		resp, err := deps.service.Create(ctx, manager, req)

		assert.NoError(t, err)
		assert.Equal(t, sari.ID.String(), resp.UserID)
		assert.Contains(t, deps.invalidator.invalidated(), leave.KeyLeavesFor(sari.ID.String()))
		assert.NotContains(t, deps.invalidator.invalidated(), leave.KeyLeavesFor(req.UserID))
	})

	t.Run("days are taken as supplied", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		req := annual(10)
		req.To = req.From

		resp, err := deps.service.Create(ctx, employee, req)

		assert.NoError(t, err)
		assert.Equal(t, 10, resp.Days)
	})

	tests := []struct {
		name string
		req  leave.CreateLeaveRequest
		want error
	}{
		{"missing type", leave.CreateLeaveRequest{From: "2026-03-02", To: "2026-03-03", Days: 1}, leaveerrors.ErrMissingFields},
		{"missing from", leave.CreateLeaveRequest{Type: "Sick", To: "2026-03-03", Days: 1}, leaveerrors.ErrMissingFields},
		{"zero days", leave.CreateLeaveRequest{Type: "Sick", From: "2026-03-02", To: "2026-03-03"}, leaveerrors.ErrMissingFields},
		{"unknown type", leave.CreateLeaveRequest{Type: "Sabbatical", From: "2026-03-02", To: "2026-03-03", Days: 1}, leaveerrors.ErrInvalidType},
		{"negative days", leave.CreateLeaveRequest{Type: "Casual", From: "2026-03-02", To: "2026-03-03", Days: -1}, leaveerrors.ErrInvalidDays},
		{"bad date", leave.CreateLeaveRequest{Type: "Casual", From: "03/02/2026", To: "2026-03-03", Days: 1}, leaveerrors.ErrInvalidDateFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := setupLeaveServiceTest(t)

			_, err := deps.service.Create(ctx, employee, tt.req)

			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, deps.invalidator.invalidated())
		})
	}

	t.Run("unknown owner", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		req := annual(1)
		req.UserID = uuid.NewString()

		_, err := deps.service.Create(ctx, manager, req)

		assert.ErrorIs(t, err, leaveerrors.ErrOwnerNotFound)
	})

	t.Run("persist failure", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.createErr = errors.New("db down")

		_, err := deps.service.Create(ctx, employee, annual(1))

		assert.EqualError(t, err, "db down")
		assert.Empty(t, deps.invalidator.invalidated())
	})
}

func TestLeaveService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("employee cannot list another user", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.List(ctx, employee, sari.ID.String(), false)

		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.Equal(t, 0, deps.repo.listCalls())
	})

	t.Run("employee sees own records newest first", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		first, _ := deps.service.Create(ctx, employee, annual(1))
		second, _ := deps.service.Create(ctx, employee, annual(2))
		_, _ = deps.service.Create(ctx, manager, leave.CreateLeaveRequest{Type: "Sick", From: "2026-03-02", To: "2026-03-02", Days: 1, UserID: sari.ID.String()})

		resp, err := deps.service.List(ctx, employee, "", false)

		assert.NoError(t, err)
		if assert.Len(t, resp, 2) {
			assert.Equal(t, second.ID, resp[0].ID)
			assert.Equal(t, first.ID, resp[1].ID)
		}
		assert.True(t, deps.store.has(leave.KeyLeavesFor(employee.ID)))
	})

	t.Run("employee may name own id in any case", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		_, err := deps.service.Create(ctx, employee, annual(1))
		assert.NoError(t, err)

		list, err := deps.service.List(ctx, employee, strings.ToUpper(employee.ID), false)

		assert.NoError(t, err)
		assert.Len(t, list, 1)
		assert.True(t, deps.store.has(leave.KeyLeavesFor(employee.ID)))
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		_, _ = deps.service.Create(ctx, employee, annual(1))

		_, err := deps.service.List(ctx, manager, "", false)
		assert.NoError(t, err)
		resp, err := deps.service.List(ctx, manager, "", false)
		assert.NoError(t, err)

		assert.Len(t, resp, 1)
		assert.Equal(t, 1, deps.repo.listCalls())
		assert.True(t, deps.store.has(leave.KeyAllLeaves))
	})

	t.Run("manager filtered by user uses the per-user key", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		_, _ = deps.service.Create(ctx, employee, annual(1))

		resp, err := deps.service.List(ctx, manager, sari.ID.String(), false)

		assert.NoError(t, err)
		assert.Empty(t, resp)
		assert.True(t, deps.store.has(leave.KeyLeavesFor(sari.ID.String())))
		assert.False(t, deps.store.has(leave.KeyAllLeaves))
	})

	t.Run("force bypasses the cache", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.List(ctx, employee, "", true)
		assert.NoError(t, err)
		_, err = deps.service.List(ctx, employee, "", true)
		assert.NoError(t, err)

		assert.Equal(t, 2, deps.repo.listCalls())
		assert.False(t, deps.store.has(leave.KeyLeavesFor(employee.ID)))
	})

	t.Run("create invalidates a cached listing", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		before, err := deps.service.List(ctx, employee, "", false)
		assert.NoError(t, err)
		assert.Empty(t, before)

		_, _ = deps.service.Create(ctx, employee, annual(1))
		after, err := deps.service.List(ctx, employee, "", false)

		assert.NoError(t, err)
		assert.Len(t, after, 1)
	})

	t.Run("cache down falls back to the database", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.store.down = true

		_, err := deps.service.List(ctx, employee, "", false)
		assert.NoError(t, err)
		_, err = deps.service.List(ctx, employee, "", false)
		assert.NoError(t, err)

		assert.Equal(t, 2, deps.repo.listCalls())
	})

	t.Run("database failure surfaces", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.repo.findAllErr = errors.New("db down")

		_, err := deps.service.List(ctx, manager, "", false)

		assert.EqualError(t, err, "db down")
		assert.False(t, deps.store.has(leave.KeyAllLeaves))
	})
}

func TestLeaveService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("employee is forbidden", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))

		_, err := deps.service.Approve(ctx, employee, created.ID, "")

		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.Equal(t, 20, deps.users.balance(t, eko.ID.String()))
	})

	t.Run("unknown or malformed id", func(t *testing.T) {
		for _, id := range []string{uuid.NewString(), "not-an-id"} {
			deps := setupLeaveServiceTest(t)
			expectTx(deps.sqlMock, false)

			_, err := deps.service.Approve(ctx, manager, id, "")

			assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
			assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		}
	})

	t.Run("approval deducts balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		expectTx(deps.sqlMock, true)

		resp, err := deps.service.Approve(ctx, manager, created.ID, "enjoy")

		assert.NoError(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
		assert.Equal(t, leave.StatusApproved, resp.Leave.Status)
		assert.Equal(t, "enjoy", resp.Leave.ApproverRemark)
		if assert.NotNil(t, resp.Leave.Approver) {
			assert.Equal(t, "Mira", resp.Leave.Approver.Name)
		}
		assert.NotNil(t, resp.Leave.DecidedAt)
		if assert.NotNil(t, resp.User) {
			assert.Equal(t, 17, resp.User.LeaveBalance)
			assert.Equal(t, 20, resp.User.TotalLeaveBalance)
		}
		assert.Equal(t, 17, deps.users.balance(t, eko.ID.String()))
		assert.Contains(t, deps.invalidator.invalidated(), leave.KeyBalanceFor(eko.ID.String()))
	})

	t.Run("double approval conflicts and keeps balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		expectTx(deps.sqlMock, true)
		expectTx(deps.sqlMock, false)

		_, err := deps.service.Approve(ctx, manager, created.ID, "")
		assert.NoError(t, err)
		_, err = deps.service.Approve(ctx, manager, created.ID, "")

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveAlreadyApproved)
		assert.Equal(t, 17, deps.users.balance(t, eko.ID.String()))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("balance is clamped at zero", func(t *testing.T) {
		low := eko
		low.LeaveBalance = 2
		deps := setupLeaveServiceTest(t, mira, low)
		created, _ := deps.service.Create(ctx, employee, annual(5))
		expectTx(deps.sqlMock, true)

		resp, err := deps.service.Approve(ctx, manager, created.ID, "")

		assert.NoError(t, err)
		assert.Equal(t, 0, resp.User.LeaveBalance)
		assert.Equal(t, 0, deps.users.balance(t, eko.ID.String()))
	})

	t.Run("rejected leave cannot be approved", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		expectTx(deps.sqlMock, true)
		expectTx(deps.sqlMock, false)

		_, err := deps.service.Reject(ctx, manager, created.ID, "busy")
		assert.NoError(t, err)
		_, err = deps.service.Approve(ctx, manager, created.ID, "")

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveAlreadyDecided)
		assert.Equal(t, 20, deps.users.balance(t, eko.ID.String()))
	})

	t.Run("owner gone still approves", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		deps.users.mu.Lock()
		delete(deps.users.users, eko.ID.String())
		deps.users.mu.Unlock()
		expectTx(deps.sqlMock, true)

		resp, err := deps.service.Approve(ctx, manager, created.ID, "")

		assert.NoError(t, err)
		assert.Nil(t, resp.User)
		assert.Equal(t, leave.StatusApproved, resp.Leave.Status)
	})

	t.Run("update failure rolls back", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		deps.repo.updateErr = errors.New("db down")
		expectTx(deps.sqlMock, false)

		_, err := deps.service.Approve(ctx, manager, created.ID, "")

		assert.EqualError(t, err, "db down")
		assert.Equal(t, 20, deps.users.balance(t, eko.ID.String()))
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLeaveService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("employee is forbidden", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))

		_, err := deps.service.Reject(ctx, employee, created.ID, "")

		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("rejection keeps balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		expectTx(deps.sqlMock, true)

		resp, err := deps.service.Reject(ctx, manager, created.ID, "crunch week")

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejected, resp.Status)
		assert.Equal(t, "crunch week", resp.ApproverRemark)
		assert.Equal(t, 20, deps.users.balance(t, eko.ID.String()))
		assert.NotContains(t, deps.invalidator.invalidated(), leave.KeyBalanceFor(eko.ID.String()))
	})

	t.Run("rejected leave can be rejected again", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		expectTx(deps.sqlMock, true)
		expectTx(deps.sqlMock, true)

		_, err := deps.service.Reject(ctx, manager, created.ID, "first")
		assert.NoError(t, err)
		resp, err := deps.service.Reject(ctx, manager, created.ID, "second")

		assert.NoError(t, err)
		assert.Equal(t, "second", resp.ApproverRemark)
	})

	t.Run("approved leave cannot be rejected", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		created, _ := deps.service.Create(ctx, employee, annual(3))
		expectTx(deps.sqlMock, true)
		expectTx(deps.sqlMock, false)

		_, err := deps.service.Approve(ctx, manager, created.ID, "")
		assert.NoError(t, err)
		_, err = deps.service.Reject(ctx, manager, created.ID, "")

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveAlreadyDecided)
		assert.Equal(t, 17, deps.users.balance(t, eko.ID.String()))
	})

	t.Run("unknown id", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		expectTx(deps.sqlMock, false)

		_, err := deps.service.Reject(ctx, manager, uuid.NewString(), "")

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
	})
}

func TestLeaveService_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("employee cannot read another balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		_, err := deps.service.GetBalance(ctx, employee, sari.ID.String(), false)

		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.Equal(t, 0, deps.users.readCount())
	})

	t.Run("own balance is cached", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		first, err := deps.service.GetBalance(ctx, employee, employee.ID, false)
		assert.NoError(t, err)
		second, err := deps.service.GetBalance(ctx, employee, employee.ID, false)
		assert.NoError(t, err)

		assert.Equal(t, leave.BalanceResponse{UserID: employee.ID, Balance: 20}, first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, deps.users.readCount())
	})

	t.Run("own id in uppercase is not forbidden", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)

		resp, err := deps.service.GetBalance(ctx, employee, strings.ToUpper(employee.ID), false)

		assert.NoError(t, err)
		assert.Equal(t, leave.BalanceResponse{UserID: employee.ID, Balance: 20}, resp)
		assert.True(t, deps.store.has(leave.KeyBalanceFor(employee.ID)))
	})

	t.Run("cached zero is a hit", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.store.data[leave.KeyBalanceFor(eko.ID.String())] = "0"

		resp, err := deps.service.GetBalance(ctx, manager, eko.ID.String(), false)

		assert.NoError(t, err)
		assert.Equal(t, 0, resp.Balance)
		assert.Equal(t, 0, deps.users.readCount())
	})

	t.Run("unknown user is not cached", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		id := uuid.NewString()

		_, err := deps.service.GetBalance(ctx, manager, id, false)

		assert.ErrorIs(t, err, leaveerrors.ErrOwnerNotFound)
		assert.False(t, deps.store.has(leave.KeyBalanceFor(id)))
	})

	t.Run("force reads the database", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.store.data[leave.KeyBalanceFor(eko.ID.String())] = "3"

		resp, err := deps.service.GetBalance(ctx, employee, employee.ID, true)

		assert.NoError(t, err)
		assert.Equal(t, 20, resp.Balance)
	})

	t.Run("database failure surfaces", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		deps.users.findErr = errors.New("db down")

		_, err := deps.service.GetBalance(ctx, employee, employee.ID, false)

		assert.EqualError(t, err, "db down")
	})
}

func TestLeaveService_SubmitApproveBalanceFlow(t *testing.T) {
	ctx := context.Background()
	deps := setupLeaveServiceTest(t)

	before, err := deps.service.GetBalance(ctx, employee, employee.ID, false)
	assert.NoError(t, err)
	assert.Equal(t, 20, before.Balance)

	created, err := deps.service.Create(ctx, employee, annual(3))
	assert.NoError(t, err)

	expectTx(deps.sqlMock, true)
	_, err = deps.service.Approve(ctx, manager, created.ID, "")
	assert.NoError(t, err)

	after, err := deps.service.GetBalance(ctx, employee, employee.ID, false)
	assert.NoError(t, err)
	assert.Equal(t, 17, after.Balance)

	list, err := deps.service.List(ctx, employee, "", false)
	assert.NoError(t, err)
	if assert.Len(t, list, 1) {
		assert.Equal(t, leave.StatusApproved, list[0].Status)
	}
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestLeaveService_HistoryForUser(t *testing.T) {
	ctx := context.Background()
	deps := setupLeaveServiceTest(t)
	created, _ := deps.service.Create(ctx, employee, annual(3))
	_, _ = deps.service.Create(ctx, manager, leave.CreateLeaveRequest{Type: "Sick", From: "2026-04-01", To: "2026-04-01", Days: 1, UserID: sari.ID.String()})
	expectTx(deps.sqlMock, true)
	_, _ = deps.service.Approve(ctx, manager, created.ID, "ok")

	items, err := deps.service.HistoryForUser(ctx, eko.ID.String())

	assert.NoError(t, err)
	if assert.Len(t, items, 1) {
		assert.Equal(t, created.ID, items[0].ID)
		assert.Equal(t, leave.StatusApproved, items[0].Status)
		if assert.NotNil(t, items[0].ApproverName) {
			assert.Equal(t, "Mira", *items[0].ApproverName)
		}
	}
}
