package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/accounts/internal/domain/repository"
	"github.com/dropDatabas3/accounts/internal/identity"
	"github.com/dropDatabas3/accounts/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu       sync.Mutex
	codes    []string
	welcomes []string
	codeErr  error
	welcErr  error
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, _, _, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codeErr != nil {
		return f.codeErr
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes = append(f.welcomes, to)
	return f.welcErr
}

func (f *fakeNotifier) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[len(f.codes)-1]
}

type fixture struct {
	svc      Service
	codes    *memory.CodeStore
	accounts *memory.AccountStore
	notifier *fakeNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		codes:    memory.NewCodeStore(),
		accounts: memory.NewAccountStore(),
		notifier: &fakeNotifier{},
		now:      t0,
	}
	var seq atomic.Int64
	f.svc = NewService(Deps{
		Codes:    f.codes,
		Accounts: f.accounts,
		Notifier: f.notifier,
		Now:      func() time.Time { return f.now },
		Generate: func() (string, error) {
			return fmt.Sprintf("%06d", 100000+seq.Add(1)), nil
		},
	})
	return f
}

var alice = &identity.Subject{ID: "user_1", Email: "alice@example.com", FirstName: "Alice", LastName: "Smith"}

func TestVerifyCode_ExpiresExactlyAtTTL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.IssueCode(ctx, alice))
	code := f.notifier.last()

	f.now = t0.Add(10 * time.Minute)
	_, err := f.svc.VerifyCode(ctx, alice, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	f.now = t0.Add(10*time.Minute - time.Nanosecond)
	_, err = f.svc.VerifyCode(ctx, alice, code)
	assert.NoError(t, err)
}

func TestScenario_IssueVerifyResubmitExpire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// T0: cuenta pendiente + código
	_, err := f.accounts.Create(ctx, repository.CreateAccountInput{
		Subject: alice.ID, Email: alice.Email, Status: repository.StatusPending, Now: t0,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.IssueCode(ctx, alice))
	code := f.notifier.last()

	// T0+9m: válido
	f.now = t0.Add(9 * time.Minute)
	acc, err := f.svc.VerifyCode(ctx, alice, code)
	require.NoError(t, err)
	assert.True(t, acc.EmailVerified)
	assert.Equal(t, repository.StatusActive, acc.Status)
	assert.Empty(t, f.notifier.welcomes, "account already existed")

	// reenvío del mismo código
	_, err = f.svc.VerifyCode(ctx, alice, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// nuevo código emitido en T0, usado en T0+11m
	f.now = t0
	require.NoError(t, f.svc.IssueCode(ctx, alice))
	late := f.notifier.last()
	f.now = t0.Add(11 * time.Minute)
	_, err = f.svc.VerifyCode(ctx, alice, late)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestIssueCode_InvalidatesPreviousForPairOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other := &identity.Subject{ID: "user_1", Email: "other@example.com"}

	require.NoError(t, f.svc.IssueCode(ctx, alice))
	first := f.notifier.last()
	require.NoError(t, f.svc.IssueCode(ctx, other))
	otherCode := f.notifier.last()
	require.NoError(t, f.svc.IssueCode(ctx, alice))
	second := f.notifier.last()

	active := 0
	for _, c := range f.codes.Snapshot(repository.CodeKey{Email: alice.Email, Subject: alice.ID}) {
		if c.Active(f.now) {
			active++
			assert.Equal(t, second, c.Code)
		}
	}
	assert.Equal(t, 1, active)

	_, err := f.svc.VerifyCode(ctx, alice, first)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	_, err = f.svc.VerifyCode(ctx, other, otherCode)
	assert.NoError(t, err)
}

func TestIssueCode_ConcurrentLeavesOneActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.svc.IssueCode(ctx, alice) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Positive(t, ok.Load())

	active := 0
	for _, c := range f.codes.Snapshot(repository.CodeKey{Email: alice.Email, Subject: alice.ID}) {
		if c.Active(f.now) {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestIssueCode_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.svc.IssueCode(ctx, &identity.Subject{ID: "user_2"})
	assert.ErrorIs(t, err, ErrEmailMissing)

	f.notifier.codeErr = errors.New("smtp down")
	err = f.svc.IssueCode(ctx, alice)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestVerifyCode_CreatesAccountAndWelcomes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.IssueCode(ctx, alice))
	acc, err := f.svc.VerifyCode(ctx, alice, f.notifier.last())
	require.NoError(t, err)

	assert.Equal(t, repository.StatusActive, acc.Status)
	assert.True(t, acc.EmailVerified)
	assert.Equal(t, repository.RoleBuyer, acc.Role)
	assert.Equal(t, "Alice", acc.FirstName)
	assert.Equal(t, []string{alice.Email}, f.notifier.welcomes)
}

func TestVerifyCode_WelcomeFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.welcErr = errors.New("smtp down")

	require.NoError(t, f.svc.IssueCode(ctx, alice))
	_, err := f.svc.VerifyCode(ctx, alice, f.notifier.last())
	assert.NoError(t, err)
}

func TestVerifyCode_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.IssueCode(ctx, alice))
	code := f.notifier.last()

	for _, bad := range []string{"", "12345", "1234567", "12a456", " 12345"} {
		_, err := f.svc.VerifyCode(ctx, alice, bad)
		assert.ErrorIs(t, err, ErrMalformedCode, bad)
	}

	_, err := f.svc.VerifyCode(ctx, &identity.Subject{ID: alice.ID}, code)
	assert.ErrorIs(t, err, ErrEmailMissing)

	// mismo código, otro subject
	_, err = f.svc.VerifyCode(ctx, &identity.Subject{ID: "user_9", Email: alice.Email}, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// exactamente en expiresAt ya no es válido
	f.now = t0.Add(DefaultCodeTTL)
	_, err = f.svc.VerifyCode(ctx, alice, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerifyCode_ConcurrentSingleSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.IssueCode(ctx, alice))
	code := f.notifier.last()

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.VerifyCode(ctx, alice, code); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok.Load())
	assert.Len(t, f.notifier.welcomes, 1)
}

func TestVerifyCode_KeepsSuspended(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.accounts.Create(ctx, repository.CreateAccountInput{
		Subject: alice.ID, Email: alice.Email, Status: repository.StatusSuspended, Now: t0,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.IssueCode(ctx, alice))
	acc, err := f.svc.VerifyCode(ctx, alice, f.notifier.last())
	require.NoError(t, err)
	assert.Equal(t, repository.StatusSuspended, acc.Status)
	assert.True(t, acc.EmailVerified)
}
