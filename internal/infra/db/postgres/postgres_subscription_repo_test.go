//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
)

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	// 1. Setup repos and context
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	payRepo := NewPaymentRepo(testPool)
	planRepo := NewPlanRepo(testPool)
	employer := model.Employer(1)
	now := time.Now().UTC().Truncate(time.Microsecond)

	var plan *model.Plan
	setupPrerequisites := func(t *testing.T, jobPosts model.Quota) {
		cleanup(t)
		seedDirectory(t)
		plan = mustPlan(t, "Basic Job Post", model.AudienceEmployer, 500, jobPosts, model.Limit(0))
		if err := planRepo.Save(ctx, nil, plan); err != nil {
			t.Fatalf("failed to save plan: %v", err)
		}
	}

	// newSub stores a payment plus its subscription, started at start.
	newSub := func(t *testing.T, start time.Time, status model.SubscriptionStatus) *model.Subscription {
		t.Helper()
		p := newPayment(employer, plan, model.PaymentKindJobPost, "500.00", start)
		if err := payRepo.Save(ctx, nil, p); err != nil {
			t.Fatalf("failed to save payment: %v", err)
		}
		sub, err := model.NewPendingSubscription(employer, plan, p.ID, start)
		if err != nil {
			t.Fatalf("new subscription: %v", err)
		}
		sub.Status = status
		if err := repo.Save(ctx, nil, sub); err != nil {
			t.Fatalf("failed to save subscription: %v", err)
		}
		return sub
	}

	t.Run("should save and find by id and payment", func(t *testing.T) {
		setupPrerequisites(t, model.Limit(1))
		sub := newSub(t, now, model.SubscriptionStatusPending)

		byID, err := repo.FindByID(ctx, nil, sub.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !byID.ExpiresAt.Equal(now.AddDate(0, 0, 30)) || byID.JobPostsLimit != model.Limit(1) {
			t.Errorf("round trip mismatch: %+v", byID)
		}
		byPayment, err := repo.FindByPaymentID(ctx, nil, sub.PaymentID)
		if err != nil || byPayment.ID != sub.ID {
			t.Fatalf("FindByPaymentID failed: %v", err)
		}
		if _, err := repo.FindByID(ctx, nil, "bogus"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("FindActive prefers the latest start and skips expired windows", func(t *testing.T) {
		setupPrerequisites(t, model.Limit(1))
		old := newSub(t, now.AddDate(0, 0, -10), model.SubscriptionStatusActive)
		recent := newSub(t, now.AddDate(0, 0, -1), model.SubscriptionStatusActive)
		newSub(t, now.AddDate(0, 0, -60), model.SubscriptionStatusActive) // window closed
		newSub(t, now, model.SubscriptionStatusPending)

		found, err := repo.FindActive(ctx, nil, employer, now)
		if err != nil {
			t.Fatalf("FindActive failed: %v", err)
		}
		if found.ID != recent.ID {
			t.Errorf("expected most recent start %s, got %s (old %s)", recent.ID, found.ID, old.ID)
		}
		if _, err := repo.FindActive(ctx, nil, model.Employer(99), now); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for a holder without subscriptions, got %v", err)
		}

		all, err := repo.ListByHolder(ctx, nil, employer)
		if err != nil || len(all) != 4 {
			t.Fatalf("expected 4 subscriptions, got %d (%v)", len(all), err)
		}
	})

	t.Run("IncrementUsage stops at the limit", func(t *testing.T) {
		setupPrerequisites(t, model.Limit(2))
		sub := newSub(t, now, model.SubscriptionStatusActive)

		for i := 1; i <= 2; i++ {
			got, ok, err := repo.IncrementUsage(ctx, nil, sub.ID, model.ResourceJobPost, now)
			if err != nil || !ok {
				t.Fatalf("increment %d: ok=%v err=%v", i, ok, err)
			}
			if got.JobPostsUsed != int64(i) {
				t.Errorf("expected used=%d, got %d", i, got.JobPostsUsed)
			}
		}
		if _, ok, err := repo.IncrementUsage(ctx, nil, sub.ID, model.ResourceJobPost, now); err != nil || ok {
			t.Fatalf("expected refusal at the limit, ok=%v err=%v", ok, err)
		}
		// applications_limit is zero
		if _, ok, _ := repo.IncrementUsage(ctx, nil, sub.ID, model.ResourceApplication, now); ok {
			t.Error("expected zero application quota to refuse")
		}
	})

	t.Run("IncrementUsage refuses pending and overdue subscriptions", func(t *testing.T) {
		setupPrerequisites(t, model.Unlimited)
		pending := newSub(t, now, model.SubscriptionStatusPending)
		if _, ok, _ := repo.IncrementUsage(ctx, nil, pending.ID, model.ResourceJobPost, now); ok {
			t.Error("pending subscription must not be consumable")
		}
		active := newSub(t, now, model.SubscriptionStatusActive)
		if _, ok, _ := repo.IncrementUsage(ctx, nil, active.ID, model.ResourceJobPost, active.ExpiresAt); ok {
			t.Error("subscription must not be consumable at its expiry instant")
		}
		for i := 0; i < 5; i++ {
			if _, ok, err := repo.IncrementUsage(ctx, nil, active.ID, model.ResourceJobPost, now); !ok || err != nil {
				t.Fatalf("unlimited quota refused: %v", err)
			}
		}
	})

	t.Run("concurrent consumers never overdraw the last unit", func(t *testing.T) {
		setupPrerequisites(t, model.Limit(1))
		sub := newSub(t, now, model.SubscriptionStatusActive)

		const workers = 8
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			won int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := repo.IncrementUsage(ctx, nil, sub.ID, model.ResourceJobPost, now)
				if err != nil {
					t.Errorf("increment: %v", err)
					return
				}
				if ok {
					mu.Lock()
					won++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if won != 1 {
			t.Fatalf("expected exactly one successful consume, got %d", won)
		}
		found, _ := repo.FindByID(ctx, nil, sub.ID)
		if found.JobPostsUsed != 1 {
			t.Fatalf("expected used=1, got %d", found.JobPostsUsed)
		}
	})

	t.Run("ExpireOverdue persists lazy expiry", func(t *testing.T) {
		setupPrerequisites(t, model.Limit(1))
		overdue := newSub(t, now.AddDate(0, 0, -45), model.SubscriptionStatusActive)
		current := newSub(t, now, model.SubscriptionStatusActive)

		n, err := repo.CountActive(ctx, nil, now)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 effectively active, got %d (%v)", n, err)
		}
		expired, err := repo.ExpireOverdue(ctx, nil, now)
		if err != nil || expired != 1 {
			t.Fatalf("expected 1 expired, got %d (%v)", expired, err)
		}
		got, _ := repo.FindByID(ctx, nil, overdue.ID)
		if got.Status != model.SubscriptionStatusExpired {
			t.Errorf("expected expired, got %s", got.Status)
		}
		got, _ = repo.FindByID(ctx, nil, current.ID)
		if got.Status != model.SubscriptionStatusActive {
			t.Errorf("expected current to stay active, got %s", got.Status)
		}
	})

	t.Run("UpdateStatus on an unknown id is not found", func(t *testing.T) {
		setupPrerequisites(t, model.Limit(1))
		sub := newSub(t, now, model.SubscriptionStatusPending)
		if err := repo.UpdateStatus(ctx, nil, sub.ID, model.SubscriptionStatusActive, now); err != nil {
			t.Fatalf("UpdateStatus failed: %v", err)
		}
		if err := repo.UpdateStatus(ctx, nil, plan.ID, model.SubscriptionStatusActive, now); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDirectoryRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewDirectoryRepo(testPool)
	cleanup(t)
	seedDirectory(t)

	p, err := repo.Lookup(ctx, nil, model.Employer(1))
	if err != nil || p.DisplayName != "Acme Ltd" || p.Email != "hr@acme.test" {
		t.Fatalf("unexpected employer profile %+v (%v)", p, err)
	}
	p, err = repo.Lookup(ctx, nil, model.Jobseeker(1))
	if err != nil || p.DisplayName != "Abebe Bikila" {
		t.Fatalf("unexpected jobseeker profile %+v (%v)", p, err)
	}
	if _, err := repo.Lookup(ctx, nil, model.Jobseeker(7)); !errors.Is(err, domain.ErrHolderNotFound) {
		t.Errorf("expected ErrHolderNotFound, got %v", err)
	}

	job, err := repo.FindJob(ctx, nil, 42)
	if err != nil || job.EmployerID != 1 || job.Title != "Backend Engineer" {
		t.Fatalf("unexpected job %+v (%v)", job, err)
	}
	if _, err := repo.FindJob(ctx, nil, 9999); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}
