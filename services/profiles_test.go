package services

import (
	"testing"
	"time"
)

func TestEnsureProfileInitialLock(t *testing.T) {
	db := newTestDB(t)
	svc := NewProfileService(db)

	before := time.Now().UnixMilli()
	prof, err := svc.EnsureProfile("0xabcdef1234567890")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	after := time.Now().UnixMilli()

	if prof.Multiplier != 1.0 {
		t.Fatalf("multiplier %v, want 1.0", prof.Multiplier)
	}
	if prof.Points != 0 || prof.LifetimePoints != 0 {
		t.Fatalf("fresh profile has points: %d/%d", prof.Points, prof.LifetimePoints)
	}

	// 90 days out, minus the welcome hour.
	lo := before + int64(InitialLockDays)*MsPerDay - WelcomeDiscountMs
	hi := after + int64(InitialLockDays)*MsPerDay - WelcomeDiscountMs
	if prof.LockEndTime < lo || prof.LockEndTime > hi {
		t.Fatalf("lock end %d outside [%d, %d]", prof.LockEndTime, lo, hi)
	}

	if prof.DisplayName != "0xabcd...7890" {
		t.Fatalf("display name %q, want shortened wallet", prof.DisplayName)
	}
}

func TestEnsureProfileIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewProfileService(db)

	first, err := svc.EnsureProfile("wallet-a")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	again, err := svc.EnsureProfile("wallet-a")
	if err != nil {
		t.Fatalf("EnsureProfile (repeat): %v", err)
	}
	if first.ID != again.ID || first.LockEndTime != again.LockEndTime {
		t.Fatal("repeat EnsureProfile created a different profile")
	}
}

func TestEnsureProfileEmptyWallet(t *testing.T) {
	db := newTestDB(t)
	if _, err := NewProfileService(db).EnsureProfile(""); err == nil {
		t.Fatal("empty wallet accepted")
	}
}

func TestShortWallet(t *testing.T) {
	cases := []struct{ in, want string }{
		{"short", "short"},
		{"exactly10!", "exactly10!"},
		{"0x1234567890abcdef", "0x1234...cdef"},
	}
	for _, tc := range cases {
		if got := shortWallet(tc.in); got != tc.want {
			t.Fatalf("shortWallet(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "UNLOCKED"},
		{-5, "UNLOCKED"},
		{30 * 60 * 1000, "<1h"},
		{2 * MsPerHour, "2h"},
		{3*MsPerDay + 5*MsPerHour, "3d 5h"},
		{90 * MsPerDay, "90d 0h"},
	}
	for _, tc := range cases {
		if got := FormatCountdown(tc.ms); got != tc.want {
			t.Fatalf("FormatCountdown(%d)=%q, want %q", tc.ms, got, tc.want)
		}
	}
}

func TestLockStatusAt(t *testing.T) {
	now := time.Now()

	locked := lockStatusAt(now.UnixMilli()+2*MsPerHour, now)
	if locked.Unlocked {
		t.Fatal("future lock end reported unlocked")
	}
	if locked.RemainingMs != 2*MsPerHour {
		t.Fatalf("remaining %d, want %d", locked.RemainingMs, 2*MsPerHour)
	}
	if locked.Display != "2h" {
		t.Fatalf("display %q, want 2h", locked.Display)
	}

	done := lockStatusAt(now.UnixMilli()-1, now)
	if !done.Unlocked || done.RemainingMs != 0 || done.Display != "UNLOCKED" {
		t.Fatalf("expired lock status %+v", done)
	}
}
