package breaker

import (
	"testing"
	"time"
)

func TestOpensAfterThresholdFailures(t *testing.T) {
	b := New(Config{Enabled: true, FailureThreshold: 3, Cooldown: time.Minute})

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if !b.ShouldAllowRequest() {
			t.Fatalf("should still allow requests before threshold (failure %d)", i+1)
		}
	}

	b.RecordFailure()
	if b.ShouldAllowRequest() {
		t.Fatal("breaker should reject requests once open")
	}
}

func TestRecordSuccessCloses(t *testing.T) {
	b := New(Config{Enabled: true, FailureThreshold: 1, Cooldown: time.Minute})
	b.RecordFailure()
	if b.ShouldAllowRequest() {
		t.Fatal("expected breaker open")
	}
	b.RecordSuccess()
	if !b.ShouldAllowRequest() {
		t.Fatal("expected breaker closed after success")
	}
}

func TestHalfOpenAdmitsSingleProbe(t *testing.T) {
	b := New(Config{Enabled: true, FailureThreshold: 1, Cooldown: 10 * time.Millisecond})
	b.RecordFailure()
	if b.ShouldAllowRequest() {
		t.Fatal("expected rejection within cooldown")
	}

	time.Sleep(20 * time.Millisecond)

	if !b.ShouldAllowRequest() {
		t.Fatal("expected exactly one probe to be admitted after cooldown")
	}
	if b.ShouldAllowRequest() {
		t.Fatal("expected second concurrent request to be rejected while probe in flight")
	}
}

func TestDisabledAlwaysAllows(t *testing.T) {
	b := New(Config{Enabled: false, FailureThreshold: 1, Cooldown: time.Hour})
	b.RecordFailure()
	if !b.ShouldAllowRequest() {
		t.Fatal("disabled breaker must always allow")
	}
}
