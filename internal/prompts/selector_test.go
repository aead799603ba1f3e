package prompts

import (
	"math/rand"
	"testing"
)

func TestPickNeverRepeatsWhileVariantsRemain(t *testing.T) {
	for _, cond := range Conditions() {
		sel := NewSelector(rand.New(rand.NewSource(1)))
		used := map[string]bool{}
		seen := map[string]bool{}

		for i := 0; i < PoolSize(cond); i++ {
			msg := sel.Pick(used, cond)
			if msg == Fallback {
				t.Fatalf("%s: got fallback with %d unused variants left", cond, PoolSize(cond)-i)
			}
			if seen[msg] {
				t.Fatalf("%s: repeated %q while unused variants remained", cond, msg)
			}
			seen[msg] = true
		}
	}
}

func TestPickExhaustionFallsBackAndRecycles(t *testing.T) {
	sel := NewSelector(rand.New(rand.NewSource(7)))
	used := map[string]bool{}

	for i := 0; i < PoolSize(NeedPhone); i++ {
		sel.Pick(used, NeedPhone)
	}
	msg := sel.Pick(used, NeedPhone)
	if msg != Fallback {
		t.Fatalf("exhausted pool should yield fallback, got %q", msg)
	}

	// The used-set was recycled, the next pick is a variant again.
	msg = sel.Pick(used, NeedPhone)
	if msg == Fallback {
		t.Fatal("after recycling, a variant should be available")
	}
}

func TestPickDeterministicWithSeed(t *testing.T) {
	a := NewSelector(rand.New(rand.NewSource(42)))
	b := NewSelector(rand.New(rand.NewSource(42)))
	usedA, usedB := map[string]bool{}, map[string]bool{}

	for i := 0; i < 6; i++ {
		if got, want := a.Pick(usedA, NeedName), b.Pick(usedB, NeedName); got != want {
			t.Fatalf("same seed diverged at pick %d: %q vs %q", i, got, want)
		}
	}
}

func TestNoConsecutiveIdenticalMessages(t *testing.T) {
	sel := NewSelector(rand.New(rand.NewSource(3)))
	used := map[string]bool{}
	prev := ""
	n := PoolSize(NeedPhone)

	for i := 0; i < n; i++ {
		msg := sel.Pick(used, NeedPhone)
		if msg == prev {
			t.Fatalf("consecutive identical message %q at pick %d", msg, i)
		}
		prev = msg
	}
}

func TestConditionFor(t *testing.T) {
	tests := []struct {
		name    string
		missing []string
		errs    map[string]string
		want    Condition
	}{
		{"all missing", []string{FieldName, FieldPhone, FieldEmail}, nil, NeedAll},
		{"name only", []string{FieldName}, nil, NeedName},
		{"phone only", []string{FieldPhone}, nil, NeedPhone},
		{"email only", []string{FieldEmail}, nil, NeedEmail},
		{"name and phone", []string{FieldName, FieldPhone}, nil, NeedNamePhone},
		{"phone and email", []string{FieldPhone, FieldEmail}, nil, NeedPhoneEmail},
		{"invalid phone wins", []string{FieldPhone}, map[string]string{FieldPhone: "not_mobile"}, RetryPhone},
		{"invalid email wins", []string{FieldEmail, FieldName}, map[string]string{FieldEmail: "bad"}, RetryEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConditionFor(tt.missing, tt.errs); got != tt.want {
				t.Errorf("ConditionFor(%v, %v) = %s, want %s", tt.missing, tt.errs, got, tt.want)
			}
		})
	}
}
