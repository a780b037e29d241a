package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"validation":          {err: Validationf("bad input"), want: "validation"},
		"invalid state":       {err: InvalidStatef("round is %s", "COMPLETED"), want: "invalid_state"},
		"conflict":            {err: Conflictf("duplicate pick"), want: "conflict"},
		"insufficient credit": {err: fmt.Errorf("%w: balance would go negative", ErrInsufficientCredit), want: "insufficient_credit"},
		"not found":           {err: NotFoundf("no such league"), want: "not_found"},
		"forbidden":           {err: Forbiddenf("not the admin"), want: "forbidden"},
		"wrapped twice":       {err: fmt.Errorf("submit: %w", Conflictf("duplicate pick")), want: "conflict"},
		"plain error":         {err: errors.New("pg: connection refused"), want: "internal"},
		"nil-adjacent":        {err: fmt.Errorf("boom"), want: "internal"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.want {
				t.Errorf("kind incorrect, wanted: %s, got: %s", tc.want, got)
			}
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	err := Validationf("price %d is negative", -5)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("formatted error must match its sentinel")
	}
	if err.Error() != "validation failed: price -5 is negative" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
