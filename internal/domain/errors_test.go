package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Invalid("Paramètres manquants"), KindInvalid},
		{NotFound("Livre non trouvé"), KindNotFound},
		{Unprocessable("Limite de 4 emprunts atteinte"), KindUnprocessable},
		{Conflict("Impossible de supprimer"), KindConflict},
		{Internal(errors.New("boom")), KindInternal},
		{errors.New("plain"), KindInternal},
		{fmt.Errorf("wrapped: %w", NotFound("Auteur non trouvé")), KindNotFound},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Internal(cause)

	if err.Message != "Une erreur est survenue" {
		t.Fatalf("unexpected client message %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause should stay reachable for logging")
	}
}

func TestRetryable(t *testing.T) {
	plain := Conflict("Impossible de supprimer un auteur avec des livres associés")
	if plain.Retryable() {
		t.Fatalf("delete conflicts are not retryable")
	}

	txConflict := &Error{
		Kind:    KindConflict,
		Message: "Conflit de transactions, veuillez réessayer",
		Err:     errors.New("pq: deadlock detected"),
	}
	if !txConflict.Retryable() {
		t.Fatalf("engine conflicts should be retryable")
	}
}
