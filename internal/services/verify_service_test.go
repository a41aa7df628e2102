package services

import (
	"context"
	"errors"
	"testing"

	"github.com/livestock-marketplace/backend/internal/config"
	"github.com/livestock-marketplace/backend/internal/models"
	"github.com/livestock-marketplace/backend/internal/registry"
	"github.com/livestock-marketplace/backend/internal/repositories"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	animal *registry.AnimalRecord
	err    error
}

func (f *fakeRegistry) FetchAnimal(_ context.Context, tagID string) (*registry.AnimalRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	a := *f.animal
	a.TagID = tagID
	return &a, nil
}

func newVerifyEnv(t *testing.T, reg registryLookup) (*testEnv, *VerifyService) {
	t.Helper()
	env := newTestEnv(t, nil)
	vs := NewVerifyService(env.svc, env.logs, reg, env.submitter, env.publisher, env.cfg, zap.NewNop())
	return env, vs
}

func TestVerifyProvenance(t *testing.T) {
	env, vs := newVerifyEnv(t, &fakeRegistry{
		animal: &registry.AnimalRecord{Registered: true, Breed: "Charolais", Holding: "FR-8812"},
	})
	env.mustCreate(t, "TX-1")

	res, err := vs.VerifyProvenance(context.Background(), "TX-1", "FR-1234567890")
	if err != nil {
		t.Fatalf("VerifyProvenance: %v", err)
	}
	if !res.Animal.Registered || res.Animal.Breed != "Charolais" {
		t.Errorf("unexpected animal: %+v", res.Animal)
	}
	if !res.ConsensusConfirmed || res.ConsensusProofID == nil {
		t.Error("verify event should be proven on the provenance topic")
	}

	// A verify entry lands on the provenance topic and never moves the
	// lifecycle or the record-side proof.
	var verifyEntry *models.EscrowLogEntry
	for _, e := range env.logs.byTransaction("TX-1") {
		if e.EventType == models.EventTypeVerify {
			verifyEntry = e
		}
	}
	if verifyEntry == nil {
		t.Fatal("verify attempt not logged")
	}
	if verifyEntry.TopicReference != config.TopicProvenance {
		t.Errorf("topic = %q, want %q", verifyEntry.TopicReference, config.TopicProvenance)
	}
	if verifyEntry.ConsensusProofID == nil {
		t.Error("verify entry should carry its proof")
	}

	rec, _ := env.store.GetByID(context.Background(), "TX-1")
	if rec.Status != models.EscrowStatusPending {
		t.Errorf("status = %q, verification must not touch the lifecycle", rec.Status)
	}
	if rec.ConsensusProofID == nil || *rec.ConsensusProofID == *verifyEntry.ConsensusProofID {
		t.Error("verify proof must stay log-only, not replace the record proof")
	}
}

func TestVerifyProvenanceUnknownEscrow(t *testing.T) {
	_, vs := newVerifyEnv(t, &fakeRegistry{animal: &registry.AnimalRecord{Registered: true}})

	_, err := vs.VerifyProvenance(context.Background(), "NOPE", "FR-1234567890")
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyProvenanceRegistryDown(t *testing.T) {
	env, vs := newVerifyEnv(t, &fakeRegistry{err: errors.New("registry unreachable")})
	env.mustCreate(t, "TX-1")
	entriesBefore := len(env.logs.byTransaction("TX-1"))

	if _, err := vs.VerifyProvenance(context.Background(), "TX-1", "FR-1234567890"); err == nil {
		t.Fatal("expected error when the registry is unreachable")
	}
	if got := len(env.logs.byTransaction("TX-1")); got != entriesBefore {
		t.Error("a failed registry lookup must not log a verify attempt")
	}
}
