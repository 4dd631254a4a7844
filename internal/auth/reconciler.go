package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/brahmamatch/server/internal/model"
	"github.com/brahmamatch/server/internal/repo"
)

// ErrVerificationRejected signals a clean not-approved provider outcome. No
// identity state changes when it is returned.
var ErrVerificationRejected = errors.New("verification not approved")

// Identifier assignment retries. One read-back normally resolves the race;
// the extra rounds only matter if the random candidate id itself collides.
const assignRetries = 3

// NewUserID generates a 24-character lowercase hex identifier.
func NewUserID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process is unusable anyway.
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

// Reconciler converges concurrent OTP send/verify attempts on one consistent
// identity per phone. All coordination happens through the store's atomic
// primitives; the reconciler never holds in-process locks across store calls.
type Reconciler struct {
	identities repo.IdentityRepo
}

// NewReconciler creates a reconciler over the given identity store.
func NewReconciler(identities repo.IdentityRepo) *Reconciler {
	return &Reconciler{identities: identities}
}

// InitiateSend records an OTP send attempt: creates the record on first
// contact and refreshes last_otp_sent_at in all cases. Concurrent sends are
// commutative; created_at is write-once.
func (r *Reconciler) InitiateSend(ctx context.Context, phone string, now time.Time) error {
	return r.identities.UpsertOnSend(ctx, phone, now)
}

// CompleteVerification applies the verification outcome to the identity
// record and returns a fresh read-back snapshot, so the caller always
// observes the user_id that actually won.
//
// A phone with no record (verification approved without a prior send) is
// treated as a fresh, fully verified registration. A record without a user_id
// gets a candidate assigned; whether this call's candidate wins or a
// concurrent caller's does, the stored id is adopted.
func (r *Reconciler) CompleteVerification(ctx context.Context, phone string, approved bool, now time.Time) (model.Identity, error) {
	if !approved {
		return model.Identity{}, ErrVerificationRejected
	}

	_, err := r.identities.GetByPhone(ctx, phone)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		created, cerr := r.identities.CreateVerified(ctx, phone, NewUserID(), now)
		if cerr != nil {
			return model.Identity{}, fmt.Errorf("create verified identity: %w", cerr)
		}
		if created {
			return r.identities.GetByPhone(ctx, phone)
		}
		// Lost the create race; the record exists now, fall through to attach.
	case err != nil:
		return model.Identity{}, fmt.Errorf("load identity: %w", err)
	}

	for i := 0; i < assignRetries; i++ {
		ident, err := r.identities.GetByPhone(ctx, phone)
		if err != nil {
			return model.Identity{}, fmt.Errorf("load identity: %w", err)
		}
		if ident.HasUserID() {
			break
		}
		if _, err := r.identities.AssignUserIDIfAbsent(ctx, phone, NewUserID()); err != nil {
			return model.Identity{}, fmt.Errorf("assign user id: %w", err)
		}
	}

	if err := r.identities.MarkVerifiedLogin(ctx, phone, now); err != nil {
		return model.Identity{}, fmt.Errorf("mark verified login: %w", err)
	}

	ident, err := r.identities.GetByPhone(ctx, phone)
	if err != nil {
		return model.Identity{}, fmt.Errorf("read back identity: %w", err)
	}
	return ident, nil
}
