// Package passkey implements credential registration and login ceremonies.
// Challenge issuance and response verification are delegated to the
// go-webauthn library; this package owns the in-flight challenge store and
// the mapping between library credentials and stored passkey rows.
package passkey

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/logging"
	"github.com/vaultkey/vaultkey/internal/models"
	passkeysrepo "github.com/vaultkey/vaultkey/internal/repositories/passkeys"
	usersrepo "github.com/vaultkey/vaultkey/internal/repositories/users"
)

// Config identifies the relying party presented to authenticators.
type Config struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
}

// Service runs registration and login ceremonies against the user and
// passkey repositories.
type Service struct {
	web        *webauthn.WebAuthn
	users      usersrepo.Repository
	passkeys   passkeysrepo.Repository
	challenges *ChallengeStore
	log        logging.Logger
}

// NewService constructs a ceremony service for the given relying party.
func NewService(cfg Config, users usersrepo.Repository, passkeys passkeysrepo.Repository, log logging.Logger) (*Service, error) {
	web, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, common.NewValidationError("Invalid relying party configuration")
	}
	return &Service{
		web:        web,
		users:      users,
		passkeys:   passkeys,
		challenges: NewChallengeStore(),
		log:        log,
	}, nil
}

// ceremonyUser adapts a vault user and its stored passkeys to the shape the
// ceremony library expects.
type ceremonyUser struct {
	id    string
	creds []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte                         { return []byte(u.id) }
func (u *ceremonyUser) WebAuthnName() string                       { return u.id }
func (u *ceremonyUser) WebAuthnDisplayName() string                { return u.id }
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }
func (u *ceremonyUser) WebAuthnIcon() string                       { return "" }

func (s *Service) loadCeremonyUser(ctx context.Context, userID string) (*ceremonyUser, error) {
	rows, err := s.passkeys.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	creds := make([]webauthn.Credential, 0, len(rows))
	for _, row := range rows {
		cred, err := credentialFromRow(row)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *cred)
	}
	return &ceremonyUser{id: userID, creds: creds}, nil
}

// BeginRegistration starts a registration ceremony, creating the user row on
// first contact. The returned options are sent to the browser; the pending
// session replaces any earlier unfinished ceremony for the same user.
func (s *Service) BeginRegistration(ctx context.Context, userID string) (*protocol.CredentialCreation, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if err := s.users.Create(ctx, userID); err != nil {
			return nil, err
		}
		s.log.Info(ctx, "user created", "userId", userID)
	}

	cu, err := s.loadCeremonyUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Exclude already-registered credentials so the authenticator offers a
	// fresh one.
	exclusions := make([]protocol.CredentialDescriptor, 0, len(cu.creds))
	for _, cred := range cu.creds {
		exclusions = append(exclusions, cred.Descriptor())
	}

	options, session, err := s.web.BeginRegistration(cu, webauthn.WithExclusions(exclusions))
	if err != nil {
		return nil, common.NewAuthenticationError("Failed to start registration")
	}

	s.challenges.Put(userID, *session)
	return options, nil
}

// FinishRegistration verifies the browser's attestation response and persists
// the new passkey. The pending challenge is consumed regardless of outcome.
func (s *Service) FinishRegistration(ctx context.Context, userID string, r *http.Request) (*models.Passkey, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}

	session, ok := s.challenges.Take(userID)
	if !ok {
		return nil, common.NewAuthenticationError("Challenge expired or not found")
	}

	cu, err := s.loadCeremonyUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cred, err := s.web.FinishRegistration(cu, session, r)
	if err != nil {
		return nil, common.NewAuthenticationError("Registration verification failed")
	}

	row, err := rowFromCredential(userID, cred)
	if err != nil {
		return nil, err
	}
	created, err := s.passkeys.Create(ctx, row)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "passkey registered", "userId", userID, "credentialId", created.CredentialID)
	return created, nil
}

// BeginLogin starts a login ceremony for a user that has at least one
// registered passkey.
func (s *Service) BeginLogin(ctx context.Context, userID string) (*protocol.CredentialAssertion, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, common.NewAuthenticationError("User not found: " + userID)
	}

	cu, err := s.loadCeremonyUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cu.creds) == 0 {
		return nil, common.NewAuthenticationError("No passkeys registered for user: " + userID)
	}

	options, session, err := s.web.BeginLogin(cu)
	if err != nil {
		return nil, common.NewAuthenticationError("Failed to start authentication")
	}

	s.challenges.Put(userID, *session)
	return options, nil
}

// FinishLogin verifies the browser's assertion response. On success the
// passkey's signature counter and last-used time are updated along with the
// user's last login, and the authenticated user id is returned.
func (s *Service) FinishLogin(ctx context.Context, userID string, r *http.Request) (string, error) {
	if err := common.ValidateUserID(userID); err != nil {
		return "", err
	}

	session, ok := s.challenges.Take(userID)
	if !ok {
		return "", common.NewAuthenticationError("Challenge expired or not found")
	}

	cu, err := s.loadCeremonyUser(ctx, userID)
	if err != nil {
		return "", err
	}

	cred, err := s.web.FinishLogin(cu, session, r)
	if err != nil {
		return "", common.NewAuthenticationError("Authentication verification failed")
	}

	credentialID := base64.RawURLEncoding.EncodeToString(cred.ID)
	row, err := s.passkeys.GetByCredentialID(ctx, credentialID)
	if err != nil {
		return "", err
	}
	if row != nil {
		if err := s.passkeys.UpdateCounter(ctx, row.ID, cred.Authenticator.SignCount); err != nil {
			return "", err
		}
		if err := s.passkeys.UpdateLastUsed(ctx, row.ID); err != nil {
			return "", err
		}
	}
	if err := s.users.UpdateLastLogin(ctx, userID); err != nil {
		return "", err
	}

	s.log.Info(ctx, "user authenticated", "userId", userID)
	return userID, nil
}

// rowFromCredential maps a verified library credential onto a passkey row.
func rowFromCredential(userID string, cred *webauthn.Credential) (*models.Passkey, error) {
	deviceType := models.DeviceTypeSingle
	if cred.Flags.BackupEligible {
		deviceType = models.DeviceTypeMulti
	}

	var transports *string
	if len(cred.Transport) > 0 {
		b, err := json.Marshal(cred.Transport)
		if err != nil {
			return nil, common.NewValidationError("Invalid credential transports")
		}
		v := string(b)
		transports = &v
	}

	return &models.Passkey{
		UserID:       userID,
		CredentialID: base64.RawURLEncoding.EncodeToString(cred.ID),
		PublicKey:    base64.StdEncoding.EncodeToString(cred.PublicKey),
		Counter:      cred.Authenticator.SignCount,
		DeviceType:   deviceType,
		BackedUp:     cred.Flags.BackupState,
		Transports:   transports,
	}, nil
}

// credentialFromRow rebuilds a library credential from a stored passkey row.
func credentialFromRow(row *models.Passkey) (*webauthn.Credential, error) {
	id, err := base64.RawURLEncoding.DecodeString(row.CredentialID)
	if err != nil {
		return nil, common.NewCryptoError("Invalid stored credential ID")
	}
	publicKey, err := base64.StdEncoding.DecodeString(row.PublicKey)
	if err != nil {
		return nil, common.NewCryptoError("Invalid stored credential public key")
	}

	var transport []protocol.AuthenticatorTransport
	if row.Transports != nil {
		if err := json.Unmarshal([]byte(*row.Transports), &transport); err != nil {
			return nil, common.NewCryptoError("Invalid stored credential transports")
		}
	}

	return &webauthn.Credential{
		ID:        id,
		PublicKey: publicKey,
		Transport: transport,
		Flags: webauthn.CredentialFlags{
			BackupEligible: row.DeviceType == models.DeviceTypeMulti,
			BackupState:    row.BackedUp,
		},
		Authenticator: webauthn.Authenticator{
			SignCount: row.Counter,
		},
	}, nil
}
