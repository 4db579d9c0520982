package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/linkup/internal/apperror"
	"github.com/sakif/linkup/internal/backend"
	"github.com/sakif/linkup/internal/model"
	"github.com/sakif/linkup/internal/validate"
)

// Login authenticates an email/password pair and installs the resulting
// session.
//
// Validation gates run before ANY network call. A phone-shaped identifier is
// recognised but rejected: email is the only supported login identifier
// today, and the rejection is explicit so the decision stays visible rather
// than being folded into a generic invalid-email.
func (o *Orchestrator) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if !validate.Email(identifier) {
		if validate.Phone(identifier) {
			return nil, o.fail("login", apperror.Validation(apperror.ErrInvalidPhone,
				"identifier", "phone number sign-in is not supported"))
		}
		return nil, o.fail("login", apperror.Validation(apperror.ErrInvalidEmail,
			"identifier", "please enter a valid email address"))
	}
	if !validate.PasswordLength(password) {
		return nil, o.fail("login", apperror.Validation(apperror.ErrInvalidCredentials,
			"password", "the password must be at least 6 characters"))
	}

	session, err := o.authenticate(ctx, identifier, password)
	if err != nil {
		return nil, o.fail("login", err)
	}

	if err := o.apply(ctx, session); err != nil {
		return nil, o.fail("login", err)
	}

	o.logger.Info("user logged in",
		slog.String("sessionID", session.ID),
		slog.Bool("proActive", session.ProActive(o.now())),
	)
	return o.result(session)
}

// authenticate resolves the identifier/password pair into a Session
// according to the configured mode.
func (o *Orchestrator) authenticate(ctx context.Context, email, password string) (*model.Session, error) {
	switch o.mode {
	case ModeLocal:
		return o.authenticateLocal(ctx, email, password)
	case ModeRemoteWithFallback:
		session, err := o.authenticateRemote(ctx, email, password)
		if err != nil && errors.Is(err, apperror.ErrNetwork) && o.locals != nil {
			o.logger.Warn("backend unreachable, trying local accounts",
				slog.String("error", err.Error()))
			return o.authenticateLocal(ctx, email, password)
		}
		return session, err
	default:
		return o.authenticateRemote(ctx, email, password)
	}
}

func (o *Orchestrator) authenticateRemote(ctx context.Context, email, password string) (*model.Session, error) {
	if o.backend == nil {
		return nil, apperror.New(apperror.ErrNetwork, "the identity service is not available")
	}

	identity, err := o.backend.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	record, err := o.backend.GetIdentityRecord(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// Authenticated identity with no profile row: auto-provision one
		// from what we know instead of failing the login.
		record, err = o.backend.CreateIdentityRecord(ctx, &model.IdentityRecord{
			ID:             identity.ID,
			Email:          identity.Email,
			Name:           emailLocalPart(identity.Email),
			LikesRemaining: model.GuestLikesSeed,
		})
		if err != nil {
			return nil, err
		}
		o.logger.Info("auto-provisioned identity record",
			slog.String("id", identity.ID))
	}

	// Independent probe: an extended-profile row existing at all counts as
	// setup-completed. The probe itself is best effort — its failure must
	// not fail the login.
	profileExists := false
	if profile, err := o.backend.GetExtendedProfile(ctx, identity.ID); err != nil {
		o.logger.Warn("extended profile probe failed", slog.String("error", err.Error()))
	} else {
		profileExists = profile != nil
	}

	return o.sessionFromRecord(record, profileExists), nil
}

func (o *Orchestrator) authenticateLocal(ctx context.Context, email, password string) (*model.Session, error) {
	if o.locals == nil || o.passwords == nil {
		return nil, apperror.New(apperror.ErrUnknown, "local accounts are not available")
	}

	user, err := o.locals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(apperror.ErrInvalidCredentials,
				"the email or password is incorrect")
		}
		return nil, apperror.Wrap(apperror.ErrUnknown, "something went wrong, please try again", err)
	}
	if err := o.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Wrap(apperror.ErrInvalidCredentials,
			"the email or password is incorrect", err)
	}

	now := o.now()
	return &model.Session{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		CreatedAt:      user.CreatedAt,
		LastLoginAt:    now,
		LikesRemaining: model.GuestLikesSeed,
	}, nil
}

// Register creates a new email/password account, its identity record, and
// the introductory trial entitlement (best effort), then installs the
// session.
func (o *Orchestrator) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	return o.registerLocked(ctx, email, password, name)
}

// registerLocked is the body of Register, shared with UpgradeGuestToRegular
// which already holds opMu.
func (o *Orchestrator) registerLocked(ctx context.Context, email, password, name string) (*AuthResult, error) {
	if !validate.Email(email) {
		return nil, o.fail("register", apperror.Validation(apperror.ErrInvalidEmail,
			"email", "please enter a valid email address"))
	}
	if !validate.PasswordLength(password) {
		return nil, o.fail("register", apperror.Validation(apperror.ErrInvalidCredentials,
			"password", "the password must be at least 6 characters"))
	}
	if name == "" {
		name = emailLocalPart(email)
	}

	session, err := o.signUp(ctx, email, password, name, "")
	if err != nil {
		return nil, o.fail("register", err)
	}

	if err := o.apply(ctx, session); err != nil {
		return nil, o.fail("register", err)
	}

	o.logger.Info("user registered", slog.String("sessionID", session.ID))
	return o.result(session)
}

// RegisterWithPhone registers using a phone identifier instead of an email.
// The backend still requires an email on the record, so a placeholder is
// derived from the phone number.
func (o *Orchestrator) RegisterWithPhone(ctx context.Context, phone, password, name string) (*AuthResult, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	if !validate.Phone(phone) {
		return nil, o.fail("register", apperror.Validation(apperror.ErrInvalidPhone,
			"phone", "please enter a valid phone number"))
	}
	if !validate.PasswordLength(password) {
		return nil, o.fail("register", apperror.Validation(apperror.ErrInvalidCredentials,
			"password", "the password must be at least 6 characters"))
	}

	session, err := o.signUp(ctx, "", password, name, phone)
	if err != nil {
		return nil, o.fail("register", err)
	}

	if err := o.apply(ctx, session); err != nil {
		return nil, o.fail("register", err)
	}

	o.logger.Info("user registered via phone", slog.String("sessionID", session.ID))
	return o.result(session)
}

// signUp performs the mode-appropriate account creation and returns the new
// Session (not yet applied).
func (o *Orchestrator) signUp(ctx context.Context, email, password, name, phone string) (*model.Session, error) {
	if o.mode == ModeLocal {
		return o.signUpLocal(ctx, email, password, name)
	}

	if o.backend == nil {
		return nil, apperror.New(apperror.ErrNetwork, "the identity service is not available")
	}

	identifier := email
	if identifier == "" {
		identifier = phone
	}

	identity, err := o.backend.SignUp(ctx, identifier, password, backend.SignUpAttributes{
		Name:  name,
		Phone: phone,
	})
	if err != nil {
		return nil, err
	}
	if email == "" {
		email = identity.Email
	}

	record, err := o.backend.CreateIdentityRecord(ctx, &model.IdentityRecord{
		ID:             identity.ID,
		Email:          email,
		Name:           name,
		Phone:          phone,
		LikesRemaining: model.GuestLikesSeed,
	})
	if err != nil {
		return nil, err
	}

	// Best-effort trial grant: a missing trial is an inconvenience, a failed
	// registration is a lost user.
	if err := o.backend.GrantTrialEntitlement(ctx, identity.ID); err != nil {
		o.logger.Warn("trial entitlement grant failed",
			slog.String("id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	// Fresh accounts always start with profile setup incomplete.
	session := o.sessionFromRecord(record, false)
	session.ProfileSetupCompleted = false
	return session, nil
}

func (o *Orchestrator) signUpLocal(ctx context.Context, email, password, name string) (*model.Session, error) {
	if o.locals == nil || o.passwords == nil {
		return nil, apperror.New(apperror.ErrUnknown, "local accounts are not available")
	}

	hash, err := o.passwords.Hash(password)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrUnknown, "something went wrong, please try again", err)
	}

	user := &model.LocalUser{Email: email, Name: name, PasswordHash: hash}
	if err := o.locals.Create(ctx, user); err != nil {
		return nil, err // Create already classifies duplicates
	}

	now := o.now()
	return &model.Session{
		ID:             user.ID,
		Email:          email,
		Name:           name,
		CreatedAt:      now,
		LastLoginAt:    now,
		LikesRemaining: model.GuestLikesSeed,
	}, nil
}

// UpgradeGuestToRegular converts the current guest session into a full
// account. Anything other than a live guest session is an immediate no-op
// failure.
func (o *Orchestrator) UpgradeGuestToRegular(ctx context.Context, email, password, name string) (*AuthResult, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	current := o.CurrentUser()
	if current == nil || !current.IsGuest {
		return nil, o.fail("upgrade", apperror.New(apperror.ErrForbidden,
			"only a guest session can be upgraded"))
	}

	result, err := o.registerLocked(ctx, email, password, name)
	if err != nil {
		return nil, err // registerLocked already reported it
	}

	// The new identity supersedes the guest; its local record is cleanup,
	// not correctness.
	if o.locals != nil {
		if err := o.locals.Delete(ctx, current.ID); err != nil {
			o.logger.Warn("removing upgraded guest record failed",
				slog.String("guestID", current.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	o.logger.Info("guest upgraded",
		slog.String("guestID", current.ID),
		slog.String("sessionID", result.Session.ID),
	)
	return result, nil
}
