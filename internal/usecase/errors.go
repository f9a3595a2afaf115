package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/pickup-matchmaking/internal/domain/challenge"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/formation"
	"github.com/riskibarqy/pickup-matchmaking/internal/domain/roster"
)

// Error classes. Adapters render by class; every kind below wraps exactly one of them.
var (
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrExternalUnavailable = errors.New("external dependency unavailable")
)

var (
	ErrInvalidInput         = fmt.Errorf("%w: invalid input", ErrValidation)
	ErrNotAMatchmakingVenue = fmt.Errorf("%w: not a matchmaking venue", ErrValidation)
	ErrInvalidPosition      = fmt.Errorf("%w: invalid position", ErrValidation)
	ErrInvalidFormat        = fmt.Errorf("%w: invalid format", ErrValidation)
	ErrNotSigned            = fmt.Errorf("%w: player not signed", ErrValidation)
	ErrNotMarkedReady       = fmt.Errorf("%w: player not marked ready", ErrValidation)
	ErrNotTargetedTeam      = fmt.Errorf("%w: only the challenged team can respond", ErrValidation)

	ErrPositionTaken              = fmt.Errorf("%w: position taken", ErrConflict)
	ErrPlayerAlreadySigned        = fmt.Errorf("%w: player already signed", ErrConflict)
	ErrAlreadyReady               = fmt.Errorf("%w: player already ready", ErrConflict)
	ErrDuplicateOutgoingChallenge = fmt.Errorf("%w: team already has an outgoing challenge for this format", ErrConflict)
	ErrCooldownActive             = fmt.Errorf("%w: cooldown active", ErrConflict)
	ErrVenueBusy                  = fmt.Errorf("%w: venue is busy with another challenge", ErrConflict)

	ErrNotReady           = fmt.Errorf("%w: teams are not ready", ErrPreconditionFailed)
	ErrNoRecipients       = fmt.Errorf("%w: no eligible recipients", ErrPreconditionFailed)
	ErrChallengeNotFound  = fmt.Errorf("%w: challenge not found", ErrPreconditionFailed)
	ErrChallengeState     = fmt.Errorf("%w: challenge cannot move from its current status", ErrPreconditionFailed)
	ErrNotChallengeMember = fmt.Errorf("%w: venue is not part of this challenge", ErrPreconditionFailed)

	ErrServerUnavailable = fmt.Errorf("%w: no game server available", ErrExternalUnavailable)
	ErrRegistryFailure   = fmt.Errorf("%w: team registry", ErrExternalUnavailable)
)

// CooldownError reports how long a rate-limited action stays blocked.
type CooldownError struct {
	Scope     string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s is on cooldown, try again in %s", e.Scope, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// kindError attaches a usecase kind to an underlying cause while keeping the cause's message.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

func withKind(kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &kindError{kind: kind, cause: cause}
}

// mapDomainError translates domain sentinels into usecase kinds. Unknown errors pass through.
func mapDomainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, roster.ErrInvalidTeam):
		return withKind(ErrInvalidInput, err)
	case errors.Is(err, roster.ErrInvalidPosition), errors.Is(err, formation.ErrUnknownPosition):
		return withKind(ErrInvalidPosition, err)
	case errors.Is(err, formation.ErrUnknownFormat):
		return withKind(ErrInvalidFormat, err)
	case errors.Is(err, roster.ErrPositionTaken):
		return withKind(ErrPositionTaken, err)
	case errors.Is(err, roster.ErrPlayerAlreadySigned):
		return withKind(ErrPlayerAlreadySigned, err)
	case errors.Is(err, roster.ErrNotSigned):
		return withKind(ErrNotSigned, err)
	case errors.Is(err, roster.ErrAlreadyReady):
		return withKind(ErrAlreadyReady, err)
	case errors.Is(err, roster.ErrNotReady):
		return withKind(ErrNotMarkedReady, err)
	case errors.Is(err, challenge.ErrInvalidTransition):
		return withKind(ErrChallengeState, err)
	default:
		return err
	}
}
