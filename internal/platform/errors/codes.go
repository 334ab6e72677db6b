// Package errors provides structured error handling for the arena engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Definition errors
	CodeDefinitionInvalid       Code = "DEFINITION_INVALID"
	CodeDefinitionNameEmpty     Code = "DEFINITION_NAME_EMPTY"
	CodeDefinitionNoPhases      Code = "DEFINITION_NO_PHASES"
	CodeDefinitionBadPhaseRef   Code = "DEFINITION_BAD_PHASE_REF"
	CodeDefinitionBadRoleRef    Code = "DEFINITION_BAD_ROLE_REF"
	CodeDefinitionBadActionRef  Code = "DEFINITION_BAD_ACTION_REF"
	CodeDefinitionPlayerBounds  Code = "DEFINITION_PLAYER_BOUNDS"
	CodeDefinitionRoleCounts    Code = "DEFINITION_ROLE_COUNTS"
	CodeDefinitionDuplicateName Code = "DEFINITION_DUPLICATE_NAME"

	// Session errors
	CodeSessionNotActive         Code = "SESSION_NOT_ACTIVE"
	CodeSessionInvalidTransition Code = "SESSION_INVALID_STATUS_TRANSITION"
	CodeSessionEmptyDefinitionID Code = "SESSION_EMPTY_DEFINITION_ID"
	CodeSessionStateTooLarge     Code = "SESSION_STATE_TOO_LARGE"
	CodeSessionPhaseUnknown      Code = "SESSION_PHASE_UNKNOWN"
	CodeSessionAlreadyFinished   Code = "SESSION_ALREADY_FINISHED"

	// Action errors
	CodeActionUnknown         Code = "ACTION_UNKNOWN"
	CodeActionPhaseDisallowed Code = "ACTION_PHASE_DISALLOWED"
	CodeActionRoleDisallowed  Code = "ACTION_ROLE_DISALLOWED"
	CodeActionActorDisallowed Code = "ACTION_ACTOR_DISALLOWED"
	CodeActionHumanOnly       Code = "ACTION_HUMAN_ONLY"
	CodeActionAgentOnly       Code = "ACTION_AGENT_ONLY"

	// Participant errors
	CodeParticipantEmptySessionID Code = "PARTICIPANT_EMPTY_SESSION_ID"
	CodeParticipantEmptyUserID    Code = "PARTICIPANT_EMPTY_USER_ID"
	CodeParticipantRoleUnknown    Code = "PARTICIPANT_ROLE_UNKNOWN"
	CodeParticipantRoleFull       Code = "PARTICIPANT_ROLE_FULL"
	CodeParticipantInvalidMode    Code = "PARTICIPANT_INVALID_CONTROL_MODE"
	CodeParticipantSelfTransition Code = "PARTICIPANT_CONTROL_MODE_SELF_TRANSITION"

	// Agent bridge errors
	CodeAgentUnreachable     Code = "AGENT_UNREACHABLE"
	CodeAgentReplyUnparsable Code = "AGENT_REPLY_UNPARSABLE"
	CodeAgentNotBound        Code = "AGENT_NOT_BOUND"

	// Invite errors
	CodeInviteJoinGrantInvalid  Code = "INVITE_JOIN_GRANT_INVALID"
	CodeInviteJoinGrantExpired  Code = "INVITE_JOIN_GRANT_EXPIRED"
	CodeInviteJoinGrantMismatch Code = "INVITE_JOIN_GRANT_MISMATCH"

	// Economy errors
	CodeSettlementAlreadyApplied Code = "SETTLEMENT_ALREADY_APPLIED"
	CodeSettlementBadRankTable   Code = "SETTLEMENT_BAD_RANK_TABLE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeDefinitionInvalid,
		CodeDefinitionNameEmpty,
		CodeDefinitionNoPhases,
		CodeDefinitionBadPhaseRef,
		CodeDefinitionBadRoleRef,
		CodeDefinitionBadActionRef,
		CodeDefinitionPlayerBounds,
		CodeDefinitionRoleCounts,
		CodeDefinitionDuplicateName,
		CodeSessionEmptyDefinitionID,
		CodeActionUnknown,
		CodeParticipantEmptySessionID,
		CodeParticipantEmptyUserID,
		CodeParticipantRoleUnknown,
		CodeParticipantInvalidMode,
		CodeInviteJoinGrantInvalid,
		CodeInviteJoinGrantMismatch,
		CodeSettlementBadRankTable:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow the operation
	case CodeSessionNotActive,
		CodeSessionInvalidTransition,
		CodeSessionAlreadyFinished,
		CodeSessionPhaseUnknown,
		CodeActionPhaseDisallowed,
		CodeActionRoleDisallowed,
		CodeActionActorDisallowed,
		CodeActionHumanOnly,
		CodeActionAgentOnly,
		CodeParticipantRoleFull,
		CodeParticipantSelfTransition,
		CodeInviteJoinGrantExpired,
		CodeSettlementAlreadyApplied:
		return codes.FailedPrecondition

	// ResourceExhausted - the state blob hit its size ceiling
	case CodeSessionStateTooLarge:
		return codes.ResourceExhausted

	// Unavailable - the remote agent is not connected
	case CodeAgentUnreachable,
		CodeAgentNotBound:
		return codes.Unavailable

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
