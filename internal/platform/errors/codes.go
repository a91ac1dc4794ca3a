// Package errors provides structured error handling for the world service.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Player errors
	CodePlayerEmptyID Code = "PLAYER_EMPTY_ID"

	// Location errors
	CodeLocationEmptyID  Code = "LOCATION_EMPTY_ID"
	CodeLocationArchived Code = "LOCATION_ARCHIVED"
	CodeLocationNoCoords Code = "LOCATION_NO_COORDINATES"

	// Encounter errors
	CodeEncounterEmptyID     Code = "ENCOUNTER_EMPTY_ID"
	CodeEncounterInactive    Code = "ENCOUNTER_INACTIVE"
	CodeEncounterCeiling     Code = "ENCOUNTER_CEILING_REACHED"
	CodeEncounterInvalidTier Code = "ENCOUNTER_INVALID_TIER"

	// Travel errors
	CodeTravelNotDue Code = "TRAVEL_NOT_DUE"

	// Balance/config errors
	CodeBalanceInvalidWeights Code = "BALANCE_INVALID_TIER_WEIGHTS"
	CodeBalanceInvalidRate    Code = "BALANCE_INVALID_RATE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodePlayerEmptyID,
		CodeLocationEmptyID,
		CodeEncounterEmptyID,
		CodeEncounterInvalidTier,
		CodeBalanceInvalidWeights,
		CodeBalanceInvalidRate:
		return codes.InvalidArgument

	// NotFound - missing rows
	case CodeNotFound:
		return codes.NotFound

	// FailedPrecondition - state disallows the operation
	case CodeLocationArchived,
		CodeLocationNoCoords,
		CodeEncounterInactive,
		CodeEncounterCeiling,
		CodeTravelNotDue:
		return codes.FailedPrecondition

	default:
		return codes.Internal
	}
}
