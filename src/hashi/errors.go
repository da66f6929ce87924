package hashi

import "errors"

var (
	// ErrThresholdNotMet is returned when no hash is reported by at least
	// threshold adapters.
	ErrThresholdNotMet = errors.New("ThresholdNotMet")
	// ErrInvalidThreshold is returned when the threshold exceeds the number
	// of records provided.
	ErrInvalidThreshold = errors.New("InvalidThreshold")
	// ErrNoAccountsProvided is returned when no record is provided.
	ErrNoAccountsProvided = errors.New("NoAccountsProvided")
	// ErrInvalidAdapterId is returned when a record was not written by the
	// adapter expected at its position.
	ErrInvalidAdapterId = errors.New("InvalidAdapterId")
	// ErrInvalidAdapterIdsLength is returned when there are not as many
	// adapter ids as records.
	ErrInvalidAdapterIdsLength = errors.New("InvalidAdapterIdsLength")
	// ErrInvalidDomain is returned when a record is for another domain.
	ErrInvalidDomain = errors.New("InvalidDomain")
	// ErrInvalidId is returned when a record is for another id.
	ErrInvalidId = errors.New("InvalidId")
)
