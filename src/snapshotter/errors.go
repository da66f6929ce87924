package snapshotter

import "errors"

var (
	// ErrAccountAlreadySubscribed is returned by Subscribe for an account that
	// is already in the registry.
	ErrAccountAlreadySubscribed = errors.New("AccountAlreadySubscribed")
	// ErrInvalidBatch is returned by CalculateRoot when the batch index is not
	// the expected one.
	ErrInvalidBatch = errors.New("InvalidBatch")
	// ErrInvalidRemainingAccountsLength is returned by CalculateRoot when the
	// number of snapshots does not fit the batch.
	ErrInvalidRemainingAccountsLength = errors.New("InvalidRemainingAccountsLength")
	// ErrInvalidSubscribedAccount is returned by CalculateRoot when a snapshot
	// does not match the subscribed account at its position.
	ErrInvalidSubscribedAccount = errors.New("InvalidSubscribedAccount")
	// ErrRootNotFinalized is returned when reading the finalized root while a
	// pass is in progress.
	ErrRootNotFinalized = errors.New("RootNotFinalized")
)

// reason returns the name of a validation error, for metrics labels.
func reason(err error) string {
	for _, e := range []error{
		ErrInvalidBatch,
		ErrInvalidRemainingAccountsLength,
		ErrInvalidSubscribedAccount,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "Other"
}
