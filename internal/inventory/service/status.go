package service

import "github.com/medflow/drug-warehouse/internal/inventory/repository"

// DefaultExpiryWarningDays is the expiring-soon window when none is configured
const DefaultExpiryWarningDays = 30

// DeriveStatus computes the shelf-life status of a batch as of today.
//
// Empty batches are not tracked and keep their status, as do quarantined ones.
// Otherwise a batch past its expiry date is expired, one expiring before
// today+warningDays is expiring soon, and anything later is normal.
// A batch expiring exactly warningDays from today is normal.
func DeriveStatus(expiry, today repository.Date, quantity int, current repository.Status, warningDays int) repository.Status {
	if quantity == 0 || current == repository.StatusQuarantined {
		return current
	}
	if warningDays <= 0 {
		warningDays = DefaultExpiryWarningDays
	}

	switch {
	case expiry.Before(today):
		return repository.StatusExpired
	case expiry.Before(today.AddDays(warningDays)):
		return repository.StatusExpiringSoon
	default:
		return repository.StatusNormal
	}
}
