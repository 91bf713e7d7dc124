package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrAccountNotFound indicates that a trading account with the given ID does not exist.
	ErrAccountNotFound = errors.New("trading account not found")

	// ErrOrderNotFound indicates that a share order with the given ID does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrTradeNotFound indicates that a share trade with the given ID does not exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrPortfolioNotFound indicates that a user holds no position in the given trading account.
	ErrPortfolioNotFound = errors.New("portfolio position not found")

	// ErrWalletNotFound indicates that a user has no wallet record.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrSnapshotNotFound indicates that no snapshot exists for the given account and date.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrDistributionLogNotFound indicates that a distribution log record does not exist.
	ErrDistributionLogNotFound = errors.New("distribution log not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrAccountInactive indicates that orders cannot be placed against a deactivated account.
	ErrAccountInactive = errors.New("trading account is inactive")

	// ErrInvalidOrderSide indicates that the order side is neither Buy nor Sell.
	ErrInvalidOrderSide = errors.New("order side must be Buy or Sell")

	// ErrInvalidOrderType indicates a malformed order type, e.g. a Limit
	// order without a limit price.
	ErrInvalidOrderType = errors.New("invalid order type")

	// ErrInvalidQuantity indicates a zero or negative order quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrInvalidPrice indicates a zero or negative limit price.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrInvalidAmount indicates a zero or negative monetary amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds indicates that a buy order exceeds the user's wallet balance.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrInsufficientShares indicates that a sell order or portfolio decrement
	// exceeds the shares currently held.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrOrderNotCancellable indicates that the order is already in a terminal state.
	ErrOrderNotCancellable = errors.New("order is not in a cancellable state")

	// ErrNotOrderOwner indicates that the caller does not own the order.
	ErrNotOrderOwner = errors.New("order belongs to another user")

	// ErrSnapshotExists indicates that a snapshot for the account and date already exists.
	ErrSnapshotExists = errors.New("snapshot already exists for this date")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrEmptyID indicates that a required ID parameter is empty or missing.
	ErrEmptyID = errors.New("ID cannot be empty")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Configuration errors are fatal for the single operation that needed the
// missing reference data, but not for the process.
var (
	// ErrUnknownTransactionType indicates a wallet posting with an unrecognised type.
	ErrUnknownTransactionType = errors.New("unknown wallet transaction type")

	// ErrMissingUserIdentity indicates that the request carried no resolvable user identity.
	ErrMissingUserIdentity = errors.New("missing user identity")
)

// HTTP layer errors used as stable response messages.
var (
	ErrFailedToPlaceOrder           = errors.New("failed to place order")
	ErrFailedToCancelOrder          = errors.New("failed to cancel order")
	ErrFailedToRetrieveOrders       = errors.New("failed to retrieve orders")
	ErrFailedToRetrieveTrades       = errors.New("failed to retrieve trades")
	ErrFailedToRetrieveOrderBook    = errors.New("failed to retrieve order book")
	ErrFailedToRetrievePortfolio    = errors.New("failed to retrieve portfolio")
	ErrFailedToRetrieveWallet       = errors.New("failed to retrieve wallet")
	ErrFailedToRetrieveSnapshots    = errors.New("failed to retrieve snapshots")
	ErrFailedToTriggerSnapshot      = errors.New("failed to trigger snapshot run")
	ErrFailedToRecalculate          = errors.New("failed to recalculate distribution")
	ErrFailedToRetrieveDistribution = errors.New("failed to retrieve distribution history")
	ErrFailedToRecordEAData         = errors.New("failed to record EA data")
)
