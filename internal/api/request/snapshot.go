package request

type TriggerSnapshotRequest struct {
	TargetDate        string   `json:"targetDate"`
	TradingAccountIDs []string `json:"tradingAccountIds,omitempty"`
	ForceRecalculate  bool     `json:"forceRecalculate"`
	Reason            string   `json:"reason,omitempty"`
}

type RecalculateDistributionRequest struct {
	TradingAccountID string `json:"tradingAccountId"`
	SnapshotDate     string `json:"snapshotDate"`
	ReverseExisting  bool   `json:"reverseExisting"`
}
