package request

type DepositRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type WithdrawRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}
