package contracts

type OrderCompletedRequest struct {
	OrderID string `json:"order_id"`
}

type ReferralConvertedRequest struct {
	ReferralID string `json:"referral_id"`
}

type ReviewApprovedRequest struct {
	ReviewID string `json:"review_id"`
}

type CreditResponse struct {
	Credited         bool    `json:"credited"`
	AlreadyProcessed bool    `json:"already_processed,omitempty"`
	CapReached       bool    `json:"cap_reached,omitempty"`
	Amount           float64 `json:"amount"`
	Rate             float64 `json:"rate,omitempty"`
}

type PaymentIngestResponse struct {
	PaymentID       string  `json:"payment_id,omitempty"`
	StripePaymentID string  `json:"stripe_payment_id,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	Duplicate       bool    `json:"duplicate,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type AnalysisResponse struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

type DailyReportResponse struct {
	SalesFridges  int `json:"sales_fridges"`
	RestockAlerts int `json:"restock_alerts"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
