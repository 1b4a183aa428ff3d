package domain

// KPI event names emitted to the analytics stream.
const (
	EventOrderCompleted     = "order_completed"
	EventReferralConverted  = "referral_converted"
	EventReviewApproved     = "review_approved"
	EventFridgeSale         = "fridge_sale"
	EventFridgeDailySales   = "fridge_daily_sales"
	EventFridgeRestockAlert = "fridge_restock_alert"
)
