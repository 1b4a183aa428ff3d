package postgres

import "time"

type ledgerEntryModel struct {
	EntryID    string    `gorm:"column:entry_id;type:uuid;primaryKey"`
	UserID     string    `gorm:"column:user_id;type:uuid"`
	Type       string    `gorm:"column:type"`
	Amount     float64   `gorm:"column:amount;type:numeric(12,2)"`
	OrderID    *string   `gorm:"column:order_id"`
	ReferralID *string   `gorm:"column:referral_id"`
	ReviewID   *string   `gorm:"column:review_id"`
	Note       string    `gorm:"column:note"`
	Meta       *string   `gorm:"column:meta;type:jsonb"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (ledgerEntryModel) TableName() string { return "lean_transactions" }

type walletModel struct {
	UserID    string    `gorm:"column:user_id;type:uuid;primaryKey"`
	Balance   float64   `gorm:"column:balance;type:numeric(12,2)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (walletModel) TableName() string { return "wallets" }

type personalizationModel struct {
	UserID         string    `gorm:"column:user_id;type:uuid;primaryKey"`
	BaseMultiplier float64   `gorm:"column:base_multiplier;type:numeric(4,2)"`
	StreakWeeks    int       `gorm:"column:streak_weeks"`
	RetentionScore int       `gorm:"column:retention_score"`
	NextMessage    string    `gorm:"column:next_message"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (personalizationModel) TableName() string { return "ai_personalization" }

type fridgePaymentModel struct {
	PaymentID       string    `gorm:"column:payment_id;type:uuid;primaryKey"`
	StripePaymentID string    `gorm:"column:stripe_payment_id"`
	Amount          float64   `gorm:"column:amount;type:numeric(12,2)"`
	Currency        string    `gorm:"column:currency"`
	FridgeID        string    `gorm:"column:fridge_id"`
	Meta            *string   `gorm:"column:meta;type:jsonb"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (fridgePaymentModel) TableName() string { return "fridge_payments" }

type kpiEventModel struct {
	EventID   string    `gorm:"column:event_id;type:uuid;primaryKey"`
	Event     string    `gorm:"column:event"`
	UserID    *string   `gorm:"column:user_id"`
	OrderID   *string   `gorm:"column:order_id"`
	Amount    *float64  `gorm:"column:amount;type:numeric(12,2)"`
	Meta      *string   `gorm:"column:meta;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (kpiEventModel) TableName() string { return "kpi_events" }

// Read-side models. These tables are owned by the ordering and catalog
// systems; this engine only selects from them.

type orderModel struct {
	OrderID         string    `gorm:"column:order_id;type:uuid;primaryKey"`
	UserID          string    `gorm:"column:user_id;type:uuid"`
	Status          string    `gorm:"column:status"`
	MealCount       int       `gorm:"column:meal_count"`
	Subtotal        float64   `gorm:"column:subtotal;type:numeric(12,2)"`
	CreditsRedeemed float64   `gorm:"column:credits_redeemed;type:numeric(12,2)"`
	IsSubscription  bool      `gorm:"column:is_subscription"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (orderModel) TableName() string { return "orders" }

type referralModel struct {
	ReferralID       string  `gorm:"column:referral_id;type:uuid;primaryKey"`
	ReferrerUserID   string  `gorm:"column:referrer_user_id;type:uuid"`
	ReferredUserID   string  `gorm:"column:referred_user_id;type:uuid"`
	Converted        bool    `gorm:"column:converted"`
	ConvertedOrderID *string `gorm:"column:converted_order_id"`
}

func (referralModel) TableName() string { return "referrals" }

type reviewModel struct {
	ReviewID  string    `gorm:"column:review_id;type:uuid;primaryKey"`
	UserID    string    `gorm:"column:user_id;type:uuid"`
	Status    string    `gorm:"column:status"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (reviewModel) TableName() string { return "meal_reviews" }

type fridgeModel struct {
	FridgeID          string `gorm:"column:fridge_id;primaryKey"`
	LowStockThreshold int    `gorm:"column:low_stock_threshold"`
}

func (fridgeModel) TableName() string { return "fridges" }

type fridgeInventoryModel struct {
	FridgeID  string `gorm:"column:fridge_id"`
	ProductID string `gorm:"column:product_id"`
	Quantity  int    `gorm:"column:quantity"`
}

func (fridgeInventoryModel) TableName() string { return "fridge_inventory" }
