package request

// BillFilterRequest represents bill log filter parameters
type BillFilterRequest struct {
	Printed     *bool  `form:"printed"`
	UnitID      string `form:"unit_id" binding:"omitempty,uuid"`
	PaymentMode string `form:"payment_mode" binding:"omitempty,oneof=UPI CASH FREE GUEST"`
	StartDate   string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate     string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Page        int    `form:"page,default=1" binding:"min=0"`
	PerPage     int    `form:"per_page,default=15" binding:"min=0"`
}
