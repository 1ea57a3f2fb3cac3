package model

import (
	"time"
)

// ProcurementStatistics aggregates dashboard figures for one organization.
type ProcurementStatistics struct {
	TotalSpend         string           `json:"total_spend"`
	ApprovedPOCount    int              `json:"approved_po_count"`
	POCountByStatus    map[string]int64 `json:"po_count_by_status"`
	OverdueApprovals   int64            `json:"overdue_approvals"`
	TopVendors         []VendorSpend    `json:"top_vendors"`
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
}

// VendorSpend is a vendor ranked by approved purchase order value.
type VendorSpend struct {
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
	POCount    int    `json:"po_count"`
	TotalSpend string `json:"total_spend"`
}
