package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MReaperCancelledOrders   MetricKey = "reaper_cancelled_orders_total"
	MRefundRequired          MetricKey = "order_refund_required_total"
)

// Well-known label sets, kept low-cardinality.
var (
	UsecaseRequestLabels  = []string{"use_case", "outcome"}
	UsecaseDurationLabels = []string{"use_case"}
	HTTPLabels            = []string{"method", "route", "status"}
	ExternalRequestLabels = []string{"peer", "endpoint", "outcome"}
	ExternalDurationLabel = []string{"peer", "endpoint"}
	ReaperLabels          = []string{"outcome"}
	RefundLabels          = []string{"payment_method"}
)
