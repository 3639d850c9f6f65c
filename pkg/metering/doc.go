// Package metering counts directory operations per tenant.
//
// The executor reports one Event per terminal outcome. PrometheusSink turns
// events into counters for calls, error categories and attempts plus a
// duration histogram, all labelled by tenant:
//
//	dirbridge_operations_total{tenant,operation,result}
//	dirbridge_operations_errors_total{tenant,category}
//	dirbridge_operations_attempts_total{tenant}
//	dirbridge_operations_duration_seconds{tenant,operation}
package metering
