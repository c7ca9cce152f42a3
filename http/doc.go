// Package http is the outbound client the gateway uses to fetch downstream API
// documents. It adds default headers, request and response interceptors,
// request ID and trace context propagation, and retries.
//
// Retries
//   - Controlled via Builder.WithRetries(maxRetries, retryDelay).
//   - Transport errors, timeouts and 5xx responses are retried; 4xx are not.
//   - The delay doubles per attempt, is capped at 30 seconds and gets full
//     jitter. Waiting stops as soon as the request context is done.
//   - Interceptor errors are not retried.
package http
