package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"parkly/pkg/logger"
)

// GatewaySignatureVerification authenticates payment-gateway webhooks with
// an HMAC-SHA256 over the raw body, carried in X-Gateway-Signature as
// "sha256=<hex>".
func GatewaySignatureVerification(signingSecret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := extractSignature(r)

			if signature == "" {
				logAndReject(w, log, r, "Missing X-Gateway-Signature header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				logAndReject(w, log, r, "Failed to read request body")
				return
			}

			if !verifySignature(body, signature, signingSecret) {
				logAndReject(w, log, r, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := r.Header.Get("X-Gateway-Signature")
	if header == "" {
		return ""
	}

	signature, found := strings.CutPrefix(header, "sha256=")
	if found {
		return signature
	}

	return header
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	return body, nil
}

func verifySignature(body []byte, receivedSignature string, signingSecret string) bool {
	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write(body)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedSignature), []byte(receivedSignature))
}

func logAndReject(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Gateway webhook verification failed",
		"request_id", requestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
