package server

import (
	"net/http"

	"github.com/skip2/go-qrcode"
)

// handleQR renders a QR code pointing players at the game. Without a
// configured base URL the request's own host is used.
func handleQR(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := baseURL
		if url == "" {
			scheme := "http"
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				scheme = "https"
			}
			url = scheme + "://" + r.Host + "/"
		}

		png, err := qrcode.Encode(url, qrcode.Medium, 320)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}
