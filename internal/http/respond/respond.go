// Package respond writes JSON bodies for the user endpoints.
package respond

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/golang/glog"
)

// Envelope wraps every JSON body: the HTTP status is echoed in Code and the view, if any, goes in Data.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes status and an envelope carrying data.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes status and an envelope with no data.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		glog.Infof("[respond]encode payload failed = %s\n", err)
	}
}
