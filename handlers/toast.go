package handlers

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"

	"labreports/config"
)

// SetToast sets the HX-Trigger response header so the page shows a toast.
// htmx dispatches it as a showToast event; the export script reads it directly.
func SetToast(e *core.RequestEvent, toastType string, message string) {
	data, err := json.Marshal(map[string]any{
		"showToast": map[string]string{
			"message": message,
			"type":    toastType,
		},
	})
	if err != nil {
		config.Logger().WithError(err).Warn("toast: failed to marshal HX-Trigger JSON")
		return
	}
	e.Response.Header().Set("HX-Trigger", string(data))
}

// ErrorToast sets an error toast and prevents HTMX from swapping the error text into the DOM.
func ErrorToast(e *core.RequestEvent, statusCode int, message string) error {
	SetToast(e, "error", message)
	e.Response.Header().Set("HX-Reswap", "none")
	return e.String(statusCode, message)
}
