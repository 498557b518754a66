package httpapi

import (
	"net/http"

	"invizible.art/internal/contact"
)

func (a *API) handleContact(w http.ResponseWriter, r *http.Request) {
	var f contact.Form
	if err := decodeJSON(w, r, &f, a.maxBody); err != nil {
		a.handleError(w, r, err)
		return
	}
	saved, err := a.contact.Submit(r.Context(), f)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": saved.ID})
}
